// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sbom

import "testing"

func TestPath(t *testing.T) {
	testCases := []struct {
		base   string
		format Format
		want   string
	}{
		{base: "runtime", format: CycloneDXJSON, want: "/layers/runtime.sbom.cdx.json"},
		{base: "build", format: SPDXJSON, want: "/layers/build.sbom.spdx.json"},
		{base: "launch", format: SyftJSON, want: "/layers/launch.sbom.syft.json"},
	}

	for _, tc := range testCases {
		if got := Path("/layers", tc.base, tc.format); got != tc.want {
			t.Errorf("Path(/layers, %q, %v) = %q, want %q", tc.base, tc.format, got, tc.want)
		}
	}
}

func TestMediaType(t *testing.T) {
	if got, want := CycloneDXJSON.MediaType(), "application/vnd.cyclonedx+json"; got != want {
		t.Errorf("CycloneDXJSON.MediaType() = %q, want %q", got, want)
	}
}
