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

package bptoml

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/GoogleCloudPlatform/libbp/pkg/bperror"
)

func writeDescriptor(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buildpack.toml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing buildpack.toml: %v", err)
	}
	return path
}

func TestLoadDescriptor(t *testing.T) {
	path := writeDescriptor(t, `
api = "0.10"

[buildpack]
id = "example/ruby"
version = "1.2.3"
name = "Ruby Buildpack"
clear-env = true

[[targets]]
os = "linux"
arch = "amd64"

[metadata]
custom-key = "custom-value"
`)

	d, err := LoadDescriptor(path)
	if err != nil {
		t.Fatalf("LoadDescriptor(%q) got error: %v", path, err)
	}
	if got, want := d.Buildpack.String(), "example/ruby@1.2.3"; got != want {
		t.Errorf("Buildpack.String() = %q, want %q", got, want)
	}
	if !d.Buildpack.ClearEnv {
		t.Errorf("ClearEnv = false, want true")
	}
	if d.IsMeta() {
		t.Errorf("IsMeta() = true for a component buildpack")
	}
	want := []Target{{OS: "linux", Arch: "amd64"}}
	if diff := cmp.Diff(want, d.Targets); diff != "" {
		t.Errorf("Targets mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDescriptorValidation(t *testing.T) {
	testCases := []struct {
		name     string
		contents string
	}{
		{
			name:     "missing api",
			contents: "[buildpack]\nid = \"example/a\"\nversion = \"1.0.0\"\n",
		},
		{
			name:     "reserved id",
			contents: "api = \"0.10\"\n[buildpack]\nid = \"app\"\nversion = \"1.0.0\"\n",
		},
		{
			name:     "invalid id characters",
			contents: "api = \"0.10\"\n[buildpack]\nid = \"Example Buildpack\"\nversion = \"1.0.0\"\n",
		},
		{
			name:     "leading zero version",
			contents: "api = \"0.10\"\n[buildpack]\nid = \"example/a\"\nversion = \"01.0.0\"\n",
		},
		{
			name:     "partial version",
			contents: "api = \"0.10\"\n[buildpack]\nid = \"example/a\"\nversion = \"1.0\"\n",
		},
		{
			name: "order and targets are mutually exclusive",
			contents: `
api = "0.10"
[buildpack]
id = "example/meta"
version = "1.0.0"
[[targets]]
os = "linux"
[[order]]
[[order.group]]
id = "example/a"
version = "1.0.0"
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadDescriptor(writeDescriptor(t, tc.contents))
			var bpErr *bperror.Error
			if !errors.As(err, &bpErr) || bpErr.Kind != bperror.KindContractViolation {
				t.Errorf("LoadDescriptor got %v, want a contract violation", err)
			}
		})
	}
}

func TestLoadDescriptorMetaOrder(t *testing.T) {
	path := writeDescriptor(t, `
api = "0.10"

[buildpack]
id = "example/meta"
version = "1.0.0"

[[order]]
[[order.group]]
id = "example/a"
version = "1.0.0"
[[order.group]]
id = "example/b"
version = "2.0.0"
optional = true
`)

	d, err := LoadDescriptor(path)
	if err != nil {
		t.Fatalf("LoadDescriptor(%q) got error: %v", path, err)
	}
	if !d.IsMeta() {
		t.Fatalf("IsMeta() = false for an order buildpack")
	}
	want := []OrderGroup{{Group: []GroupEntry{
		{ID: "example/a", Version: "1.0.0"},
		{ID: "example/b", Version: "2.0.0", Optional: true},
	}}}
	if diff := cmp.Diff(want, d.Order); diff != "" {
		t.Errorf("Order mismatch (-want +got):\n%s", diff)
	}
}

func TestAPIMatches(t *testing.T) {
	testCases := []struct {
		declared  string
		want      bool
		wantError bool
	}{
		{declared: SupportedAPI, want: true},
		{declared: "0.9", want: false},
		{declared: "1.0", want: false},
		{declared: "not-a-version", wantError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.declared, func(t *testing.T) {
			got, err := APIMatches(tc.declared)
			if tc.wantError != (err != nil) {
				t.Fatalf("APIMatches(%q) got error: %v, want error? %v", tc.declared, err, tc.wantError)
			}
			if got != tc.want {
				t.Errorf("APIMatches(%q) = %v, want %v", tc.declared, got, tc.want)
			}
		})
	}
}

func TestLoadDescriptorAPI(t *testing.T) {
	// The api key must be readable even when the rest of the descriptor does
	// not validate, so a mismatched buildpack still gets the mismatch code.
	path := writeDescriptor(t, `
api = "0.4"

[buildpack]
id = "app"
version = "not semver"
`)
	got, err := LoadDescriptorAPI(path)
	if err != nil {
		t.Fatalf("LoadDescriptorAPI(%q) got error: %v", path, err)
	}
	if got != "0.4" {
		t.Errorf("LoadDescriptorAPI(%q) = %q, want %q", path, got, "0.4")
	}
}

func TestLoadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.toml")
	contents := `
[[entries]]
name = "node"
[entries.metadata]
version = "20"
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing plan: %v", err)
	}

	p, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan(%q) got error: %v", path, err)
	}
	want := &Plan{Entries: []PlanEntry{{Name: "node", Metadata: map[string]interface{}{"version": "20"}}}}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("LoadPlan mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.toml")

	missing, err := LoadStore(path)
	if err != nil {
		t.Fatalf("LoadStore of a missing file got error: %v", err)
	}
	if missing != nil {
		t.Errorf("LoadStore of a missing file = %v, want nil", missing)
	}

	in := &Store{Metadata: map[string]interface{}{"last-build": "2026-08-24"}}
	if err := WriteStore(path, in); err != nil {
		t.Fatalf("WriteStore(%q) got error: %v", path, err)
	}
	out, err := LoadStore(path)
	if err != nil {
		t.Fatalf("LoadStore(%q) got error: %v", path, err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("store round trip mismatch (-want +got):\n%s", diff)
	}
}
