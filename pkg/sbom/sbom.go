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

// Package sbom defines the software bill of materials formats a buildpack can
// attach to its build and launch results.
package sbom

import "path/filepath"

// Format identifies a supported SBOM serialization.
type Format int

const (
	// CycloneDXJSON is CycloneDX (https://cyclonedx.org/) as JSON.
	CycloneDXJSON Format = iota
	// SPDXJSON is SPDX (https://spdx.dev/) as JSON.
	SPDXJSON
	// SyftJSON is Syft (https://github.com/anchore/syft) as JSON.
	SyftJSON
)

// Formats lists all supported SBOM formats.
var Formats = []Format{CycloneDXJSON, SPDXJSON, SyftJSON}

// MediaType returns the IANA media type of the format.
func (f Format) MediaType() string {
	return []string{
		"application/vnd.cyclonedx+json",
		"application/spdx+json",
		"application/vnd.syft+json",
	}[f]
}

// Extension returns the file extension the lifecycle expects for the format.
func (f Format) Extension() string {
	return []string{"cdx.json", "spdx.json", "syft.json"}[f]
}

// SBOM is one bill of materials document in a supported format. The framework
// persists the data verbatim; it never inspects it.
type SBOM struct {
	Format Format
	Data   []byte
}

// Path returns the lifecycle-mandated location of an SBOM file for the given
// base, which is a layer name or one of "build" and "launch".
func Path(layersDir, base string, f Format) string {
	return filepath.Join(layersDir, base+".sbom."+f.Extension())
}
