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

package layers

import (
	"bytes"

	"github.com/BurntSushi/toml"

	"github.com/GoogleCloudPlatform/libbp/pkg/bperror"
)

// Types are the lifecycle flags of a layer. A layer with all three flags false
// is deleted when finalized.
type Types struct {
	Build  bool `toml:"build"`
	Launch bool `toml:"launch"`
	Cache  bool `toml:"cache"`
}

// contentMetadata is the schema of <name>.toml next to a layer directory.
type contentMetadata struct {
	Types    Types                  `toml:"types"`
	Metadata map[string]interface{} `toml:"metadata,omitempty"`
}

// StateKind describes what was found on disk for a layer.
type StateKind int

const (
	// NotPresent means no usable restored layer exists. Orphaned halves, a
	// directory without its metadata file or the reverse, degrade to this
	// after the orphan is removed.
	NotPresent StateKind = iota
	// Present means the layer directory and its metadata file both exist and
	// the metadata file parsed.
	Present
	// MetadataInvalid means the layer exists but its metadata file could not
	// be parsed. The contents are suspect; the usual response is Replace.
	MetadataInvalid
)

func (k StateKind) String() string {
	return []string{"not-present", "present", "metadata-invalid"}[k]
}

// State is the restored condition of a layer from a previous build.
type State struct {
	Kind  StateKind
	Types Types

	// Metadata is the raw [metadata] table. Only set when Kind is Present.
	Metadata map[string]interface{}

	// ParseError carries the metadata parse failure when Kind is
	// MetadataInvalid. It is data, not a control-flow error.
	ParseError error
}

// DecodeMetadata unmarshals the restored metadata into v, which follows the
// usual toml struct tag conventions. A shape mismatch is reported as a
// recoverable metadata parse error so the author can fall back to Replace.
func (s *State) DecodeMetadata(v interface{}) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s.Metadata); err != nil {
		return bperror.Errorf(bperror.KindMetadataParse, "re-encoding layer metadata: %v", err)
	}
	if _, err := toml.Decode(buf.String(), v); err != nil {
		return bperror.Errorf(bperror.KindMetadataParse, "decoding layer metadata: %v", err)
	}
	return nil
}
