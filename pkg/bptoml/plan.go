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
	"github.com/BurntSushi/toml"

	"github.com/GoogleCloudPlatform/libbp/pkg/bperror"
)

// Plan is the buildpack plan passed to the build phase: the requires
// contributed for this buildpack by detection across the group.
type Plan struct {
	Entries []PlanEntry `toml:"entries"`
}

// PlanEntry is a single required dependency with its metadata.
type PlanEntry struct {
	Name     string                 `toml:"name"`
	Metadata map[string]interface{} `toml:"metadata"`
}

// LoadPlan reads the buildpack plan file written by the lifecycle.
func LoadPlan(path string) (*Plan, error) {
	var p Plan
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return nil, bperror.ContractViolationf("parsing buildpack plan %s: %v", path, err)
	}
	return &p, nil
}
