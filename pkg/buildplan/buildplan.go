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

// Package buildplan contains the detect phase output: the dependencies a
// buildpack provides and requires, with optional alternatives.
package buildplan

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Provide declares a dependency the buildpack can supply during build.
type Provide struct {
	Name string `toml:"name"`
}

// Require declares a dependency the buildpack needs during build.
type Require struct {
	Name     string                 `toml:"name"`
	Metadata map[string]interface{} `toml:"metadata,omitempty"`
}

// Group is one provides/requires alternative.
type Group struct {
	Provides []Provide `toml:"provides,omitempty"`
	Requires []Require `toml:"requires,omitempty"`
}

// Plan is the build plan written on detect pass. A zero Plan is valid and
// means unconditional participation.
type Plan struct {
	Provides []Provide `toml:"provides,omitempty"`
	Requires []Require `toml:"requires,omitempty"`
	Or       []Group   `toml:"or,omitempty"`
}

// WriteFile serializes the plan to the lifecycle-provided path. An empty plan
// produces an empty file.
func (p *Plan) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(p)
}

// Builder accumulates provides and requires into a Plan. Or starts a new
// alternative group; entries added afterwards belong to that alternative.
type Builder struct {
	groups   []Group
	provides []Provide
	requires []Require
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Provides adds a provided dependency to the current group.
func (b *Builder) Provides(name string) *Builder {
	b.provides = append(b.provides, Provide{Name: name})
	return b
}

// Requires adds a required dependency to the current group.
func (b *Builder) Requires(name string, metadata map[string]interface{}) *Builder {
	b.requires = append(b.requires, Require{Name: name, Metadata: metadata})
	return b
}

// Or closes the current group and starts an alternative.
func (b *Builder) Or() *Builder {
	b.groups = append(b.groups, Group{Provides: b.provides, Requires: b.requires})
	b.provides = nil
	b.requires = nil
	return b
}

// Build assembles the Plan. The first group becomes the top-level
// provides/requires; the rest become [[or]] alternatives.
func (b *Builder) Build() *Plan {
	groups := append(b.groups, Group{Provides: b.provides, Requires: b.requires})

	plan := &Plan{Provides: groups[0].Provides, Requires: groups[0].Requires}
	for _, alternative := range groups[1:] {
		if len(alternative.Provides) == 0 && len(alternative.Requires) == 0 {
			continue
		}
		plan.Or = append(plan.Or, alternative)
	}
	return plan
}
