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

// Package bptoml contains the TOML schemas the buildpack phases read and
// write: the buildpack descriptor, the buildpack plan and the store.
package bptoml

import (
	"fmt"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver"

	"github.com/GoogleCloudPlatform/libbp/pkg/bperror"
)

// SupportedAPI is the Buildpack API version implemented by this framework. A
// descriptor declaring a different major.minor is rejected before any author
// code runs.
const SupportedAPI = "0.10"

var (
	// Reserved ids belong to the app and platform per the CNB spec.
	buildpackIDRe = regexp.MustCompile(`^[a-z0-9./-]+$`)
	versionRe     = regexp.MustCompile(`^(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)$`)
)

// Descriptor is the contents of buildpack.toml.
type Descriptor struct {
	API       string                 `toml:"api"`
	Buildpack Info                   `toml:"buildpack"`
	Stacks    []Stack                `toml:"stacks"`
	Targets   []Target               `toml:"targets"`
	Order     []OrderGroup           `toml:"order"`
	Metadata  map[string]interface{} `toml:"metadata"`
}

// Info is the [buildpack] table of the descriptor.
type Info struct {
	ID          string    `toml:"id"`
	Name        string    `toml:"name"`
	Version     string    `toml:"version"`
	Homepage    string    `toml:"homepage"`
	ClearEnv    bool      `toml:"clear-env"`
	Description string    `toml:"description"`
	Keywords    []string  `toml:"keywords"`
	Licenses    []License `toml:"licenses"`
}

// License describes a license governing use of the buildpack.
type License struct {
	Type string `toml:"type"`
	URI  string `toml:"uri"`
}

// Stack is a stack supported by the buildpack. Deprecated in favor of targets
// but still accepted on load.
type Stack struct {
	ID     string   `toml:"id"`
	Mixins []string `toml:"mixins"`
}

// Target is an OS/arch combination supported by the buildpack.
type Target struct {
	OS      string         `toml:"os"`
	Arch    string         `toml:"arch"`
	Variant string         `toml:"variant"`
	Distros []TargetDistro `toml:"distros"`
}

// TargetDistro narrows a target to a specific distribution.
type TargetDistro struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// OrderGroup is one [[order]] entry of a meta-buildpack.
type OrderGroup struct {
	Group []GroupEntry `toml:"group"`
}

// GroupEntry references a component buildpack within an order group.
type GroupEntry struct {
	ID       string `toml:"id"`
	Version  string `toml:"version"`
	Optional bool   `toml:"optional"`
}

// IsMeta reports whether the descriptor declares an order of other buildpacks
// instead of its own detect/build logic.
func (d *Descriptor) IsMeta() bool {
	return len(d.Order) > 0
}

// LoadDescriptor reads and validates buildpack.toml at the given path.
// Validation failures are contract violations: they are reported before the
// buildpack's own code is invoked.
func LoadDescriptor(path string) (*Descriptor, error) {
	var d Descriptor
	if _, err := toml.DecodeFile(path, &d); err != nil {
		return nil, bperror.ContractViolationf("parsing %s: %v", path, err)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadDescriptorAPI reads only the api key of buildpack.toml. It is used to
// verify API compatibility even when the rest of the descriptor does not
// match the supported schema.
func LoadDescriptorAPI(path string) (string, error) {
	var d struct {
		API string `toml:"api"`
	}
	if _, err := toml.DecodeFile(path, &d); err != nil {
		return "", bperror.ContractViolationf("parsing %s: %v", path, err)
	}
	if d.API == "" {
		return "", bperror.ContractViolationf("%s does not declare a Buildpack API version", path)
	}
	return d.API, nil
}

// APIMatches reports whether the declared Buildpack API version has the same
// major and minor version as the API supported by this framework.
func APIMatches(declared string) (bool, error) {
	got, err := semver.NewVersion(declared)
	if err != nil {
		return false, bperror.ContractViolationf("invalid Buildpack API version %q: %v", declared, err)
	}
	want, err := semver.NewVersion(SupportedAPI)
	if err != nil {
		return false, err
	}
	return got.Major() == want.Major() && got.Minor() == want.Minor(), nil
}

func (d *Descriptor) validate() error {
	if _, err := semver.NewVersion(d.API); err != nil {
		return bperror.ContractViolationf("invalid Buildpack API version %q: %v", d.API, err)
	}
	if err := validateID(d.Buildpack.ID); err != nil {
		return err
	}
	if !versionRe.MatchString(d.Buildpack.Version) {
		return bperror.ContractViolationf("buildpack version %q must be <X>.<Y>.<Z> with no leading zeroes", d.Buildpack.Version)
	}
	if len(d.Order) > 0 && (len(d.Stacks) > 0 || len(d.Targets) > 0) {
		return bperror.ContractViolationf("buildpack.toml declares both an order and stacks/targets; they are mutually exclusive")
	}
	for _, order := range d.Order {
		for _, entry := range order.Group {
			if err := validateID(entry.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateID(id string) error {
	if id == "app" || id == "config" {
		return bperror.ContractViolationf("buildpack id %q is reserved", id)
	}
	if !buildpackIDRe.MatchString(id) {
		return bperror.ContractViolationf("invalid buildpack id %q", id)
	}
	return nil
}

// String implements fmt.Stringer for log lines of the form id@version.
func (i Info) String() string {
	return fmt.Sprintf("%s@%s", i.ID, i.Version)
}
