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

package libbp

import (
	"log"

	"github.com/GoogleCloudPlatform/libbp/pkg/bptoml"
	"github.com/GoogleCloudPlatform/libbp/pkg/layers"
	"github.com/GoogleCloudPlatform/libbp/pkg/platform"
)

// Context carries the inputs shared by both phases.
type Context struct {
	// ApplicationDir is the application source directory, the working
	// directory the lifecycle starts each phase in.
	ApplicationDir string
	// BuildpackDir is the directory the buildpack is distributed in,
	// taken from CNB_BUILDPACK_DIR.
	BuildpackDir string
	// Descriptor is the parsed and validated buildpack.toml.
	Descriptor *bptoml.Descriptor
	// Platform is the platform directory with its user-provided environment.
	Platform *platform.Platform
	// Target describes the OS and architecture being built for.
	Target *platform.Target

	debug  bool
	logger *log.Logger
}

// BuildpackID returns the buildpack's id from its descriptor.
func (c *Context) BuildpackID() string {
	return c.Descriptor.Buildpack.ID
}

// BuildpackVersion returns the buildpack's version from its descriptor.
func (c *Context) BuildpackVersion() string {
	return c.Descriptor.Buildpack.Version
}

// BuildpackName returns the buildpack's human-readable name.
func (c *Context) BuildpackName() string {
	return c.Descriptor.Buildpack.Name
}

// Logf emits a message to the build log.
func (c *Context) Logf(format string, args ...interface{}) {
	c.logger.Printf(format, args...)
}

// Debugf emits a message only when BP_DEBUG is set.
func (c *Context) Debugf(format string, args ...interface{}) {
	if !c.debug {
		return
	}
	c.Logf("DEBUG: "+format, args...)
}

// Warnf emits a warning to the build log.
func (c *Context) Warnf(format string, args ...interface{}) {
	c.Logf("WARNING: "+format, args...)
}

// DetectContext is the input to the detect phase.
type DetectContext struct {
	Context
}

// BuildContext is the input to the build phase.
type BuildContext struct {
	Context

	// LayersDir is the directory the buildpack contributes layers into.
	LayersDir string
	// Plan is the buildpack plan: the requires assigned to this buildpack by
	// detection across the group.
	Plan *bptoml.Plan
	// Store is the persisted store.toml of a previous build, nil on the
	// first build.
	Store *bptoml.Store

	layers *layers.Store
}

// Layers returns the layer store for this build.
func (c *BuildContext) Layers() *layers.Store {
	return c.layers
}
