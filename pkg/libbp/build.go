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
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/GoogleCloudPlatform/libbp/pkg/bperror"
	"github.com/GoogleCloudPlatform/libbp/pkg/bptoml"
	"github.com/GoogleCloudPlatform/libbp/pkg/launch"
	"github.com/GoogleCloudPlatform/libbp/pkg/sbom"
)

// BuildResult collects the build phase outputs beyond the layers themselves:
// launch metadata, the persisted store, phase-level SBOMs and unmet plan
// entries. The zero result is valid and writes nothing.
type BuildResult struct {
	launch      *launch.Launch
	store       *bptoml.Store
	buildSBOMs  []sbom.SBOM
	launchSBOMs []sbom.SBOM
	unmet       []string
}

// NewBuildResult creates an empty BuildResult.
func NewBuildResult() *BuildResult {
	return &BuildResult{}
}

// WithLaunch sets the launch.toml contents. An empty Launch writes no file.
func (r *BuildResult) WithLaunch(l *launch.Launch) *BuildResult {
	r.launch = l
	return r
}

// WithStore persists metadata to store.toml for the next build.
func (r *BuildResult) WithStore(s *bptoml.Store) *BuildResult {
	r.store = s
	return r
}

// WithBuildSBOM attaches a bill of materials describing build-time dependencies.
func (r *BuildResult) WithBuildSBOM(doc sbom.SBOM) *BuildResult {
	r.buildSBOMs = append(r.buildSBOMs, doc)
	return r
}

// WithLaunchSBOM attaches a bill of materials describing the launch image contents.
func (r *BuildResult) WithLaunchSBOM(doc sbom.SBOM) *BuildResult {
	r.launchSBOMs = append(r.launchSBOMs, doc)
	return r
}

// WithUnmet declares a required dependency from the buildpack plan that this
// buildpack did not satisfy, leaving it for a later buildpack in the group.
func (r *BuildResult) WithUnmet(name string) *BuildResult {
	r.unmet = append(r.unmet, name)
	return r
}

// buildTOML is the schema of build.toml.
type buildTOML struct {
	Unmet []unmetEntry `toml:"unmet,omitempty"`
}

type unmetEntry struct {
	Name string `toml:"name"`
}

// write persists the result files into the layers directory. launch.toml and
// build.toml are only created when they would be non-empty.
func (r *BuildResult) write(layersDir string) error {
	if r.launch != nil && !r.launch.IsEmpty() {
		// A Launch set directly rather than through launch.Builder has not
		// been validated yet.
		if err := r.launch.Validate(); err != nil {
			return err
		}
		if err := r.launch.WriteFile(filepath.Join(layersDir, "launch.toml")); err != nil {
			return bperror.IOErrorf("", "launch.toml", "writing launch.toml: %v", err)
		}
	}
	if r.store != nil {
		if err := bptoml.WriteStore(filepath.Join(layersDir, "store.toml"), r.store); err != nil {
			return bperror.IOErrorf("", "store.toml", "writing store.toml: %v", err)
		}
	}
	if len(r.unmet) > 0 {
		var b buildTOML
		for _, name := range r.unmet {
			b.Unmet = append(b.Unmet, unmetEntry{Name: name})
		}
		f, err := os.Create(filepath.Join(layersDir, "build.toml"))
		if err != nil {
			return bperror.IOErrorf("", "build.toml", "creating build.toml: %v", err)
		}
		err = toml.NewEncoder(f).Encode(b)
		f.Close()
		if err != nil {
			return bperror.IOErrorf("", "build.toml", "writing build.toml: %v", err)
		}
	}
	for base, docs := range map[string][]sbom.SBOM{"build": r.buildSBOMs, "launch": r.launchSBOMs} {
		for _, doc := range docs {
			path := sbom.Path(layersDir, base, doc.Format)
			if err := os.WriteFile(path, doc.Data, 0644); err != nil {
				return bperror.IOErrorf("", "sbom", "writing %s: %v", path, err)
			}
		}
	}
	return nil
}
