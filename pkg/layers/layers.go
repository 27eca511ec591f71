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

// Package layers manages the lifecycle of buildpack layers: restoring cached
// state from a previous build, finalizing each layer exactly once per build,
// and keeping the on-disk layout crash-safe.
package layers

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"

	"github.com/GoogleCloudPlatform/libbp/pkg/bperror"
	"github.com/GoogleCloudPlatform/libbp/pkg/fileutil"
	"github.com/GoogleCloudPlatform/libbp/pkg/layerenv"
	"github.com/GoogleCloudPlatform/libbp/pkg/sbom"
)

var layerNameRe = regexp.MustCompile(`^[a-z0-9._-]+$`)

// reservedLayerNames collide with files the framework itself writes into the
// layers directory.
var reservedLayerNames = map[string]bool{
	"build":  true,
	"launch": true,
	"store":  true,
}

// Decision tells Finalize what to do with a layer. Exactly one of Keep,
// Replace or Delete is passed per layer per build.
type Decision interface {
	isDecision()
}

// Keep retains the restored layer contents and rewrites only its lifecycle
// flags. Optional fields overwrite the corresponding restored state; nil
// fields leave the on-disk state as restored.
type Keep struct {
	Types Types
	Env   *layerenv.LayerEnv
	SBOMs []sbom.SBOM
	ExecD map[string]string
}

// Replace discards the restored contents and rebuilds the layer. Populate is
// called with the empty layer directory to create its contents; ExecD maps a
// program name to a source path copied into the layer's exec.d directory.
type Replace struct {
	Types    Types
	Metadata map[string]interface{}
	Populate func(layerDir string) error
	Env      *layerenv.LayerEnv
	SBOMs    []sbom.SBOM
	ExecD    map[string]string
}

// Delete removes the layer entirely.
type Delete struct{}

func (Keep) isDecision()    {}
func (Replace) isDecision() {}
func (Delete) isDecision()  {}

// Layer is a finalized layer.
type Layer struct {
	Name  string
	Path  string
	Types Types
}

// Store manages the layers directory of one build.
type Store struct {
	layersDir   string
	accumulator *layerenv.Accumulator
	finalized   map[string]bool
}

// NewStore creates a Store rooted at the lifecycle-provided layers directory.
func NewStore(layersDir string) *Store {
	return &Store{
		layersDir:   layersDir,
		accumulator: layerenv.NewAccumulator(),
		finalized:   map[string]bool{},
	}
}

// Dir returns the layers directory the store manages.
func (s *Store) Dir() string {
	return s.layersDir
}

// Accumulator returns the merged environment contributions of every layer
// finalized so far.
func (s *Store) Accumulator() *layerenv.Accumulator {
	return s.accumulator
}

// BuildEnv computes the build-scope environment after the layers finalized so
// far, starting from the current process environment.
func (s *Store) BuildEnv() layerenv.Env {
	return s.accumulator.Apply(layerenv.ScopeBuild, layerenv.EnvFromList(os.Environ()))
}

// Retrieve inspects what a previous build left behind for the named layer.
// An orphaned directory without its metadata file, or metadata file without
// its directory, is removed and reported as NotPresent.
func (s *Store) Retrieve(name string) (*State, error) {
	if err := s.validateName(name); err != nil {
		return nil, err
	}

	layerDir := filepath.Join(s.layersDir, name)
	tomlPath := layerDir + ".toml"

	dirExists, err := fileutil.Exists(layerDir)
	if err != nil {
		return nil, bperror.IOErrorf(name, "retrieve", "checking layer directory: %v", err)
	}
	tomlExists, err := fileutil.Exists(tomlPath)
	if err != nil {
		return nil, bperror.IOErrorf(name, "retrieve", "checking layer metadata: %v", err)
	}

	if dirExists != tomlExists {
		if err := s.removeLayer(name); err != nil {
			return nil, err
		}
		return &State{Kind: NotPresent}, nil
	}
	if !dirExists {
		return &State{Kind: NotPresent}, nil
	}

	var cm contentMetadata
	if _, err := toml.DecodeFile(tomlPath, &cm); err != nil {
		return &State{Kind: MetadataInvalid, ParseError: err}, nil
	}
	return &State{Kind: Present, Types: cm.Types, Metadata: cm.Metadata}, nil
}

// Finalize commits the decision for the named layer. Each layer may be
// finalized at most once per build; a second call is a programming error in
// the buildpack. The layer's metadata file is written after every other write
// so a crash mid-finalization leaves a half-written layer that the next build
// retrieves as NotPresent rather than Present with stale contents.
func (s *Store) Finalize(name string, decision Decision) (*Layer, error) {
	if err := s.validateName(name); err != nil {
		return nil, err
	}
	if s.finalized[name] {
		return nil, bperror.FrameworkMisusef("layer %q finalized twice in one build", name)
	}
	s.finalized[name] = true

	switch d := decision.(type) {
	case Delete:
		if err := s.removeLayer(name); err != nil {
			return nil, err
		}
		return nil, nil
	case Keep:
		return s.finalizeKeep(name, d)
	case Replace:
		return s.finalizeReplace(name, d)
	default:
		return nil, bperror.FrameworkMisusef("unknown layer decision %T for layer %q", decision, name)
	}
}

func (s *Store) finalizeKeep(name string, d Keep) (*Layer, error) {
	layerDir := filepath.Join(s.layersDir, name)
	tomlPath := layerDir + ".toml"

	tomlExists, err := fileutil.Exists(tomlPath)
	if err != nil {
		return nil, bperror.IOErrorf(name, "keep", "checking layer metadata: %v", err)
	}
	if !tomlExists {
		return nil, bperror.FrameworkMisusef("layer %q cannot be kept: no restored layer exists, use Replace", name)
	}

	if noTypes(d.Types) {
		if err := s.removeLayer(name); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var cm contentMetadata
	if _, err := toml.DecodeFile(tomlPath, &cm); err != nil {
		return nil, bperror.FrameworkMisusef("layer %q cannot be kept: restored metadata is unparsable, use Replace", name)
	}
	cm.Types = d.Types

	if err := s.writeLayerExtras(name, layerDir, d.Env, d.SBOMs, d.ExecD); err != nil {
		return nil, err
	}
	if err := s.contributeEnv(name, layerDir); err != nil {
		return nil, err
	}
	if err := writeContentMetadata(tomlPath, cm); err != nil {
		return nil, bperror.IOErrorf(name, "keep", "writing layer metadata: %v", err)
	}
	return &Layer{Name: name, Path: layerDir, Types: d.Types}, nil
}

func (s *Store) finalizeReplace(name string, d Replace) (*Layer, error) {
	layerDir := filepath.Join(s.layersDir, name)
	tomlPath := layerDir + ".toml"

	// Stale metadata must not outlive the contents it described. Removing the
	// file first means a crash during Populate leaves only an orphaned
	// directory, which Retrieve degrades to NotPresent.
	if err := os.Remove(tomlPath); err != nil && !os.IsNotExist(err) {
		return nil, bperror.IOErrorf(name, "replace", "removing stale layer metadata: %v", err)
	}
	if err := fileutil.ClearDir(layerDir); err != nil {
		return nil, bperror.IOErrorf(name, "replace", "clearing layer directory: %v", err)
	}

	if d.Populate != nil {
		if err := d.Populate(layerDir); err != nil {
			// The author's populate failed partway; remove the half-built
			// layer so nothing can mistake it for a valid one.
			if rmErr := s.removeLayer(name); rmErr != nil {
				return nil, rmErr
			}
			if bpErr, ok := err.(*bperror.Error); ok {
				return nil, bpErr
			}
			return nil, &bperror.Error{
				Kind:    bperror.KindAuthorError,
				ID:      bperror.GenerateErrorID(name, "populate", err.Error()),
				Message: err.Error(),
				Layer:   name,
				Op:      "populate",
			}
		}
	}

	if noTypes(d.Types) {
		if err := s.removeLayer(name); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := s.writeLayerExtras(name, layerDir, d.Env, d.SBOMs, d.ExecD); err != nil {
		return nil, err
	}
	if err := s.contributeEnv(name, layerDir); err != nil {
		return nil, err
	}
	if err := writeContentMetadata(tomlPath, contentMetadata{Types: d.Types, Metadata: d.Metadata}); err != nil {
		return nil, bperror.IOErrorf(name, "replace", "writing layer metadata: %v", err)
	}
	return &Layer{Name: name, Path: layerDir, Types: d.Types}, nil
}

// writeLayerExtras writes the optional env directories, SBOM files and exec.d
// programs of a layer. All of these land before the metadata file.
func (s *Store) writeLayerExtras(name, layerDir string, env *layerenv.LayerEnv, sboms []sbom.SBOM, execD map[string]string) error {
	if env != nil {
		if err := env.WriteToDir(layerDir); err != nil {
			return bperror.IOErrorf(name, "env", "writing env directories: %v", err)
		}
	}
	for _, doc := range sboms {
		path := sbom.Path(s.layersDir, name, doc.Format)
		if err := os.WriteFile(path, doc.Data, 0644); err != nil {
			return bperror.IOErrorf(name, "sbom", "writing %s: %v", path, err)
		}
	}
	if len(execD) > 0 {
		execDir := filepath.Join(layerDir, "exec.d")
		if err := os.MkdirAll(execDir, 0755); err != nil {
			return bperror.IOErrorf(name, "exec.d", "creating exec.d directory: %v", err)
		}
		for progName, srcPath := range execD {
			dest := filepath.Join(execDir, progName)
			if err := fileutil.CopyFile(dest, srcPath); err != nil {
				return bperror.IOErrorf(name, "exec.d", "copying %s: %v", srcPath, err)
			}
			if err := os.Chmod(dest, 0755); err != nil {
				return bperror.IOErrorf(name, "exec.d", "marking %s executable: %v", dest, err)
			}
		}
	}
	return nil
}

// contributeEnv reads the layer's final env directories back from disk,
// including the implicit bin/lib/include/pkgconfig path entries, and merges
// them into the store's accumulator for subsequent layers and buildpacks.
func (s *Store) contributeEnv(name, layerDir string) error {
	env, err := layerenv.ReadFromDir(layerDir)
	if err != nil {
		return bperror.IOErrorf(name, "env", "reading env directories: %v", err)
	}
	s.accumulator.Contribute(name, env)
	return nil
}

// removeLayer removes the layer directory, its metadata file and any SBOM
// files attached to the layer.
func (s *Store) removeLayer(name string) error {
	layerDir := filepath.Join(s.layersDir, name)
	if err := fileutil.ForceRemoveAll(layerDir); err != nil {
		return bperror.IOErrorf(name, "remove", "removing layer directory: %v", err)
	}
	if err := os.Remove(layerDir + ".toml"); err != nil && !os.IsNotExist(err) {
		return bperror.IOErrorf(name, "remove", "removing layer metadata: %v", err)
	}
	for _, format := range sbom.Formats {
		if err := os.Remove(sbom.Path(s.layersDir, name, format)); err != nil && !os.IsNotExist(err) {
			return bperror.IOErrorf(name, "remove", "removing layer SBOM: %v", err)
		}
	}
	return nil
}

func (s *Store) validateName(name string) error {
	if !layerNameRe.MatchString(name) {
		return bperror.FrameworkMisusef("invalid layer name %q: only lowercase letters, numbers, '.', '_' and '-' are allowed", name)
	}
	if reservedLayerNames[name] {
		return bperror.FrameworkMisusef("layer name %q is reserved", name)
	}
	return nil
}

func noTypes(t Types) bool {
	return !t.Build && !t.Launch && !t.Cache
}

func writeContentMetadata(path string, cm contentMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cm)
}
