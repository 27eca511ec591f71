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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/GoogleCloudPlatform/libbp/pkg/bperror"
	"github.com/GoogleCloudPlatform/libbp/pkg/layerenv"
	"github.com/GoogleCloudPlatform/libbp/pkg/sbom"
)

func TestRetrieveNotPresent(t *testing.T) {
	s := NewStore(t.TempDir())
	state, err := s.Retrieve("runtime")
	if err != nil {
		t.Fatalf("Retrieve(runtime) got error: %v", err)
	}
	if state.Kind != NotPresent {
		t.Errorf("Retrieve(runtime).Kind = %v, want %v", state.Kind, NotPresent)
	}
}

func TestReplaceThenRetrieve(t *testing.T) {
	layersDir := t.TempDir()
	s := NewStore(layersDir)

	layer, err := s.Finalize("runtime", Replace{
		Types:    Types{Build: true, Cache: true},
		Metadata: map[string]interface{}{"version": "3.2.1"},
		Populate: func(dir string) error {
			return os.WriteFile(filepath.Join(dir, "ruby"), []byte("binary"), 0755)
		},
	})
	if err != nil {
		t.Fatalf("Finalize(runtime, Replace) got error: %v", err)
	}
	if layer.Path != filepath.Join(layersDir, "runtime") {
		t.Errorf("layer.Path = %q, want %q", layer.Path, filepath.Join(layersDir, "runtime"))
	}

	// A fresh store simulates the next build restoring the layer.
	state, err := NewStore(layersDir).Retrieve("runtime")
	if err != nil {
		t.Fatalf("Retrieve(runtime) got error: %v", err)
	}
	if state.Kind != Present {
		t.Fatalf("Retrieve(runtime).Kind = %v, want %v", state.Kind, Present)
	}
	if diff := cmp.Diff(Types{Build: true, Cache: true}, state.Types); diff != "" {
		t.Errorf("restored types mismatch (-want +got):\n%s", diff)
	}

	var meta struct {
		Version string `toml:"version"`
	}
	if err := state.DecodeMetadata(&meta); err != nil {
		t.Fatalf("DecodeMetadata got error: %v", err)
	}
	if meta.Version != "3.2.1" {
		t.Errorf("restored metadata version = %q, want %q", meta.Version, "3.2.1")
	}

	if _, err := os.Stat(filepath.Join(layersDir, "runtime", "ruby")); err != nil {
		t.Errorf("populated file missing: %v", err)
	}
}

func TestReplacePopulateFailureLeavesNotPresent(t *testing.T) {
	layersDir := t.TempDir()
	s := NewStore(layersDir)

	_, err := s.Finalize("runtime", Replace{
		Types: Types{Build: true},
		Populate: func(dir string) error {
			if err := os.WriteFile(filepath.Join(dir, "partial"), []byte("half"), 0644); err != nil {
				return err
			}
			return errors.New("download interrupted")
		},
	})
	if err == nil {
		t.Fatalf("Finalize(runtime, Replace) with failing populate got nil error")
	}

	state, err := NewStore(layersDir).Retrieve("runtime")
	if err != nil {
		t.Fatalf("Retrieve(runtime) got error: %v", err)
	}
	if state.Kind != NotPresent {
		t.Errorf("after failed populate, Retrieve(runtime).Kind = %v, want %v", state.Kind, NotPresent)
	}
	if _, statErr := os.Stat(filepath.Join(layersDir, "runtime")); !os.IsNotExist(statErr) {
		t.Errorf("half-built layer directory survived a populate failure")
	}
}

func TestAllTypesFalseDeletesLayer(t *testing.T) {
	layersDir := t.TempDir()

	if _, err := NewStore(layersDir).Finalize("scratch", Replace{
		Types:    Types{Build: true},
		Populate: func(dir string) error { return nil },
	}); err != nil {
		t.Fatalf("initial Finalize got error: %v", err)
	}

	layer, err := NewStore(layersDir).Finalize("scratch", Keep{Types: Types{}})
	if err != nil {
		t.Fatalf("Finalize(scratch, Keep with no types) got error: %v", err)
	}
	if layer != nil {
		t.Errorf("Finalize with all types false returned a layer, want nil")
	}
	if _, err := os.Stat(filepath.Join(layersDir, "scratch")); !os.IsNotExist(err) {
		t.Errorf("layer directory survived an all-types-false finalize")
	}
	if _, err := os.Stat(filepath.Join(layersDir, "scratch.toml")); !os.IsNotExist(err) {
		t.Errorf("layer metadata survived an all-types-false finalize")
	}
}

func TestDuplicateFinalize(t *testing.T) {
	s := NewStore(t.TempDir())
	if _, err := s.Finalize("runtime", Replace{Types: Types{Build: true}}); err != nil {
		t.Fatalf("first Finalize got error: %v", err)
	}
	_, err := s.Finalize("runtime", Delete{})
	var bpErr *bperror.Error
	if !errors.As(err, &bpErr) || bpErr.Kind != bperror.KindFrameworkMisuse {
		t.Errorf("second Finalize got %v, want a framework misuse error", err)
	}
}

func TestOrphanedDirDegradesToNotPresent(t *testing.T) {
	layersDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(layersDir, "runtime"), 0755); err != nil {
		t.Fatalf("creating orphan dir: %v", err)
	}

	state, err := NewStore(layersDir).Retrieve("runtime")
	if err != nil {
		t.Fatalf("Retrieve(runtime) got error: %v", err)
	}
	if state.Kind != NotPresent {
		t.Errorf("Retrieve(runtime).Kind = %v, want %v", state.Kind, NotPresent)
	}
	if _, err := os.Stat(filepath.Join(layersDir, "runtime")); !os.IsNotExist(err) {
		t.Errorf("orphaned layer directory was not removed")
	}
}

func TestOrphanedMetadataDegradesToNotPresent(t *testing.T) {
	layersDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(layersDir, "runtime.toml"), []byte("[types]\nbuild = true\n"), 0644); err != nil {
		t.Fatalf("creating orphan metadata: %v", err)
	}

	state, err := NewStore(layersDir).Retrieve("runtime")
	if err != nil {
		t.Fatalf("Retrieve(runtime) got error: %v", err)
	}
	if state.Kind != NotPresent {
		t.Errorf("Retrieve(runtime).Kind = %v, want %v", state.Kind, NotPresent)
	}
	if _, err := os.Stat(filepath.Join(layersDir, "runtime.toml")); !os.IsNotExist(err) {
		t.Errorf("orphaned metadata file was not removed")
	}
}

func TestUnparsableMetadata(t *testing.T) {
	layersDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(layersDir, "runtime"), 0755); err != nil {
		t.Fatalf("creating layer dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(layersDir, "runtime.toml"), []byte("not toml ["), 0644); err != nil {
		t.Fatalf("writing metadata: %v", err)
	}

	state, err := NewStore(layersDir).Retrieve("runtime")
	if err != nil {
		t.Fatalf("Retrieve(runtime) got error: %v", err)
	}
	if state.Kind != MetadataInvalid {
		t.Errorf("Retrieve(runtime).Kind = %v, want %v", state.Kind, MetadataInvalid)
	}
	if state.ParseError == nil {
		t.Errorf("Retrieve(runtime).ParseError = nil, want the parse failure")
	}
}

func TestKeepWithoutRestoredLayer(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Finalize("runtime", Keep{Types: Types{Build: true}})
	var bpErr *bperror.Error
	if !errors.As(err, &bpErr) || bpErr.Kind != bperror.KindFrameworkMisuse {
		t.Errorf("Keep of a missing layer got %v, want a framework misuse error", err)
	}
}

func TestKeepRewritesTypes(t *testing.T) {
	layersDir := t.TempDir()
	if _, err := NewStore(layersDir).Finalize("runtime", Replace{
		Types:    Types{Build: true, Cache: true},
		Metadata: map[string]interface{}{"version": "3.2.1"},
	}); err != nil {
		t.Fatalf("initial Finalize got error: %v", err)
	}

	if _, err := NewStore(layersDir).Finalize("runtime", Keep{
		Types: Types{Build: true, Launch: true, Cache: true},
	}); err != nil {
		t.Fatalf("Finalize(runtime, Keep) got error: %v", err)
	}

	state, err := NewStore(layersDir).Retrieve("runtime")
	if err != nil {
		t.Fatalf("Retrieve(runtime) got error: %v", err)
	}
	if diff := cmp.Diff(Types{Build: true, Launch: true, Cache: true}, state.Types); diff != "" {
		t.Errorf("types after Keep mismatch (-want +got):\n%s", diff)
	}
	var meta struct {
		Version string `toml:"version"`
	}
	if err := state.DecodeMetadata(&meta); err != nil {
		t.Fatalf("DecodeMetadata got error: %v", err)
	}
	if meta.Version != "3.2.1" {
		t.Errorf("Keep dropped restored metadata: version = %q, want %q", meta.Version, "3.2.1")
	}
}

func TestLayerNameValidation(t *testing.T) {
	s := NewStore(t.TempDir())
	for _, name := range []string{"", "UPPER", "has space", "build", "launch", "store"} {
		_, err := s.Retrieve(name)
		var bpErr *bperror.Error
		if !errors.As(err, &bpErr) || bpErr.Kind != bperror.KindFrameworkMisuse {
			t.Errorf("Retrieve(%q) got %v, want a framework misuse error", name, err)
		}
	}
}

func TestFinalizeContributesEnv(t *testing.T) {
	layersDir := t.TempDir()
	s := NewStore(layersDir)

	env := layerenv.New().Set(layerenv.ScopeBuild, layerenv.OpOverride, "RUNTIME_HOME", "/layers/runtime")
	if _, err := s.Finalize("runtime", Replace{
		Types: Types{Build: true},
		Env:   env,
		Populate: func(dir string) error {
			return os.MkdirAll(filepath.Join(dir, "bin"), 0755)
		},
	}); err != nil {
		t.Fatalf("Finalize(runtime, Replace) got error: %v", err)
	}

	got := s.Accumulator().Apply(layerenv.ScopeBuild, layerenv.Env{"PATH": "/usr/bin"})
	if got["RUNTIME_HOME"] != "/layers/runtime" {
		t.Errorf("build env RUNTIME_HOME = %q, want %q", got["RUNTIME_HOME"], "/layers/runtime")
	}
	wantPath := filepath.Join(layersDir, "runtime", "bin") + ":/usr/bin"
	if got["PATH"] != wantPath {
		t.Errorf("build env PATH = %q, want %q", got["PATH"], wantPath)
	}
}

func TestFinalizeWritesSBOMAndExecD(t *testing.T) {
	layersDir := t.TempDir()
	s := NewStore(layersDir)

	prog := filepath.Join(t.TempDir(), "set-env")
	if err := os.WriteFile(prog, []byte("#!/bin/sh\n"), 0644); err != nil {
		t.Fatalf("writing exec.d source: %v", err)
	}

	if _, err := s.Finalize("runtime", Replace{
		Types: Types{Launch: true},
		SBOMs: []sbom.SBOM{{Format: sbom.CycloneDXJSON, Data: []byte(`{"bomFormat":"CycloneDX"}`)}},
		ExecD: map[string]string{"set-env": prog},
	}); err != nil {
		t.Fatalf("Finalize(runtime, Replace) got error: %v", err)
	}

	sbomPath := filepath.Join(layersDir, "runtime.sbom.cdx.json")
	if _, err := os.Stat(sbomPath); err != nil {
		t.Errorf("layer SBOM missing: %v", err)
	}
	execPath := filepath.Join(layersDir, "runtime", "exec.d", "set-env")
	info, err := os.Stat(execPath)
	if err != nil {
		t.Fatalf("exec.d program missing: %v", err)
	}
	if info.Mode()&0111 == 0 {
		t.Errorf("exec.d program %s is not executable: mode %v", execPath, info.Mode())
	}
}

func TestDeleteRemovesEverything(t *testing.T) {
	layersDir := t.TempDir()
	if _, err := NewStore(layersDir).Finalize("runtime", Replace{
		Types: Types{Cache: true},
		SBOMs: []sbom.SBOM{{Format: sbom.SyftJSON, Data: []byte(`{}`)}},
	}); err != nil {
		t.Fatalf("initial Finalize got error: %v", err)
	}

	if _, err := NewStore(layersDir).Finalize("runtime", Delete{}); err != nil {
		t.Fatalf("Finalize(runtime, Delete) got error: %v", err)
	}
	entries, err := os.ReadDir(layersDir)
	if err != nil {
		t.Fatalf("reading layers dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("layers dir not empty after Delete: %v", entries)
	}
}
