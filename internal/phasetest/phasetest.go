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

// Package phasetest runs buildpack phases in-process against a scratch
// lifecycle layout, the way the lifecycle would invoke them.
package phasetest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/GoogleCloudPlatform/libbp/internal/bptestenv"
	"github.com/GoogleCloudPlatform/libbp/pkg/libbp"
)

// Option mutates the scratch layout before the phase runs.
type Option func(t *testing.T, dirs bptestenv.TempDirs)

// WithAppFile writes a file into the application directory.
func WithAppFile(name, contents string) Option {
	return func(t *testing.T, dirs bptestenv.TempDirs) {
		t.Helper()
		path := filepath.Join(dirs.AppDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("creating app file directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
			t.Fatalf("writing app file %s: %v", name, err)
		}
	}
}

// WithPlatformEnv adds a user-provided variable to the platform directory.
func WithPlatformEnv(name, value string) Option {
	return func(t *testing.T, dirs bptestenv.TempDirs) {
		t.Helper()
		envDir := filepath.Join(dirs.PlatformDir, "env")
		if err := os.MkdirAll(envDir, 0755); err != nil {
			t.Fatalf("creating platform env dir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(envDir, name), []byte(value), 0644); err != nil {
			t.Fatalf("writing platform env %s: %v", name, err)
		}
	}
}

// WithBuildpackTOML replaces the generated buildpack.toml.
func WithBuildpackTOML(contents string) Option {
	return func(t *testing.T, dirs bptestenv.TempDirs) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dirs.BuildpackDir, "buildpack.toml"), []byte(contents), 0644); err != nil {
			t.Fatalf("writing buildpack.toml: %v", err)
		}
	}
}

// WithPlanTOML replaces the generated buildpack plan passed to build.
func WithPlanTOML(contents string) Option {
	return func(t *testing.T, dirs bptestenv.TempDirs) {
		t.Helper()
		if err := os.WriteFile(dirs.PlanPath, []byte(contents), 0644); err != nil {
			t.Fatalf("writing buildpack plan: %v", err)
		}
	}
}

// WithEnv sets a process environment variable for the duration of the test.
func WithEnv(name, value string) Option {
	return func(t *testing.T, dirs bptestenv.TempDirs) {
		t.Helper()
		t.Setenv(name, value)
	}
}

// Detect runs the detect phase in-process and returns its outcome with the
// scratch layout for inspection.
func Detect(t *testing.T, detectFn libbp.DetectFn, opts ...Option) (libbp.PhaseOutcome, bptestenv.TempDirs) {
	t.Helper()
	dirs := bptestenv.SetUpTempDirs(t)
	for _, opt := range opts {
		opt(t, dirs)
	}

	args := []string{"detect", dirs.PlatformDir, dirs.DetectPlanPath}
	var outcome libbp.PhaseOutcome
	bptestenv.InWorkingDir(t, dirs.AppDir, func() {
		outcome = libbp.Run(args, detectFn, nil)
	})
	return outcome, dirs
}

// Build runs the build phase in-process and returns its outcome with the
// scratch layout for inspection.
func Build(t *testing.T, buildFn libbp.BuildFn, opts ...Option) (libbp.PhaseOutcome, bptestenv.TempDirs) {
	t.Helper()
	dirs := bptestenv.SetUpTempDirs(t)
	for _, opt := range opts {
		opt(t, dirs)
	}

	args := []string{"build", dirs.LayersDir, dirs.PlatformDir, dirs.PlanPath}
	var outcome libbp.PhaseOutcome
	bptestenv.InWorkingDir(t, dirs.AppDir, func() {
		outcome = libbp.Run(args, nil, buildFn)
	})
	return outcome, dirs
}
