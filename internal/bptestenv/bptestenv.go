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

// Package bptestenv sets up the directory and environment layout the
// lifecycle provides to buildpack phases, for use in tests.
package bptestenv

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/xid"

	"github.com/GoogleCloudPlatform/libbp/pkg/bptoml"
	"github.com/GoogleCloudPlatform/libbp/pkg/platform"
)

// TempDirs holds the scratch directories of one simulated phase invocation.
type TempDirs struct {
	LayersDir    string
	PlatformDir  string
	AppDir       string
	BuildpackDir string
	// PlanPath is a pre-populated buildpack plan, the build phase input.
	PlanPath string
	// DetectPlanPath is where a passing detect writes its build plan.
	DetectPlanPath string
}

// SetUpTempDirs creates the directories of one phase invocation, writes a
// minimal valid buildpack.toml and buildpack plan, and points the
// CNB_BUILDPACK_DIR and CNB_TARGET_* variables at them. Everything is removed
// when the test finishes.
func SetUpTempDirs(t *testing.T) TempDirs {
	t.Helper()

	root := filepath.Join(os.TempDir(), "libbp-test-"+xid.New().String())
	dirs := TempDirs{
		LayersDir:      filepath.Join(root, "layers"),
		PlatformDir:    filepath.Join(root, "platform"),
		AppDir:         filepath.Join(root, "app"),
		BuildpackDir:   filepath.Join(root, "buildpack"),
		PlanPath:       filepath.Join(root, "plan.toml"),
		DetectPlanPath: filepath.Join(root, "detect-plan.toml"),
	}
	for _, dir := range []string{dirs.LayersDir, dirs.PlatformDir, dirs.AppDir, dirs.BuildpackDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("creating %s: %v", dir, err)
		}
	}

	buildpackTOML := fmt.Sprintf(`
api = "%s"

[buildpack]
id = "example/test"
version = "0.0.1"
name = "Test Buildpack"
`, bptoml.SupportedAPI)
	if err := os.WriteFile(filepath.Join(dirs.BuildpackDir, "buildpack.toml"), []byte(buildpackTOML), 0644); err != nil {
		t.Fatalf("writing buildpack.toml: %v", err)
	}

	planTOML := `
[[entries]]
name = "entry-name"
[entries.metadata]
entry-meta-key = "entry-meta-value"
`
	if err := os.WriteFile(dirs.PlanPath, []byte(planTOML), 0644); err != nil {
		t.Fatalf("writing buildpack plan: %v", err)
	}

	t.Setenv("CNB_BUILDPACK_DIR", dirs.BuildpackDir)
	t.Setenv(platform.EnvTargetOS, "linux")
	t.Setenv(platform.EnvTargetArch, "amd64")
	t.Setenv(platform.EnvTargetDistroName, "ubuntu")
	t.Setenv(platform.EnvTargetDistroVersion, "22.04")

	t.Cleanup(func() {
		if err := os.RemoveAll(root); err != nil {
			t.Errorf("removing scratch dir %q: %v", root, err)
		}
	})
	return dirs
}

// InWorkingDir runs fn with dir as the working directory, restoring the
// previous one afterwards. Phases treat the working directory as the
// application directory, so tests chdir into their scratch app dir.
func InWorkingDir(t *testing.T, dir string, fn func()) {
	t.Helper()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getting working dir: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("setting working dir to %q: %v", dir, err)
	}
	defer func() {
		if err := os.Chdir(oldwd); err != nil {
			t.Fatalf("restoring working dir to %q: %v", oldwd, err)
		}
	}()
	fn()
}
