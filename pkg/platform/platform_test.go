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

package platform

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/GoogleCloudPlatform/libbp/pkg/bperror"
	"github.com/GoogleCloudPlatform/libbp/pkg/layerenv"
)

func TestFromDir(t *testing.T) {
	dir := t.TempDir()
	envDir := filepath.Join(dir, "env")
	if err := os.MkdirAll(envDir, 0755); err != nil {
		t.Fatalf("creating env dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(envDir, "BP_RUBY_VERSION"), []byte("3.2.1"), 0644); err != nil {
		t.Fatalf("writing env file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(envDir, "EMPTY"), nil, 0644); err != nil {
		t.Fatalf("writing env file: %v", err)
	}

	p, err := FromDir(dir)
	if err != nil {
		t.Fatalf("FromDir(%q) got error: %v", dir, err)
	}
	want := layerenv.Env{"BP_RUBY_VERSION": "3.2.1", "EMPTY": ""}
	if diff := cmp.Diff(want, p.Env); diff != "" {
		t.Errorf("platform env mismatch (-want +got):\n%s", diff)
	}
}

func TestFromDirMissingEnvDir(t *testing.T) {
	dir := t.TempDir()
	p, err := FromDir(dir)
	if err != nil {
		t.Fatalf("FromDir(%q) got error: %v", dir, err)
	}
	if len(p.Env) != 0 {
		t.Errorf("platform env = %v, want empty", p.Env)
	}
}

func TestTargetFromEnv(t *testing.T) {
	t.Setenv(EnvTargetOS, "linux")
	t.Setenv(EnvTargetArch, "arm64")
	t.Setenv(EnvTargetArchVariant, "v8")
	t.Setenv(EnvTargetDistroName, "ubuntu")
	t.Setenv(EnvTargetDistroVersion, "22.04")

	got, err := TargetFromEnv()
	if err != nil {
		t.Fatalf("TargetFromEnv() got error: %v", err)
	}
	want := &Target{OS: "linux", Arch: "arm64", ArchVariant: "v8", DistroName: "ubuntu", DistroVersion: "22.04"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TargetFromEnv() mismatch (-want +got):\n%s", diff)
	}
}

func TestTargetFromEnvMissingVariable(t *testing.T) {
	t.Setenv(EnvTargetOS, "linux")
	t.Setenv(EnvTargetArch, "arm64")
	t.Setenv(EnvTargetDistroName, "ubuntu")
	t.Setenv(EnvTargetDistroVersion, "")

	_, err := TargetFromEnv()
	var bpErr *bperror.Error
	if !errors.As(err, &bpErr) || bpErr.Kind != bperror.KindContractViolation {
		t.Errorf("TargetFromEnv() got %v, want a contract violation", err)
	}
}

func TestTargetFromEnvVariantOptional(t *testing.T) {
	t.Setenv(EnvTargetOS, "linux")
	t.Setenv(EnvTargetArch, "amd64")
	t.Setenv(EnvTargetDistroName, "ubuntu")
	t.Setenv(EnvTargetDistroVersion, "22.04")
	os.Unsetenv(EnvTargetArchVariant)

	got, err := TargetFromEnv()
	if err != nil {
		t.Fatalf("TargetFromEnv() got error: %v", err)
	}
	if got.ArchVariant != "" {
		t.Errorf("ArchVariant = %q, want empty", got.ArchVariant)
	}
}
