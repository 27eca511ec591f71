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

// Package platform reads the platform directory and target metadata the
// lifecycle provides to buildpack phases.
package platform

import (
	"os"
	"path/filepath"

	"github.com/GoogleCloudPlatform/libbp/pkg/bperror"
	"github.com/GoogleCloudPlatform/libbp/pkg/layerenv"
)

// Environment variable names the lifecycle sets to describe the build target.
const (
	EnvTargetOS            = "CNB_TARGET_OS"
	EnvTargetArch          = "CNB_TARGET_ARCH"
	EnvTargetArchVariant   = "CNB_TARGET_ARCH_VARIANT"
	EnvTargetDistroName    = "CNB_TARGET_DISTRO_NAME"
	EnvTargetDistroVersion = "CNB_TARGET_DISTRO_VERSION"
)

// Platform is the platform directory passed as an argument to each phase.
// Env holds the user-provided variables from <dir>/env.
type Platform struct {
	Dir string
	Env layerenv.Env
}

// FromDir reads the platform environment from <dir>/env. Each file becomes one
// variable named after the file, valued with the file contents. A missing env
// directory yields an empty environment.
func FromDir(dir string) (*Platform, error) {
	p := &Platform{Dir: dir, Env: layerenv.NewEnv()}

	envDir := filepath.Join(dir, "env")
	files, err := os.ReadDir(envDir)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return nil, bperror.ContractViolationf("reading platform env directory %s: %v", envDir, err)
	}
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(envDir, file.Name()))
		if err != nil {
			return nil, bperror.ContractViolationf("reading platform env file %s: %v", file.Name(), err)
		}
		p.Env[file.Name()] = string(content)
	}
	return p, nil
}

// Target describes the OS and architecture the build produces an image for.
type Target struct {
	OS            string
	Arch          string
	ArchVariant   string
	DistroName    string
	DistroVersion string
}

// TargetFromEnv assembles the Target from the CNB_TARGET_* variables. All but
// the architecture variant are mandatory; the lifecycle sets them before
// invoking any phase.
func TargetFromEnv() (*Target, error) {
	t := &Target{ArchVariant: os.Getenv(EnvTargetArchVariant)}

	required := []struct {
		name string
		dest *string
	}{
		{EnvTargetOS, &t.OS},
		{EnvTargetArch, &t.Arch},
		{EnvTargetDistroName, &t.DistroName},
		{EnvTargetDistroVersion, &t.DistroVersion},
	}
	for _, v := range required {
		value, ok := os.LookupEnv(v.name)
		if !ok || value == "" {
			return nil, bperror.ContractViolationf("%s is not set; the platform must provide target metadata", v.name)
		}
		*v.dest = value
	}
	return t, nil
}
