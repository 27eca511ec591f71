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

// Package launch contains the launch.toml schema and the validating builders
// buildpack authors use to declare processes, slices and labels.
package launch

import (
	"os"
	"regexp"

	"github.com/BurntSushi/toml"

	"github.com/GoogleCloudPlatform/libbp/pkg/bperror"
)

var processTypeRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Process is a runnable process type of the application image. Direct and
// Default always serialize, even when false; launch.toml must carry every
// mandated key.
type Process struct {
	Type             string   `toml:"type"`
	Command          string   `toml:"command"`
	Args             []string `toml:"args,omitempty"`
	Direct           bool     `toml:"direct"`
	Default          bool     `toml:"default"`
	WorkingDirectory string   `toml:"working-directory,omitempty"`
}

// Slice defines a set of path globs exported as a separate image layer.
type Slice struct {
	Paths []string `toml:"paths"`
}

// Label is an image label key/value pair.
type Label struct {
	Key   string `toml:"key"`
	Value string `toml:"value"`
}

// Launch is the contents of launch.toml.
type Launch struct {
	Processes []Process `toml:"processes,omitempty"`
	Slices    []Slice   `toml:"slices,omitempty"`
	Labels    []Label   `toml:"labels,omitempty"`
}

// IsEmpty reports whether the Launch carries nothing to serialize. An empty
// Launch must not produce a launch.toml file.
func (l *Launch) IsEmpty() bool {
	return len(l.Processes) == 0 && len(l.Slices) == 0 && len(l.Labels) == 0
}

// Validate checks every process and the cross-process invariant that at most
// one process is marked default. A Launch assembled without the builder must
// pass Validate before serialization.
func (l *Launch) Validate() error {
	defaultType := ""
	for _, p := range l.Processes {
		if err := validateProcess(p); err != nil {
			return err
		}
		if p.Default {
			if defaultType != "" {
				return bperror.FrameworkMisusef("processes %q and %q are both marked default; at most one process may be the default", defaultType, p.Type)
			}
			defaultType = p.Type
		}
	}
	return nil
}

// WriteFile serializes launch.toml to the given path.
func (l *Launch) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(l)
}

// ProcessBuilder assembles a Process, validating constraints at construction
// rather than at serialization.
type ProcessBuilder struct {
	process Process
}

// NewProcess creates a builder for a process of the given type running command.
func NewProcess(processType, command string) *ProcessBuilder {
	return &ProcessBuilder{process: Process{Type: processType, Command: command}}
}

// Arg appends a single argument.
func (b *ProcessBuilder) Arg(arg string) *ProcessBuilder {
	b.process.Args = append(b.process.Args, arg)
	return b
}

// Args appends arguments.
func (b *ProcessBuilder) Args(args ...string) *ProcessBuilder {
	b.process.Args = append(b.process.Args, args...)
	return b
}

// Direct marks the process to be executed without a shell.
func (b *ProcessBuilder) Direct(direct bool) *ProcessBuilder {
	b.process.Direct = direct
	return b
}

// Default marks the process as the image's default process type.
func (b *ProcessBuilder) Default(isDefault bool) *ProcessBuilder {
	b.process.Default = isDefault
	return b
}

// WorkingDirectory sets the working directory the process starts in.
func (b *ProcessBuilder) WorkingDirectory(dir string) *ProcessBuilder {
	b.process.WorkingDirectory = dir
	return b
}

// Build validates and returns the Process.
func (b *ProcessBuilder) Build() (Process, error) {
	if err := validateProcess(b.process); err != nil {
		return Process{}, err
	}
	return b.process, nil
}

// Builder assembles a Launch value.
type Builder struct {
	launch Launch
}

// NewBuilder creates an empty Launch builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Process adds a process.
func (b *Builder) Process(p Process) *Builder {
	b.launch.Processes = append(b.launch.Processes, p)
	return b
}

// Slice adds a slice of path globs.
func (b *Builder) Slice(paths ...string) *Builder {
	b.launch.Slices = append(b.launch.Slices, Slice{Paths: paths})
	return b
}

// Label adds an image label.
func (b *Builder) Label(key, value string) *Builder {
	b.launch.Labels = append(b.launch.Labels, Label{Key: key, Value: value})
	return b
}

// Build re-validates cross-process invariants and returns the Launch. At most
// one process may be marked default; this fails here, never at serialization.
func (b *Builder) Build() (*Launch, error) {
	if err := b.launch.Validate(); err != nil {
		return nil, err
	}
	launch := b.launch
	return &launch, nil
}

func validateProcess(p Process) error {
	if p.Type == "" {
		return bperror.FrameworkMisusef("process with command %q has no type; a default or named process requires one", p.Command)
	}
	if !processTypeRe.MatchString(p.Type) {
		return bperror.FrameworkMisusef("invalid process type %q: only letters, numbers, '.', '_' and '-' are allowed", p.Type)
	}
	if p.Command == "" {
		return bperror.FrameworkMisusef("process %q has no command", p.Type)
	}
	return nil
}
