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

// Package layerenv provides the in-memory representation of the environment
// variable modifications a layer contributes, and the on-disk env directory
// format consumed by the lifecycle.
package layerenv

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// defaultDelimiter is the delimiter used to join prepended and appended
// path-like values unless a variable declares its own. A `.delim` file is only
// written when the delimiter differs from this value.
const defaultDelimiter = ":"

// Op is an environment variable modification operation.
//
// Within a single layer and variable, operations apply in the alphabetical
// order of their file suffixes: append, default, delete, override, prepend.
// This matches how the lifecycle applies the env files WriteToDir emits, so
// the in-memory Apply and the lifecycle compute the same environment. An
// override wipes a same-layer append; an append to an unset variable beats a
// default.
type Op int

const (
	// OpDelete removes the variable.
	OpDelete Op = iota
	// OpOverride replaces the value entirely.
	OpOverride
	// OpDefault sets the value only if the variable is not already set.
	OpDefault
	// OpPrepend places the value in front of the existing one, joined by the delimiter.
	OpPrepend
	// OpAppend places the value behind the existing one, joined by the delimiter.
	OpAppend
)

// allOps is the application order, alphabetical by file suffix.
var allOps = []Op{OpAppend, OpDefault, OpDelete, OpOverride, OpPrepend}

func (o Op) String() string {
	return []string{"delete", "override", "default", "prepend", "append"}[o]
}

// fileSuffix returns the env directory file suffix for the operation. Override
// entries are written as the bare variable name per the CNB layer env format.
func (o Op) fileSuffix() string {
	if o == OpOverride {
		return ""
	}
	return "." + o.String()
}

// Scope selects which phase an environment modification applies to.
type Scope string

const (
	// ScopeAll applies during build and at launch.
	ScopeAll Scope = "all"
	// ScopeBuild applies to subsequent buildpacks during build.
	ScopeBuild Scope = "build"
	// ScopeLaunch applies to the launched application.
	ScopeLaunch Scope = "launch"
)

// ProcessScope returns the scope for a single launch process type.
func ProcessScope(processType string) Scope {
	return Scope("process:" + processType)
}

// LayerEnv holds the environment variable modifications of one layer, keyed by
// scope, variable and operation.
type LayerEnv struct {
	all     *delta
	build   *delta
	launch  *delta
	process map[string]*delta

	// Implicit entries for the standard layer paths (bin, lib, include,
	// pkgconfig). Populated only by ReadFromDir, never by author code.
	layerPathsBuild  *delta
	layerPathsLaunch *delta
}

// New creates an empty LayerEnv that modifies no variables.
func New() *LayerEnv {
	return &LayerEnv{
		all:              newDelta(),
		build:            newDelta(),
		launch:           newDelta(),
		process:          map[string]*delta{},
		layerPathsBuild:  newDelta(),
		layerPathsLaunch: newDelta(),
	}
}

// Set records a modification for the given scope, operation and variable.
// Setting the same scope, operation and variable again replaces the value.
// It returns the LayerEnv to allow chained declarations.
func (l *LayerEnv) Set(scope Scope, op Op, name, value string) *LayerEnv {
	l.deltaFor(scope).set(op, name, value)
	return l
}

// SetDelimiter declares the delimiter used when joining prepended or appended
// values for the variable in the given scope.
func (l *LayerEnv) SetDelimiter(scope Scope, name, delimiter string) *LayerEnv {
	l.deltaFor(scope).delims[name] = delimiter
	return l
}

// IsEmpty reports whether the LayerEnv contains no modifications.
func (l *LayerEnv) IsEmpty() bool {
	if len(l.all.entries) > 0 || len(l.build.entries) > 0 || len(l.launch.entries) > 0 {
		return false
	}
	for _, d := range l.process {
		if len(d.entries) > 0 {
			return false
		}
	}
	return true
}

func (l *LayerEnv) deltaFor(scope Scope) *delta {
	switch scope {
	case ScopeAll:
		return l.all
	case ScopeBuild:
		return l.build
	case ScopeLaunch:
		return l.launch
	}
	processType := strings.TrimPrefix(string(scope), "process:")
	d, ok := l.process[processType]
	if !ok {
		d = newDelta()
		l.process[processType] = d
	}
	return d
}

// Apply computes the environment for the given scope starting from base.
// The base environment is not modified.
func (l *LayerEnv) Apply(scope Scope, base Env) Env {
	var deltas []*delta
	switch scope {
	case ScopeAll:
		deltas = []*delta{l.all}
	case ScopeBuild:
		deltas = []*delta{l.all, l.build, l.layerPathsBuild}
	case ScopeLaunch:
		deltas = []*delta{l.all, l.launch, l.layerPathsLaunch}
	default:
		processType := strings.TrimPrefix(string(scope), "process:")
		deltas = []*delta{l.all}
		if d, ok := l.process[processType]; ok {
			deltas = append(deltas, d)
		}
	}

	env := base.clone()
	for _, d := range deltas {
		env = d.apply(env)
	}
	return env
}

// WriteToDir writes the env, env.build and env.launch directories for this
// LayerEnv under the given layer directory. Existing env directories are
// replaced. The file naming is a wire contract with the lifecycle: one file
// per variable and operation, a bare variable name for override, and a .delim
// file only when the delimiter is not ":".
func (l *LayerEnv) WriteToDir(layerDir string) error {
	if err := l.all.writeToDir(filepath.Join(layerDir, "env")); err != nil {
		return err
	}
	if err := l.build.writeToDir(filepath.Join(layerDir, "env.build")); err != nil {
		return err
	}
	launchDir := filepath.Join(layerDir, "env.launch")
	if err := l.launch.writeToDir(launchDir); err != nil {
		return err
	}
	for processType, d := range l.process {
		if err := d.writeToDir(filepath.Join(launchDir, processType)); err != nil {
			return err
		}
	}
	return nil
}

// ReadFromDir constructs a LayerEnv from a layer directory, including implicit
// entries for the standard layer paths (bin, lib, include, pkgconfig) when the
// directories exist.
func ReadFromDir(layerDir string) (*LayerEnv, error) {
	l := New()

	layerPathSpecs := []struct {
		name  string
		build bool
		dir   string
	}{
		{"PATH", true, "bin"},
		{"LIBRARY_PATH", true, "lib"},
		{"LD_LIBRARY_PATH", true, "lib"},
		{"CPATH", true, "include"},
		{"PKG_CONFIG_PATH", true, "pkgconfig"},
		{"PATH", false, "bin"},
		{"LD_LIBRARY_PATH", false, "lib"},
	}
	for _, spec := range layerPathSpecs {
		path := filepath.Join(layerDir, spec.dir)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			target := l.layerPathsLaunch
			if spec.build {
				target = l.layerPathsBuild
			}
			target.set(OpPrepend, spec.name, path)
			target.delims[spec.name] = defaultDelimiter
		}
	}

	var err error
	if l.all, err = readDeltaDir(filepath.Join(layerDir, "env")); err != nil {
		return nil, err
	}
	if l.build, err = readDeltaDir(filepath.Join(layerDir, "env.build")); err != nil {
		return nil, err
	}
	launchDir := filepath.Join(layerDir, "env.launch")
	if l.launch, err = readDeltaDir(launchDir); err != nil {
		return nil, err
	}
	// Subdirectories of env.launch hold per-process-type entries.
	entries, err := os.ReadDir(launchDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		d, err := readDeltaDir(filepath.Join(launchDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		l.process[entry.Name()] = d
	}
	return l, nil
}

// delta is the set of modifications for one scope.
type delta struct {
	entries map[string]map[Op]string
	delims  map[string]string
}

func newDelta() *delta {
	return &delta{entries: map[string]map[Op]string{}, delims: map[string]string{}}
}

func (d *delta) set(op Op, name, value string) {
	ops, ok := d.entries[name]
	if !ok {
		ops = map[Op]string{}
		d.entries[name] = ops
	}
	ops[op] = value
}

func (d *delta) delimiterFor(name string) string {
	if delim, ok := d.delims[name]; ok {
		return delim
	}
	return defaultDelimiter
}

// apply applies the delta to env, variable by variable in sorted order, and
// within each variable in the fixed operation order.
func (d *delta) apply(env Env) Env {
	result := env.clone()

	names := make([]string, 0, len(d.entries))
	for name := range d.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ops := d.entries[name]
		delim := d.delimiterFor(name)
		for _, op := range allOps {
			value, ok := ops[op]
			if !ok {
				continue
			}
			switch op {
			case OpDelete:
				delete(result, name)
			case OpOverride:
				result[name] = value
			case OpDefault:
				if _, present := result[name]; !present {
					result[name] = value
				}
			case OpPrepend:
				if previous, present := result[name]; present && previous != "" {
					result[name] = value + delim + previous
				} else {
					result[name] = value
				}
			case OpAppend:
				if previous, present := result[name]; present && previous != "" {
					result[name] = previous + delim + value
				} else {
					result[name] = value
				}
			}
		}
	}
	return result
}

func (d *delta) writeToDir(dir string) error {
	if len(d.entries) == 0 {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for name, ops := range d.entries {
		for op, value := range ops {
			if err := os.WriteFile(filepath.Join(dir, name+op.fileSuffix()), []byte(value), 0644); err != nil {
				return err
			}
		}
		if delim, ok := d.delims[name]; ok && delim != defaultDelimiter {
			if err := os.WriteFile(filepath.Join(dir, name+".delim"), []byte(delim), 0644); err != nil {
				return err
			}
		}
	}
	return nil
}

func readDeltaDir(dir string) (*delta, error) {
	d := newDelta()
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return d, nil
	}
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, err
		}
		name, ext := splitEnvFileName(file.Name())
		switch ext {
		case "", "override":
			d.set(OpOverride, name, string(content))
		case "append":
			d.set(OpAppend, name, string(content))
		case "default":
			d.set(OpDefault, name, string(content))
		case "delete":
			d.set(OpDelete, name, string(content))
		case "prepend":
			d.set(OpPrepend, name, string(content))
		case "delim":
			d.delims[name] = string(content)
		default:
			// Unknown extensions are ignored, matching the lifecycle.
		}
	}
	return d, nil
}

func splitEnvFileName(fileName string) (name, ext string) {
	idx := strings.LastIndex(fileName, ".")
	if idx <= 0 {
		return fileName, ""
	}
	return fileName[:idx], fileName[idx+1:]
}
