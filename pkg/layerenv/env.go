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

package layerenv

import (
	"sort"
	"strings"
)

// Env is a static set of environment variables. Unlike LayerEnv it carries no
// modification semantics; it is the materialized result of applying deltas.
type Env map[string]string

// NewEnv creates an empty environment.
func NewEnv() Env {
	return Env{}
}

// EnvFromList parses KEY=VALUE pairs, such as the result of os.Environ().
// Entries without '=' are ignored.
func EnvFromList(pairs []string) Env {
	env := NewEnv()
	for _, pair := range pairs {
		if key, value, ok := strings.Cut(pair, "="); ok {
			env[key] = value
		}
	}
	return env
}

// List renders the environment as sorted KEY=VALUE pairs suitable for
// exec.Cmd.Env.
func (e Env) List() []string {
	pairs := make([]string, 0, len(e))
	for key, value := range e {
		pairs = append(pairs, key+"="+value)
	}
	sort.Strings(pairs)
	return pairs
}

func (e Env) clone() Env {
	result := make(Env, len(e))
	for key, value := range e {
		result[key] = value
	}
	return result
}
