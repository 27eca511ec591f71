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

import "sort"

// Accumulator collects the LayerEnv contributions of every finalized layer and
// merges them into a single environment.
//
// Contributions apply in alphabetical order of layer name, regardless of the
// order in which layers were finalized, so the final environment is
// reproducible independent of incidental code order in the buildpack. Because
// a later-applying layer prepends in front of the accumulated value, the layer
// that sorts last wins the priority position in path-like variables.
type Accumulator struct {
	contributions map[string]*LayerEnv
}

// NewAccumulator creates an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{contributions: map[string]*LayerEnv{}}
}

// Contribute records one layer's environment declarations. Contributing the
// same layer name again replaces the previous contribution; the layer store
// guards against duplicate finalization before this is reached.
func (a *Accumulator) Contribute(layerName string, env *LayerEnv) {
	a.contributions[layerName] = env
}

// Apply computes the merged environment for the scope starting from base.
func (a *Accumulator) Apply(scope Scope, base Env) Env {
	names := make([]string, 0, len(a.contributions))
	for name := range a.contributions {
		names = append(names, name)
	}
	sort.Strings(names)

	env := base.clone()
	for _, name := range names {
		env = a.contributions[name].Apply(scope, env)
	}
	return env
}
