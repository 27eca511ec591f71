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

package bptoml

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/GoogleCloudPlatform/libbp/pkg/bperror"
)

// Store is the contents of store.toml: buildpack-specific metadata persisted
// across builds independent of any layer.
type Store struct {
	Metadata map[string]interface{} `toml:"metadata"`
}

// LoadStore reads store.toml at the given path. A missing file is not an
// error; it returns nil so the caller can distinguish "no store yet".
func LoadStore(path string) (*Store, error) {
	var s Store
	if _, err := toml.DecodeFile(path, &s); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, bperror.ContractViolationf("parsing store %s: %v", path, err)
	}
	return &s, nil
}

// WriteStore writes store.toml to the given path.
func WriteStore(path string, s *Store) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(s)
}
