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

// Package cache implements functions to generate cache keys for layers. A
// buildpack hashes its dependency inputs, stores the hash in layer metadata,
// and on the next build compares the restored hash to decide between keeping
// and replacing the layer.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/GoogleCloudPlatform/libbp/pkg/bperror"
	"github.com/GoogleCloudPlatform/libbp/pkg/layers"
)

// MetadataKey is the conventional layer metadata key the hash is stored under.
const MetadataKey = "dependency-hash"

// Option is a function that returns strings to be hashed when computing a cache key.
type Option func() ([]string, error)

// WithStrings returns a cache option for string values.
func WithStrings(strings ...string) Option {
	return func() ([]string, error) {
		return strings, nil
	}
}

// WithFiles returns a cache option that hashes contents of the files, such as
// a lockfile whose change should invalidate the layer.
func WithFiles(files ...string) Option {
	return func() ([]string, error) {
		var strings []string
		for _, f := range files {
			b, err := os.ReadFile(f)
			if err != nil {
				return nil, bperror.Errorf(bperror.KindIO, "reading %s for cache key: %v", f, err)
			}
			strings = append(strings, string(b))
		}
		return strings, nil
	}
}

// Key computes a sha256 cache key over the buildpack identity and the
// provided options. Including the identity means a buildpack upgrade
// invalidates every layer it cached.
func Key(buildpackID, buildpackVersion string, opts ...Option) (string, error) {
	h := sha256.New()

	h.Write([]byte(buildpackID))
	h.Write([]byte(buildpackVersion))

	for _, opt := range opts {
		strings, err := opt()
		if err != nil {
			return "", err
		}
		for _, s := range strings {
			h.Write([]byte(s))
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Check reports whether the restored layer state carries the given key under
// MetadataKey. A layer that is not Present never hits.
func Check(state *layers.State, key string) bool {
	if state == nil || state.Kind != layers.Present {
		return false
	}
	restored, ok := state.Metadata[MetadataKey].(string)
	return ok && restored == key
}
