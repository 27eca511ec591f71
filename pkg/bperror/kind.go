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

package bperror

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind classifies a framework error. Every kind except KindMetadataParse
// terminates the phase; the kind determines the process exit code.
type Kind int

const (
	// KindContractViolation covers malformed or missing spec-mandated inputs:
	// phase arguments, descriptor schema failures, API version skew.
	KindContractViolation Kind = iota
	// KindAuthorError wraps an error value returned by the author's own
	// detect or build logic. The framework does not interpret its contents.
	KindAuthorError
	// KindFrameworkMisuse covers author calls that violate a framework
	// invariant, such as finalizing the same layer twice.
	KindFrameworkMisuse
	// KindIO covers filesystem failures during layer or env finalization.
	KindIO
	// KindMetadataParse marks layer metadata that does not parse against the
	// author's expected type. Recoverable; surfaced as data, not a failure.
	KindMetadataParse
)

func (k Kind) String() string {
	return []string{
		"CONTRACT_VIOLATION",
		"AUTHOR_ERROR",
		"FRAMEWORK_MISUSE",
		"IO",
		"METADATA_PARSE",
	}[k]
}

var fromKindString = map[string]Kind{
	"CONTRACT_VIOLATION": KindContractViolation,
	"AUTHOR_ERROR":       KindAuthorError,
	"FRAMEWORK_MISUSE":   KindFrameworkMisuse,
	"IO":                 KindIO,
	"METADATA_PARSE":     KindMetadataParse,
}

var _ json.Marshaler = (*Kind)(nil)
var _ json.Unmarshaler = (*Kind)(nil)

// MarshalJSON marshals the enum as a quoted json string.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", k)), nil
}

// UnmarshalJSON unmarshals a quoted json string to the enum value.
func (k *Kind) UnmarshalJSON(b []byte) error {
	var val string
	if err := json.Unmarshal(b, &val); err != nil {
		return err
	}
	kind, ok := fromKindString[strings.ToUpper(val)]
	if !ok {
		return fmt.Errorf("unknown value %q", val)
	}
	*k = kind
	return nil
}
