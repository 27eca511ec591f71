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

// Package bperror provides the structured error type used across the framework.
package bperror

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strings"
)

const (
	errorIDLength = 8
)

// ID is a short error code passed to the user for supportability.
type ID string

// Error is a structured framework error.
type Error struct {
	Kind    Kind   `json:"kind"`
	ID      ID     `json:"errorId"`
	Message string `json:"errorMessage"`

	// Layer and Op are set for layer finalization failures so the author can
	// reproduce the failing operation.
	Layer string `json:"layer,omitempty"`
	Op    string `json:"op,omitempty"`
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Layer != "" {
		msg = fmt.Sprintf("layer %s: %s: %s", e.Layer, e.Op, e.Message)
	}
	if e.ID == "" {
		return msg
	}
	return fmt.Sprintf("%s [id:%s]", msg, e.ID)
}

// Errorf constructs an Error of the given kind.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{
		Kind:    kind,
		ID:      GenerateErrorID(msg),
		Message: msg,
	}
}

// ContractViolationf constructs an Error for malformed or missing spec-mandated inputs.
func ContractViolationf(format string, args ...interface{}) *Error {
	return Errorf(KindContractViolation, format, args...)
}

// AuthorErrorf constructs an Error attributed to the buildpack's own logic.
func AuthorErrorf(format string, args ...interface{}) *Error {
	return Errorf(KindAuthorError, format, args...)
}

// FrameworkMisusef constructs an Error for author code that violates a framework invariant.
func FrameworkMisusef(format string, args ...interface{}) *Error {
	return Errorf(KindFrameworkMisuse, format, args...)
}

// IOErrorf constructs an Error for a filesystem failure against a specific
// layer and operation.
func IOErrorf(layer, op string, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{
		Kind:    KindIO,
		ID:      GenerateErrorID(layer, op, msg),
		Message: msg,
		Layer:   layer,
		Op:      op,
	}
}

// GenerateErrorID creates a short hash from the provided parts.
func GenerateErrorID(parts ...string) ID {
	h := sha256.New()
	for _, p := range parts {
		io.WriteString(h, p)
	}
	result := fmt.Sprintf("%x", h.Sum(nil))

	// Since this is only a reporting aid for support, we truncate the hash to make it more human friendly.
	return ID(strings.ToLower(result[:errorIDLength]))
}
