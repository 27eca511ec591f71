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

package libbp

import (
	"os"

	"github.com/GoogleCloudPlatform/libbp/pkg/bperror"
)

// Exit codes returned to the lifecycle. 0 and 100 are mandated by the
// Buildpack API; the error codes partition failures so the platform can tell
// buildpack bugs from environment problems.
const (
	// ExitSuccess is phase success. For detect it means the buildpack passed.
	ExitSuccess = 0
	// ExitAuthorError means the author's detect or build function returned an error.
	ExitAuthorError = 1
	// ExitFrameworkMisuse means author code violated a framework invariant.
	ExitFrameworkMisuse = 2
	// ExitIOError means a filesystem operation failed.
	ExitIOError = 3
	// ExitContractViolation means a lifecycle-provided input was missing or malformed.
	ExitContractViolation = 4
	// ExitUnexpectedError means author code crashed instead of returning an error.
	ExitUnexpectedError = 5
	// ExitDetectFail is the mandated non-error "does not apply" detect result.
	ExitDetectFail = 100
	// ExitAPIMismatch means buildpack.toml declares an unsupported Buildpack API.
	ExitAPIMismatch = 254
	// ExitUnknownPhase means the executable name matched neither detect nor build.
	ExitUnknownPhase = 255
)

// Exiter is an interface for exiting the process.
type Exiter interface {
	Exit(code int)
}

type defaultExiter struct{}

func (defaultExiter) Exit(code int) {
	os.Exit(code)
}

// exitCodeFor maps an error to the exit code reported to the lifecycle.
// Errors without a structured kind come from author code.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	bpErr, ok := err.(*bperror.Error)
	if !ok {
		return ExitAuthorError
	}
	switch bpErr.Kind {
	case bperror.KindContractViolation:
		return ExitContractViolation
	case bperror.KindFrameworkMisuse:
		return ExitFrameworkMisuse
	case bperror.KindIO:
		return ExitIOError
	default:
		return ExitAuthorError
	}
}
