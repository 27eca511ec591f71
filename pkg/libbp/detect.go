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

import "github.com/GoogleCloudPlatform/libbp/pkg/buildplan"

// DetectResult is the outcome of the detect phase: whether the buildpack
// applies and, when it does, the build plan it contributes. Construct it with
// OptIn or OptOut; the reason is logged so build output explains the decision.
type DetectResult struct {
	pass   bool
	reason string
	plan   *buildplan.Plan
}

// DetectOption configures an opt-in DetectResult.
type DetectOption func(*DetectResult)

// WithBuildPlan attaches a build plan to an opt-in result.
func WithBuildPlan(plan *buildplan.Plan) DetectOption {
	return func(r *DetectResult) {
		r.plan = plan
	}
}

// OptIn indicates the buildpack applies to the application.
func OptIn(reason string, opts ...DetectOption) DetectResult {
	r := DetectResult{pass: true, reason: reason}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// OptOut indicates the buildpack does not apply.
func OptOut(reason string) DetectResult {
	return DetectResult{pass: false, reason: reason}
}

// Passed reports whether the result opts in.
func (r DetectResult) Passed() bool {
	return r.pass
}

// Reason returns the human-readable explanation of the result.
func (r DetectResult) Reason() string {
	return r.reason
}
