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

// Package libbp is the entry point for buildpacks built on this framework.
// A buildpack provides a detect and a build function and calls Main from a
// single executable that the lifecycle invokes as `detect` and `build`.
package libbp

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/GoogleCloudPlatform/libbp/pkg/bperror"
	"github.com/GoogleCloudPlatform/libbp/pkg/bptoml"
	"github.com/GoogleCloudPlatform/libbp/pkg/buildplan"
	"github.com/GoogleCloudPlatform/libbp/pkg/layers"
	"github.com/GoogleCloudPlatform/libbp/pkg/platform"
)

const (
	envBuildpackDir = "CNB_BUILDPACK_DIR"
	envDebug        = "BP_DEBUG"
)

// DetectFn decides whether the buildpack applies to the application.
type DetectFn func(*DetectContext) (DetectResult, error)

// BuildFn contributes the buildpack's layers and launch metadata.
type BuildFn func(*BuildContext) (*BuildResult, error)

// PhaseOutcome is the result of running one phase: the exit code to report to
// the lifecycle and the error behind it, if any.
type PhaseOutcome struct {
	Code int
	Err  error
}

type config struct {
	exiter  Exiter
	logger  *log.Logger
	onError func(error)
}

// Option configures Main and Run.
type Option func(*config)

// WithExiter overrides how Main exits the process.
func WithExiter(e Exiter) Option {
	return func(c *config) {
		c.exiter = e
	}
}

// WithLogger overrides the build log destination.
func WithLogger(l *log.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithErrorHandler registers a hook invoked when the author's detect or build
// function fails, before the process exits. The hook observes the error; it
// cannot change the outcome.
func WithErrorHandler(fn func(error)) Option {
	return func(c *config) {
		c.onError = fn
	}
}

func newConfig(opts ...Option) *config {
	c := &config{
		exiter: defaultExiter{},
		logger: log.New(os.Stderr, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Main runs the phase selected by the executable name and exits the process
// with the phase's exit code. It is the only function here that exits;
// everything else returns.
func Main(detectFn DetectFn, buildFn BuildFn, opts ...Option) {
	c := newConfig(opts...)
	outcome := run(os.Args, detectFn, buildFn, c)
	if outcome.Err != nil {
		c.logger.Printf("Error: %v", outcome.Err)
		if c.onError != nil && outcome.Code == ExitAuthorError {
			c.onError(outcome.Err)
		}
	}
	c.exiter.Exit(outcome.Code)
}

// Run executes one phase without exiting the process. The phase is selected
// by the basename of args[0], matching how the lifecycle invokes the
// buildpack's detect and build executables.
func Run(args []string, detectFn DetectFn, buildFn BuildFn, opts ...Option) PhaseOutcome {
	return run(args, detectFn, buildFn, newConfig(opts...))
}

func run(args []string, detectFn DetectFn, buildFn BuildFn, c *config) (outcome PhaseOutcome) {
	// A crash in author code must not surface as the Go runtime's exit status,
	// which the lifecycle could not tell apart from a framework misuse exit.
	// Layer metadata is written last during finalization, so an interrupted
	// build never leaves a layer that looks finalized.
	defer func() {
		if r := recover(); r != nil {
			outcome = PhaseOutcome{
				Code: ExitUnexpectedError,
				Err:  fmt.Errorf("unexpected crash: %v", r),
			}
		}
	}()

	if len(args) == 0 {
		return outcomeFor(bperror.ContractViolationf("no arguments; expected the lifecycle to invoke a phase executable"))
	}
	phase := filepath.Base(args[0])

	buildpackDir := os.Getenv(envBuildpackDir)
	if buildpackDir == "" {
		return outcomeFor(bperror.ContractViolationf("%s is not set; the lifecycle must provide the buildpack directory", envBuildpackDir))
	}
	descriptorPath := filepath.Join(buildpackDir, "buildpack.toml")

	// The API check happens before full descriptor validation so a buildpack
	// written against a different API version gets the mandated mismatch code
	// rather than a schema error.
	declaredAPI, err := bptoml.LoadDescriptorAPI(descriptorPath)
	if err != nil {
		return outcomeFor(err)
	}
	matches, err := bptoml.APIMatches(declaredAPI)
	if err != nil {
		return outcomeFor(err)
	}
	if !matches {
		return PhaseOutcome{
			Code: ExitAPIMismatch,
			Err:  bperror.ContractViolationf("buildpack.toml declares Buildpack API %s but this build supports %s", declaredAPI, bptoml.SupportedAPI),
		}
	}

	descriptor, err := bptoml.LoadDescriptor(descriptorPath)
	if err != nil {
		return outcomeFor(err)
	}
	if descriptor.IsMeta() {
		return outcomeFor(bperror.ContractViolationf("buildpack.toml declares [[order]]; a meta-buildpack has no detect or build phase to run"))
	}

	appDir, err := os.Getwd()
	if err != nil {
		return outcomeFor(bperror.ContractViolationf("determining application directory: %v", err))
	}

	ctx := Context{
		ApplicationDir: appDir,
		BuildpackDir:   buildpackDir,
		Descriptor:     descriptor,
		debug:          os.Getenv(envDebug) != "",
		logger:         c.logger,
	}

	switch phase {
	case "detect":
		return runDetect(ctx, args[1:], detectFn)
	case "build":
		return runBuild(ctx, args[1:], buildFn)
	default:
		return PhaseOutcome{
			Code: ExitUnknownPhase,
			Err:  bperror.ContractViolationf("unknown phase executable %q; expected detect or build", phase),
		}
	}
}

func runDetect(ctx Context, args []string, detectFn DetectFn) PhaseOutcome {
	if detectFn == nil {
		return outcomeFor(bperror.FrameworkMisusef("no detect function provided"))
	}
	if len(args) != 2 {
		return outcomeFor(bperror.ContractViolationf("detect expects <platform> <plan> arguments, got %d", len(args)))
	}
	planPath := args[1]

	if err := populatePlatform(&ctx, args[0]); err != nil {
		return outcomeFor(err)
	}

	result, err := detectFn(&DetectContext{Context: ctx})
	if err != nil {
		return outcomeFor(err)
	}
	if !result.Passed() {
		ctx.Debugf("detect opted out: %s", result.Reason())
		return PhaseOutcome{Code: ExitDetectFail}
	}
	ctx.Debugf("detect opted in: %s", result.Reason())

	// A passing detect always writes the plan file, even when the plan is
	// empty. Absence of the file is not how "no requirements" is expressed.
	plan := result.plan
	if plan == nil {
		plan = &buildplan.Plan{}
	}
	if err := plan.WriteFile(planPath); err != nil {
		return outcomeFor(bperror.IOErrorf("", "plan", "writing build plan %s: %v", planPath, err))
	}
	return PhaseOutcome{Code: ExitSuccess}
}

func runBuild(ctx Context, args []string, buildFn BuildFn) PhaseOutcome {
	if buildFn == nil {
		return outcomeFor(bperror.FrameworkMisusef("no build function provided"))
	}
	if len(args) != 3 {
		return outcomeFor(bperror.ContractViolationf("build expects <layers> <platform> <plan> arguments, got %d", len(args)))
	}
	layersDir := args[0]

	if err := populatePlatform(&ctx, args[1]); err != nil {
		return outcomeFor(err)
	}
	plan, err := bptoml.LoadPlan(args[2])
	if err != nil {
		return outcomeFor(err)
	}
	store, err := bptoml.LoadStore(filepath.Join(layersDir, "store.toml"))
	if err != nil {
		return outcomeFor(err)
	}

	buildCtx := &BuildContext{
		Context:   ctx,
		LayersDir: layersDir,
		Plan:      plan,
		Store:     store,
		layers:    layers.NewStore(layersDir),
	}

	result, err := buildFn(buildCtx)
	if err != nil {
		return outcomeFor(err)
	}
	if result == nil {
		result = NewBuildResult()
	}
	if err := result.write(layersDir); err != nil {
		return outcomeFor(err)
	}
	return PhaseOutcome{Code: ExitSuccess}
}

func populatePlatform(ctx *Context, platformDir string) error {
	p, err := platform.FromDir(platformDir)
	if err != nil {
		return err
	}
	t, err := platform.TargetFromEnv()
	if err != nil {
		return err
	}
	ctx.Platform = p
	ctx.Target = t
	return nil
}

func outcomeFor(err error) PhaseOutcome {
	return PhaseOutcome{Code: exitCodeFor(err), Err: err}
}
