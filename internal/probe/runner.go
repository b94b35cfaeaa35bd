package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/horizons/internal/telemetry"
)

// Phase selects what a trial does inside its workspace.
type Phase int

const (
	// PhaseControl runs a dependency-free "print marker and exit" program.
	PhaseControl Phase = iota
	// PhaseDeclared installs the package with declared-constraint enforcement.
	PhaseDeclared
	// PhaseBehavior installs without enforcement, then runs the exercise program.
	PhaseBehavior
)

func (p Phase) String() string {
	switch p {
	case PhaseControl:
		return "control"
	case PhaseDeclared:
		return "declared"
	case PhaseBehavior:
		return "behavior"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Step names the command that produced a RawTrialResult's status.
type Step string

const (
	StepProvision Step = "provision"
	StepCheck     Step = "check"
	StepInstall   Step = "install"
	StepExercise  Step = "exercise"
	StepResolve   Step = "resolve"
)

// RawTrialResult is the unclassified result of one trial.
type RawTrialResult struct {
	Phase           Phase
	Step            Step
	ExitCode        int
	Stdout          string
	Stderr          string
	TimedOut        bool
	ProvisionFailed bool
	Duration        time.Duration
	// ResolvedVersion is the installed package release, reported after a
	// passing exercise by toolchains that implement VersionResolver.
	ResolvedVersion string
}

// Passed reports whether the last step ran to completion with exit code zero.
func (r RawTrialResult) Passed() bool {
	return !r.ProvisionFailed && !r.TimedOut && r.ExitCode == 0
}

// Combined returns stdout followed by stderr.
func (r RawTrialResult) Combined() string {
	return CommandResult{Stdout: r.Stdout, Stderr: r.Stderr}.Combined()
}

// Timeouts bound each kind of step. Runtime covers control and exercise programs;
// Install covers dependency installation, which may fetch and build.
type Timeouts struct {
	Runtime time.Duration
	Install time.Duration
}

// DefaultTimeouts are 30s for runtime checks and 2 minutes for installs.
func DefaultTimeouts() Timeouts {
	return Timeouts{Runtime: 30 * time.Second, Install: 120 * time.Second}
}

// RunnerConfig wires a Runner. Toolchain, Provisioner and Commands are required.
type RunnerConfig struct {
	Toolchain   Toolchain
	Provisioner Provisioner
	Commands    CommandRunner
	Timeouts    Timeouts
	// WorkspaceRoot is where scratch directories are created; empty means os.TempDir.
	WorkspaceRoot string
	Logger        zerolog.Logger
}

// Runner executes isolated trials. It keeps no state between calls: every trial
// gets a fresh workspace that is removed before RunTrial returns, whatever happens.
type Runner struct {
	toolchain     Toolchain
	provisioner   Provisioner
	commands      CommandRunner
	timeouts      Timeouts
	workspaceRoot string
	logger        zerolog.Logger
}

// NewRunner creates a Runner. Zero timeouts fall back to DefaultTimeouts.
func NewRunner(cfg RunnerConfig) *Runner {
	defaults := DefaultTimeouts()
	if cfg.Timeouts.Runtime <= 0 {
		cfg.Timeouts.Runtime = defaults.Runtime
	}
	if cfg.Timeouts.Install <= 0 {
		cfg.Timeouts.Install = defaults.Install
	}
	return &Runner{
		toolchain:     cfg.Toolchain,
		provisioner:   cfg.Provisioner,
		commands:      cfg.Commands,
		timeouts:      cfg.Timeouts,
		workspaceRoot: cfg.WorkspaceRoot,
		logger:        cfg.Logger,
	}
}

// Engine returns the toolchain name.
func (r *Runner) Engine() string {
	return r.toolchain.Name()
}

// Provision asks the provisioner to make v available.
func (r *Runner) Provision(ctx context.Context, v Version) bool {
	return r.provisioner.EnsureAvailable(ctx, v)
}

// RunTrial provisions v, allocates a workspace, and runs phase in it.
//
// Timeouts and non-zero exits are reported in the result, never as errors. The
// error is non-nil only for ErrWorkspace (fatal) or when ctx is cancelled.
func (r *Runner) RunTrial(ctx context.Context, v Version, pkg *Package, phase Phase) (RawTrialResult, error) {
	if phase != PhaseControl && pkg == nil {
		return RawTrialResult{}, fmt.Errorf("phase %s requires a package", phase)
	}

	if !r.provisioner.EnsureAvailable(ctx, v) {
		if err := ctx.Err(); err != nil {
			return RawTrialResult{}, err
		}
		return RawTrialResult{Phase: phase, Step: StepProvision, ExitCode: -1, ProvisionFailed: true}, nil
	}

	ws, err := newWorkspace(r.workspaceRoot)
	if err != nil {
		return RawTrialResult{}, err
	}
	defer func() {
		if rmErr := ws.remove(); rmErr != nil {
			r.logger.Warn().Err(rmErr).Str("dir", ws.dir).Msg("failed to remove trial workspace")
		}
	}()

	switch phase {
	case PhaseControl:
		return r.runControl(ctx, ws, v)
	case PhaseDeclared:
		return r.runInstall(ctx, ws, v, *pkg, true)
	case PhaseBehavior:
		raw, err := r.runInstall(ctx, ws, v, *pkg, false)
		if err != nil || !raw.Passed() {
			raw.Phase = PhaseBehavior
			return raw, err
		}
		raw, err = r.runExercise(ctx, ws, v, *pkg)
		if err != nil || !raw.Passed() {
			return raw, err
		}
		raw.ResolvedVersion, err = r.resolveVersion(ctx, ws, v, *pkg)
		return raw, err
	default:
		return RawTrialResult{}, fmt.Errorf("unknown phase %s", phase)
	}
}

func (r *Runner) runControl(ctx context.Context, ws *workspace, v Version) (RawTrialResult, error) {
	if err := r.toolchain.WriteControl(ws.dir, v); err != nil {
		return RawTrialResult{}, setupErr("control program", err)
	}
	return r.step(ctx, ws, v, PhaseControl, StepCheck, r.toolchain.ControlCommand(v), r.timeouts.Runtime)
}

func (r *Runner) runInstall(ctx context.Context, ws *workspace, v Version, pkg Package, strict bool) (RawTrialResult, error) {
	phase := PhaseBehavior
	if strict {
		phase = PhaseDeclared
	}
	if err := r.toolchain.WriteManifest(ws.dir, v, pkg, strict); err != nil {
		return RawTrialResult{}, setupErr("manifest", err)
	}

	raw := RawTrialResult{Phase: phase, Step: StepInstall}
	for _, cmd := range r.toolchain.InstallCommands(v, pkg, strict) {
		next, err := r.step(ctx, ws, v, phase, StepInstall, cmd, r.timeouts.Install)
		if err != nil {
			return next, err
		}
		next.Duration += raw.Duration
		next.Stdout = joinOutput(raw.Stdout, next.Stdout)
		next.Stderr = joinOutput(raw.Stderr, next.Stderr)
		raw = next
		if !raw.Passed() {
			break
		}
	}
	return raw, nil
}

func (r *Runner) runExercise(ctx context.Context, ws *workspace, v Version, pkg Package) (RawTrialResult, error) {
	if err := r.toolchain.WriteExercise(ws.dir, pkg); err != nil {
		return RawTrialResult{}, setupErr("exercise program", err)
	}
	return r.step(ctx, ws, v, PhaseBehavior, StepExercise, r.toolchain.ExerciseCommand(v), r.timeouts.Runtime)
}

// resolveVersion asks the toolchain which release the install picked. A failed
// lookup leaves the trial passing with no resolved version.
func (r *Runner) resolveVersion(ctx context.Context, ws *workspace, v Version, pkg Package) (string, error) {
	resolver, ok := r.toolchain.(VersionResolver)
	if !ok {
		return "", nil
	}
	res, err := r.step(ctx, ws, v, PhaseBehavior, StepResolve, resolver.ResolveCommand(v, pkg), r.timeouts.Runtime)
	if err != nil {
		return "", err
	}
	if !res.Passed() {
		r.logger.Debug().Str("version", string(v)).Str("package", pkg.Name).Msg("could not resolve installed release")
		return "", nil
	}
	return resolver.ParseResolved(pkg, res.Stdout), nil
}

// step runs one command and reports it.
func (r *Runner) step(ctx context.Context, ws *workspace, v Version, phase Phase, step Step, cmd Command, timeout time.Duration) (RawTrialResult, error) {
	r.logger.Debug().
		Str("version", string(v)).
		Str("phase", phase.String()).
		Str("step", string(step)).
		Str("cmd", cmd.String()).
		Dur("timeout", timeout).
		Msg("running trial step")

	res, err := r.commands.Run(ctx, cmd, ws.dir, timeout)
	if err != nil {
		return RawTrialResult{}, err
	}

	raw := RawTrialResult{
		Phase:    phase,
		Step:     step,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		TimedOut: res.TimedOut,
		Duration: res.Duration,
	}

	status := "ok"
	switch {
	case raw.TimedOut:
		status = "timeout"
	case raw.ExitCode != 0:
		status = "failed"
	}
	telemetry.ObserveStep(r.toolchain.Name(), phase.String(), string(step), status, res.Duration)
	r.logger.Debug().
		Str("version", string(v)).
		Str("step", string(step)).
		Int("exit_code", raw.ExitCode).
		Bool("timed_out", raw.TimedOut).
		Dur("duration", raw.Duration).
		Msg("trial step finished")
	return raw, nil
}

func joinOutput(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n" + b
	}
}
