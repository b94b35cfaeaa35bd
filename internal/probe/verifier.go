package probe

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/horizons/internal/telemetry"
)

// Verifier decides whether pkg works on v. A nil pkg is the control case.
type Verifier interface {
	Verify(ctx context.Context, v Version, pkg *Package) (TrialOutcome, error)
}

// TrialRunner is the part of Runner the verifier depends on.
type TrialRunner interface {
	Engine() string
	Provision(ctx context.Context, v Version) bool
	RunTrial(ctx context.Context, v Version, pkg *Package, phase Phase) (RawTrialResult, error)
}

// TwoPhaseVerifier separates declared-constraint rejections from real failures.
//
// Phase 1 installs with constraint enforcement and classifies failures with the
// Classifier. Only when it succeeds does Phase 2 reinstall, in a fresh workspace
// and without enforcement, and run the exercise program. The two phases never
// share state: enforcement and actual runtime behaviour can disagree in both
// directions and each must show up in the report.
type TwoPhaseVerifier struct {
	runner   TrialRunner
	classify Classifier
	logger   zerolog.Logger
}

// NewVerifier creates a TwoPhaseVerifier. A nil classify uses GenericClassifier.
func NewVerifier(runner TrialRunner, classify Classifier, logger zerolog.Logger) *TwoPhaseVerifier {
	if classify == nil {
		classify = GenericClassifier
	}
	return &TwoPhaseVerifier{runner: runner, classify: classify, logger: logger}
}

// Verify implements Verifier. Errors are fatal (workspace) or cancellation only.
func (tv *TwoPhaseVerifier) Verify(ctx context.Context, v Version, pkg *Package) (TrialOutcome, error) {
	outcome, err := tv.verify(ctx, v, pkg)
	if err != nil {
		return TrialOutcome{}, err
	}
	telemetry.ObserveVerification(tv.runner.Engine(), outcome.Reason.String())
	return outcome, nil
}

func (tv *TwoPhaseVerifier) verify(ctx context.Context, v Version, pkg *Package) (TrialOutcome, error) {
	if !tv.runner.Provision(ctx, v) {
		if err := ctx.Err(); err != nil {
			return TrialOutcome{}, err
		}
		tv.logger.Warn().Str("version", string(v)).Msg("runtime provisioning failed")
		return failed(ReasonProvisionFailed), nil
	}

	if pkg == nil {
		raw, err := tv.runner.RunTrial(ctx, v, nil, PhaseControl)
		if err != nil {
			return TrialOutcome{}, err
		}
		return behaviorOutcome(raw), nil
	}

	declared, err := tv.runner.RunTrial(ctx, v, pkg, PhaseDeclared)
	if err != nil {
		return TrialOutcome{}, err
	}
	if declared.ProvisionFailed {
		return failed(ReasonProvisionFailed), nil
	}
	if !declared.Passed() {
		return tv.declaredOutcome(declared), nil
	}

	behavior, err := tv.runner.RunTrial(ctx, v, pkg, PhaseBehavior)
	if err != nil {
		return TrialOutcome{}, err
	}
	return behaviorOutcome(behavior), nil
}

// declaredOutcome classifies a failed strict install. A timeout is a generic
// install failure: partial output proves nothing about constraints.
func (tv *TwoPhaseVerifier) declaredOutcome(raw RawTrialResult) TrialOutcome {
	if raw.TimedOut {
		o := failed(ReasonInstallFailedGeneric)
		o.TimedOut = true
		return o
	}
	reason, msg := tv.classify(raw.Combined())
	if reason == ReasonDeclaredConstraintViolation {
		return constraintViolation(msg)
	}
	return failed(ReasonInstallFailedGeneric)
}

// behaviorOutcome requires the exercise (or control) step itself to have run,
// exited zero, and printed the marker.
func behaviorOutcome(raw RawTrialResult) TrialOutcome {
	if raw.ProvisionFailed {
		return failed(ReasonProvisionFailed)
	}
	ranProgram := raw.Step == StepExercise || raw.Step == StepCheck
	if ranProgram && raw.Passed() && strings.Contains(raw.Stdout, SuccessMarker) {
		o := succeeded()
		if raw.ResolvedVersion != "" {
			resolved := raw.ResolvedVersion
			o.ResolvedVersion = &resolved
		}
		return o
	}
	o := failed(ReasonRuntimeBehaviorFailure)
	o.TimedOut = raw.TimedOut
	return o
}
