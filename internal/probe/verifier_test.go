package probe

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

var wantedRe = regexp.MustCompile(`wanted: \{[^}]+\}`)

func testClassifier() Classifier {
	return MarkerClassifier([]string{"EBADENGINE"}, func(out string) string {
		return wantedRe.FindString(out)
	}, "Engine version mismatch")
}

func strPtr(s string) *string { return &s }

func okRaw(phase Phase, step Step) RawTrialResult {
	return RawTrialResult{Phase: phase, Step: step, Stdout: SuccessMarker + "\n"}
}

func TestVerifier(t *testing.T) {
	pkg := &Package{Name: "vitest", DeclaresEngineConstraint: true}
	msg := `wanted: {"node":">=20"}`

	tests := []struct {
		name       string
		pkg        *Package
		runner     *fakeTrialRunner
		want       TrialOutcome
		wantPhases []Phase
	}{
		{
			name:       "control passes",
			runner:     &fakeTrialRunner{provisionOK: true, results: map[Phase]RawTrialResult{PhaseControl: okRaw(PhaseControl, StepCheck)}},
			want:       succeeded(),
			wantPhases: []Phase{PhaseControl},
		},
		{
			name: "control without marker",
			runner: &fakeTrialRunner{provisionOK: true, results: map[Phase]RawTrialResult{
				PhaseControl: {Phase: PhaseControl, Step: StepCheck, Stdout: "hello"},
			}},
			want:       failed(ReasonRuntimeBehaviorFailure),
			wantPhases: []Phase{PhaseControl},
		},
		{
			name:       "provision failure",
			pkg:        pkg,
			runner:     &fakeTrialRunner{provisionOK: false},
			want:       failed(ReasonProvisionFailed),
			wantPhases: nil,
		},
		{
			name: "declared constraint violation skips behavior",
			pkg:  pkg,
			runner: &fakeTrialRunner{provisionOK: true, results: map[Phase]RawTrialResult{
				PhaseDeclared: {Phase: PhaseDeclared, Step: StepInstall, ExitCode: 1,
					Stderr: "npm ERR! code EBADENGINE\nnpm ERR! notsup Required: " + msg},
				PhaseBehavior: okRaw(PhaseBehavior, StepExercise),
			}},
			want:       constraintViolation(msg),
			wantPhases: []Phase{PhaseDeclared},
		},
		{
			name: "violation marker without message uses fallback",
			pkg:  pkg,
			runner: &fakeTrialRunner{provisionOK: true, results: map[Phase]RawTrialResult{
				PhaseDeclared: {Phase: PhaseDeclared, Step: StepInstall, ExitCode: 1, Stdout: "EBADENGINE"},
			}},
			want:       constraintViolation("Engine version mismatch"),
			wantPhases: []Phase{PhaseDeclared},
		},
		{
			name: "generic install failure",
			pkg:  pkg,
			runner: &fakeTrialRunner{provisionOK: true, results: map[Phase]RawTrialResult{
				PhaseDeclared: {Phase: PhaseDeclared, Step: StepInstall, ExitCode: 1, Stderr: "ETIMEDOUT registry.npmjs.org"},
			}},
			want:       failed(ReasonInstallFailedGeneric),
			wantPhases: []Phase{PhaseDeclared},
		},
		{
			name: "declared timeout is generic even with marker",
			pkg:  pkg,
			runner: &fakeTrialRunner{provisionOK: true, results: map[Phase]RawTrialResult{
				PhaseDeclared: {Phase: PhaseDeclared, Step: StepInstall, ExitCode: -1, TimedOut: true, Stdout: "EBADENGINE"},
			}},
			want:       TrialOutcome{Reason: ReasonInstallFailedGeneric, TimedOut: true},
			wantPhases: []Phase{PhaseDeclared},
		},
		{
			name: "behavior install fails",
			pkg:  pkg,
			runner: &fakeTrialRunner{provisionOK: true, results: map[Phase]RawTrialResult{
				PhaseDeclared: {Phase: PhaseDeclared, Step: StepInstall},
				PhaseBehavior: {Phase: PhaseBehavior, Step: StepInstall, ExitCode: 1},
			}},
			want:       failed(ReasonRuntimeBehaviorFailure),
			wantPhases: []Phase{PhaseDeclared, PhaseBehavior},
		},
		{
			name: "exercise exits zero without marker",
			pkg:  pkg,
			runner: &fakeTrialRunner{provisionOK: true, results: map[Phase]RawTrialResult{
				PhaseDeclared: {Phase: PhaseDeclared, Step: StepInstall},
				PhaseBehavior: {Phase: PhaseBehavior, Step: StepExercise, Stdout: "nothing"},
			}},
			want:       failed(ReasonRuntimeBehaviorFailure),
			wantPhases: []Phase{PhaseDeclared, PhaseBehavior},
		},
		{
			name: "exercise timeout",
			pkg:  pkg,
			runner: &fakeTrialRunner{provisionOK: true, results: map[Phase]RawTrialResult{
				PhaseDeclared: {Phase: PhaseDeclared, Step: StepInstall},
				PhaseBehavior: {Phase: PhaseBehavior, Step: StepExercise, ExitCode: -1, TimedOut: true, Stdout: SuccessMarker},
			}},
			want:       TrialOutcome{Reason: ReasonRuntimeBehaviorFailure, TimedOut: true},
			wantPhases: []Phase{PhaseDeclared, PhaseBehavior},
		},
		{
			name: "both phases pass",
			pkg:  pkg,
			runner: &fakeTrialRunner{provisionOK: true, results: map[Phase]RawTrialResult{
				PhaseDeclared: {Phase: PhaseDeclared, Step: StepInstall},
				PhaseBehavior: okRaw(PhaseBehavior, StepExercise),
			}},
			want:       succeeded(),
			wantPhases: []Phase{PhaseDeclared, PhaseBehavior},
		},
		{
			name: "success carries resolved release",
			pkg:  pkg,
			runner: &fakeTrialRunner{provisionOK: true, results: map[Phase]RawTrialResult{
				PhaseDeclared: {Phase: PhaseDeclared, Step: StepInstall},
				PhaseBehavior: {Phase: PhaseBehavior, Step: StepExercise, Stdout: SuccessMarker, ResolvedVersion: "2.1.0"},
			}},
			want:       TrialOutcome{Success: true, ResolvedVersion: strPtr("2.1.0")},
			wantPhases: []Phase{PhaseDeclared, PhaseBehavior},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVerifier(tt.runner, testClassifier(), zerolog.Nop())
			got, err := v.Verify(context.Background(), "v18.20.8", tt.pkg)
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Outcome mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantPhases, tt.runner.phases); diff != "" {
				t.Errorf("Phases mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVerifierPropagatesRunnerErrors(t *testing.T) {
	runner := &fakeTrialRunner{provisionOK: true, err: ErrWorkspace}
	v := NewVerifier(runner, nil, zerolog.Nop())

	if _, err := v.Verify(context.Background(), "v18.20.8", &Package{Name: "koa"}); !errors.Is(err, ErrWorkspace) {
		t.Errorf("Expected ErrWorkspace, got %v", err)
	}
}

func TestVerifierCancelledDuringProvision(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v := NewVerifier(&fakeTrialRunner{provisionOK: false}, nil, zerolog.Nop())

	if _, err := v.Verify(ctx, "v18.20.8", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestVerifierNilClassifierIsGeneric(t *testing.T) {
	runner := &fakeTrialRunner{provisionOK: true, results: map[Phase]RawTrialResult{
		PhaseDeclared: {Phase: PhaseDeclared, Step: StepInstall, ExitCode: 1, Stdout: "EBADENGINE"},
	}}
	v := NewVerifier(runner, nil, zerolog.Nop())

	got, err := v.Verify(context.Background(), "v18.20.8", &Package{Name: "koa"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Reason != ReasonInstallFailedGeneric {
		t.Errorf("Expected InstallFailedGeneric, got %s", got.Reason)
	}
}
