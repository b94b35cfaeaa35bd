// Package probe finds the oldest runtime version a package works with.
//
// The pipeline is strictly sequential: Experiment → Search → Verifier → Runner →
// (provisioner, command runner). Results flow back up and are annotated at each layer.
package probe

import (
	"fmt"
)

// Version is one candidate runtime version, e.g. "v18.20.8" or "1.21.0".
type Version string

// Package describes a library under test. DeclaresEngineConstraint is reporting
// metadata only and never changes how the search runs.
type Package struct {
	Name                     string `json:"name" yaml:"name"`
	DeclaresEngineConstraint bool   `json:"declaresEngineConstraint" yaml:"declaresEngineConstraint"`
	// Import is the import path used by exercise programs when it differs from
	// Name (Go modules whose root package is not importable).
	Import string `json:"import,omitempty" yaml:"import,omitempty"`
	// Spec narrows which release is installed (python only, e.g. ">=2.32").
	// Empty means the latest release.
	Spec string `json:"spec,omitempty" yaml:"spec,omitempty"`
}

// ImportPath returns Import, or Name when Import is empty.
func (p Package) ImportPath() string {
	if p.Import != "" {
		return p.Import
	}
	return p.Name
}

// ControlName is the package name recorded for the dependency-free control case.
const ControlName = "CONTROL"

// FailureReason classifies why a trial did not succeed.
type FailureReason int

const (
	ReasonNone FailureReason = iota
	ReasonInstallFailedGeneric
	ReasonDeclaredConstraintViolation
	ReasonRuntimeBehaviorFailure
	ReasonProvisionFailed
)

var reasonNames = map[FailureReason]string{
	ReasonNone:                        "None",
	ReasonInstallFailedGeneric:        "InstallFailedGeneric",
	ReasonDeclaredConstraintViolation: "DeclaredConstraintViolation",
	ReasonRuntimeBehaviorFailure:      "RuntimeBehaviorFailure",
	ReasonProvisionFailed:             "ProvisionFailed",
}

func (r FailureReason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("FailureReason(%d)", int(r))
}

// ParseFailureReason is the inverse of String.
func ParseFailureReason(s string) (FailureReason, error) {
	for r, name := range reasonNames {
		if name == s {
			return r, nil
		}
	}
	return ReasonNone, fmt.Errorf("unknown failure reason: %s", s)
}

func (r FailureReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *FailureReason) UnmarshalText(b []byte) error {
	parsed, err := ParseFailureReason(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// TrialOutcome is the verdict of one verification. It is never mutated after creation.
type TrialOutcome struct {
	Success bool          `json:"success"`
	Reason  FailureReason `json:"failureReason"`
	// DeclaredConstraintMessage is set only for ReasonDeclaredConstraintViolation.
	DeclaredConstraintMessage *string `json:"declaredConstraintMessage,omitempty"`
	// TimedOut marks outcomes whose failing step hit its timeout. A timeout is
	// reported as that phase's generic failure.
	TimedOut bool `json:"timedOut,omitempty"`
	// ResolvedVersion is the package release a successful trial ran against,
	// when the toolchain can tell.
	ResolvedVersion *string `json:"resolvedVersion,omitempty"`
}

func succeeded() TrialOutcome {
	return TrialOutcome{Success: true, Reason: ReasonNone}
}

func failed(reason FailureReason) TrialOutcome {
	return TrialOutcome{Reason: reason}
}

func constraintViolation(msg string) TrialOutcome {
	return TrialOutcome{Reason: ReasonDeclaredConstraintViolation, DeclaredConstraintMessage: &msg}
}

// String renders the outcome for progress output.
func (o TrialOutcome) String() string {
	if o.Success {
		return "OK"
	}
	s := o.Reason.String()
	if o.TimedOut {
		s += " (timed out)"
	}
	if o.DeclaredConstraintMessage != nil {
		s += ": " + *o.DeclaredConstraintMessage
	}
	return s
}
