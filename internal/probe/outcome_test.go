package probe

import (
	"encoding/json"
	"testing"
)

func TestFailureReasonText(t *testing.T) {
	reasons := []FailureReason{
		ReasonNone,
		ReasonInstallFailedGeneric,
		ReasonDeclaredConstraintViolation,
		ReasonRuntimeBehaviorFailure,
		ReasonProvisionFailed,
	}
	for _, r := range reasons {
		parsed, err := ParseFailureReason(r.String())
		if err != nil || parsed != r {
			t.Errorf("ParseFailureReason(%q) = %v, %v", r.String(), parsed, err)
		}
	}

	if _, err := ParseFailureReason("Exploded"); err == nil {
		t.Error("Expected error for unknown reason")
	}
	if got := FailureReason(42).String(); got != "FailureReason(42)" {
		t.Errorf("Unexpected %q", got)
	}
}

func TestTrialRecordJSON(t *testing.T) {
	data, err := json.Marshal(TrialRecord{Version: "v18.20.8", Reason: ReasonDeclaredConstraintViolation})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"version":"v18.20.8","success":false,"failureReason":"DeclaredConstraintViolation"}`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}

	var back TrialRecord
	if err := json.Unmarshal(data, &back); err != nil || back.Reason != ReasonDeclaredConstraintViolation {
		t.Errorf("Unmarshal returned %+v, %v", back, err)
	}
	if err := json.Unmarshal([]byte(`{"failureReason":"Nope"}`), &back); err == nil {
		t.Error("Expected error for unknown reason text")
	}
}

func TestTrialOutcomeString(t *testing.T) {
	timedOut := failed(ReasonInstallFailedGeneric)
	timedOut.TimedOut = true

	tests := []struct {
		outcome TrialOutcome
		want    string
	}{
		{succeeded(), "OK"},
		{failed(ReasonRuntimeBehaviorFailure), "RuntimeBehaviorFailure"},
		{timedOut, "InstallFailedGeneric (timed out)"},
		{constraintViolation("Engine version mismatch"), "DeclaredConstraintViolation: Engine version mismatch"},
	}
	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestValidateVersions(t *testing.T) {
	valid := [][]Version{
		{"v14.21.3", "v16.20.2", "v24.0.2"},
		{"1.13", "1.20", "1.21.0"},
		{"1.0.0"},
	}
	for _, versions := range valid {
		if err := ValidateVersions(versions); err != nil {
			t.Errorf("ValidateVersions(%v) failed: %v", versions, err)
		}
	}
}

func TestPackageImportPath(t *testing.T) {
	if got := (Package{Name: "golang.org/x/sync", Import: "golang.org/x/sync/errgroup"}).ImportPath(); got != "golang.org/x/sync/errgroup" {
		t.Errorf("Unexpected import path %q", got)
	}
	if got := (Package{Name: "express"}).ImportPath(); got != "express" {
		t.Errorf("Unexpected import path %q", got)
	}
}

func TestFinalizeResolvedVersion(t *testing.T) {
	versions := []Version{"3.9", "3.10", "3.11", "3.12"}
	ok := func(resolved string) TrialOutcome {
		o := succeeded()
		o.ResolvedVersion = &resolved
		return o
	}

	tests := []struct {
		name     string
		trials   map[Version]TrialOutcome
		order    []Version
		expected string
	}{
		{
			name:     "newest passing version wins regardless of order",
			trials:   map[Version]TrialOutcome{"3.11": ok("2.31.0"), "3.10": failed(ReasonRuntimeBehaviorFailure), "3.12": ok("2.32.3")},
			order:    []Version{"3.11", "3.10", "3.12"},
			expected: "2.32.3",
		},
		{
			name:     "older version is used when the newest did not report",
			trials:   map[Version]TrialOutcome{"3.12": succeeded(), "3.10": ok("2.31.0")},
			order:    []Version{"3.12", "3.10"},
			expected: "2.31.0",
		},
		{
			name:   "nothing reported",
			trials: map[Version]TrialOutcome{"3.11": failed(ReasonInstallFailedGeneric)},
			order:  []Version{"3.11"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewPackageResult(&Package{Name: "requests", Spec: ">=2.31"})
			for _, v := range tt.order {
				res.RecordTrial(v, tt.trials[v])
			}
			res.Finalize(nil, versions)

			if res.DependencySpec != ">=2.31" {
				t.Errorf("Expected dependency spec >=2.31, got %q", res.DependencySpec)
			}
			got := ""
			if res.ResolvedVersion != nil {
				got = *res.ResolvedVersion
			}
			if got != tt.expected {
				t.Errorf("Expected resolved version %q, got %q", tt.expected, got)
			}
		})
	}
}
