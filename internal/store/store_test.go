package store

import (
	"time"

	"github.com/TimurManjosov/horizons/internal/probe"
)

func ptr[T any](v T) *T { return &v }

func testReport(id string, started time.Time) probe.Report {
	return probe.Report{
		SchemaVersion: probe.SchemaVersion,
		ID:            id,
		Engine:        "node",
		SearchMode:    probe.SearchBinary,
		Versions:      []probe.Version{"v18.20.8", "v20.19.5", "v22.20.0"},
		StartedAt:     started,
		FinishedAt:    started.Add(time.Minute),
		Results: []probe.PackageResult{
			{
				PackageName:             probe.ControlName,
				OldestCompatibleVersion: ptr(probe.Version("v18.20.8")),
				NewestTestedVersion:     ptr(probe.Version("v22.20.0")),
				Trials: []probe.TrialRecord{
					{Version: "v20.19.5", Success: true},
					{Version: "v18.20.8", Success: true},
				},
			},
			{
				PackageName:                    "express",
				DeclaresEngineConstraint:       true,
				OldestCompatibleVersion:        ptr(probe.Version("v20.19.5")),
				NewestTestedVersion:            ptr(probe.Version("v22.20.0")),
				FirstDeclaredConstraintMessage: ptr(`wanted: {"node":">=20"}`),
				Trials: []probe.TrialRecord{
					{Version: "v20.19.5", Success: true},
					{Version: "v18.20.8", Reason: probe.ReasonDeclaredConstraintViolation},
				},
			},
			{
				PackageName: "vitest",
				Trials: []probe.TrialRecord{
					{Version: "v20.19.5", Reason: probe.ReasonRuntimeBehaviorFailure, TimedOut: true},
					{Version: "v22.20.0", Reason: probe.ReasonInstallFailedGeneric},
				},
			},
		},
	}
}
