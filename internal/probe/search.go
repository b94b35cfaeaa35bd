package probe

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/horizons/internal/telemetry"
)

// SearchMode selects how candidate versions are visited.
type SearchMode string

const (
	// SearchBinary performs O(log N) verifications. It is only correct when
	// compatibility is monotonic in version order; a package that works on an
	// old version, breaks on a newer one and works again later is NOT detected.
	SearchBinary SearchMode = "binary"
	// SearchLinear verifies every version and reports monotonicity violations.
	SearchLinear SearchMode = "linear"
)

// ParseSearchMode validates a mode name.
func ParseSearchMode(s string) (SearchMode, error) {
	switch SearchMode(s) {
	case SearchBinary, SearchLinear:
		return SearchMode(s), nil
	case "":
		return SearchBinary, nil
	default:
		return "", fmt.Errorf("unsupported search mode: %s", s)
	}
}

// Search finds the oldest compatible version of a package.
type Search struct {
	verifier Verifier
	mode     SearchMode
	engine   string
	logger   zerolog.Logger
}

// NewSearch creates a Search. engine only labels metrics and logs.
func NewSearch(verifier Verifier, mode SearchMode, engine string, logger zerolog.Logger) *Search {
	if mode == "" {
		mode = SearchBinary
	}
	return &Search{verifier: verifier, mode: mode, engine: engine, logger: logger}
}

// Mode returns the configured search mode.
func (s *Search) Mode() SearchMode {
	return s.mode
}

// FindOldestCompatible returns the oldest version in the ascending list that
// passes verification, or nil if none does. Every trial is recorded in result,
// which also freezes the first declared-constraint message observed.
//
// The caller guarantees versions is non-empty and strictly ascending.
func (s *Search) FindOldestCompatible(ctx context.Context, pkg *Package, versions []Version, result *PackageResult) (*Version, error) {
	before := len(result.Trials)
	var (
		oldest *Version
		err    error
	)
	switch s.mode {
	case SearchLinear:
		oldest, err = s.linear(ctx, pkg, versions, result)
	default:
		oldest, err = s.binary(ctx, pkg, versions, result)
	}
	if err != nil {
		return nil, err
	}
	telemetry.ObserveSearch(s.engine, string(s.mode), len(result.Trials)-before)
	return oldest, nil
}

// binary searches [left, right) for the single incompatible→compatible transition.
func (s *Search) binary(ctx context.Context, pkg *Package, versions []Version, result *PackageResult) (*Version, error) {
	left, right := 0, len(versions)
	var oldest *Version

	for left < right {
		mid := left + (right-left)/2
		v := versions[mid]

		outcome, err := s.probe(ctx, pkg, v, result)
		if err != nil {
			return nil, err
		}

		if outcome.Success {
			found := v
			oldest = &found
			right = mid
		} else {
			left = mid + 1
		}
	}
	return oldest, nil
}

// linear verifies every version. The answer is the start of the trailing run of
// compatible versions; passes before the last failure are violations.
func (s *Search) linear(ctx context.Context, pkg *Package, versions []Version, result *PackageResult) (*Version, error) {
	lastFailure := -1
	passed := make([]bool, len(versions))

	for i, v := range versions {
		outcome, err := s.probe(ctx, pkg, v, result)
		if err != nil {
			return nil, err
		}
		passed[i] = outcome.Success
		if !outcome.Success {
			lastFailure = i
		}
	}

	for i := 0; i < lastFailure; i++ {
		if passed[i] {
			result.MonotonicityViolations = append(result.MonotonicityViolations, versions[i])
		}
	}
	if len(result.MonotonicityViolations) > 0 {
		s.logger.Warn().
			Str("package", result.PackageName).
			Interface("versions", result.MonotonicityViolations).
			Msg("compatibility is not monotonic; binary search would be unreliable for this package")
	}

	if lastFailure+1 < len(versions) {
		found := versions[lastFailure+1]
		return &found, nil
	}
	return nil, nil
}

func (s *Search) probe(ctx context.Context, pkg *Package, v Version, result *PackageResult) (TrialOutcome, error) {
	s.logger.Info().Str("package", result.PackageName).Str("version", string(v)).Msgf("Testing %s %s", s.engine, v)

	outcome, err := s.verifier.Verify(ctx, v, pkg)
	if err != nil {
		return TrialOutcome{}, fmt.Errorf("verifying %s on %s: %w", result.PackageName, v, err)
	}
	result.RecordTrial(v, outcome)

	s.logger.Info().
		Str("package", result.PackageName).
		Str("version", string(v)).
		Bool("success", outcome.Success).
		Str("reason", outcome.Reason.String()).
		Msg(outcome.String())
	return outcome, nil
}
