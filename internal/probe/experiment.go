package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrPersist is fatal: the finished report could not be written.
var ErrPersist = errors.New("report could not be persisted")

// ReportSink persists a finished report. It is called exactly once per run.
type ReportSink interface {
	Save(ctx context.Context, report Report) error
}

// Clock interface for testable time operations
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator interface for testable report IDs
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator implements IDGenerator using UUID v4
type UUIDGenerator struct{}

func (UUIDGenerator) Generate() string { return uuid.NewString() }

// ExperimentConfig wires an Experiment. Search and Sink are required.
type ExperimentConfig struct {
	Engine string
	Search *Search
	Sink   ReportSink
	Clock  Clock
	IDGen  IDGenerator
	Logger zerolog.Logger
}

// Experiment drives one search per package and owns the report being built.
type Experiment struct {
	engine string
	search *Search
	sink   ReportSink
	clock  Clock
	idgen  IDGenerator
	logger zerolog.Logger
}

// NewExperiment creates an Experiment with default clock and ID generator when unset.
func NewExperiment(cfg ExperimentConfig) *Experiment {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.IDGen == nil {
		cfg.IDGen = UUIDGenerator{}
	}
	return &Experiment{
		engine: cfg.Engine,
		search: cfg.Search,
		sink:   cfg.Sink,
		clock:  cfg.Clock,
		idgen:  cfg.IDGen,
		logger: cfg.Logger,
	}
}

// Run tests the control case, then every catalog entry in order, and persists
// the complete report exactly once at the end.
//
// Trial failures never stop the run. A fatal error (workspace allocation,
// cancellation) returns before anything is persisted; rerunning is the recovery path.
func (e *Experiment) Run(ctx context.Context, catalog []Package, versions []Version) (Report, error) {
	if err := ValidateVersions(versions); err != nil {
		return Report{}, err
	}

	report := e.newReport(versions)
	e.logger.Info().
		Str("engine", e.engine).
		Int("packages", len(catalog)).
		Int("versions", len(versions)).
		Msg("starting compatibility experiment")

	e.logger.Info().Msg("=== Testing control case (no dependencies) ===")
	control, err := e.runOne(ctx, nil, versions)
	if err != nil {
		return Report{}, err
	}
	report.Results = append(report.Results, control)

	for i := range catalog {
		pkg := catalog[i]
		e.logger.Info().Msgf("=== Testing %s ===", pkg.Name)
		result, err := e.runOne(ctx, &pkg, versions)
		if err != nil {
			return Report{}, err
		}
		report.Results = append(report.Results, result)
	}

	report.FinishedAt = e.clock.Now()
	if err := e.persist(ctx, report); err != nil {
		return Report{}, err
	}
	return report, nil
}

// RunPackage runs a single-package experiment: one search, one persisted report.
func (e *Experiment) RunPackage(ctx context.Context, pkg Package, versions []Version) (Report, error) {
	if err := ValidateVersions(versions); err != nil {
		return Report{}, err
	}
	report := e.newReport(versions)
	result, err := e.runOne(ctx, &pkg, versions)
	if err != nil {
		return Report{}, err
	}
	report.Results = append(report.Results, result)
	report.FinishedAt = e.clock.Now()
	if err := e.persist(ctx, report); err != nil {
		return Report{}, err
	}
	return report, nil
}

func (e *Experiment) newReport(versions []Version) Report {
	return Report{
		SchemaVersion: SchemaVersion,
		ID:            e.idgen.Generate(),
		Engine:        e.engine,
		SearchMode:    e.search.Mode(),
		Versions:      append([]Version(nil), versions...),
		StartedAt:     e.clock.Now(),
		Results:       []PackageResult{},
	}
}

func (e *Experiment) runOne(ctx context.Context, pkg *Package, versions []Version) (PackageResult, error) {
	result := NewPackageResult(pkg)
	oldest, err := e.search.FindOldestCompatible(ctx, pkg, versions, result)
	if err != nil {
		return PackageResult{}, err
	}
	result.Finalize(oldest, versions)

	ev := e.logger.Info().Str("package", result.PackageName)
	if result.OldestCompatibleVersion != nil {
		ev = ev.Str("oldest", string(*result.OldestCompatibleVersion)).Str("latest", string(*result.NewestTestedVersion))
	} else {
		ev = ev.Str("oldest", "NONE")
	}
	if result.FirstDeclaredConstraintMessage != nil {
		ev = ev.Str("engine_restriction", *result.FirstDeclaredConstraintMessage)
	}
	ev.Int("trials", len(result.Trials)).Msg("package finished")
	return *result, nil
}

func (e *Experiment) persist(ctx context.Context, report Report) error {
	if err := e.sink.Save(ctx, report); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	e.logger.Info().Str("id", report.ID).Int("results", len(report.Results)).Msg("report persisted")
	return nil
}
