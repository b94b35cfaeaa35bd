package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/TimurManjosov/horizons/internal/probe"
	"github.com/TimurManjosov/horizons/internal/telemetry"
	"github.com/TimurManjosov/horizons/internal/toolchain"
)

// newExperiment wires toolchain, runner, verifier and search for s.cfg.Engine.
func newExperiment(s *settings, sink probe.ReportSink) (*probe.Experiment, error) {
	cfg := s.cfg
	eng, err := toolchain.New(cfg.Engine, toolchain.Options{
		NVMDir:           cfg.NVMDir,
		GOPATH:           cfg.GOPATH,
		UV:               cfg.UVPath,
		ProvisionTimeout: cfg.ProvisionTimeout,
		Logger:           s.logger,
	})
	if err != nil {
		return nil, err
	}
	mode, err := probe.ParseSearchMode(cfg.SearchMode)
	if err != nil {
		return nil, err
	}

	runner := probe.NewRunner(probe.RunnerConfig{
		Toolchain:     eng.Toolchain,
		Provisioner:   eng.Provisioner,
		Commands:      probe.NewExecRunner(),
		Timeouts:      cfg.Timeouts(),
		WorkspaceRoot: cfg.WorkspaceRoot,
		Logger:        s.logger,
	})
	verifier := probe.NewVerifier(runner, eng.Toolchain.Classify, s.logger)
	search := probe.NewSearch(verifier, mode, cfg.Engine, s.logger)

	return probe.NewExperiment(probe.ExperimentConfig{
		Engine: cfg.Engine,
		Search: search,
		Sink:   sink,
		Logger: s.logger,
	}), nil
}

// serveMetrics exposes /metrics on addr until ctx ends. An empty addr is a no-op.
func serveMetrics(ctx context.Context, s *settings, addr string) {
	telemetry.Init()
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadTimeout: 3 * time.Second}

	go func() {
		s.logger.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()
}
