package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/horizons/internal/api"
	"github.com/TimurManjosov/horizons/internal/config"
	"github.com/TimurManjosov/horizons/internal/logging"
	"github.com/TimurManjosov/horizons/internal/store"
	"github.com/TimurManjosov/horizons/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal(zerolog.New(os.Stderr), "config", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fatal(zerolog.New(os.Stderr), "logging", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal(logger, "config", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		fatal(logger, "config", err)
	}

	ctx := context.Background()
	st, err := store.NewStore(ctx, store.Options{
		Type:       cfg.StoreType,
		ReportPath: cfg.ReportPath,
		DSN:        cfg.DatabaseDSN,
	})
	if err != nil {
		fatal(logger, "store", err)
	}
	defer st.Close()

	if summaries, err := st.List(ctx); err == nil {
		logger.Info().Int("reports", len(summaries)).Str("store", cfg.StoreType).Msg("report store ready")
	}

	telemetry.Init()
	srvAPI := api.NewServer(st, api.WithRateLimit(cfg.RateLimitPerIP), api.WithLogger(logger))

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "server", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShut)
	logger.Info().Msg("stopped")
}

func fatal(logger zerolog.Logger, what string, err error) {
	logger.Fatal().Err(err).Msg(what)
}
