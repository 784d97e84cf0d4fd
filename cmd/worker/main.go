package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mediagen/internal/app"
	"mediagen/internal/generation"
	"mediagen/internal/infra"
	"mediagen/internal/observability"
)

// sweepAller is the slice of the recovery sweep the loop drives.
type sweepAller interface {
	SweepAll(ctx context.Context, grace time.Duration) (generation.Report, error)
}

type sweepWorker struct {
	recovery sweepAller
	interval time.Duration
	grace    time.Duration
	logger   infra.Logger
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTrace, err := observability.Init(ctx, cfg.Tracing("mediagen-worker"))
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to init tracing")
	}
	defer func() {
		if err := shutdownTrace(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("worker: trace shutdown")
		}
	}()

	rt, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to build runtime")
	}
	defer rt.Close()

	if cfg.LedgerDriver == infra.LedgerDriverMemory {
		logger.Warn().Msg("worker: memory ledger is private to this process, nothing to recover")
	}

	w := &sweepWorker{
		recovery: rt.Recovery,
		interval: cfg.SweepInterval,
		grace:    cfg.SweepGrace,
		logger:   logger,
	}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// Run sweeps once immediately and then on every interval until ctx ends.
func (w *sweepWorker) Run(ctx context.Context) error {
	w.logger.Info().Dur("interval", w.interval).Dur("grace", w.grace).Msg("worker: started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.sweep(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *sweepWorker) sweep(ctx context.Context) {
	start := time.Now()
	rep, err := w.recovery.SweepAll(ctx, w.grace)
	if err != nil {
		w.logger.Error().Err(err).Msg("worker: sweep failed")
		return
	}
	if rep.Checked == 0 {
		return
	}
	w.logger.Info().
		Int("checked", rep.Checked).
		Int("updated", rep.Updated).
		Dur("took", time.Since(start)).
		Msg("worker: sweep finished")
}
