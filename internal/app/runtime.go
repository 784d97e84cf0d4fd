// Package app assembles the runtime shared by the binaries.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"mediagen/internal/adapter/memory"
	"mediagen/internal/adapter/repo"
	"mediagen/internal/adapter/sqlite"
	"mediagen/internal/domain"
	"mediagen/internal/generation"
	"mediagen/internal/infra"
	"mediagen/internal/infra/credentials"
	"mediagen/internal/providers/kie"
)

// Runtime holds every long-lived component of a process.
type Runtime struct {
	Config      *infra.Config
	Logger      zerolog.Logger
	Pool        *pgxpool.Pool
	SQLite      *sqlite.Store
	Runner      *infra.SQLRunner
	Ledger      domain.Ledger
	Registry    *generation.Registry
	Provider    *kie.Client
	Service     *generation.Service
	Recovery    *generation.Recovery
	Credentials *credentials.Store
}

// Build connects storage and wires the generation core.
func Build(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Logger: logger}

	switch cfg.LedgerDriver {
	case infra.LedgerDriverMemory:
		logger.Warn().Msg("using in-memory ledger; state is lost on exit")
		rt.Ledger = memory.NewStore().Ledger()
	case infra.LedgerDriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		rt.SQLite = store
		rt.Ledger = store.Ledger()
	default:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		rt.Pool = pool
		rt.Runner = infra.NewSQLRunner(pool, logger)
		rt.Ledger = repo.NewLedger(rt.Runner)
		rt.Credentials = credentials.NewStore(rt.Runner)
	}

	registry, err := generation.LoadRegistry(cfg.ModelRegistryPath)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Registry = registry

	var stored credentials.KieSettings
	if rt.Credentials != nil {
		if stored, err = rt.Credentials.Kie(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to load kie settings from store")
		}
	}
	kieSettings := resolveKie(cfg, stored)

	client, err := kie.NewClient(kie.Options{
		APIKey:      kieSettings.APIKey,
		BaseURL:     kieSettings.BaseURL,
		CallbackURL: kieSettings.CallbackURL,
		HTTPClient:  &http.Client{Timeout: cfg.RequestTimeout()},
		Logger:      &rt.Logger,
	})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("configure kie client: %w", err)
	}
	if !client.HasCredentials() {
		logger.Warn().Msg("kie api key missing; only the test prompt will succeed")
	}
	rt.Provider = client

	rt.Service = generation.NewService(generation.Options{
		Ledger:         rt.Ledger,
		Registry:       registry,
		Provider:       client,
		PollInterval:   cfg.PollInterval,
		TaskTimeout:    cfg.TaskTimeout,
		OverallTimeout: cfg.OverallTimeout,
		Logger:         logger,
	})
	rt.Recovery = generation.NewRecovery(rt.Ledger, registry, client, rt.Service.Finalizer(), logger)
	return rt, nil
}

// Ping checks storage reachability.
func (rt *Runtime) Ping(ctx context.Context) error {
	switch {
	case rt.Pool != nil:
		return rt.Pool.Ping(ctx)
	case rt.SQLite != nil:
		return rt.SQLite.Ping(ctx)
	}
	return nil
}

func (rt *Runtime) Close() {
	if rt.Pool != nil {
		rt.Pool.Close()
	}
	if rt.SQLite != nil {
		if err := rt.SQLite.Close(); err != nil {
			rt.Logger.Warn().Err(err).Msg("close sqlite ledger")
		}
	}
}

// resolveKie lets environment settings win over stored ones. The base URL
// only falls back to the stored value while it is still the default.
func resolveKie(cfg *infra.Config, stored credentials.KieSettings) credentials.KieSettings {
	out := credentials.KieSettings{
		APIKey:      strings.TrimSpace(cfg.KieAPIKey),
		BaseURL:     strings.TrimSpace(cfg.KieBaseURL),
		CallbackURL: strings.TrimSpace(cfg.KieCallbackURL),
	}
	if out.APIKey == "" {
		out.APIKey = stored.APIKey
	}
	if (out.BaseURL == "" || out.BaseURL == infra.DefaultKieBaseURL) && stored.BaseURL != "" {
		out.BaseURL = stored.BaseURL
	}
	if out.CallbackURL == "" {
		out.CallbackURL = stored.CallbackURL
	}
	return out
}
