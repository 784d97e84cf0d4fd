package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"mediagen/internal/app"
	"mediagen/internal/generation"
	"mediagen/internal/infra"
	"mediagen/internal/infra/credentials"
)

func loadRuntime(ctx context.Context) (*app.Runtime, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := infra.NewLogger(cfg.AppEnv, "genctl")
	return app.Build(ctx, cfg, logger)
}

func migrateAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.LedgerDriver != infra.LedgerDriverPostgres {
		return fmt.Errorf("migrate requires LEDGER_DRIVER=postgres")
	}
	db, err := infra.OpenSQLDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := infra.Migrate(ctx, db); err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, "migrations applied")
	return nil
}

func sweepAction(ctx context.Context, cmd *cli.Command) error {
	rt, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	rep, err := rt.Recovery.Sweep(ctx, strings.TrimSpace(cmd.String("user")))
	if err != nil {
		return err
	}
	return printReport(cmd, rep)
}

func sweepAllAction(ctx context.Context, cmd *cli.Command) error {
	rt, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	grace := cmd.Duration("grace")
	if grace < 0 {
		grace = rt.Config.SweepGrace
	}
	rep, err := rt.Recovery.SweepAll(ctx, grace)
	if err != nil {
		return err
	}
	return printReport(cmd, rep)
}

func printReport(cmd *cli.Command, rep generation.Report) error {
	enc := json.NewEncoder(cmd.Root().Writer)
	return enc.Encode(rep)
}

func modelsAction(ctx context.Context, cmd *cli.Command) error {
	registry, err := generation.LoadRegistry(cmd.String("registry"))
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(cmd.Root().Writer)
	table.Header("Model", "Kind", "Media", "Provider Model", "Edit Model", "Max Images", "Price")
	for _, e := range registry.Models() {
		if err := table.Append(
			e.Model,
			string(e.Kind),
			string(e.MediaType),
			e.ProviderModel,
			e.EditModel,
			strconv.Itoa(e.MaxImages),
			formatPrice(e),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func formatPrice(e generation.Entry) string {
	if len(e.Prices) == 0 {
		return strconv.Itoa(e.Price)
	}
	parts := make([]string, 0, len(e.Prices))
	for _, res := range []string{"1K", "2K", "480P", "720P"} {
		if p, ok := e.Prices[res]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", res, p))
		}
	}
	if len(parts) == 0 {
		return strconv.Itoa(e.Price)
	}
	return strings.Join(parts, " ")
}

func setKieAction(ctx context.Context, cmd *cli.Command) error {
	settings := credentials.KieSettings{
		APIKey:      cmd.String("key"),
		BaseURL:     cmd.String("base-url"),
		CallbackURL: cmd.String("callback-url"),
	}
	if err := settings.Validate(); err != nil {
		if errors.Is(err, credentials.ErrNothingToSave) {
			return fmt.Errorf("set at least one of --key, --base-url or --callback-url")
		}
		return err
	}
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.LedgerDriver != infra.LedgerDriverPostgres {
		return fmt.Errorf("set-kie requires LEDGER_DRIVER=postgres")
	}
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := credentials.NewStore(infra.NewSQLRunner(pool, infra.NewLogger(cfg.AppEnv, "genctl")))
	if err := store.SaveKie(ctx, settings); err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, "kie settings stored")
	return nil
}
