package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	envFlag := &cli.StringFlag{
		Name:  "env",
		Usage: "additional environment file",
	}
	return &cli.Command{
		Name:  "genctl",
		Usage: "operate the media generation ledger",
		Flags: []cli.Flag{envFlag},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if path := cmd.String("env"); path != "" {
				if err := godotenv.Overload(path); err != nil {
					return ctx, fmt.Errorf("load env file: %w", err)
				}
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "apply ledger migrations",
				Action: migrateAction,
			},
			{
				Name:  "sweep",
				Usage: "reconcile one user's pending jobs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Usage:    "user id",
						Required: true,
					},
				},
				Action: sweepAction,
			},
			{
				Name:  "sweep-all",
				Usage: "reconcile pending jobs of every user",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "grace",
						Usage: "skip jobs younger than this",
						Value: -1,
					},
				},
				Action: sweepAllAction,
			},
			{
				Name:  "models",
				Usage: "list registered models and prices",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "registry",
						Usage:   "model registry override file",
						Sources: cli.EnvVars("MODEL_REGISTRY_PATH"),
					},
				},
				Action: modelsAction,
			},
			{
				Name:  "set-kie",
				Usage: "store kie.ai connection settings in the database; omitted flags keep their stored value",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "key",
						Usage:   "api key",
						Sources: cli.EnvVars("KIE_API_KEY"),
					},
					&cli.StringFlag{
						Name:  "base-url",
						Usage: "api base url, used while KIE_BASE_URL is left at its default",
					},
					&cli.StringFlag{
						Name:  "callback-url",
						Usage: "task completion callback url, used when KIE_CALLBACK_URL is unset",
					},
				},
				Action: setKieAction,
			},
		},
	}
}
