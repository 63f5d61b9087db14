package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "replenish",
		Usage: "Forecast demand, raise reorder alerts and draft purchase orders",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "json-logs",
				Usage:   "Emit JSON logs instead of console output",
				EnvVars: []string{"LOG_JSON"},
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("json-logs") {
				logger.UseJSON(os.Stdout)
			}
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			runCommand(),
			scheduleCommand(),
			migrateCommand(),
			importCommand(),
			approveCommand(),
			rejectCommand(),
			sendCommand(),
			receiveCommand(),
			reportsCommand(),
			exportCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("replenish failed")
	}
}

func loadConfig() *config.Config {
	return config.Load()
}
