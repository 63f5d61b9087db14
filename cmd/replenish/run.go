package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/internal/app"
	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/opsserver"
	"github.com/andresuchdata/replenish/internal/service"
	"github.com/andresuchdata/replenish/pkg/logger"
)

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "source",
			Usage:   "Catalog and sales source: db, file, storage or drive",
			Value:   "db",
			EnvVars: []string{"REPLENISH_SOURCE"},
		},
		&cli.StringFlag{
			Name:    "workbook",
			Usage:   "Workbook path (file), object key (storage) or folder path (drive)",
			EnvVars: []string{"REPLENISH_WORKBOOK"},
		},
	}
}

// buildRuntime wires the service, swapping in a workbook-backed catalog when
// --source is not db.
func buildRuntime(c *cli.Context, cfg *config.Config) (*app.Runtime, error) {
	ctx := c.Context
	from := c.String("source")
	if from == "" || from == "db" {
		return app.New(ctx, cfg, app.Options{})
	}

	wb, err := app.LoadWorkbook(ctx, cfg, from, c.String("workbook"))
	if err != nil {
		return nil, err
	}
	rt, err := app.New(ctx, cfg, app.Options{Catalog: wb, Sales: wb})
	if err != nil {
		return nil, err
	}
	if err := rt.Service.RegisterVendors(ctx, wb.Vendors()); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute one replenishment run",
		Flags: append(sourceFlags(),
			&cli.TimestampFlag{
				Name:   "as-of",
				Usage:  "Evaluate as of this date (YYYY-MM-DD)",
				Layout: time.DateOnly,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the run result as JSON",
			},
		),
		Action: func(c *cli.Context) error {
			rt, err := buildRuntime(c, loadConfig())
			if err != nil {
				return err
			}
			defer rt.Close()

			opts := service.RunOptions{}
			if asOf := c.Timestamp("as-of"); asOf != nil {
				opts.Now = *asOf
			}
			result, err := rt.Service.Run(c.Context, opts)
			if err != nil {
				return err
			}
			return printResult(result, c.Bool("json"))
		},
	}
}

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Run on a fixed interval and serve /health, /ready and /metrics",
		Flags: append(sourceFlags(),
			&cli.DurationFlag{
				Name:    "interval",
				Usage:   "Time between runs",
				Value:   24 * time.Hour,
				EnvVars: []string{"REPLENISH_INTERVAL"},
			},
		),
		Action: func(c *cli.Context) error {
			cfg := loadConfig()
			rt, err := buildRuntime(c, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			ops := opsserver.New(cfg.Server.OpsAddr, rt.Registry, rt.Checks())
			go func() {
				if err := ops.Start(); err != nil {
					logger.Log.Error().Err(err).Msg("ops server stopped")
				}
			}()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = ops.Shutdown(ctx)
			}()

			return schedule(c.Context, c.Duration("interval"), func(ctx context.Context) {
				result, err := rt.Service.Run(ctx, service.RunOptions{})
				if err != nil {
					logger.Log.Error().Err(err).Msg("scheduled run failed")
					return
				}
				_ = printResult(result, false)
			})
		},
	}
}

// schedule calls fn immediately and then every interval until ctx is done.
// A failed run does not stop the loop.
func schedule(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		fn(ctx)
		select {
		case <-ctx.Done():
			logger.Log.Info().Msg("scheduler stopping")
			return nil
		case <-ticker.C:
		}
	}
}

func printResult(result *service.RunResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	logger.Log.Info().
		Str("run_id", result.Run.ID.String()).
		Int("skus", result.Run.SKUCount).
		Int("alerts", result.Run.AlertCount).
		Int("failures", result.Run.FailureCount).
		Int("purchase_orders", result.Run.POCount).
		Str("report", result.ReportKey).
		Msg("Run completed")
	for _, po := range result.PurchaseOrders {
		logger.Log.Info().
			Str("po_number", po.PONumber).
			Str("vendor_id", po.VendorID).
			Str("status", string(po.Status)).
			Str("total", po.Total.StringFixed(2)).
			Strs("approval_reasons", po.ApprovalReasons).
			Msg("Purchase order")
	}
	return nil
}
