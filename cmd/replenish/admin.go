package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/internal/app"
	"github.com/andresuchdata/replenish/internal/migrations"
	"github.com/andresuchdata/replenish/internal/report"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/pkg/logger"
)

func migrateCommand() *cli.Command {
	dsnFlag := &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string, defaults to the DB_* settings",
		EnvVars: []string{"DATABASE_URL"},
	}
	dsn := func(c *cli.Context) string {
		if v := c.String("db-url"); v != "" {
			return v
		}
		return loadConfig().Database.DSN()
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply or roll back the database schema",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Flags: []cli.Flag{dsnFlag},
				Action: func(c *cli.Context) error {
					return migrations.Up(c.Context, dsn(c))
				},
			},
			{
				Name:  "down",
				Usage: "Roll back the most recent migration",
				Flags: []cli.Flag{dsnFlag},
				Action: func(c *cli.Context) error {
					return migrations.Down(c.Context, dsn(c))
				},
			},
			{
				Name:  "list",
				Usage: "List embedded migration files",
				Action: func(c *cli.Context) error {
					files, err := migrations.Files()
					if err != nil {
						return err
					}
					for _, f := range files {
						fmt.Println(f)
					}
					return nil
				},
			},
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Load a catalog workbook (catalog, sales and vendors sheets) into postgres",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "source",
				Usage: "Workbook origin: file, storage or drive",
				Value: app.FromFile,
			},
			&cli.StringFlag{
				Name:  "workbook",
				Usage: "Workbook path (file), object key (storage) or folder path (drive)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := loadConfig()
			wb, err := app.LoadWorkbook(c.Context, cfg, c.String("source"), c.String("workbook"))
			if err != nil {
				return err
			}

			rt, err := app.New(c.Context, cfg, app.Options{})
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.Service.RegisterVendors(c.Context, wb.Vendors()); err != nil {
				return err
			}
			catalog, err := wb.CatalogSnapshot(c.Context)
			if err != nil {
				return err
			}
			sales := wb.Ledger()
			if err := rt.Catalog.Import(c.Context, catalog, sales); err != nil {
				return err
			}

			logger.Log.Info().
				Int("vendors", len(wb.Vendors())).
				Int("skus", len(catalog)).
				Int("sales_records", len(sales)).
				Msg("Workbook imported")
			return nil
		},
	}
}

func reportsCommand() *cli.Command {
	return &cli.Command{
		Name:  "reports",
		Usage: "List run audit reports, or download one with --key",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "key", Usage: "Report object key to download"},
			&cli.StringFlag{Name: "out", Usage: "Download directory", Value: "."},
		},
		Action: func(c *cli.Context) error {
			rt, err := app.New(c.Context, loadConfig(), app.Options{})
			if err != nil {
				return err
			}
			defer rt.Close()

			key := c.String("key")
			if key == "" {
				objects, err := rt.Service.ListReports(c.Context)
				if err != nil {
					return err
				}
				for _, obj := range objects {
					fmt.Printf("%s\t%d\t%s\n", obj.Key, obj.Size, obj.LastModified.Format("2006-01-02 15:04:05"))
				}
				return nil
			}

			if rt.Storage == nil {
				return fmt.Errorf("object storage is not enabled")
			}
			dest := filepath.Join(c.String("out"), filepath.Base(key))
			if err := rt.Storage.DownloadObject(c.Context, key, dest); err != nil {
				return err
			}
			logger.Log.Info().Str("path", dest).Msg("Report downloaded")
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write a run's alerts to .csv, or alerts and purchase orders to .xlsx",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "run-id", Usage: "Run id, defaults to the latest completed run"},
			&cli.StringFlag{Name: "out", Usage: "Output file (.csv or .xlsx)", Required: true},
		},
		Action: func(c *cli.Context) error {
			runID := uuid.Nil
			if raw := c.String("run-id"); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("invalid --run-id: %w", err)
				}
				runID = id
			}

			rt, err := app.New(c.Context, loadConfig(), app.Options{})
			if err != nil {
				return err
			}
			defer rt.Close()

			run, summary, err := rt.Service.AlertSummary(c.Context, runID)
			if err != nil {
				return err
			}

			out := c.String("out")
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			switch strings.ToLower(filepath.Ext(out)) {
			case ".csv":
				err = report.WriteAlertsCSV(f, summary.Alerts)
			case ".xlsx":
				orders, lerr := rt.Service.ListPurchaseOrders(c.Context, repository.POFilter{RunID: run.ID})
				if lerr != nil {
					return lerr
				}
				buf, werr := report.Workbook(summary.Alerts, orders)
				if werr != nil {
					return werr
				}
				_, err = buf.WriteTo(f)
			default:
				return fmt.Errorf("unsupported export format %q", filepath.Ext(out))
			}
			if err != nil {
				return err
			}

			logger.Log.Info().Str("run_id", run.ID.String()).Int("alerts", summary.TotalAlerts).Str("path", out).Msg("Export written")
			return nil
		},
	}
}
