package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/internal/app"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/pkg/logger"
)

func poIDFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "po-id", Usage: "Purchase order id", Required: true}
}

func approverFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "approver", Usage: "Approver id", Required: true, EnvVars: []string{"REPLENISH_APPROVER"}}
}

// withPO opens the runtime against the database and resolves --po-id.
func withPO(c *cli.Context, fn func(rt *app.Runtime, id uuid.UUID) (*domain.PurchaseOrder, error)) error {
	id, err := uuid.Parse(c.String("po-id"))
	if err != nil {
		return fmt.Errorf("invalid --po-id: %w", err)
	}

	rt, err := app.New(c.Context, loadConfig(), app.Options{})
	if err != nil {
		return err
	}
	defer rt.Close()

	po, err := fn(rt, id)
	if err != nil {
		return err
	}
	logger.Log.Info().
		Str("po_number", po.PONumber).
		Str("status", domain.POStatusLabel(po.Status)).
		Msg("Purchase order updated")
	return nil
}

func approveCommand() *cli.Command {
	return &cli.Command{
		Name:  "approve",
		Usage: "Approve a purchase order waiting for review",
		Flags: []cli.Flag{poIDFlag(), approverFlag()},
		Action: func(c *cli.Context) error {
			return withPO(c, func(rt *app.Runtime, id uuid.UUID) (*domain.PurchaseOrder, error) {
				return rt.Service.Approve(c.Context, id, c.String("approver"))
			})
		},
	}
}

func rejectCommand() *cli.Command {
	return &cli.Command{
		Name:  "reject",
		Usage: "Reject a purchase order waiting for review",
		Flags: []cli.Flag{
			poIDFlag(),
			approverFlag(),
			&cli.StringFlag{Name: "reason", Usage: "Why the order was rejected"},
		},
		Action: func(c *cli.Context) error {
			return withPO(c, func(rt *app.Runtime, id uuid.UUID) (*domain.PurchaseOrder, error) {
				return rt.Service.Reject(c.Context, id, c.String("approver"), c.String("reason"))
			})
		},
	}
}

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:  "send",
		Usage: "Mark an approved purchase order as sent to the vendor",
		Flags: []cli.Flag{poIDFlag()},
		Action: func(c *cli.Context) error {
			return withPO(c, func(rt *app.Runtime, id uuid.UUID) (*domain.PurchaseOrder, error) {
				return rt.Service.MarkSent(c.Context, id)
			})
		},
	}
}

func receiveCommand() *cli.Command {
	return &cli.Command{
		Name:  "receive",
		Usage: "Confirm goods receipt and score the vendor's delivery",
		Flags: []cli.Flag{
			poIDFlag(),
			&cli.TimestampFlag{
				Name:   "date",
				Usage:  "Actual delivery date (YYYY-MM-DD), defaults to today",
				Layout: time.DateOnly,
			},
		},
		Action: func(c *cli.Context) error {
			actual := time.Now().UTC()
			if d := c.Timestamp("date"); d != nil {
				actual = *d
			}
			return withPO(c, func(rt *app.Runtime, id uuid.UUID) (*domain.PurchaseOrder, error) {
				po, rel, err := rt.Service.ConfirmReceipt(c.Context, id, actual)
				if err != nil {
					return nil, err
				}
				logger.Log.Info().
					Str("vendor_id", rel.VendorID).
					Float64("reliability_score", rel.ReliabilityScore).
					Float64("average_lead_time_days", rel.AverageLeadTimeDays).
					Int("total_orders", rel.TotalOrders).
					Msg("Vendor reliability updated")
				return po, nil
			})
		},
	}
}
