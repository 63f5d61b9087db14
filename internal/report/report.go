// Package report renders run results for auditors and spreadsheet users: a
// JSON audit document per run, a CSV alert export and an xlsx workbook.
package report

import (
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

// Prefix is where audit reports live in object storage.
const Prefix = "reports/"

// Audit is the document uploaded after every run.
type Audit struct {
	Run            domain.RunRecord       `json:"run"`
	Summary        *domain.AlertSummary   `json:"summary"`
	PurchaseOrders []domain.PurchaseOrder `json:"purchase_orders"`
	GeneratedAt    time.Time              `json:"generated_at"`
}

// Key returns reports/YYYY/MM/DD/{runID}.json for the run's start day.
func (a Audit) Key() string {
	return path.Join(Prefix, a.Run.StartedAt.UTC().Format("2006/01/02"), a.Run.ID.String()+".json")
}

func (a Audit) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode audit report: %w", err)
	}
	return data, nil
}
