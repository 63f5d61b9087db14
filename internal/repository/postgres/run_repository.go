package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository"
)

const runColumns = `id, status, sku_count, alert_count, po_count, failure_count, started_at, completed_at, error_message`

// RunRepository tracks replenishment runs and the alerts each produced.
type RunRepository struct {
	db *DB
}

var _ repository.RunRepository = (*RunRepository)(nil)

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) CreateRun(ctx context.Context, run *domain.RunRecord) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO replenishment_runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		run.ID, run.Status, run.SKUCount, run.AlertCount, run.POCount,
		run.FailureCount, run.StartedAt, run.CompletedAt, run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

func (r *RunRepository) UpdateRun(ctx context.Context, run *domain.RunRecord) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE replenishment_runs
		SET status = $1, sku_count = $2, alert_count = $3, po_count = $4,
		    failure_count = $5, completed_at = $6, error_message = $7
		WHERE id = $8
	`,
		run.Status, run.SKUCount, run.AlertCount, run.POCount,
		run.FailureCount, run.CompletedAt, run.ErrorMessage, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, id uuid.UUID) (*domain.RunRecord, error) {
	return r.getRun(ctx, `SELECT `+runColumns+` FROM replenishment_runs WHERE id = $1`, id)
}

func (r *RunRepository) LatestRun(ctx context.Context) (*domain.RunRecord, error) {
	return r.getRun(ctx, `
		SELECT `+runColumns+`
		FROM replenishment_runs
		WHERE status = $1
		ORDER BY started_at DESC
		LIMIT 1
	`, domain.RunCompleted)
}

func (r *RunRepository) getRun(ctx context.Context, query string, args ...interface{}) (*domain.RunRecord, error) {
	var run domain.RunRecord
	err := sqlx.GetContext(ctx, r.db, &run, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// SaveAlerts replaces the stored alerts of a run. Alerts keep their order.
func (r *RunRepository) SaveAlerts(ctx context.Context, runID uuid.UUID, alerts []domain.ReorderAlert) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reorder_alerts WHERE run_id = $1`, runID); err != nil {
			return fmt.Errorf("failed to clear alerts: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO reorder_alerts (run_id, sku, rank, urgency, payload)
			VALUES ($1, $2, $3, $4, $5)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i, alert := range alerts {
			payload, err := json.Marshal(alert)
			if err != nil {
				return fmt.Errorf("failed to encode alert %s: %w", alert.SKU, err)
			}
			if _, err := stmt.ExecContext(ctx, runID, alert.SKU, i, alert.Urgency, payload); err != nil {
				return fmt.Errorf("failed to insert alert %s: %w", alert.SKU, err)
			}
		}
		return nil
	})
}

func (r *RunRepository) ListAlerts(ctx context.Context, runID uuid.UUID) ([]domain.ReorderAlert, error) {
	if _, err := r.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	var payloads [][]byte
	err := sqlx.SelectContext(ctx, r.db, &payloads, `
		SELECT payload FROM reorder_alerts WHERE run_id = $1 ORDER BY rank
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	alerts := make([]domain.ReorderAlert, 0, len(payloads))
	for _, p := range payloads {
		var a domain.ReorderAlert
		if err := json.Unmarshal(p, &a); err != nil {
			return nil, fmt.Errorf("failed to decode alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}
