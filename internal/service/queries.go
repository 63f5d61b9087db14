package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/andresuchdata/replenish/internal/alerts"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/report"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/storage"
)

// AlertSummary returns the alerts of a run, or of the latest completed run
// when runID is uuid.Nil.
func (s *ReplenishmentService) AlertSummary(ctx context.Context, runID uuid.UUID) (*domain.RunRecord, *domain.AlertSummary, error) {
	run, err := s.runOrLatest(ctx, runID)
	if err != nil {
		return nil, nil, err
	}

	list, err := s.runs.ListAlerts(ctx, run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, alerts.Summarize(list, run.StartedAt), nil
}

func (s *ReplenishmentService) LatestRun(ctx context.Context) (*domain.RunRecord, error) {
	return s.runs.LatestRun(ctx)
}

func (s *ReplenishmentService) GetRun(ctx context.Context, id uuid.UUID) (*domain.RunRecord, error) {
	return s.runs.GetRun(ctx, id)
}

func (s *ReplenishmentService) ListPurchaseOrders(ctx context.Context, filter repository.POFilter) ([]domain.PurchaseOrder, error) {
	return s.orders.List(ctx, filter)
}

func (s *ReplenishmentService) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*domain.PurchaseOrder, error) {
	return s.orders.Get(ctx, id)
}

func (s *ReplenishmentService) GetVendorReliability(ctx context.Context, vendorID string) (*domain.VendorReliability, error) {
	return s.tracker.Reliability(ctx, vendorID)
}

// ListReports lists uploaded audit reports. It is empty without storage.
func (s *ReplenishmentService) ListReports(ctx context.Context) ([]storage.ObjectInfo, error) {
	if s.storage == nil {
		return []storage.ObjectInfo{}, nil
	}
	return s.storage.ListObjects(ctx, report.Prefix)
}
