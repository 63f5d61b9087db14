// Package memory holds mutex-guarded repositories used by tests and by the
// CLI when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository"
)

type Store struct {
	mu          sync.RWMutex
	orders      map[uuid.UUID]*domain.PurchaseOrder
	poNumbers   map[string]uuid.UUID
	vendors     map[string]domain.Vendor
	reliability map[string]*domain.VendorReliability
	runs        map[uuid.UUID]*domain.RunRecord
	alerts      map[uuid.UUID][]domain.ReorderAlert
}

var (
	_ repository.PORepository          = (*Store)(nil)
	_ repository.VendorRepository      = (*Store)(nil)
	_ repository.ReliabilityRepository = (*Store)(nil)
	_ repository.RunRepository         = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		orders:      make(map[uuid.UUID]*domain.PurchaseOrder),
		poNumbers:   make(map[string]uuid.UUID),
		vendors:     make(map[string]domain.Vendor),
		reliability: make(map[string]*domain.VendorReliability),
		runs:        make(map[uuid.UUID]*domain.RunRecord),
		alerts:      make(map[uuid.UUID][]domain.ReorderAlert),
	}
}

// Purchase orders

func (s *Store) Create(_ context.Context, po *domain.PurchaseOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.poNumbers[po.PONumber]; taken {
		return domain.ErrSequenceCollision
	}
	if po.ID == uuid.Nil {
		po.ID = uuid.New()
	}
	s.orders[po.ID] = clonePO(po)
	s.poNumbers[po.PONumber] = po.ID
	return nil
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (*domain.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	po, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrPurchaseOrderNotFound
	}
	return clonePO(po), nil
}

func (s *Store) List(_ context.Context, filter repository.POFilter) ([]domain.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PurchaseOrder, 0, len(s.orders))
	for _, po := range s.orders {
		if filter.Status != "" && po.Status != filter.Status {
			continue
		}
		if filter.VendorID != "" && po.VendorID != filter.VendorID {
			continue
		}
		if filter.RunID != uuid.Nil && po.RunID != filter.RunID {
			continue
		}
		out = append(out, *clonePO(po))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].PONumber < out[j].PONumber
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []domain.PurchaseOrder{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) UpdateStatus(_ context.Context, po *domain.PurchaseOrder, from domain.POStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[po.ID]
	if !ok {
		return domain.ErrPurchaseOrderNotFound
	}
	if stored.Status != from {
		return fmt.Errorf("%w: %s is now %s", domain.ErrInvalidTransition, po.PONumber, stored.Status)
	}

	stored.Status = po.Status
	stored.SubmittedAt = copyTime(po.SubmittedAt)
	stored.ApprovedAt = copyTime(po.ApprovedAt)
	stored.ApprovedBy = po.ApprovedBy
	stored.RejectedAt = copyTime(po.RejectedAt)
	stored.RejectedBy = po.RejectedBy
	stored.RejectionReason = po.RejectionReason
	stored.SentAt = copyTime(po.SentAt)
	stored.ReceivedAt = copyTime(po.ReceivedAt)
	return nil
}

// Vendors

func (s *Store) UpsertVendor(_ context.Context, v domain.Vendor) error {
	if v.ID == "" {
		return domain.NewInvalidInput("vendor_id", v.ID, "must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vendors[v.ID] = v
	if _, ok := s.reliability[v.ID]; !ok {
		s.reliability[v.ID] = &domain.VendorReliability{VendorID: v.ID}
	}
	return nil
}

func (s *Store) GetVendor(_ context.Context, id string) (*domain.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vendors[id]
	if !ok {
		return nil, domain.ErrStaleVendorData
	}
	return &v, nil
}

func (s *Store) ListVendors(_ context.Context) ([]domain.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Vendor, 0, len(s.vendors))
	for _, v := range s.vendors {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Reliability

func (s *Store) GetReliability(_ context.Context, vendorID string) (*domain.VendorReliability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reliability[vendorID]
	if !ok {
		return nil, domain.ErrStaleVendorData
	}
	out := *r
	out.Recompute()
	return &out, nil
}

func (s *Store) ListReliability(_ context.Context) ([]domain.VendorReliability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.VendorReliability, 0, len(s.reliability))
	for _, r := range s.reliability {
		cp := *r
		cp.Recompute()
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VendorID < out[j].VendorID })
	return out, nil
}

func (s *Store) ApplyDelivery(_ context.Context, vendorID string, onTime bool, leadTimeDays float64) (*domain.VendorReliability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reliability[vendorID]
	if !ok {
		return nil, domain.ErrStaleVendorData
	}
	r.TotalOrders++
	if onTime {
		r.OnTimeDeliveries++
	}
	r.LeadTimeDaysSum += leadTimeDays

	out := *r
	out.Recompute()
	return &out, nil
}

// Runs

func (s *Store) CreateRun(_ context.Context, run *domain.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *Store) UpdateRun(_ context.Context, run *domain.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return domain.ErrRunNotFound
	}
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *Store) GetRun(_ context.Context, id uuid.UUID) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	cp := *run
	return &cp, nil
}

func (s *Store) LatestRun(_ context.Context) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.RunRecord
	for _, run := range s.runs {
		if run.Status != domain.RunCompleted {
			continue
		}
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil, domain.ErrRunNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *Store) SaveAlerts(_ context.Context, runID uuid.UUID, alerts []domain.ReorderAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts[runID] = append([]domain.ReorderAlert(nil), alerts...)
	return nil
}

func (s *Store) ListAlerts(_ context.Context, runID uuid.UUID) ([]domain.ReorderAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, domain.ErrRunNotFound
	}
	return append([]domain.ReorderAlert{}, s.alerts[runID]...), nil
}

func clonePO(po *domain.PurchaseOrder) *domain.PurchaseOrder {
	cp := *po
	cp.LineItems = append([]domain.LineItem(nil), po.LineItems...)
	cp.ApprovalReasons = append([]string(nil), po.ApprovalReasons...)
	cp.SubmittedAt = copyTime(po.SubmittedAt)
	cp.ApprovedAt = copyTime(po.ApprovedAt)
	cp.RejectedAt = copyTime(po.RejectedAt)
	cp.SentAt = copyTime(po.SentAt)
	cp.ReceivedAt = copyTime(po.ReceivedAt)
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
