package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/andresuchdata/replenish/internal/domain"
)

// POFilter narrows purchase order listings. Zero values mean "any".
type POFilter struct {
	Status   domain.POStatus
	VendorID string
	RunID    uuid.UUID
	Limit    int
	Offset   int
}

// PORepository persists purchase orders together with their line items.
type PORepository interface {
	// Create stores a new PO. A duplicate PO number returns
	// domain.ErrSequenceCollision and stores nothing.
	Create(ctx context.Context, po *domain.PurchaseOrder) error
	Get(ctx context.Context, id uuid.UUID) (*domain.PurchaseOrder, error)
	List(ctx context.Context, filter POFilter) ([]domain.PurchaseOrder, error)
	// UpdateStatus persists po's status fields only if the stored status is
	// still from. Otherwise it returns domain.ErrInvalidTransition.
	UpdateStatus(ctx context.Context, po *domain.PurchaseOrder, from domain.POStatus) error
}

// VendorRepository is the vendor directory. Registering a vendor also opens
// its reliability counters at zero.
type VendorRepository interface {
	UpsertVendor(ctx context.Context, v domain.Vendor) error
	GetVendor(ctx context.Context, id string) (*domain.Vendor, error)
	ListVendors(ctx context.Context) ([]domain.Vendor, error)
}

// ReliabilityRepository holds the per-vendor delivery counters. It is written
// only by the vendor reliability tracker.
type ReliabilityRepository interface {
	GetReliability(ctx context.Context, vendorID string) (*domain.VendorReliability, error)
	ListReliability(ctx context.Context) ([]domain.VendorReliability, error)
	// ApplyDelivery increments the counters atomically and returns the new
	// state. Unknown vendors return domain.ErrStaleVendorData.
	ApplyDelivery(ctx context.Context, vendorID string, onTime bool, leadTimeDays float64) (*domain.VendorReliability, error)
}

// RunRepository tracks runs and the alerts each run produced.
type RunRepository interface {
	CreateRun(ctx context.Context, run *domain.RunRecord) error
	UpdateRun(ctx context.Context, run *domain.RunRecord) error
	GetRun(ctx context.Context, id uuid.UUID) (*domain.RunRecord, error)
	// LatestRun returns the most recently started completed run, or
	// domain.ErrRunNotFound.
	LatestRun(ctx context.Context) (*domain.RunRecord, error)
	SaveAlerts(ctx context.Context, runID uuid.UUID, alerts []domain.ReorderAlert) error
	ListAlerts(ctx context.Context, runID uuid.UUID) ([]domain.ReorderAlert, error)
}

// SequenceRepository is a database-level counter usable as a PO sequence
// allocator across processes.
type SequenceRepository interface {
	Next(ctx context.Context, vendorID string, day time.Time) (int, error)
}
