package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/metrics"
	"github.com/andresuchdata/replenish/internal/purchasing"
)

// Approve records an operator approval of a pending purchase order.
func (s *ReplenishmentService) Approve(ctx context.Context, poID uuid.UUID, approverID string) (*domain.PurchaseOrder, error) {
	return s.transition(ctx, poID, func(po *domain.PurchaseOrder, at time.Time) error {
		return purchasing.Approve(po, approverID, at)
	})
}

// Reject terminates a pending purchase order.
func (s *ReplenishmentService) Reject(ctx context.Context, poID uuid.UUID, approverID, reason string) (*domain.PurchaseOrder, error) {
	return s.transition(ctx, poID, func(po *domain.PurchaseOrder, at time.Time) error {
		return purchasing.Reject(po, approverID, reason, at)
	})
}

// MarkSent records that an approved order went out to the vendor.
func (s *ReplenishmentService) MarkSent(ctx context.Context, poID uuid.UUID) (*domain.PurchaseOrder, error) {
	return s.transition(ctx, poID, purchasing.MarkSent)
}

// ConfirmReceipt marks a sent order received and scores the vendor's
// delivery. The conditional status update guarantees a receipt is scored at
// most once.
func (s *ReplenishmentService) ConfirmReceipt(ctx context.Context, poID uuid.UUID, actualDate time.Time) (*domain.PurchaseOrder, *domain.VendorReliability, error) {
	po, err := s.orders.Get(ctx, poID)
	if err != nil {
		return nil, nil, err
	}

	receipt := domain.DeliveryReceipt{
		VendorID:     po.VendorID,
		OrderDate:    purchasing.OrderDate(po),
		ExpectedDate: po.ExpectedDeliveryDate,
		ActualDate:   actualDate.UTC(),
	}
	if err := s.tracker.Validate(receipt); err != nil {
		return nil, nil, err
	}

	from := po.Status
	if err := purchasing.MarkReceived(po, receipt.ActualDate); err != nil {
		return nil, nil, err
	}
	if err := s.orders.UpdateStatus(ctx, po, from); err != nil {
		return nil, nil, err
	}

	rel, err := s.tracker.RecordDelivery(ctx, receipt, s.sink)
	if err != nil {
		return nil, nil, fmt.Errorf("po %s received but delivery not scored: %w", po.PONumber, err)
	}
	return po, rel, nil
}

func (s *ReplenishmentService) transition(ctx context.Context, poID uuid.UUID, apply func(*domain.PurchaseOrder, time.Time) error) (*domain.PurchaseOrder, error) {
	po, err := s.orders.Get(ctx, poID)
	if err != nil {
		return nil, err
	}

	from := po.Status
	if err := apply(po, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, po, from); err != nil {
		return nil, err
	}

	metrics.Count(s.sink, metrics.POTransition, 1, map[string]string{"to": string(po.Status)})
	log.Info().
		Str("po_number", po.PONumber).
		Str("from", string(from)).
		Str("to", string(po.Status)).
		Msg("Purchase order transitioned")
	return po, nil
}
