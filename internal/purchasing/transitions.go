package purchasing

import (
	"strings"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

// Approve records an operator approval of a pending PO.
func Approve(po *domain.PurchaseOrder, approverID string, at time.Time) error {
	if strings.TrimSpace(approverID) == "" {
		return domain.NewInvalidInput("approver_id", approverID, "must not be empty")
	}
	if err := domain.CheckTransition(po.Status, domain.POApproved); err != nil {
		return err
	}
	po.Status = domain.POApproved
	po.ApprovedAt = &at
	po.ApprovedBy = approverID
	return nil
}

// Reject terminates a pending PO. A later run re-drafts the still
// outstanding alerts.
func Reject(po *domain.PurchaseOrder, approverID, reason string, at time.Time) error {
	if strings.TrimSpace(approverID) == "" {
		return domain.NewInvalidInput("approver_id", approverID, "must not be empty")
	}
	if err := domain.CheckTransition(po.Status, domain.PORejected); err != nil {
		return err
	}
	po.Status = domain.PORejected
	po.RejectedAt = &at
	po.RejectedBy = approverID
	po.RejectionReason = reason
	return nil
}

// MarkSent records hand-off to the vendor.
func MarkSent(po *domain.PurchaseOrder, at time.Time) error {
	if err := domain.CheckTransition(po.Status, domain.POSent); err != nil {
		return err
	}
	po.Status = domain.POSent
	po.SentAt = &at
	return nil
}

// MarkReceived records goods receipt.
func MarkReceived(po *domain.PurchaseOrder, at time.Time) error {
	if err := domain.CheckTransition(po.Status, domain.POReceived); err != nil {
		return err
	}
	po.Status = domain.POReceived
	po.ReceivedAt = &at
	return nil
}

// OrderDate is when the vendor was committed to the order: sent, else
// approved, else created.
func OrderDate(po *domain.PurchaseOrder) time.Time {
	switch {
	case po.SentAt != nil:
		return *po.SentAt
	case po.ApprovedAt != nil:
		return *po.ApprovedAt
	default:
		return po.CreatedAt
	}
}
