package purchasing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/domain"
)

func TestLifecycle_ApprovedToReceived(t *testing.T) {
	po := &domain.PurchaseOrder{Status: domain.POPendingApproval, CreatedAt: clock}

	require.NoError(t, Approve(po, "alice", clock.Add(time.Hour)))
	assert.Equal(t, "alice", po.ApprovedBy)
	assert.Equal(t, clock.Add(time.Hour), OrderDate(po))

	sentAt := clock.Add(2 * time.Hour)
	require.NoError(t, MarkSent(po, sentAt))
	assert.Equal(t, sentAt, OrderDate(po))

	require.NoError(t, MarkReceived(po, clock.AddDate(0, 0, 5)))
	assert.Equal(t, domain.POReceived, po.Status)
	assert.True(t, po.Status.IsTerminal())
}

func TestReject_IsTerminal(t *testing.T) {
	po := &domain.PurchaseOrder{Status: domain.POPendingApproval}
	require.NoError(t, Reject(po, "bob", "over budget", clock))
	assert.Equal(t, "over budget", po.RejectionReason)

	assert.ErrorIs(t, Approve(po, "alice", clock), domain.ErrInvalidTransition)
	assert.ErrorIs(t, MarkSent(po, clock), domain.ErrInvalidTransition)
}

func TestTransitions_RejectIllegalMoves(t *testing.T) {
	approved := &domain.PurchaseOrder{Status: domain.POApproved}
	assert.ErrorIs(t, Reject(approved, "bob", "", clock), domain.ErrInvalidTransition)
	assert.ErrorIs(t, MarkReceived(approved, clock), domain.ErrInvalidTransition)

	pending := &domain.PurchaseOrder{Status: domain.POPendingApproval}
	assert.ErrorIs(t, MarkSent(pending, clock), domain.ErrInvalidTransition)
	assert.ErrorIs(t, Approve(pending, " ", clock), domain.ErrInvalidInput)
	assert.Equal(t, domain.POPendingApproval, pending.Status)
}
