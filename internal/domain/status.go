package domain

import (
	"fmt"
	"strings"
)

// POStatus is the purchase order lifecycle state.
type POStatus string

const (
	PODraft           POStatus = "draft"
	POPendingApproval POStatus = "pending_approval"
	POApproved        POStatus = "approved"
	PORejected        POStatus = "rejected"
	POSent            POStatus = "sent"
	POReceived        POStatus = "received"
)

var poStatusLabels = map[POStatus]string{
	PODraft:           "Draft",
	POPendingApproval: "Pending Approval",
	POApproved:        "Approved",
	PORejected:        "Rejected",
	POSent:            "Sent",
	POReceived:        "Received",
}

// poTransitions lists the allowed next states. Rejected and received are terminal.
var poTransitions = map[POStatus][]POStatus{
	PODraft:           {POPendingApproval, POApproved},
	POPendingApproval: {POApproved, PORejected},
	POApproved:        {POSent},
	POSent:            {POReceived},
}

// POStatusLabel returns a human-readable label for a PO status.
func POStatusLabel(status POStatus) string {
	if label, ok := poStatusLabels[status]; ok {
		return label
	}

	return "Unknown"
}

// ParsePOStatus returns the status for a given label or code (case-insensitive).
func ParsePOStatus(label string) (POStatus, bool) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	status := POStatus(normalized)
	_, ok := poStatusLabels[status]

	return status, ok
}

// CanTransition reports whether from → to is a legal lifecycle move.
func CanTransition(from, to POStatus) bool {
	for _, next := range poTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition when from → to is not allowed.
func CheckTransition(from, to POStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// IsTerminal reports whether no further transition is possible.
func (s POStatus) IsTerminal() bool {
	return len(poTransitions[s]) == 0
}
