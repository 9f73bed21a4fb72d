package txstate

import (
	"errors"
	"time"

	"botwatch/internal/core/domain"
)

// Status is an alias for domain.TxStatus for internal use.
type Status = domain.TxStatus

// ErrInvalidTransition is returned when an invalid status transition is attempted.
var ErrInvalidTransition = errors.New("invalid status transition")

// ValidTransitions defines allowed status transitions.
// Key is the current status, value is the list of valid next statuses.
// A failed transaction may still complete (successful retry); nothing
// ever moves back to pending.
var ValidTransitions = map[Status][]Status{
	domain.TxStatusPending: {domain.TxStatusCompleted, domain.TxStatusFailed},
	domain.TxStatusFailed:  {domain.TxStatusCompleted},
}

// CanTransition checks if a transition from one status to another is valid.
func CanTransition(from, to Status) bool {
	validTargets, ok := ValidTransitions[from]
	if !ok {
		return false
	}

	for _, target := range validTargets {
		if target == to {
			return true
		}
	}
	return false
}

// Transition represents a status change with metadata.
type Transition struct {
	From      Status
	To        Status
	Reason    string
	Timestamp time.Time
}

// NewTransition creates a new transition record.
func NewTransition(from, to Status, reason string) Transition {
	return Transition{
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// IsValid returns true if this transition is allowed by the state machine.
func (t Transition) IsValid() bool {
	return CanTransition(t.From, t.To)
}

// IsTerminal reports whether no further transitions can leave the status.
func IsTerminal(s Status) bool {
	return len(ValidTransitions[s]) == 0
}

// Description returns a human-readable description of a status.
func Description(s Status) string {
	switch s {
	case domain.TxStatusPending:
		return "Pending - observed, outcome not yet known"
	case domain.TxStatusCompleted:
		return "Completed - confirmed on chain"
	case domain.TxStatusFailed:
		return "Failed - errored or rejected, may be retried"
	default:
		return "Unknown status"
	}
}
