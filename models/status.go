package models

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidTransition is returned when a status change does not follow
// the lifecycle diagram. The check runs before any write.
var ErrInvalidTransition = errors.New("invalid status transition")

// Lifecycle: pending -> verified -> in-progress -> resolved, with
// rejected reachable from any non-terminal state.
var allowedTransitions = map[string][]string{
	StatusPending:    {StatusVerified, StatusRejected},
	StatusVerified:   {StatusInProgress, StatusRejected},
	StatusInProgress: {StatusResolved, StatusRejected},
	StatusResolved:   {},
	StatusRejected:   {},
}

// CanTransition reports whether to is reachable from from in one step
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ApplyTransition moves the report to newStatus, stamping verification
// or resolution metadata on the transition that first reaches that
// state. Existing stamps are never overwritten.
func (d *ReportDetails) ApplyTransition(newStatus, actorID, notes string, now primitive.DateTime) error {
	if !ValidStatus(newStatus) {
		return fmt.Errorf("unknown status %q", newStatus)
	}
	if !CanTransition(d.Status, newStatus) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, newStatus)
	}

	d.Status = newStatus
	d.UpdatedAt = now

	switch newStatus {
	case StatusVerified:
		if d.Verification == nil {
			d.Verification = &Verification{VerifierID: actorID, Timestamp: now, Notes: notes}
		}
	case StatusResolved:
		if d.Resolution == nil {
			d.Resolution = &Resolution{ResolverID: actorID, Timestamp: now, Notes: notes}
		}
	}
	return nil
}
