package booking

import (
	"context"

	"github.com/pmiara/rezerwacja-boisk/internal/availability"
	"github.com/pmiara/rezerwacja-boisk/internal/model"
	"github.com/pmiara/rezerwacja-boisk/internal/storage"
)

// Checker decides whether a candidate reservation can be accepted without
// overlapping any already-accepted reservation on the same ground and date.
type Checker struct {
	store storage.Store
}

func NewChecker(store storage.Store) *Checker {
	return &Checker{store: store}
}

// CanAccept is a pure query; flipping is_accepted is the caller's job, and
// must happen in the same transaction as this check. The candidate itself
// is excluded from the comparison set so re-checking an already persisted
// reservation stays idempotent.
func (c *Checker) CanAccept(ctx context.Context, candidate model.Reservation) (bool, error) {
	accepted, err := c.store.AcceptedReservations(ctx, candidate.GroundID, candidate.EventDate)
	if err != nil {
		return false, err
	}
	for _, other := range accepted {
		if other.ID == candidate.ID {
			continue
		}
		if availability.Overlaps(candidate.Interval(), other.Interval()) {
			return false, nil
		}
	}
	return true, nil
}
