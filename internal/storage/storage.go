// Package storage defines the record-store contract the engine runs
// against. The postgres subpackage is the durable implementation; the
// memory subpackage backs tests.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pmiara/rezerwacja-boisk/internal/model"
	"github.com/pmiara/rezerwacja-boisk/internal/outbox"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness
	// constraint, e.g. two grounds racing for the same
	// (place, name_prefix, local_id).
	ErrConflict = errors.New("conflict")
)

// Store is the collaborator contract of the reservation engine.
type Store interface {
	// InTx runs fn against a store view whose reads and writes form one
	// transaction. fn returning an error rolls the transaction back.
	InTx(ctx context.Context, fn func(Store) error) error

	// LockGroundDate takes a transaction-scoped exclusive lock
	// serializing decisions on one ground and date, so two overlapping
	// accept decisions cannot both read "no conflict" and both commit.
	// Only meaningful inside InTx.
	LockGroundDate(ctx context.Context, groundID string, date time.Time) error

	CreatePlace(ctx context.Context, p model.Place) error
	PlaceByName(ctx context.Context, name string) (model.Place, error)

	// CreateGround persists a new ground; ErrConflict when
	// (place, name_prefix, local_id) is already taken.
	CreateGround(ctx context.Context, g model.SportsGround) error
	GroundByID(ctx context.Context, id string) (model.SportsGround, error)
	GroundsByPlace(ctx context.Context, place string) ([]model.SportsGround, error)
	Grounds(ctx context.Context) ([]model.SportsGround, error)

	// MaxLocalID returns the highest local id among grounds sharing the
	// place and name prefix, or 0 when none exist.
	MaxLocalID(ctx context.Context, place, prefix string) (int, error)

	CreateReservation(ctx context.Context, r model.Reservation) error
	ReservationByID(ctx context.Context, id string) (model.Reservation, error)

	// AcceptedReservations returns the reservations on a ground and date
	// with is_accepted = true.
	AcceptedReservations(ctx context.Context, groundID string, date time.Time) ([]model.Reservation, error)

	SetReservationAccepted(ctx context.Context, id string) error
	DeleteReservation(ctx context.Context, id string) error

	// AppendEvent records a domain event in the same transaction as the
	// write it describes.
	AppendEvent(ctx context.Context, evt outbox.Event) error
}
