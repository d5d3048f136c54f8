package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pmiara/rezerwacja-boisk/internal/availability"
	"github.com/pmiara/rezerwacja-boisk/internal/model"
	"github.com/pmiara/rezerwacja-boisk/internal/outbox"
	"github.com/pmiara/rezerwacja-boisk/internal/storage"
	"github.com/pmiara/rezerwacja-boisk/internal/storage/memory"
)

var testDate = model.Date(2016, time.September, 3)

func newTestGround(t *testing.T, store storage.Store) model.SportsGround {
	t.Helper()
	ctx := context.Background()
	if err := store.CreatePlace(ctx, model.Place{Name: "Kórnik OSIR", Administrator: "admin"}); err != nil {
		t.Fatalf("create place: %v", err)
	}
	g := model.SportsGround{
		ID:         uuid.NewString(),
		Place:      "Kórnik OSIR",
		NamePrefix: model.DefaultNamePrefix,
		LocalID:    1,
		Opening:    availability.ClockOf(8, 0),
		Closing:    availability.ClockOf(20, 0),
	}
	if err := store.CreateGround(ctx, g); err != nil {
		t.Fatalf("create ground: %v", err)
	}
	return g
}

func addReservation(t *testing.T, store storage.Store, groundID string, start, end availability.Clock, accepted bool) model.Reservation {
	t.Helper()
	ctx := context.Background()
	r := model.Reservation{
		ID:        uuid.NewString(),
		GroundID:  groundID,
		Email:     "kuba92@wp.pl",
		Surname:   "Nowak",
		EventDate: testDate,
		Start:     start,
		End:       end,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateReservation(ctx, r); err != nil {
		t.Fatalf("create reservation: %v", err)
	}
	if accepted {
		if err := store.SetReservationAccepted(ctx, r.ID); err != nil {
			t.Fatalf("accept reservation: %v", err)
		}
		r.IsAccepted = true
	}
	return r
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCanAcceptNoReservations(t *testing.T) {
	store := memory.NewStore()
	g := newTestGround(t, store)
	candidate := addReservation(t, store, g.ID, availability.ClockOf(9, 0), availability.ClockOf(10, 0), false)

	ok, err := NewChecker(store).CanAccept(context.Background(), candidate)
	if err != nil {
		t.Fatalf("CanAccept: %v", err)
	}
	if !ok {
		t.Fatalf("expected candidate to be acceptable on an empty day")
	}
}

func TestCanAcceptOverlapRejected(t *testing.T) {
	store := memory.NewStore()
	g := newTestGround(t, store)
	// Plenty of non-overlapping accepted reservations around the slot.
	addReservation(t, store, g.ID, availability.ClockOf(8, 0), availability.ClockOf(9, 0), true)
	addReservation(t, store, g.ID, availability.ClockOf(12, 0), availability.ClockOf(13, 0), true)
	addReservation(t, store, g.ID, availability.ClockOf(9, 30), availability.ClockOf(10, 30), true)

	candidate := addReservation(t, store, g.ID, availability.ClockOf(10, 0), availability.ClockOf(11, 0), false)
	ok, err := NewChecker(store).CanAccept(context.Background(), candidate)
	if err != nil {
		t.Fatalf("CanAccept: %v", err)
	}
	if ok {
		t.Fatalf("expected overlap with 09:30-10:30 to reject the candidate")
	}
}

func TestCanAcceptContiguousAllowed(t *testing.T) {
	store := memory.NewStore()
	g := newTestGround(t, store)
	addReservation(t, store, g.ID, availability.ClockOf(9, 0), availability.ClockOf(10, 0), true)

	candidate := addReservation(t, store, g.ID, availability.ClockOf(10, 0), availability.ClockOf(11, 0), false)
	ok, err := NewChecker(store).CanAccept(context.Background(), candidate)
	if err != nil {
		t.Fatalf("CanAccept: %v", err)
	}
	if !ok {
		t.Fatalf("back-to-back bookings must be acceptable")
	}
}

func TestCanAcceptExcludesItself(t *testing.T) {
	store := memory.NewStore()
	g := newTestGround(t, store)
	// Re-checking an already accepted reservation must not conflict with
	// its own persisted row.
	accepted := addReservation(t, store, g.ID, availability.ClockOf(9, 0), availability.ClockOf(10, 0), true)

	ok, err := NewChecker(store).CanAccept(context.Background(), accepted)
	if err != nil {
		t.Fatalf("CanAccept: %v", err)
	}
	if !ok {
		t.Fatalf("re-check of an accepted reservation must be idempotent")
	}
}

func TestCanAcceptIgnoresOtherDatesAndGrounds(t *testing.T) {
	store := memory.NewStore()
	g := newTestGround(t, store)
	other := model.SportsGround{
		ID: uuid.NewString(), Place: g.Place, NamePrefix: g.NamePrefix, LocalID: 2,
		Opening: g.Opening, Closing: g.Closing,
	}
	if err := store.CreateGround(context.Background(), other); err != nil {
		t.Fatalf("create ground: %v", err)
	}
	// Same slot, different ground.
	addReservation(t, store, other.ID, availability.ClockOf(9, 0), availability.ClockOf(10, 0), true)
	// Same ground and slot, different date.
	blocker := model.Reservation{
		ID: uuid.NewString(), GroundID: g.ID, EventDate: model.Date(2016, time.September, 4),
		Start: availability.ClockOf(9, 0), End: availability.ClockOf(10, 0),
	}
	if err := store.CreateReservation(context.Background(), blocker); err != nil {
		t.Fatalf("create reservation: %v", err)
	}
	if err := store.SetReservationAccepted(context.Background(), blocker.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	candidate := addReservation(t, store, g.ID, availability.ClockOf(9, 0), availability.ClockOf(10, 0), false)
	ok, err := NewChecker(store).CanAccept(context.Background(), candidate)
	if err != nil {
		t.Fatalf("CanAccept: %v", err)
	}
	if !ok {
		t.Fatalf("conflicts must be scoped to the same ground and date")
	}
}

func TestCreateReservationValidatesInterval(t *testing.T) {
	store := memory.NewStore()
	g := newTestGround(t, store)
	svc := NewService(store, testLogger())

	cases := []struct {
		name       string
		start, end availability.Clock
	}{
		{"zero length", availability.ClockOf(9, 0), availability.ClockOf(9, 0)},
		{"reversed", availability.ClockOf(10, 0), availability.ClockOf(9, 0)},
		{"before opening", availability.ClockOf(7, 0), availability.ClockOf(9, 0)},
		{"after closing", availability.ClockOf(19, 0), availability.ClockOf(21, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateReservation(context.Background(), CreateRequest{
				GroundID:  g.ID,
				Email:     "grazyna@onet.pl",
				Surname:   "Mazur",
				EventDate: testDate,
				Start:     tc.start,
				End:       tc.end,
			})
			var invalid *availability.InvalidIntervalError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidIntervalError, got %v", err)
			}
		})
	}
}

func TestCreateReservationUnknownGround(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store, testLogger())
	_, err := svc.CreateReservation(context.Background(), CreateRequest{
		GroundID:  uuid.NewString(),
		EventDate: testDate,
		Start:     availability.ClockOf(9, 0),
		End:       availability.ClockOf(10, 0),
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAcceptFlipsAndEmitsEvent(t *testing.T) {
	store := memory.NewStore()
	g := newTestGround(t, store)
	svc := NewService(store, testLogger())

	res, err := svc.CreateReservation(context.Background(), CreateRequest{
		GroundID:  g.ID,
		Email:     "pioter22@interia.pl",
		Surname:   "Wójcik",
		EventDate: testDate,
		Start:     availability.ClockOf(9, 0),
		End:       availability.ClockOf(10, 0),
	})
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if res.IsAccepted {
		t.Fatalf("new reservations must start unaccepted")
	}

	ok, err := svc.Accept(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if !ok {
		t.Fatalf("expected acceptance on a free day")
	}

	stored, err := store.ReservationByID(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("ReservationByID: %v", err)
	}
	if !stored.IsAccepted {
		t.Fatalf("reservation not flipped to accepted")
	}

	events := store.Events()
	if len(events) != 1 || events[0].EventType != outbox.EventReservationAccepted {
		t.Fatalf("expected one %s event, got %+v", outbox.EventReservationAccepted, events)
	}
}

func TestAcceptConflictLeavesPending(t *testing.T) {
	store := memory.NewStore()
	g := newTestGround(t, store)
	svc := NewService(store, testLogger())
	addReservation(t, store, g.ID, availability.ClockOf(9, 0), availability.ClockOf(11, 0), true)

	pending := addReservation(t, store, g.ID, availability.ClockOf(10, 0), availability.ClockOf(12, 0), false)
	ok, err := svc.Accept(context.Background(), pending.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if ok {
		t.Fatalf("overlapping candidate must not be accepted")
	}

	stored, err := store.ReservationByID(context.Background(), pending.ID)
	if err != nil {
		t.Fatalf("ReservationByID: %v", err)
	}
	if stored.IsAccepted {
		t.Fatalf("rejected candidate must stay pending")
	}
	if events := store.Events(); len(events) != 0 {
		t.Fatalf("rejected accept must not emit events, got %+v", events)
	}
}

func TestAcceptAlreadyAccepted(t *testing.T) {
	store := memory.NewStore()
	g := newTestGround(t, store)
	svc := NewService(store, testLogger())
	accepted := addReservation(t, store, g.ID, availability.ClockOf(9, 0), availability.ClockOf(10, 0), true)

	ok, err := svc.Accept(context.Background(), accepted.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if !ok {
		t.Fatalf("accepting an accepted reservation is a no-op success")
	}
	if events := store.Events(); len(events) != 0 {
		t.Fatalf("no-op accept must not emit events, got %+v", events)
	}
}

func TestDecideAccept(t *testing.T) {
	store := memory.NewStore()
	g := newTestGround(t, store)
	svc := NewService(store, testLogger())

	first := addReservation(t, store, g.ID, availability.ClockOf(9, 0), availability.ClockOf(10, 0), false)
	overlapping := addReservation(t, store, g.ID, availability.ClockOf(9, 30), availability.ClockOf(10, 30), false)
	separate := addReservation(t, store, g.ID, availability.ClockOf(15, 0), availability.ClockOf(16, 0), false)

	result, err := svc.Decide(context.Background(), ActionAccept, []string{first.ID, overlapping.ID, separate.ID})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if result.Accepted != 2 || result.Rejected != 1 {
		t.Fatalf("got %+v, want 2 accepted / 1 rejected", result)
	}
}

func TestDecideDelete(t *testing.T) {
	store := memory.NewStore()
	g := newTestGround(t, store)
	svc := NewService(store, testLogger())
	r := addReservation(t, store, g.ID, availability.ClockOf(9, 0), availability.ClockOf(10, 0), false)

	result, err := svc.Decide(context.Background(), ActionDelete, []string{r.ID})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("got %+v, want 1 deleted", result)
	}
	if _, err := store.ReservationByID(context.Background(), r.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("reservation should be gone, got %v", err)
	}
	events := store.Events()
	if len(events) != 1 || events[0].EventType != outbox.EventReservationDeleted {
		t.Fatalf("expected one %s event, got %+v", outbox.EventReservationDeleted, events)
	}
}

func TestDecideUnknownAction(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store, testLogger())
	if _, err := svc.Decide(context.Background(), Action(42), nil); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}
