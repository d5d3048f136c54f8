package sequence

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/pmiara/rezerwacja-boisk/internal/availability"
	"github.com/pmiara/rezerwacja-boisk/internal/model"
	"github.com/pmiara/rezerwacja-boisk/internal/outbox"
	"github.com/pmiara/rezerwacja-boisk/internal/storage"
	"github.com/pmiara/rezerwacja-boisk/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPlace(t *testing.T, store storage.Store, name string) {
	t.Helper()
	if err := store.CreatePlace(context.Background(), model.Place{Name: name, Administrator: "admin"}); err != nil {
		t.Fatalf("create place: %v", err)
	}
}

func TestNextLocalIDEmptyScope(t *testing.T) {
	store := memory.NewStore()
	newPlace(t, store, "Kórnik OSIR")

	next, err := NewAllocator(store, testLogger()).NextLocalID(context.Background(), "Kórnik OSIR", model.DefaultNamePrefix)
	if err != nil {
		t.Fatalf("NextLocalID: %v", err)
	}
	if next != 1 {
		t.Fatalf("empty scope: got %d, want 1", next)
	}
}

func TestCreateGroundSequence(t *testing.T) {
	store := memory.NewStore()
	newPlace(t, store, "Kórnik OSIR")
	alloc := NewAllocator(store, testLogger())

	for want := 1; want <= 3; want++ {
		g, err := alloc.CreateGround(context.Background(), model.SportsGround{
			Place:   "Kórnik OSIR",
			Opening: availability.ClockOf(8, 0),
			Closing: availability.ClockOf(20, 0),
		})
		if err != nil {
			t.Fatalf("CreateGround #%d: %v", want, err)
		}
		if g.LocalID != want {
			t.Fatalf("got local id %d, want %d", g.LocalID, want)
		}
		if g.ID == "" {
			t.Fatalf("ground id not assigned")
		}
		if g.NamePrefix != model.DefaultNamePrefix {
			t.Fatalf("got prefix %q, want default", g.NamePrefix)
		}
	}

	events := store.Events()
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for _, evt := range events {
		if evt.EventType != outbox.EventGroundCreated {
			t.Fatalf("unexpected event type %q", evt.EventType)
		}
	}
}

func TestCreateGroundScopesByPrefix(t *testing.T) {
	store := memory.NewStore()
	newPlace(t, store, "Kórnik OSIR")
	alloc := NewAllocator(store, testLogger())

	if _, err := alloc.CreateGround(context.Background(), model.SportsGround{Place: "Kórnik OSIR"}); err != nil {
		t.Fatalf("CreateGround: %v", err)
	}
	court, err := alloc.CreateGround(context.Background(), model.SportsGround{
		Place:      "Kórnik OSIR",
		NamePrefix: "Kort nr",
	})
	if err != nil {
		t.Fatalf("CreateGround: %v", err)
	}
	if court.LocalID != 1 {
		t.Fatalf("separate prefix should restart at 1, got %d", court.LocalID)
	}
	if got := court.LocalName(); got != "Kort nr 1" {
		t.Fatalf("LocalName: got %q", got)
	}
}

func TestCreateGroundIgnoresCallerLocalID(t *testing.T) {
	store := memory.NewStore()
	newPlace(t, store, "Kórnik OSIR")

	g, err := NewAllocator(store, testLogger()).CreateGround(context.Background(), model.SportsGround{
		Place:   "Kórnik OSIR",
		LocalID: 99,
	})
	if err != nil {
		t.Fatalf("CreateGround: %v", err)
	}
	if g.LocalID != 1 {
		t.Fatalf("caller-supplied local id must be ignored, got %d", g.LocalID)
	}
}

// conflictStore makes the first n CreateGround calls fail with ErrConflict,
// simulating a concurrent writer winning the uniqueness constraint.
type conflictStore struct {
	storage.Store
	remaining *int
}

func (c conflictStore) InTx(ctx context.Context, fn func(storage.Store) error) error {
	return c.Store.InTx(ctx, func(tx storage.Store) error {
		return fn(conflictStore{Store: tx, remaining: c.remaining})
	})
}

func (c conflictStore) CreateGround(ctx context.Context, g model.SportsGround) error {
	if *c.remaining > 0 {
		*c.remaining--
		return storage.ErrConflict
	}
	return c.Store.CreateGround(ctx, g)
}

func TestCreateGroundRetriesOnCollision(t *testing.T) {
	inner := memory.NewStore()
	newPlace(t, inner, "Kórnik OSIR")
	collisions := 2
	store := conflictStore{Store: inner, remaining: &collisions}

	g, err := NewAllocator(store, testLogger()).CreateGround(context.Background(), model.SportsGround{Place: "Kórnik OSIR"})
	if err != nil {
		t.Fatalf("CreateGround should succeed on the third attempt: %v", err)
	}
	if g.LocalID != 1 {
		t.Fatalf("got local id %d, want 1", g.LocalID)
	}
	if collisions != 0 {
		t.Fatalf("%d forced collisions left unused", collisions)
	}
	// The two rolled-back attempts must not leave events behind.
	if events := inner.Events(); len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
}

func TestCreateGroundCollisionsExhausted(t *testing.T) {
	inner := memory.NewStore()
	newPlace(t, inner, "Kórnik OSIR")
	collisions := maxCreateAttempts
	store := conflictStore{Store: inner, remaining: &collisions}

	_, err := NewAllocator(store, testLogger()).CreateGround(context.Background(), model.SportsGround{Place: "Kórnik OSIR"})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected wrapped ErrConflict, got %v", err)
	}
	if grounds, _ := inner.Grounds(context.Background()); len(grounds) != 0 {
		t.Fatalf("failed creation must not persist a ground, got %d", len(grounds))
	}
}

func TestCreateGroundOtherErrorNotRetried(t *testing.T) {
	boom := errors.New("connection reset")
	store := failingStore{Store: memory.NewStore(), err: boom}

	_, err := NewAllocator(store, testLogger()).CreateGround(context.Background(), model.SportsGround{Place: "X"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the store error verbatim, got %v", err)
	}
}

type failingStore struct {
	storage.Store
	err error
}

func (f failingStore) InTx(context.Context, func(storage.Store) error) error {
	return f.err
}
