// Package memory is an in-memory storage.Store used by the engine tests.
// A single mutex plays the role of the database transaction: InTx holds it
// for the whole callback, so decisions are serialized exactly as the
// contract requires.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pmiara/rezerwacja-boisk/internal/model"
	"github.com/pmiara/rezerwacja-boisk/internal/outbox"
	"github.com/pmiara/rezerwacja-boisk/internal/storage"
)

type tables struct {
	places       map[string]model.Place
	grounds      map[string]model.SportsGround
	reservations map[string]model.Reservation
	events       []outbox.Event
}

func (t *tables) clone() *tables {
	c := &tables{
		places:       make(map[string]model.Place, len(t.places)),
		grounds:      make(map[string]model.SportsGround, len(t.grounds)),
		reservations: make(map[string]model.Reservation, len(t.reservations)),
		events:       append([]outbox.Event(nil), t.events...),
	}
	for k, v := range t.places {
		c.places[k] = v
	}
	for k, v := range t.grounds {
		c.grounds[k] = v
	}
	for k, v := range t.reservations {
		c.reservations[k] = v
	}
	return c
}

type Store struct {
	mu   *sync.Mutex
	db   *tables
	inTx bool
}

func NewStore() *Store {
	return &Store{
		mu: &sync.Mutex{},
		db: &tables{
			places:       map[string]model.Place{},
			grounds:      map[string]model.SportsGround{},
			reservations: map[string]model.Reservation{},
		},
	}
}

var _ storage.Store = (*Store)(nil)

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) InTx(_ context.Context, fn func(storage.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.db.clone()
	tx := &Store{mu: s.mu, db: s.db, inTx: true}
	if err := fn(tx); err != nil {
		*s.db = *snapshot
		return err
	}
	return nil
}

func (s *Store) LockGroundDate(context.Context, string, time.Time) error {
	// The store mutex already serializes transactions.
	return nil
}

func (s *Store) CreatePlace(_ context.Context, p model.Place) error {
	defer s.lock()()
	if _, ok := s.db.places[p.Name]; ok {
		return storage.ErrConflict
	}
	s.db.places[p.Name] = p
	return nil
}

func (s *Store) PlaceByName(_ context.Context, name string) (model.Place, error) {
	defer s.lock()()
	p, ok := s.db.places[name]
	if !ok {
		return model.Place{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) CreateGround(_ context.Context, g model.SportsGround) error {
	defer s.lock()()
	for _, other := range s.db.grounds {
		if other.Place == g.Place && other.NamePrefix == g.NamePrefix && other.LocalID == g.LocalID {
			return storage.ErrConflict
		}
	}
	s.db.grounds[g.ID] = g
	return nil
}

func (s *Store) GroundByID(_ context.Context, id string) (model.SportsGround, error) {
	defer s.lock()()
	g, ok := s.db.grounds[id]
	if !ok {
		return model.SportsGround{}, storage.ErrNotFound
	}
	return g, nil
}

func (s *Store) GroundsByPlace(_ context.Context, place string) ([]model.SportsGround, error) {
	defer s.lock()()
	var grounds []model.SportsGround
	for _, g := range s.db.grounds {
		if g.Place == place {
			grounds = append(grounds, g)
		}
	}
	sortGrounds(grounds)
	return grounds, nil
}

func (s *Store) Grounds(context.Context) ([]model.SportsGround, error) {
	defer s.lock()()
	grounds := make([]model.SportsGround, 0, len(s.db.grounds))
	for _, g := range s.db.grounds {
		grounds = append(grounds, g)
	}
	sortGrounds(grounds)
	return grounds, nil
}

func (s *Store) MaxLocalID(_ context.Context, place, prefix string) (int, error) {
	defer s.lock()()
	max := 0
	for _, g := range s.db.grounds {
		if g.Place == place && g.NamePrefix == prefix && g.LocalID > max {
			max = g.LocalID
		}
	}
	return max, nil
}

func (s *Store) CreateReservation(_ context.Context, r model.Reservation) error {
	defer s.lock()()
	if _, ok := s.db.reservations[r.ID]; ok {
		return storage.ErrConflict
	}
	s.db.reservations[r.ID] = r
	return nil
}

func (s *Store) ReservationByID(_ context.Context, id string) (model.Reservation, error) {
	defer s.lock()()
	r, ok := s.db.reservations[id]
	if !ok {
		return model.Reservation{}, storage.ErrNotFound
	}
	return r, nil
}

func (s *Store) AcceptedReservations(_ context.Context, groundID string, date time.Time) ([]model.Reservation, error) {
	defer s.lock()()
	var out []model.Reservation
	for _, r := range s.db.reservations {
		if r.GroundID == groundID && r.IsAccepted && r.EventDate.Equal(date) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (s *Store) SetReservationAccepted(_ context.Context, id string) error {
	defer s.lock()()
	r, ok := s.db.reservations[id]
	if !ok {
		return storage.ErrNotFound
	}
	r.IsAccepted = true
	s.db.reservations[id] = r
	return nil
}

func (s *Store) DeleteReservation(_ context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.db.reservations[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.db.reservations, id)
	return nil
}

func (s *Store) AppendEvent(_ context.Context, evt outbox.Event) error {
	defer s.lock()()
	s.db.events = append(s.db.events, evt)
	return nil
}

// Events returns the recorded domain events, for assertions.
func (s *Store) Events() []outbox.Event {
	defer s.lock()()
	return append([]outbox.Event(nil), s.db.events...)
}

func sortGrounds(grounds []model.SportsGround) {
	sort.Slice(grounds, func(i, j int) bool {
		a, b := grounds[i], grounds[j]
		if a.Place != b.Place {
			return a.Place < b.Place
		}
		if a.NamePrefix != b.NamePrefix {
			return a.NamePrefix < b.NamePrefix
		}
		return a.LocalID < b.LocalID
	})
}
