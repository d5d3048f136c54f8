// Package sequence assigns local ids to new sports grounds. Grounds under
// one place and name prefix are numbered 1, 2, 3, ... and the number is
// never reassigned.
package sequence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pmiara/rezerwacja-boisk/internal/model"
	"github.com/pmiara/rezerwacja-boisk/internal/outbox"
	"github.com/pmiara/rezerwacja-boisk/internal/storage"
)

// maxCreateAttempts bounds the collision retry loop. Two concurrent
// creations for the same place and prefix can read the same max id; the
// store's uniqueness constraint is the real guarantee and the loser simply
// re-reads and retries.
const maxCreateAttempts = 3

type Allocator struct {
	store  storage.Store
	logger *slog.Logger
}

func NewAllocator(store storage.Store, logger *slog.Logger) *Allocator {
	return &Allocator{store: store, logger: logger}
}

// NextLocalID returns 1 + max(local_id) for the scope, or 1 for an empty
// scope. On its own this is only a hint; use CreateGround, which pairs the
// read with the insert and the constraint-violation retry.
func (a *Allocator) NextLocalID(ctx context.Context, place, prefix string) (int, error) {
	max, err := a.store.MaxLocalID(ctx, place, prefix)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// CreateGround allocates the next local id and persists the ground in one
// transaction, retrying on a uniqueness-constraint collision. The
// caller-supplied LocalID is ignored.
func (a *Allocator) CreateGround(ctx context.Context, g model.SportsGround) (model.SportsGround, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.NamePrefix == "" {
		g.NamePrefix = model.DefaultNamePrefix
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		err := a.store.InTx(ctx, func(tx storage.Store) error {
			max, err := tx.MaxLocalID(ctx, g.Place, g.NamePrefix)
			if err != nil {
				return err
			}
			g.LocalID = max + 1
			if err := tx.CreateGround(ctx, g); err != nil {
				return err
			}
			return tx.AppendEvent(ctx, createdEvent(g))
		})
		if err == nil {
			return g, nil
		}
		if !errors.Is(err, storage.ErrConflict) {
			return model.SportsGround{}, err
		}
		a.logger.Warn("local id collision, retrying",
			"place", g.Place, "name_prefix", g.NamePrefix, "local_id", g.LocalID, "attempt", attempt)
	}
	return model.SportsGround{}, fmt.Errorf(
		"creating ground %q under %q: id collisions exhausted %d attempts: %w",
		g.NamePrefix, g.Place, maxCreateAttempts, storage.ErrConflict)
}

func createdEvent(g model.SportsGround) outbox.Event {
	payload, _ := json.Marshal(map[string]any{
		"ground_id":   g.ID,
		"place":       g.Place,
		"name_prefix": g.NamePrefix,
		"local_id":    g.LocalID,
		"local_name":  g.LocalName(),
	})
	return outbox.Event{
		AggregateType: "sports_ground",
		AggregateID:   g.ID,
		EventType:     outbox.EventGroundCreated,
		Payload:       payload,
	}
}
