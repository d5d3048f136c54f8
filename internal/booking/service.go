package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/pmiara/rezerwacja-boisk/internal/availability"
	"github.com/pmiara/rezerwacja-boisk/internal/model"
	"github.com/pmiara/rezerwacja-boisk/internal/outbox"
	"github.com/pmiara/rezerwacja-boisk/internal/storage"
)

// Action is what an administrator does with selected reservations.
type Action int

const (
	ActionAccept Action = iota + 1
	ActionDelete
)

var ErrUnknownAction = errors.New("unknown admin action")

func (a Action) String() string {
	switch a {
	case ActionAccept:
		return "accept"
	case ActionDelete:
		return "delete"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

type Service struct {
	store  storage.Store
	logger *slog.Logger
}

func NewService(store storage.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

type CreateRequest struct {
	GroundID  string
	Email     string
	Surname   string
	EventDate time.Time
	Start     availability.Clock
	End       availability.Clock
}

// CreateReservation validates the requested interval against the ground's
// opening hours and stores the reservation unaccepted.
func (s *Service) CreateReservation(ctx context.Context, req CreateRequest) (model.Reservation, error) {
	ground, err := s.store.GroundByID(ctx, req.GroundID)
	if err != nil {
		return model.Reservation{}, err
	}
	iv := availability.Interval{Start: req.Start, End: req.End}
	if err := availability.Validate(iv, ground.Opening, ground.Closing); err != nil {
		return model.Reservation{}, err
	}

	r := model.Reservation{
		ID:        uuid.NewString(),
		GroundID:  req.GroundID,
		Email:     req.Email,
		Surname:   req.Surname,
		EventDate: model.Date(req.EventDate.Year(), req.EventDate.Month(), req.EventDate.Day()),
		Start:     req.Start,
		End:       req.End,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateReservation(ctx, r); err != nil {
		return model.Reservation{}, err
	}
	return r, nil
}

// Accept flips a pending reservation to accepted when it conflicts with
// nothing. The conflict check and the flip run in one store transaction.
// A conflict is not an error: Accept returns false, nil and the
// reservation stays pending.
func (s *Service) Accept(ctx context.Context, id string) (bool, error) {
	ctx, span := otel.Tracer("booking").Start(ctx, "booking.accept")
	defer span.End()

	var accepted bool
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		res, err := tx.ReservationByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.LockGroundDate(ctx, res.GroundID, res.EventDate); err != nil {
			return err
		}
		if res.IsAccepted {
			accepted = true
			return nil
		}

		ok, err := NewChecker(tx).CanAccept(ctx, res)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if err := tx.SetReservationAccepted(ctx, id); err != nil {
			return err
		}
		accepted = true
		return tx.AppendEvent(ctx, decisionEvent(outbox.EventReservationAccepted, res))
	})
	if err != nil {
		return false, err
	}
	return accepted, nil
}

// Delete removes a reservation regardless of its acceptance state.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.InTx(ctx, func(tx storage.Store) error {
		res, err := tx.ReservationByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteReservation(ctx, id); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, decisionEvent(outbox.EventReservationDeleted, res))
	})
}

// DecisionResult summarizes a bulk admin decision.
type DecisionResult struct {
	Accepted int
	Rejected int
	Deleted  int
}

// Decide applies one admin action to the selected reservations. Each
// reservation is decided in its own transaction; a rejected accept does
// not stop the rest of the batch.
func (s *Service) Decide(ctx context.Context, action Action, ids []string) (DecisionResult, error) {
	var result DecisionResult
	switch action {
	case ActionAccept:
		for _, id := range ids {
			ok, err := s.Accept(ctx, id)
			if err != nil {
				return result, err
			}
			if ok {
				result.Accepted++
			} else {
				result.Rejected++
				s.logger.Info("reservation not accepted, overlaps existing", "reservation_id", id)
			}
		}
	case ActionDelete:
		for _, id := range ids {
			if err := s.Delete(ctx, id); err != nil {
				return result, err
			}
			result.Deleted++
		}
	default:
		return result, ErrUnknownAction
	}
	return result, nil
}

func decisionEvent(eventType string, res model.Reservation) outbox.Event {
	payload, _ := json.Marshal(map[string]any{
		"reservation_id": res.ID,
		"ground_id":      res.GroundID,
		"event_date":     res.EventDate.Format("2006-01-02"),
		"start_time":     res.Start.String(),
		"end_time":       res.End.String(),
		"surname":        res.Surname,
		"email":          res.Email,
	})
	return outbox.Event{
		AggregateType: "reservation",
		AggregateID:   res.ID,
		EventType:     eventType,
		Payload:       payload,
	}
}
