// Package postgres is the durable storage.Store. The unique index on
// (place, name_prefix, local_id) is the real guarantee behind local id
// allocation; an advisory transaction lock on (ground, date) serializes
// accept decisions.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pmiara/rezerwacja-boisk/internal/availability"
	"github.com/pmiara/rezerwacja-boisk/internal/db"
	"github.com/pmiara/rezerwacja-boisk/internal/model"
	"github.com/pmiara/rezerwacja-boisk/internal/otelx"
	"github.com/pmiara/rezerwacja-boisk/internal/outbox"
	"github.com/pmiara/rezerwacja-boisk/internal/storage"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *db.Pool
	q    querier
	tx   pgx.Tx
}

func NewStore(pool *db.Pool) *Store {
	return &Store{pool: pool, q: pool.Pool}
}

var _ storage.Store = (*Store)(nil)

func (s *Store) InTx(ctx context.Context, fn func(storage.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	view := &Store{pool: s.pool, q: tx, tx: tx}
	if err := fn(view); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) LockGroundDate(ctx context.Context, groundID string, date time.Time) error {
	_, err := s.q.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		groundID+"@"+date.Format("2006-01-02"))
	return err
}

func (s *Store) CreatePlace(ctx context.Context, p model.Place) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO places (name, administrator, description, phone_number, city, street)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.Name, p.Administrator, p.Description, p.PhoneNumber, p.City, p.Street)
	return wrapWriteErr(err)
}

func (s *Store) PlaceByName(ctx context.Context, name string) (model.Place, error) {
	var p model.Place
	err := s.q.QueryRow(ctx, `
		SELECT name, administrator, description, phone_number, city, street
		FROM places WHERE name = $1
	`, name).Scan(&p.Name, &p.Administrator, &p.Description, &p.PhoneNumber, &p.City, &p.Street)
	if err != nil {
		return model.Place{}, wrapReadErr(err)
	}
	return p, nil
}

func (s *Store) CreateGround(ctx context.Context, g model.SportsGround) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO sports_grounds
			(id, place, name_prefix, local_id, opening_min, closing_min, season_start, season_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, g.ID, g.Place, g.NamePrefix, g.LocalID, g.Opening.Minutes(), g.Closing.Minutes(), g.SeasonStart, g.SeasonEnd)
	return wrapWriteErr(err)
}

const groundColumns = `id, place, name_prefix, local_id, opening_min, closing_min, season_start, season_end`

func (s *Store) GroundByID(ctx context.Context, id string) (model.SportsGround, error) {
	row := s.q.QueryRow(ctx, `SELECT `+groundColumns+` FROM sports_grounds WHERE id = $1`, id)
	g, err := scanGround(row)
	if err != nil {
		return model.SportsGround{}, wrapReadErr(err)
	}
	return g, nil
}

func (s *Store) GroundsByPlace(ctx context.Context, place string) ([]model.SportsGround, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+groundColumns+`
		FROM sports_grounds
		WHERE place = $1
		ORDER BY name_prefix, local_id
	`, place)
	if err != nil {
		return nil, err
	}
	return collectGrounds(rows)
}

func (s *Store) Grounds(ctx context.Context) ([]model.SportsGround, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+groundColumns+`
		FROM sports_grounds
		ORDER BY place, name_prefix, local_id
	`)
	if err != nil {
		return nil, err
	}
	return collectGrounds(rows)
}

func (s *Store) MaxLocalID(ctx context.Context, place, prefix string) (int, error) {
	var max int
	err := s.q.QueryRow(ctx, `
		SELECT COALESCE(MAX(local_id), 0)
		FROM sports_grounds
		WHERE place = $1 AND name_prefix = $2
	`, place, prefix).Scan(&max)
	return max, err
}

func (s *Store) CreateReservation(ctx context.Context, r model.Reservation) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO reservations
			(id, ground_id, email, surname, event_date, start_min, end_min, is_accepted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.ID, r.GroundID, r.Email, r.Surname, r.EventDate, r.Start.Minutes(), r.End.Minutes(), r.IsAccepted, r.CreatedAt)
	return wrapWriteErr(err)
}

const reservationColumns = `id, ground_id, email, surname, event_date, start_min, end_min, is_accepted, created_at`

func (s *Store) ReservationByID(ctx context.Context, id string) (model.Reservation, error) {
	sql := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	if s.tx != nil {
		sql += ` FOR UPDATE`
	}
	r, err := scanReservation(s.q.QueryRow(ctx, sql, id))
	if err != nil {
		return model.Reservation{}, wrapReadErr(err)
	}
	return r, nil
}

func (s *Store) AcceptedReservations(ctx context.Context, groundID string, date time.Time) ([]model.Reservation, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE ground_id = $1 AND event_date = $2 AND is_accepted
		ORDER BY start_min
	`, groundID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) SetReservationAccepted(ctx context.Context, id string) error {
	tag, err := s.q.Exec(ctx, `UPDATE reservations SET is_accepted = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteReservation(ctx context.Context, id string) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) AppendEvent(ctx context.Context, evt outbox.Event) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err := s.q.Exec(ctx, `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, evt.AggregateType, evt.AggregateID, evt.EventType, evt.Payload, traceparent, tracestate)
	return err
}

func scanGround(row pgx.Row) (model.SportsGround, error) {
	var g model.SportsGround
	var openMin, closeMin int
	err := row.Scan(&g.ID, &g.Place, &g.NamePrefix, &g.LocalID, &openMin, &closeMin, &g.SeasonStart, &g.SeasonEnd)
	if err != nil {
		return model.SportsGround{}, err
	}
	g.Opening = availability.Clock(openMin)
	g.Closing = availability.Clock(closeMin)
	return g, nil
}

func collectGrounds(rows pgx.Rows) ([]model.SportsGround, error) {
	defer rows.Close()
	var out []model.SportsGround
	for rows.Next() {
		g, err := scanGround(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanReservation(row pgx.Row) (model.Reservation, error) {
	var r model.Reservation
	var startMin, endMin int
	err := row.Scan(&r.ID, &r.GroundID, &r.Email, &r.Surname, &r.EventDate, &startMin, &endMin, &r.IsAccepted, &r.CreatedAt)
	if err != nil {
		return model.Reservation{}, err
	}
	r.Start = availability.Clock(startMin)
	r.End = availability.Clock(endMin)
	// event_date comes back at midnight in the session timezone; pin it to UTC.
	r.EventDate = model.Date(r.EventDate.Year(), r.EventDate.Month(), r.EventDate.Day())
	return r, nil
}

func wrapReadErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

func wrapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return storage.ErrConflict
	}
	return err
}
