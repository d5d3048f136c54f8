package postgres

import (
	"context"

	"github.com/pmiara/rezerwacja-boisk/internal/db"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS places (
	name TEXT PRIMARY KEY,
	administrator TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	phone_number TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	street TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sports_grounds (
	id UUID PRIMARY KEY,
	place TEXT NOT NULL REFERENCES places(name) ON DELETE CASCADE,
	name_prefix TEXT NOT NULL DEFAULT 'Boisko nr',
	local_id INT NOT NULL,
	opening_min SMALLINT NOT NULL,
	closing_min SMALLINT NOT NULL,
	season_start DATE,
	season_end DATE,
	CHECK (opening_min < closing_min),
	UNIQUE (place, name_prefix, local_id)
);

CREATE TABLE IF NOT EXISTS reservations (
	id UUID PRIMARY KEY,
	ground_id UUID NOT NULL REFERENCES sports_grounds(id) ON DELETE CASCADE,
	email TEXT NOT NULL,
	surname TEXT NOT NULL,
	event_date DATE NOT NULL,
	start_min SMALLINT NOT NULL,
	end_min SMALLINT NOT NULL,
	is_accepted BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (start_min < end_min)
);

CREATE INDEX IF NOT EXISTS idx_reservations_ground_date
	ON reservations(ground_id, event_date) WHERE is_accepted;

CREATE TABLE IF NOT EXISTS outbox_events (
	id BIGSERIAL PRIMARY KEY,
	event_id UUID NOT NULL DEFAULT gen_random_uuid(),
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload JSONB NOT NULL,
	traceparent TEXT NOT NULL DEFAULT '',
	tracestate TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_outbox_unpublished
	ON outbox_events(id) WHERE published_at IS NULL;
`

func Migrate(ctx context.Context, pool *db.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
