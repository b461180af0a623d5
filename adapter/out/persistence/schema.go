package persistence

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema contains the DDL for the mirrored store. Idempotent: safe to run on
// every start.
const Schema = `
CREATE TABLE IF NOT EXISTS calendar_event (
    event_id       VARCHAR(1024) PRIMARY KEY,
    user_email     VARCHAR(255) NOT NULL,
    user_name      VARCHAR(255),

    subject        VARCHAR(255) NOT NULL,
    description    VARCHAR(1000),

    -- Wall clock in the event's zone plus the UTC pair for range queries.
    start_date     TIMESTAMP NOT NULL,
    end_date       TIMESTAMP NOT NULL,
    start_date_utc TIMESTAMPTZ NOT NULL,
    end_date_utc   TIMESTAMPTZ NOT NULL,
    timezone       VARCHAR(100) NOT NULL DEFAULT 'UTC',

    last_modified  TIMESTAMPTZ NOT NULL,
    is_deleted     BOOLEAN NOT NULL DEFAULT FALSE,

    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_calendar_event_user_email
    ON calendar_event (user_email);
CREATE INDEX IF NOT EXISTS idx_calendar_event_utc_range
    ON calendar_event (start_date_utc, end_date_utc);

CREATE TABLE IF NOT EXISTS calendar_category (
    category_id BIGSERIAL PRIMARY KEY,
    name        VARCHAR(255) NOT NULL,

    -- Flags derive from the name markers; they are never written directly.
    is_project  BOOLEAN GENERATED ALWAYS AS (name LIKE '[PROJECT]%') STORED,
    is_activity BOOLEAN GENERATED ALWAYS AS (name LIKE '[ACTIVITY]%') STORED,

    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- The dictionary is case-insensitive; first-seen casing is kept in name.
CREATE UNIQUE INDEX IF NOT EXISTS idx_calendar_category_name_lower
    ON calendar_category (LOWER(name));

CREATE TABLE IF NOT EXISTS calendar_event_calendar_category (
    event_id    VARCHAR(1024) NOT NULL
        REFERENCES calendar_event (event_id) ON DELETE CASCADE,
    category_id BIGINT NOT NULL
        REFERENCES calendar_category (category_id) ON DELETE CASCADE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    PRIMARY KEY (event_id, category_id)
);

CREATE INDEX IF NOT EXISTS idx_event_category_category_id
    ON calendar_event_calendar_category (category_id);
`

// EnsureSchema creates all tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
