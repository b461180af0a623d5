package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/DaveBieleveld/TrackTime365/core/domain"
	"github.com/DaveBieleveld/TrackTime365/core/port/out"
	"github.com/DaveBieleveld/TrackTime365/pkg/apperr"
)

// EventAdapter implements out.EventRepository using PostgreSQL.
//
// All mutations run inside a transaction that also reconciles category links
// and sweeps orphaned categories, so the dictionary never drifts from the
// link table.
type EventAdapter struct {
	db *sqlx.DB
}

// NewEventAdapter creates a new EventAdapter.
func NewEventAdapter(db *sqlx.DB) *EventAdapter {
	return &EventAdapter{db: db}
}

// eventRow represents the database row for a mirrored event.
type eventRow struct {
	EventID      string         `db:"event_id"`
	UserEmail    string         `db:"user_email"`
	UserName     sql.NullString `db:"user_name"`
	Subject      string         `db:"subject"`
	Description  sql.NullString `db:"description"`
	StartDate    time.Time      `db:"start_date"`
	EndDate      time.Time      `db:"end_date"`
	StartDateUTC time.Time      `db:"start_date_utc"`
	EndDateUTC   time.Time      `db:"end_date_utc"`
	Timezone     string         `db:"timezone"`
	LastModified time.Time      `db:"last_modified"`
	IsDeleted    bool           `db:"is_deleted"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r *eventRow) toEntity() *domain.CalendarEvent {
	event := &domain.CalendarEvent{
		EventID:      r.EventID,
		UserEmail:    r.UserEmail,
		Subject:      r.Subject,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		StartDateUTC: r.StartDateUTC,
		EndDateUTC:   r.EndDateUTC,
		Timezone:     r.Timezone,
		LastModified: r.LastModified,
		IsDeleted:    r.IsDeleted,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.UserName.Valid {
		event.UserName = r.UserName.String
	}
	if r.Description.Valid {
		event.Description = &r.Description.String
	}
	return event
}

// =============================================================================
// Writes
// =============================================================================

// UpsertBatch applies a batch of events and their category links in one
// transaction. All-or-nothing: any failure rolls the whole batch back.
func (a *EventAdapter) UpsertBatch(ctx context.Context, events []*domain.CalendarEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, apperr.DatabaseError("begin transaction", err)
	}
	defer tx.Rollback()

	for _, event := range events {
		if err := upsertEventTx(ctx, tx, event); err != nil {
			return 0, err
		}
		if err := reconcileCategoriesTx(ctx, tx, event); err != nil {
			return 0, err
		}
	}
	if err := sweepOrphanCategoriesTx(ctx, tx); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, apperr.DatabaseError("commit batch", err)
	}
	return len(events), nil
}

// UpsertEvent applies a single event in its own transaction.
func (a *EventAdapter) UpsertEvent(ctx context.Context, event *domain.CalendarEvent) error {
	_, err := a.UpsertBatch(ctx, []*domain.CalendarEvent{event})
	return err
}

// MarkEventDeleted soft-deletes an event: links removed, is_deleted set,
// orphaned categories swept. The row is kept for history.
func (a *EventAdapter) MarkEventDeleted(ctx context.Context, eventID string) error {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.DatabaseError("begin transaction", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE calendar_event
		SET is_deleted = TRUE, updated_at = NOW()
		WHERE event_id = $1
	`, eventID)
	if err != nil {
		return apperr.DatabaseError("mark event deleted", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("event not found: %s", eventID)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM calendar_event_calendar_category WHERE event_id = $1
	`, eventID); err != nil {
		return apperr.DatabaseError("remove category links", err)
	}
	if err := sweepOrphanCategoriesTx(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperr.DatabaseError("commit delete", err)
	}
	return nil
}

// DeleteCategory removes a category and all its links. Reports whether the
// category existed.
func (a *EventAdapter) DeleteCategory(ctx context.Context, name string) (bool, error) {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, apperr.DatabaseError("begin transaction", err)
	}
	defer tx.Rollback()

	// Links go with it via ON DELETE CASCADE.
	result, err := tx.ExecContext(ctx, `
		DELETE FROM calendar_category WHERE LOWER(name) = LOWER($1)
	`, name)
	if err != nil {
		return false, apperr.DatabaseError("delete category", err)
	}
	rows, _ := result.RowsAffected()

	if err := tx.Commit(); err != nil {
		return false, apperr.DatabaseError("commit delete", err)
	}
	return rows > 0, nil
}

// =============================================================================
// Reads
// =============================================================================

// EventsByDateRange returns non-deleted events whose UTC range falls inside
// the window, ordered by start. userEmail narrows the result when set.
func (a *EventAdapter) EventsByDateRange(ctx context.Context, window domain.Window, userEmail string) ([]*domain.CalendarEvent, error) {
	if !window.Valid() {
		return nil, apperr.InvalidRange()
	}

	query := `
		SELECT * FROM calendar_event
		WHERE is_deleted = FALSE
		  AND start_date_utc >= $1
		  AND end_date_utc <= $2
		  AND ($3 = '' OR user_email = $3)
		ORDER BY start_date_utc
	`
	return a.queryEvents(ctx, query, window.Start.UTC(), window.End.UTC(), userEmail)
}

// EventsByCategory returns non-deleted events linked to the named category,
// ordered by start. The category match is case-insensitive.
func (a *EventAdapter) EventsByCategory(ctx context.Context, category, userEmail string) ([]*domain.CalendarEvent, error) {
	query := `
		SELECT e.* FROM calendar_event e
		JOIN calendar_event_calendar_category l ON l.event_id = e.event_id
		JOIN calendar_category c ON c.category_id = l.category_id
		WHERE e.is_deleted = FALSE
		  AND LOWER(c.name) = LOWER($1)
		  AND ($2 = '' OR e.user_email = $2)
		ORDER BY e.start_date_utc
	`
	return a.queryEvents(ctx, query, category, userEmail)
}

// EventCategories returns the event's linked category names, sorted.
func (a *EventAdapter) EventCategories(ctx context.Context, eventID string) ([]string, error) {
	var names []string
	err := a.db.SelectContext(ctx, &names, `
		SELECT c.name FROM calendar_category c
		JOIN calendar_event_calendar_category l ON l.category_id = c.category_id
		WHERE l.event_id = $1
		ORDER BY c.name
	`, eventID)
	if err != nil {
		return nil, apperr.DatabaseError("list event categories", err)
	}
	return names, nil
}

func (a *EventAdapter) queryEvents(ctx context.Context, query string, args ...any) ([]*domain.CalendarEvent, error) {
	rows, err := a.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.DatabaseError("query events", err)
	}
	defer rows.Close()

	var events []*domain.CalendarEvent
	for rows.Next() {
		var row eventRow
		if err := rows.StructScan(&row); err != nil {
			return nil, apperr.DatabaseError("scan event row", err)
		}
		events = append(events, row.toEntity())
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.DatabaseError("iterate event rows", err)
	}
	return events, nil
}

// =============================================================================
// Transaction helpers
// =============================================================================

// upsertEventTx merges one event row. The conflict target makes concurrent
// inserts of the same event safe; the loser's insert becomes an update.
func upsertEventTx(ctx context.Context, tx *sqlx.Tx, event *domain.CalendarEvent) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO calendar_event (
			event_id, user_email, user_name, subject, description,
			start_date, end_date, start_date_utc, end_date_utc, timezone,
			last_modified, is_deleted
		) VALUES (
			$1, $2, NULLIF($3, ''), $4, $5,
			$6, $7, $8, $9, $10,
			$11, FALSE
		)
		ON CONFLICT (event_id) DO UPDATE SET
			user_email     = EXCLUDED.user_email,
			user_name      = EXCLUDED.user_name,
			subject        = EXCLUDED.subject,
			description    = EXCLUDED.description,
			start_date     = EXCLUDED.start_date,
			end_date       = EXCLUDED.end_date,
			start_date_utc = EXCLUDED.start_date_utc,
			end_date_utc   = EXCLUDED.end_date_utc,
			timezone       = EXCLUDED.timezone,
			last_modified  = EXCLUDED.last_modified,
			is_deleted     = FALSE,
			updated_at     = NOW()
	`,
		event.EventID, event.UserEmail, event.UserName, event.Subject, event.Description,
		event.StartDate, event.EndDate, event.StartDateUTC, event.EndDateUTC, event.Timezone,
		event.LastModified,
	)
	if err != nil {
		return apperr.DatabaseError("upsert event", err)
	}
	return nil
}

// reconcileCategoriesTx diffs the event's stored links against its incoming
// category set and applies only the changes.
func reconcileCategoriesTx(ctx context.Context, tx *sqlx.Tx, event *domain.CalendarEvent) error {
	var existing []string
	err := tx.SelectContext(ctx, &existing, `
		SELECT c.name FROM calendar_category c
		JOIN calendar_event_calendar_category l ON l.category_id = c.category_id
		WHERE l.event_id = $1
	`, event.EventID)
	if err != nil {
		return apperr.CategoryLinkFailed(event.EventID, err)
	}

	added, removed := domain.DiffCategories(existing, event.Categories)

	for _, name := range added {
		categoryID, err := ensureCategoryTx(ctx, tx, name)
		if err != nil {
			return apperr.CategoryLinkFailed(event.EventID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO calendar_event_calendar_category (event_id, category_id)
			VALUES ($1, $2)
			ON CONFLICT (event_id, category_id) DO NOTHING
		`, event.EventID, categoryID); err != nil {
			return apperr.CategoryLinkFailed(event.EventID, err)
		}
	}

	if len(removed) > 0 {
		lowered := make([]string, len(removed))
		for i, name := range removed {
			lowered[i] = strings.ToLower(name)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM calendar_event_calendar_category
			WHERE event_id = $1
			  AND category_id IN (
				SELECT category_id FROM calendar_category
				WHERE LOWER(name) = ANY($2)
			  )
		`, event.EventID, pq.Array(lowered)); err != nil {
			return apperr.CategoryLinkFailed(event.EventID, err)
		}
	}

	return nil
}

// ensureCategoryTx resolves a name to its category id, creating the row on
// first sight. Two syncs racing on the same new name both land on one row.
func ensureCategoryTx(ctx context.Context, tx *sqlx.Tx, name string) (int64, error) {
	var categoryID int64
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO calendar_category (name)
		VALUES ($1)
		ON CONFLICT (LOWER(name)) DO UPDATE SET updated_at = NOW()
		RETURNING category_id
	`, name).Scan(&categoryID)
	if err != nil {
		return 0, fmt.Errorf("failed to ensure category %q: %w", name, err)
	}
	return categoryID, nil
}

// sweepOrphanCategoriesTx deletes categories no event links to anymore.
func sweepOrphanCategoriesTx(ctx context.Context, tx *sqlx.Tx) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM calendar_category c
		WHERE NOT EXISTS (
			SELECT 1 FROM calendar_event_calendar_category l
			WHERE l.category_id = c.category_id
		)
	`); err != nil {
		return apperr.DatabaseError("sweep orphan categories", err)
	}
	return nil
}

// Ensure EventAdapter implements out.EventRepository
var _ out.EventRepository = (*EventAdapter)(nil)
