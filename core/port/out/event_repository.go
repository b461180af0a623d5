package out

import (
	"context"

	"github.com/DaveBieleveld/TrackTime365/core/domain"
)

// EventRepository persists mirrored events and their category links. The
// repository owns write access to event and link rows; category lifecycle
// (create-on-demand, delete-on-orphan) happens inside the same transaction
// as the event writes that triggered it.
type EventRepository interface {
	// UpsertBatch applies a whole batch of normalized events and their
	// category sets in one transaction: a set-based merge on event_id
	// followed by link reconciliation per event. All-or-nothing.
	// Returns the number of events applied.
	UpsertBatch(ctx context.Context, events []*domain.CalendarEvent) (int, error)

	// UpsertEvent applies a single event and its categories in its own
	// transaction.
	UpsertEvent(ctx context.Context, event *domain.CalendarEvent) error

	// MarkEventDeleted soft-deletes an event: links removed, is_deleted set,
	// orphaned categories swept. The row itself is kept for history.
	MarkEventDeleted(ctx context.Context, eventID string) error

	// EventsByDateRange returns non-deleted events whose UTC range falls
	// inside the window, ordered by start. An inverted window is an error
	// before any query is issued. userEmail narrows the result when set.
	EventsByDateRange(ctx context.Context, window domain.Window, userEmail string) ([]*domain.CalendarEvent, error)

	// EventsByCategory returns non-deleted events linked to the named
	// category, ordered by start. userEmail narrows the result when set.
	EventsByCategory(ctx context.Context, category, userEmail string) ([]*domain.CalendarEvent, error)

	// EventCategories returns the event's linked category names, sorted.
	EventCategories(ctx context.Context, eventID string) ([]string, error)

	// DeleteCategory removes a category and all its links. Reports whether
	// the category existed.
	DeleteCategory(ctx context.Context, name string) (bool, error)
}
