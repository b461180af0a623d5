package in

import (
	"context"
	"time"

	"github.com/DaveBieleveld/TrackTime365/core/domain"
)

// SyncUseCase drives one mirror pass over all organization mailboxes.
type SyncUseCase interface {
	// SyncWindow mirrors every mailbox's events inside the window. A
	// per-mailbox failure is recorded in the report; only authentication and
	// mailbox-listing failures abort the run.
	SyncWindow(ctx context.Context, window domain.Window) (*domain.SyncReport, error)

	// SyncAround mirrors a window centered on the given day.
	SyncAround(ctx context.Context, center time.Time) (*domain.SyncReport, error)

	// LastReport returns the most recent run's report, or nil before the
	// first run completes.
	LastReport() *domain.SyncReport
}

// QueryUseCase serves read access to the mirrored store.
type QueryUseCase interface {
	EventsByDateRange(ctx context.Context, window domain.Window, userEmail string) ([]*domain.CalendarEvent, error)
	EventsByCategory(ctx context.Context, category, userEmail string) ([]*domain.CalendarEvent, error)
	EventCategories(ctx context.Context, eventID string) ([]string, error)
}
