package sync

import (
	"context"

	"github.com/DaveBieleveld/TrackTime365/core/domain"
	"github.com/DaveBieleveld/TrackTime365/core/port/in"
	"github.com/DaveBieleveld/TrackTime365/core/port/out"
)

// QueryService serves reads from the mirrored store. Validation beyond the
// repository's own range check lives here so transports stay thin.
type QueryService struct {
	repo out.EventRepository
}

var _ in.QueryUseCase = (*QueryService)(nil)

func NewQueryService(repo out.EventRepository) *QueryService {
	return &QueryService{repo: repo}
}

func (q *QueryService) EventsByDateRange(ctx context.Context, window domain.Window, userEmail string) ([]*domain.CalendarEvent, error) {
	return q.repo.EventsByDateRange(ctx, window, userEmail)
}

func (q *QueryService) EventsByCategory(ctx context.Context, category, userEmail string) ([]*domain.CalendarEvent, error) {
	return q.repo.EventsByCategory(ctx, category, userEmail)
}

func (q *QueryService) EventCategories(ctx context.Context, eventID string) ([]string, error) {
	return q.repo.EventCategories(ctx, eventID)
}
