package domain

import (
	"time"
)

// Field limits applied during normalization.
const (
	MaxSubjectLen     = 255
	MaxDescriptionLen = 1000
)

// Mailbox is a user calendar resource, identified by email address.
type Mailbox struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Mail        string `json:"mail"`
}

// CalendarEvent is the canonical mirrored event. Produced solely by the
// normalizer; raw provider payloads never cross that boundary.
type CalendarEvent struct {
	EventID   string `json:"event_id"`
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`

	Subject     string  `json:"subject"`
	Description *string `json:"description,omitempty"`

	// Wall-clock instants in the event's original zone plus their UTC pair.
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	StartDateUTC time.Time `json:"start_date_utc"`
	EndDateUTC   time.Time `json:"end_date_utc"`
	Timezone     string    `json:"timezone"`

	LastModified time.Time `json:"last_modified"`
	IsDeleted    bool      `json:"is_deleted"`

	Categories []string `json:"categories,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Window is the inclusive date range events are fetched for.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowAround returns a window spanning days on each side of center.
func WindowAround(center time.Time, days int) Window {
	return Window{
		Start: center.AddDate(0, 0, -days),
		End:   center.AddDate(0, 0, days),
	}
}

// Valid reports whether the window is non-inverted.
func (w Window) Valid() bool {
	return !w.End.Before(w.Start)
}
