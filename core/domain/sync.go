package domain

import (
	"time"

	"github.com/google/uuid"
)

// MailboxFailure records why a single mailbox was skipped during a run.
type MailboxFailure struct {
	Mailbox string `json:"mailbox"`
	Reason  string `json:"reason"`
}

// SyncReport aggregates the outcome of one sync run. A mailbox failure does
// not fail the run; only auth or mailbox-list failures do.
type SyncReport struct {
	RunID     uuid.UUID     `json:"run_id"`
	Window    Window        `json:"-"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ms"`

	MailboxesTotal  int `json:"mailboxes_total"`
	MailboxesSynced int `json:"mailboxes_synced"`
	EventsApplied   int `json:"events_applied"`
	EventsRejected  int `json:"events_rejected"`

	Failures []MailboxFailure `json:"failures,omitempty"`
}
