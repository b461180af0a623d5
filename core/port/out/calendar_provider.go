// Package out defines the outbound ports of the sync core.
package out

import (
	"context"

	"github.com/DaveBieleveld/TrackTime365/core/domain"
)

// RawDateTime is a provider timestamp with its declared zone label. The
// label is platform-specific (a Windows timezone name for Microsoft Graph)
// and must be resolved before the instant is usable.
type RawDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// RawBody is a provider event body.
type RawBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// RawEvent is an event record exactly as the provider returned it. Raw
// events never travel past the normalizer.
type RawEvent struct {
	ID           string      `json:"id"`
	Subject      string      `json:"subject"`
	Body         RawBody     `json:"body"`
	Start        RawDateTime `json:"start"`
	End          RawDateTime `json:"end"`
	Categories   []string    `json:"categories"`
	LastModified string      `json:"lastModifiedDateTime"`
}

// DirectoryPort lists the organization's mailboxes and their settings.
type DirectoryPort interface {
	// Authenticate acquires (or refreshes) an application token.
	Authenticate(ctx context.Context) error

	// ListMailboxes returns all users that have a mailbox.
	ListMailboxes(ctx context.Context) ([]domain.Mailbox, error)

	// MailboxTimezone returns the mailbox's platform timezone label.
	MailboxTimezone(ctx context.Context, mail string) (string, error)
}

// CalendarProviderPort retrieves calendar events for one mailbox.
type CalendarProviderPort interface {
	// FetchWindow returns every event in the window, following pagination to
	// the end. It returns an error instead of a partial page set: pages that
	// cannot be completed cannot be trusted. timeZone is the mailbox's
	// platform zone label; when set, the provider reports wall-clock times in
	// that zone.
	FetchWindow(ctx context.Context, mail string, window domain.Window, timeZone string) ([]RawEvent, error)
}

// =============================================================================
// Provider Error
// =============================================================================

// ProviderErrorCode classifies provider failures.
type ProviderErrorCode string

const (
	ProviderErrAuth      ProviderErrorCode = "auth_error"
	ProviderErrRateLimit ProviderErrorCode = "rate_limit"
	ProviderErrNotFound  ProviderErrorCode = "not_found"
	ProviderErrNetwork   ProviderErrorCode = "network_error"
	ProviderErrServer    ProviderErrorCode = "server_error"
)

// ProviderError is a typed provider failure.
type ProviderError struct {
	Provider  string
	Code      ProviderErrorCode
	Message   string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new provider error.
func NewProviderError(provider string, code ProviderErrorCode, message string, err error, retryable bool) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Code:      code,
		Message:   message,
		Err:       err,
		Retryable: retryable,
	}
}
