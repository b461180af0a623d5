// Package apperr defines the coded error taxonomy of the sync pipeline.
// The orchestrator decides skip-vs-abort from the code; callers never branch
// on error strings.
package apperr

import (
	"errors"
	"fmt"
)

// Error codes. Containment: an event error skips the event, a mailbox error
// skips the mailbox, a run error aborts the run.
const (
	CodeAuthFailed         = "AUTH_FAILED"
	CodeMailboxListFailed  = "MAILBOX_LIST_FAILED"
	CodeMailboxFetchFailed = "MAILBOX_FETCH_FAILED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeEventRejected      = "EVENT_REJECTED"
	CodeCategoryLinkFailed = "CATEGORY_LINK_FAILED"
	CodeDatabaseError      = "DATABASE_ERROR"
	CodeConfigError        = "CONFIG_ERROR"
	CodeInvalidRange       = "INVALID_RANGE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// AppError is a structured application error.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Constructor functions

func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// AuthFailed is fatal to the run.
func AuthFailed(err error) *AppError {
	return Wrap(err, CodeAuthFailed, "authentication failed")
}

// MailboxListFailed is fatal to the run: no mailboxes means nothing to do.
func MailboxListFailed(err error) *AppError {
	return Wrap(err, CodeMailboxListFailed, "mailbox listing failed")
}

// MailboxFetchFailed skips the affected mailbox only.
func MailboxFetchFailed(mailbox string, err error) *AppError {
	return Wrap(err, CodeMailboxFetchFailed, fmt.Sprintf("fetch failed for mailbox %s", mailbox)).
		WithDetail("mailbox", mailbox)
}

// EventRejected skips the affected event only.
func EventRejected(reason string) *AppError {
	return New(CodeEventRejected, reason)
}

// MissingRequiredField rejects an event missing id or subject.
func MissingRequiredField(field string) *AppError {
	return EventRejected(fmt.Sprintf("missing required field: %s", field)).
		WithDetail("field", field)
}

// InvalidDateRange rejects an event whose end precedes its start.
func InvalidDateRange() *AppError {
	return EventRejected("end date cannot be before start date")
}

// DatabaseError aborts the current transaction and skips the unit of work.
func DatabaseError(operation string, err error) *AppError {
	return Wrap(err, CodeDatabaseError, fmt.Sprintf("database error: %s", operation))
}

// CategoryLinkFailed is part of the batch transaction, so it surfaces as a
// failure of the whole unit rather than occurring independently.
func CategoryLinkFailed(eventID string, err error) *AppError {
	return Wrap(err, CodeCategoryLinkFailed, fmt.Sprintf("category link failed for event %s", eventID)).
		WithDetail("event_id", eventID)
}

// InvalidRange rejects an inverted query window before any query runs.
func InvalidRange() *AppError {
	return New(CodeInvalidRange, "end date must be after start date")
}

func ConfigError(message string) *AppError {
	return New(CodeConfigError, message)
}

// Helper functions

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// CodeOf returns the taxonomy code of err, or "" when err carries no code.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given taxonomy code.
func HasCode(err error, code string) bool {
	return CodeOf(err) == code
}
