// Package sync contains the pull-and-mirror pipeline: normalization of raw
// provider events and the per-run orchestration across mailboxes.
package sync

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/DaveBieleveld/TrackTime365/core/domain"
	"github.com/DaveBieleveld/TrackTime365/core/port/out"
	"github.com/DaveBieleveld/TrackTime365/core/service/timezone"
	"github.com/DaveBieleveld/TrackTime365/pkg/apperr"
)

// graphTimeLayout matches provider wall-clock timestamps. Fractional seconds
// in the input are accepted without appearing in the layout.
const graphTimeLayout = "2006-01-02T15:04:05"

// Normalizer converts raw provider events into canonical calendar events.
// Rejections come back as EVENT_REJECTED errors and name the offending field.
type Normalizer struct {
	zones *timezone.Resolver
	now   func() time.Time
}

// NewNormalizer creates a normalizer using the given timezone resolver.
func NewNormalizer(zones *timezone.Resolver) *Normalizer {
	return &Normalizer{
		zones: zones,
		now:   time.Now,
	}
}

// Normalize validates and converts one raw event for the given mailbox.
//
// An event is rejected when its id or subject is missing, when a timestamp
// cannot be parsed, or when the end precedes the start. Everything else is
// coerced: overlong text fields are truncated, category names are trimmed
// and deduplicated, and an unresolvable timezone degrades rather than
// rejecting the event.
func (n *Normalizer) Normalize(ctx context.Context, raw out.RawEvent, mailbox domain.Mailbox) (*domain.CalendarEvent, error) {
	eventID := strings.TrimSpace(raw.ID)
	if eventID == "" {
		return nil, apperr.MissingRequiredField("id")
	}
	subject := strings.TrimSpace(raw.Subject)
	if subject == "" {
		return nil, apperr.MissingRequiredField("subject")
	}

	startLoc := n.zones.Location(ctx, raw.Start.TimeZone)
	endLoc := n.zones.Location(ctx, raw.End.TimeZone)

	start, err := time.ParseInLocation(graphTimeLayout, raw.Start.DateTime, startLoc)
	if err != nil {
		return nil, apperr.EventRejected("unparseable start date").
			WithDetail("value", raw.Start.DateTime).
			WithDetail("event_id", eventID)
	}
	end, err := time.ParseInLocation(graphTimeLayout, raw.End.DateTime, endLoc)
	if err != nil {
		return nil, apperr.EventRejected("unparseable end date").
			WithDetail("value", raw.End.DateTime).
			WithDetail("event_id", eventID)
	}
	if end.Before(start) {
		return nil, apperr.InvalidDateRange().WithDetail("event_id", eventID)
	}

	event := &domain.CalendarEvent{
		EventID:      eventID,
		UserEmail:    mailbox.Mail,
		UserName:     mailbox.DisplayName,
		Subject:      truncateRunes(subject, domain.MaxSubjectLen),
		Description:  normalizeDescription(raw.Body.Content),
		StartDate:    start,
		EndDate:      end,
		StartDateUTC: start.UTC(),
		EndDateUTC:   end.UTC(),
		Timezone:     startLoc.String(),
		LastModified: n.lastModified(raw.LastModified),
		Categories:   domain.NormalizeCategoryNames(raw.Categories),
	}
	return event, nil
}

// lastModified parses the provider's modification stamp, falling back to the
// current time so ordering comparisons always have a value to work with.
func (n *Normalizer) lastModified(value string) time.Time {
	if value != "" {
		if ts, err := time.Parse(time.RFC3339, value); err == nil {
			return ts.UTC()
		}
	}
	return n.now().UTC()
}

func normalizeDescription(content string) *string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	content = truncateRunes(content, domain.MaxDescriptionLen)
	return &content
}

// truncateRunes bounds s to max runes, never splitting a multibyte rune.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
