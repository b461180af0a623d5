package sync

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DaveBieleveld/TrackTime365/core/domain"
	"github.com/DaveBieleveld/TrackTime365/core/port/out"
	"github.com/DaveBieleveld/TrackTime365/core/service/timezone"
	"github.com/DaveBieleveld/TrackTime365/pkg/apperr"
)

var testMailbox = domain.Mailbox{
	ID:          "u-1",
	DisplayName: "Jane Tester",
	Mail:        "jane@example.com",
}

func newTestNormalizer() *Normalizer {
	n := NewNormalizer(timezone.NewResolver(&timezone.Config{
		// Keep resolution offline: unknown labels degrade to UTC.
		URL:       "http://127.0.0.1:0",
		LocalZone: func() string { return "UTC" },
	}))
	n.now = func() time.Time {
		return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	}
	return n
}

func rawEvent() out.RawEvent {
	return out.RawEvent{
		ID:           "evt-1",
		Subject:      "Design review",
		Body:         out.RawBody{ContentType: "text", Content: "Agenda attached"},
		Start:        out.RawDateTime{DateTime: "2026-09-01T09:00:00.0000000", TimeZone: "W. Europe Standard Time"},
		End:          out.RawDateTime{DateTime: "2026-09-01T10:30:00.0000000", TimeZone: "W. Europe Standard Time"},
		Categories:   []string{"Work", "work", " Meeting "},
		LastModified: "2026-08-31T07:15:00Z",
	}
}

func TestNormalizeValidEvent(t *testing.T) {
	n := newTestNormalizer()

	event, err := n.Normalize(context.Background(), rawEvent(), testMailbox)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if event.EventID != "evt-1" {
		t.Errorf("event id = %q", event.EventID)
	}
	if event.UserEmail != "jane@example.com" || event.UserName != "Jane Tester" {
		t.Errorf("mailbox attribution = %q / %q", event.UserEmail, event.UserName)
	}
	if event.Timezone != "Europe/Amsterdam" {
		t.Errorf("timezone = %q, want Europe/Amsterdam", event.Timezone)
	}
	if got := event.StartDate.Format("15:04"); got != "09:00" {
		t.Errorf("wall clock start = %s, want 09:00", got)
	}
	// Amsterdam is UTC+2 in September.
	if got := event.StartDateUTC.Format("15:04"); got != "07:00" {
		t.Errorf("utc start = %s, want 07:00", got)
	}
	if event.Description == nil || *event.Description != "Agenda attached" {
		t.Errorf("description = %v", event.Description)
	}
	if len(event.Categories) != 2 || event.Categories[0] != "Work" || event.Categories[1] != "Meeting" {
		t.Errorf("categories = %v", event.Categories)
	}
	if !event.LastModified.Equal(time.Date(2026, 8, 31, 7, 15, 0, 0, time.UTC)) {
		t.Errorf("last modified = %v", event.LastModified)
	}
}

func TestNormalizeRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*out.RawEvent)
	}{
		{"missing id", func(e *out.RawEvent) { e.ID = "  " }},
		{"missing subject", func(e *out.RawEvent) { e.Subject = "" }},
		{"unparseable start", func(e *out.RawEvent) { e.Start.DateTime = "yesterday" }},
		{"unparseable end", func(e *out.RawEvent) { e.End.DateTime = "" }},
		{"end before start", func(e *out.RawEvent) {
			e.End.DateTime = "2026-09-01T08:00:00"
		}},
	}

	n := newTestNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawEvent()
			tt.mutate(&raw)

			event, err := n.Normalize(context.Background(), raw, testMailbox)
			if event != nil {
				t.Fatal("rejected event must not be returned")
			}
			if !apperr.HasCode(err, apperr.CodeEventRejected) {
				t.Fatalf("expected EVENT_REJECTED, got %v", err)
			}
		})
	}
}

func TestNormalizeTruncatesLongFields(t *testing.T) {
	n := newTestNormalizer()
	raw := rawEvent()
	raw.Subject = strings.Repeat("s", domain.MaxSubjectLen+40)
	raw.Body.Content = strings.Repeat("ü", domain.MaxDescriptionLen+1)

	event, err := n.Normalize(context.Background(), raw, testMailbox)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len([]rune(event.Subject)); got != domain.MaxSubjectLen {
		t.Errorf("subject rune length = %d, want %d", got, domain.MaxSubjectLen)
	}
	if got := len([]rune(*event.Description)); got != domain.MaxDescriptionLen {
		t.Errorf("description rune length = %d, want %d", got, domain.MaxDescriptionLen)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	n := newTestNormalizer()
	raw := rawEvent()
	raw.Start.TimeZone = ""
	raw.End.TimeZone = ""
	raw.Body.Content = "   "
	raw.Categories = nil
	raw.LastModified = "not a timestamp"

	event, err := n.Normalize(context.Background(), raw, testMailbox)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Timezone != "UTC" {
		t.Errorf("missing zone label should default to UTC, got %q", event.Timezone)
	}
	if event.Description != nil {
		t.Errorf("blank body should yield nil description, got %q", *event.Description)
	}
	if event.Categories != nil {
		t.Errorf("categories = %v, want nil", event.Categories)
	}
	if !event.LastModified.Equal(n.now()) {
		t.Errorf("unparseable modification stamp should fall back to now, got %v", event.LastModified)
	}
}

func TestNormalizeZeroDurationAllowed(t *testing.T) {
	n := newTestNormalizer()
	raw := rawEvent()
	raw.End = raw.Start

	if _, err := n.Normalize(context.Background(), raw, testMailbox); err != nil {
		t.Fatalf("equal start and end should be accepted: %v", err)
	}
}
