package persistence

// Integration tests against a real PostgreSQL instance. Set TEST_DATABASE_URL
// to run them; they create their own tables and clean up after themselves.

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/DaveBieleveld/TrackTime365/core/domain"
	"github.com/DaveBieleveld/TrackTime365/pkg/apperr"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := EnsureSchema(ctx, db); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	t.Cleanup(func() {
		db.ExecContext(ctx, `
			DROP TABLE IF EXISTS calendar_event_calendar_category;
			DROP TABLE IF EXISTS calendar_category;
			DROP TABLE IF EXISTS calendar_event;
		`)
	})
	return db
}

func testEvent(id string, categories ...string) *domain.CalendarEvent {
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	return &domain.CalendarEvent{
		EventID:      id,
		UserEmail:    "jane@example.com",
		UserName:     "Jane Tester",
		Subject:      "Event " + id,
		StartDate:    start,
		EndDate:      start.Add(time.Hour),
		StartDateUTC: start,
		EndDateUTC:   start.Add(time.Hour),
		Timezone:     "UTC",
		LastModified: start,
		Categories:   categories,
	}
}

func TestUpsertBatchRoundTrip(t *testing.T) {
	db := testDB(t)
	adapter := NewEventAdapter(db)
	ctx := context.Background()

	applied, err := adapter.UpsertBatch(ctx, []*domain.CalendarEvent{
		testEvent("e1", "Work", "[PROJECT] Apollo"),
		testEvent("e2", "Work"),
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if applied != 2 {
		t.Fatalf("applied = %d, want 2", applied)
	}

	window := domain.Window{
		Start: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
	}
	events, err := adapter.EventsByDateRange(ctx, window, "")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	names, err := adapter.EventCategories(ctx, "e1")
	if err != nil {
		t.Fatalf("categories failed: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("e1 categories = %v", names)
	}

	// Project flag is derived from the name marker.
	var isProject bool
	if err := db.GetContext(ctx, &isProject,
		`SELECT is_project FROM calendar_category WHERE name = $1`, "[PROJECT] Apollo"); err != nil {
		t.Fatalf("flag lookup failed: %v", err)
	}
	if !isProject {
		t.Error("marker-prefixed category should carry is_project")
	}
}

func TestUpsertReconcilesCategoryLinks(t *testing.T) {
	db := testDB(t)
	adapter := NewEventAdapter(db)
	ctx := context.Background()

	if err := adapter.UpsertEvent(ctx, testEvent("e1", "Work", "Travel")); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	// Second pass drops Travel and adds Meeting; Travel becomes an orphan
	// and must be swept.
	if err := adapter.UpsertEvent(ctx, testEvent("e1", "Work", "Meeting")); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	names, err := adapter.EventCategories(ctx, "e1")
	if err != nil {
		t.Fatalf("categories failed: %v", err)
	}
	if len(names) != 2 || names[0] != "Meeting" || names[1] != "Work" {
		t.Fatalf("categories = %v, want [Meeting Work]", names)
	}

	var count int
	if err := db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM calendar_category WHERE LOWER(name) = 'travel'`); err != nil {
		t.Fatalf("orphan check failed: %v", err)
	}
	if count != 0 {
		t.Error("orphaned category should have been swept")
	}
}

func TestCategoryNamesAreCaseInsensitive(t *testing.T) {
	db := testDB(t)
	adapter := NewEventAdapter(db)
	ctx := context.Background()

	if err := adapter.UpsertEvent(ctx, testEvent("e1", "Work")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := adapter.UpsertEvent(ctx, testEvent("e2", "WORK")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	var count int
	if err := db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM calendar_category WHERE LOWER(name) = 'work'`); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("case variants must share one dictionary row, got %d", count)
	}

	// First-seen casing survives.
	var name string
	if err := db.GetContext(ctx, &name,
		`SELECT name FROM calendar_category WHERE LOWER(name) = 'work'`); err != nil {
		t.Fatalf("name lookup failed: %v", err)
	}
	if name != "Work" {
		t.Errorf("name = %q, want first-seen casing", name)
	}

	events, err := adapter.EventsByCategory(ctx, "wOrK", "")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("case-insensitive category query returned %d events, want 2", len(events))
	}
}

func TestMarkEventDeleted(t *testing.T) {
	db := testDB(t)
	adapter := NewEventAdapter(db)
	ctx := context.Background()

	if err := adapter.UpsertEvent(ctx, testEvent("e1", "Solo")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := adapter.MarkEventDeleted(ctx, "e1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	// Row kept, hidden from queries, links gone, orphan swept.
	var isDeleted bool
	if err := db.GetContext(ctx, &isDeleted,
		`SELECT is_deleted FROM calendar_event WHERE event_id = 'e1'`); err != nil {
		t.Fatalf("row lookup failed: %v", err)
	}
	if !isDeleted {
		t.Error("event should be soft-deleted, not removed")
	}

	window := domain.Window{
		Start: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
	}
	events, err := adapter.EventsByDateRange(ctx, window, "")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(events) != 0 {
		t.Error("soft-deleted events must not appear in range queries")
	}

	var orphans int
	if err := db.GetContext(ctx, &orphans, `SELECT COUNT(*) FROM calendar_category`); err != nil {
		t.Fatalf("orphan count failed: %v", err)
	}
	if orphans != 0 {
		t.Error("category left orphaned after its only event was deleted")
	}

	// Re-sync of the same event id revives it.
	if err := adapter.UpsertEvent(ctx, testEvent("e1")); err != nil {
		t.Fatalf("revive upsert failed: %v", err)
	}
	events, err = adapter.EventsByDateRange(ctx, window, "")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(events) != 1 {
		t.Error("re-upserted event should be visible again")
	}
}

func TestDeleteCategory(t *testing.T) {
	db := testDB(t)
	adapter := NewEventAdapter(db)
	ctx := context.Background()

	if err := adapter.UpsertEvent(ctx, testEvent("e1", "Work")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	existed, err := adapter.DeleteCategory(ctx, "WORK")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !existed {
		t.Error("existing category should report true")
	}

	existed, err = adapter.DeleteCategory(ctx, "Work")
	if err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
	if existed {
		t.Error("missing category should report false")
	}

	names, err := adapter.EventCategories(ctx, "e1")
	if err != nil {
		t.Fatalf("categories failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("links should cascade with the category, got %v", names)
	}
}

func TestEventsByDateRangeRejectsInvertedWindow(t *testing.T) {
	// Pure validation: no database needed.
	adapter := NewEventAdapter(nil)
	window := domain.Window{
		Start: time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err := adapter.EventsByDateRange(context.Background(), window, "")
	if !apperr.HasCode(err, apperr.CodeInvalidRange) {
		t.Fatalf("expected INVALID_RANGE, got %v", err)
	}
}
