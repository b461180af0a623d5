package metrics

import (
	"testing"
	"time"
)

func TestTrackerSummary(t *testing.T) {
	tracker := NewTracker(16)
	for _, d := range []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		40 * time.Millisecond,
	} {
		tracker.Observe(d)
	}

	got := tracker.Summary()
	if got.Count != 4 {
		t.Fatalf("Count = %d, want 4", got.Count)
	}
	if got.MinMS != 10 {
		t.Errorf("MinMS = %v, want 10", got.MinMS)
	}
	if got.MaxMS != 40 {
		t.Errorf("MaxMS = %v, want 40", got.MaxMS)
	}
	if got.AvgMS != 25 {
		t.Errorf("AvgMS = %v, want 25", got.AvgMS)
	}
	if got.P50MS != 20 {
		t.Errorf("P50MS = %v, want 20", got.P50MS)
	}
}

func TestTrackerEmpty(t *testing.T) {
	got := NewTracker(0).Summary()
	if got != (Summary{}) {
		t.Fatalf("empty tracker summary = %+v, want zero value", got)
	}
}

func TestTrackerWindowSlides(t *testing.T) {
	tracker := NewTracker(10)
	for i := 0; i < 25; i++ {
		tracker.Observe(time.Duration(i+1) * time.Millisecond)
	}

	got := tracker.Summary()
	if got.Count > 10 {
		t.Fatalf("Count = %d, want at most window size 10", got.Count)
	}
	// Only recent samples survive the slide.
	if got.MinMS <= 1 {
		t.Errorf("MinMS = %v, oldest samples should have been dropped", got.MinMS)
	}
	if got.MaxMS != 25 {
		t.Errorf("MaxMS = %v, want 25", got.MaxMS)
	}
}

func TestRegistryPerStage(t *testing.T) {
	reg := NewRegistry(16)
	reg.Observe(StageRun, 100*time.Millisecond)
	reg.Observe(StageMailbox, 10*time.Millisecond)
	reg.Observe(StageMailbox, 20*time.Millisecond)

	all := reg.Summaries()
	if len(all) != 2 {
		t.Fatalf("Summaries() has %d stages, want 2", len(all))
	}
	if all[StageRun].Count != 1 {
		t.Errorf("%s count = %d, want 1", StageRun, all[StageRun].Count)
	}
	if all[StageMailbox].Count != 2 {
		t.Errorf("%s count = %d, want 2", StageMailbox, all[StageMailbox].Count)
	}
}

func TestRegistryNilSafe(t *testing.T) {
	var reg *Registry
	reg.Observe(StageRun, time.Second)
	if got := reg.Summaries(); len(got) != 0 {
		t.Fatalf("nil registry Summaries() = %v, want empty", got)
	}
}
