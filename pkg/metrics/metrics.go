// Package metrics tracks sync stage durations with percentile summaries.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Stage names recorded by the sync pipeline.
const (
	StageRun     = "sync_run"
	StageMailbox = "mailbox_sync"
)

// DefaultWindow is the number of recent samples kept per stage.
const DefaultWindow = 512

// =============================================================================
// Duration Tracker with P50/P95/P99 Percentiles
// =============================================================================

// Tracker keeps a sliding window of duration samples for one stage and
// computes summary statistics over it.
type Tracker struct {
	mu       sync.Mutex
	samples  []int64 // microseconds
	capacity int
	sorted   bool
}

// NewTracker creates a tracker holding at most capacity samples.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultWindow
	}
	return &Tracker{
		samples:  make([]int64, 0, capacity),
		capacity: capacity,
	}
}

// Observe records one duration sample.
func (t *Tracker) Observe(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.samples) >= t.capacity {
		// Drop the oldest tenth in one shift instead of one sample per call.
		drop := t.capacity / 10
		if drop < 1 {
			drop = 1
		}
		t.samples = t.samples[drop:]
	}

	t.samples = append(t.samples, d.Microseconds())
	t.sorted = false
}

// Summary returns statistics over the current window. A tracker with no
// samples returns the zero Summary.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.samples)
	if n == 0 {
		return Summary{}
	}

	if !t.sorted {
		sort.Slice(t.samples, func(i, j int) bool { return t.samples[i] < t.samples[j] })
		t.sorted = true
	}

	var sum int64
	for _, v := range t.samples {
		sum += v
	}

	return Summary{
		Count: n,
		MinMS: toMillis(t.samples[0]),
		MaxMS: toMillis(t.samples[n-1]),
		AvgMS: toMillis(sum / int64(n)),
		P50MS: toMillis(t.rank(0.50)),
		P95MS: toMillis(t.rank(0.95)),
		P99MS: toMillis(t.rank(0.99)),
	}
}

// rank returns the sample at percentile p. Caller holds the lock and the
// samples are sorted.
func (t *Tracker) rank(p float64) int64 {
	idx := int(float64(len(t.samples)-1) * p)
	return t.samples[idx]
}

func toMillis(micros int64) float64 {
	return float64(micros) / 1000
}

// Summary holds duration statistics for one stage, in milliseconds.
type Summary struct {
	Count int     `json:"count"`
	MinMS float64 `json:"min_ms"`
	MaxMS float64 `json:"max_ms"`
	AvgMS float64 `json:"avg_ms"`
	P50MS float64 `json:"p50_ms"`
	P95MS float64 `json:"p95_ms"`
	P99MS float64 `json:"p99_ms"`
}

// =============================================================================
// Per-Stage Registry
// =============================================================================

// Registry manages one tracker per named stage.
type Registry struct {
	mu       sync.RWMutex
	trackers map[string]*Tracker
	window   int
}

// NewRegistry creates a registry whose trackers keep window samples each.
func NewRegistry(window int) *Registry {
	return &Registry{
		trackers: make(map[string]*Tracker),
		window:   window,
	}
}

// Observe records a duration for the given stage, creating its tracker on
// first use. Safe to call on a nil registry.
func (r *Registry) Observe(stage string, d time.Duration) {
	if r == nil {
		return
	}

	r.mu.RLock()
	tracker, ok := r.trackers[stage]
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		if tracker, ok = r.trackers[stage]; !ok {
			tracker = NewTracker(r.window)
			r.trackers[stage] = tracker
		}
		r.mu.Unlock()
	}

	tracker.Observe(d)
}

// Summaries returns statistics for every stage observed so far.
func (r *Registry) Summaries() map[string]Summary {
	if r == nil {
		return map[string]Summary{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Summary, len(r.trackers))
	for stage, tracker := range r.trackers {
		out[stage] = tracker.Summary()
	}
	return out
}
