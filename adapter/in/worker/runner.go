// Package worker drives the periodic sync loop.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/DaveBieleveld/TrackTime365/core/port/in"
	"github.com/DaveBieleveld/TrackTime365/pkg/runlock"
)

// runTimeout bounds a single sync pass.
const runTimeout = 10 * time.Minute

// Runner triggers a sync pass on a fixed interval. Overlap protection is
// two-layered: an in-process flag for this instance and an optional Redis
// lock across instances. A failed run starts a cooldown window during which
// scheduled runs are skipped.
type Runner struct {
	syncer   in.SyncUseCase
	lock     *runlock.Lock
	cron     *cron.Cron
	interval time.Duration
	cooldown time.Duration
	zlog     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	initial       sync.WaitGroup
	running       atomic.Bool
	cooldownUntil time.Time
}

// NewRunner creates the sync loop. lock may be nil when Redis is not
// configured; overlap protection then covers this process only.
func NewRunner(syncer in.SyncUseCase, lock *runlock.Lock, interval, cooldown time.Duration, zlog zerolog.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		syncer:   syncer,
		lock:     lock,
		cron:     cron.New(),
		interval: interval,
		cooldown: cooldown,
		zlog:     zlog,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start runs one pass immediately, then on every interval tick.
func (r *Runner) Start() error {
	spec := fmt.Sprintf("@every %s", r.interval)
	if _, err := r.cron.AddFunc(spec, r.runOnce); err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}

	r.zlog.Info().Str("interval", r.interval.String()).Msg("sync loop starting")
	r.initial.Add(1)
	go func() {
		defer r.initial.Done()
		r.runOnce()
	}()
	r.cron.Start()
	return nil
}

// Stop halts scheduling and waits for an in-flight run to finish, including
// the initial run launched by Start.
func (r *Runner) Stop() {
	r.zlog.Info().Msg("sync loop stopping")
	r.cancel()
	<-r.cron.Stop().Done()
	r.initial.Wait()
}

func (r *Runner) runOnce() {
	if !r.running.CompareAndSwap(false, true) {
		r.zlog.Warn().Msg("previous run still in progress, skipping this tick")
		return
	}
	defer r.running.Store(false)

	if until := r.cooldownUntil; time.Now().Before(until) {
		r.zlog.Warn().Time("until", until).Msg("in error cooldown, skipping this tick")
		return
	}
	if r.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.ctx, runTimeout)
	defer cancel()

	if r.lock != nil {
		if !r.lock.TryAcquire(ctx) {
			r.zlog.Info().Msg("another instance holds the sync lock, skipping this tick")
			return
		}
		defer r.lock.Release(ctx)
	}

	report, err := r.syncer.SyncAround(ctx, time.Now().UTC())
	if err != nil {
		r.cooldownUntil = time.Now().Add(r.cooldown)
		r.zlog.Error().Err(err).
			Time("cooldown_until", r.cooldownUntil).
			Msg("sync run failed")
		return
	}

	r.zlog.Info().
		Str("run_id", report.RunID.String()).
		Int("mailboxes_synced", report.MailboxesSynced).
		Int("mailboxes_total", report.MailboxesTotal).
		Int("events_applied", report.EventsApplied).
		Int("events_rejected", report.EventsRejected).
		Int("failures", len(report.Failures)).
		Dur("duration", report.Duration).
		Msg("sync run completed")
}
