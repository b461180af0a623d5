package sync

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/DaveBieleveld/TrackTime365/core/domain"
	"github.com/DaveBieleveld/TrackTime365/core/port/in"
	"github.com/DaveBieleveld/TrackTime365/core/port/out"
	"github.com/DaveBieleveld/TrackTime365/pkg/apperr"
	"github.com/DaveBieleveld/TrackTime365/pkg/logger"
	"github.com/DaveBieleveld/TrackTime365/pkg/metrics"
)

// DefaultWindowDays is the half-width of the default sync window.
const DefaultWindowDays = 7

// Service orchestrates one mirror pass: list mailboxes, fetch each mailbox's
// window, normalize, and apply the batch. Failure containment follows the
// error taxonomy: event errors skip the event, mailbox errors skip the
// mailbox, auth and listing errors abort the run.
type Service struct {
	directory  out.DirectoryPort
	calendar   out.CalendarProviderPort
	repo       out.EventRepository
	normalizer *Normalizer
	log        *logger.Logger
	stats      *metrics.Registry
	windowDays int

	lastReport atomic.Pointer[domain.SyncReport]
}

var _ in.SyncUseCase = (*Service)(nil)

// NewService creates the sync orchestrator. windowDays <= 0 selects the
// default window, stats may be nil when timing is not collected.
func NewService(
	directory out.DirectoryPort,
	calendar out.CalendarProviderPort,
	repo out.EventRepository,
	normalizer *Normalizer,
	log *logger.Logger,
	stats *metrics.Registry,
	windowDays int,
) *Service {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		directory:  directory,
		calendar:   calendar,
		repo:       repo,
		normalizer: normalizer,
		log:        log,
		stats:      stats,
		windowDays: windowDays,
	}
}

// SyncAround mirrors a window of windowDays on each side of center.
func (s *Service) SyncAround(ctx context.Context, center time.Time) (*domain.SyncReport, error) {
	return s.SyncWindow(ctx, domain.WindowAround(center, s.windowDays))
}

// SyncWindow runs one full mirror pass over the window.
func (s *Service) SyncWindow(ctx context.Context, window domain.Window) (*domain.SyncReport, error) {
	report := &domain.SyncReport{
		RunID:     uuid.New(),
		Window:    window,
		StartedAt: time.Now().UTC(),
	}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		s.lastReport.Store(report)
		s.stats.Observe(metrics.StageRun, report.Duration)
	}()

	log := s.log.WithRun(report.RunID.String())

	if !window.Valid() {
		return report, apperr.InvalidRange()
	}

	if err := s.directory.Authenticate(ctx); err != nil {
		return report, apperr.AuthFailed(err)
	}

	mailboxes, err := s.directory.ListMailboxes(ctx)
	if err != nil {
		return report, apperr.MailboxListFailed(err)
	}
	report.MailboxesTotal = len(mailboxes)
	log.Info("sync run started: %d mailboxes, window %s to %s",
		len(mailboxes),
		window.Start.Format("2006-01-02"),
		window.End.Format("2006-01-02"))

	for _, mailbox := range mailboxes {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		applied, rejected, err := s.syncMailbox(ctx, mailbox, window)
		report.EventsApplied += applied
		report.EventsRejected += rejected
		if err != nil {
			log.WithMailbox(mailbox.Mail).WithError(err).Error("mailbox sync failed, continuing with next mailbox")
			report.Failures = append(report.Failures, domain.MailboxFailure{
				Mailbox: mailbox.Mail,
				Reason:  err.Error(),
			})
			continue
		}
		report.MailboxesSynced++
	}

	log.Info("sync run finished: %d/%d mailboxes, %d events applied, %d rejected",
		report.MailboxesSynced, report.MailboxesTotal,
		report.EventsApplied, report.EventsRejected)
	return report, nil
}

// LastReport returns the most recent run's report, nil before the first run.
func (s *Service) LastReport() *domain.SyncReport {
	return s.lastReport.Load()
}

// syncMailbox mirrors one mailbox. Rejected events are counted, not fatal;
// fetch and persistence failures fail the mailbox as a whole.
func (s *Service) syncMailbox(ctx context.Context, mailbox domain.Mailbox, window domain.Window) (applied, rejected int, err error) {
	log := s.log.WithMailbox(mailbox.Mail)
	defer func(start time.Time) {
		s.stats.Observe(metrics.StageMailbox, time.Since(start))
	}(time.Now())

	zone, err := s.directory.MailboxTimezone(ctx, mailbox.Mail)
	if err != nil {
		// Not fatal: events carry their own zone labels.
		log.Warn("mailbox timezone lookup failed, using event zones only: %v", err)
		zone = ""
	}

	raws, err := s.calendar.FetchWindow(ctx, mailbox.Mail, window, zone)
	if err != nil {
		return 0, 0, apperr.MailboxFetchFailed(mailbox.Mail, err)
	}

	events := make([]*domain.CalendarEvent, 0, len(raws))
	for _, raw := range raws {
		event, err := s.normalizer.Normalize(ctx, raw, mailbox)
		if err != nil {
			rejected++
			log.Warn("event rejected: %v", err)
			continue
		}
		events = append(events, event)
	}

	if len(events) == 0 {
		log.Info("no events to apply (%d fetched, %d rejected)", len(raws), rejected)
		return 0, rejected, nil
	}

	applied, err = s.repo.UpsertBatch(ctx, events)
	if err != nil {
		return 0, rejected, err
	}

	log.Info("mailbox synced: %d events applied, %d rejected", applied, rejected)
	return applied, rejected, nil
}
