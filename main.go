package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DaveBieleveld/TrackTime365/config"
	"github.com/DaveBieleveld/TrackTime365/internal/bootstrap"
	"github.com/DaveBieleveld/TrackTime365/pkg/logger"

	"github.com/joho/godotenv"
)

const (
	shutdownTimeout = 30 * time.Second // Maximum time to wait for graceful shutdown
	dateLayout      = "2006-01-02"
)

func main() {
	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	date := flag.String("date", "", "Run one sync pass centered on this day (YYYY-MM-DD) and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	deps, cleanup, err := bootstrap.NewDependencies(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize: %v", err)
	}
	defer cleanup()

	if *date != "" {
		runOnce(deps, *date)
		return
	}
	runForever(deps, cfg)
}

// runOnce performs a single sync pass for operators and cron jobs. Exit code
// reflects the run outcome.
func runOnce(deps *bootstrap.Dependencies, date string) {
	center, err := time.Parse(dateLayout, date)
	if err != nil {
		logger.Fatal("Invalid -date %q, expected %s", date, dateLayout)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	report, err := deps.SyncService.SyncAround(ctx, center)
	if err != nil {
		logger.WithError(err).Error("Sync run failed")
		os.Exit(1)
	}
	logger.WithRun(report.RunID.String()).Info(
		"Sync run completed: %d/%d mailboxes, %d events applied, %d rejected",
		report.MailboxesSynced, report.MailboxesTotal,
		report.EventsApplied, report.EventsRejected)
}

// runForever starts the periodic loop and the status server, and blocks
// until a termination signal arrives.
func runForever(deps *bootstrap.Dependencies, cfg *config.Config) {
	if err := deps.Runner.Start(); err != nil {
		logger.Fatal("Failed to start sync loop: %v", err)
	}

	app := bootstrap.NewStatusServer(deps)
	go func() {
		addr := ":" + cfg.StatusPort
		logger.Info("Starting status server on %s", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start status server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down (timeout: %v)...", shutdownTimeout)

	done := make(chan struct{})
	go func() {
		deps.Runner.Stop()
		app.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Shut down gracefully")
	case <-time.After(shutdownTimeout):
		logger.Warn("Shutdown timed out, forcing exit")
		os.Exit(1)
	}
}
