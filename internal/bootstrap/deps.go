// Package bootstrap wires configuration, connections, adapters and services
// into a runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/DaveBieleveld/TrackTime365/adapter/in/worker"
	"github.com/DaveBieleveld/TrackTime365/adapter/out/graph"
	"github.com/DaveBieleveld/TrackTime365/adapter/out/persistence"
	"github.com/DaveBieleveld/TrackTime365/config"
	syncsvc "github.com/DaveBieleveld/TrackTime365/core/service/sync"
	"github.com/DaveBieleveld/TrackTime365/core/service/timezone"
	"github.com/DaveBieleveld/TrackTime365/infra/database"
	"github.com/DaveBieleveld/TrackTime365/pkg/logger"
	"github.com/DaveBieleveld/TrackTime365/pkg/metrics"
	"github.com/DaveBieleveld/TrackTime365/pkg/runlock"
)

// Dependencies holds every wired component of the application.
type Dependencies struct {
	Config *config.Config

	Pool  *pgxpool.Pool
	DB    *sqlx.DB
	Redis *redis.Client

	GraphClient *graph.Client
	Directory   *graph.DirectoryAdapter
	Calendar    *graph.CalendarAdapter
	Events      *persistence.EventAdapter

	SyncService  *syncsvc.Service
	QueryService *syncsvc.QueryService
	Stats        *metrics.Registry
	Runner       *worker.Runner
}

// NewDependencies builds the full dependency graph. The returned cleanup
// closes every connection it opened.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	logger.Init(logger.Config{
		Level:   logger.ParseLevel(cfg.LogLevel),
		Service: "tracktime365",
	})
	log := logger.Default()

	pool, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db, err := database.NewSQLX(cfg.DatabaseURL)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to open sqlx handle: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := persistence.EnsureSchema(ctx, db); err != nil {
		db.Close()
		pool.Close()
		return nil, nil, err
	}

	// Redis is optional: without it the run lock degrades to in-process.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, sync lock degrades to in-process: %v", err)
			redisClient = nil
		}
	}

	graphClient := graph.NewClient(&graph.Config{
		TenantID:     cfg.GraphTenantID,
		ClientID:     cfg.GraphClientID,
		ClientSecret: cfg.GraphClientSecret,
		Logger:       log,
	})
	directory := graph.NewDirectoryAdapter(graphClient)
	calendar := graph.NewCalendarAdapter(graphClient)
	events := persistence.NewEventAdapter(db)

	resolver := timezone.NewResolver(&timezone.Config{Logger: log})
	normalizer := syncsvc.NewNormalizer(resolver)

	stats := metrics.NewRegistry(metrics.DefaultWindow)
	syncService := syncsvc.NewService(directory, calendar, events, normalizer, log, stats, cfg.SyncWindowDays)
	queryService := syncsvc.NewQueryService(events)

	var lock *runlock.Lock
	if redisClient != nil {
		lock = runlock.New(redisClient, lockToken(), time.Duration(cfg.RunLockTTLMin)*time.Minute)
	}

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "sync-runner").Logger()

	runner := worker.NewRunner(
		syncService,
		lock,
		time.Duration(cfg.SyncIntervalMin)*time.Minute,
		time.Duration(cfg.ErrorCooldownSec)*time.Second,
		zlog,
	)

	deps := &Dependencies{
		Config:       cfg,
		Pool:         pool,
		DB:           db,
		Redis:        redisClient,
		GraphClient:  graphClient,
		Directory:    directory,
		Calendar:     calendar,
		Events:       events,
		SyncService:  syncService,
		QueryService: queryService,
		Stats:        stats,
		Runner:       runner,
	}

	cleanup := func() {
		db.Close()
		pool.Close()
		if redisClient != nil {
			redisClient.Close()
		}
	}
	return deps, cleanup, nil
}

// lockToken identifies this instance as the sync lock holder.
func lockToken() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "tracktime365"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}
