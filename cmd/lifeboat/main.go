// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

// Package main is the entry point for the Lifeboat server.
//
// Lifeboat takes full, incremental and differential backups of a
// directory, keeps them under a retention policy that never breaks a
// restore chain, restores them on demand and rehearses disaster recovery
// plans as drills.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, config file, then LIFEBOAT_* environment (Koanf v2)
//  2. Catalog: BadgerDB (or in-memory) store of backup metadata
//  3. Storage: filesystem or S3 payloads behind retries and a circuit breaker
//  4. Backup engine: executor, validator, restorer and retention
//  5. Scheduler, drill planner and health monitor
//  6. Notifications: log plus optional Watermill GoChannel or NATS sink
//  7. HTTP Server: REST API under /api/v1 with Prometheus metrics
//
// Long-running work runs under a suture supervisor tree:
//
//	lifeboat
//	├── engine-layer   scheduler ticker, backup drain
//	├── monitor-layer  health checker
//	└── api-layer      http-api
//
// # Signal Handling
//
// SIGINT and SIGTERM stop the HTTP server, wait for running backups and
// restores to finish, and close the catalog.
//
// # Example Usage
//
//	export LIFEBOAT_SOURCE_DIR=/srv/app/data
//	export LIFEBOAT_ENCRYPTION_KEY=$(openssl rand -base64 32)
//	./lifeboat
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/lifeboat/internal/api"
	"github.com/tomtom215/lifeboat/internal/backup"
	"github.com/tomtom215/lifeboat/internal/config"
	"github.com/tomtom215/lifeboat/internal/drplan"
	"github.com/tomtom215/lifeboat/internal/health"
	"github.com/tomtom215/lifeboat/internal/logging"
	"github.com/tomtom215/lifeboat/internal/models"
	"github.com/tomtom215/lifeboat/internal/notify"
	"github.com/tomtom215/lifeboat/internal/schedule"
	"github.com/tomtom215/lifeboat/internal/source"
	"github.com/tomtom215/lifeboat/internal/supervisor"
	"github.com/tomtom215/lifeboat/internal/supervisor/services"
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("catalog", cfg.Catalog.Driver).
		Str("storage", cfg.Storage.Driver).
		Str("source", cfg.Source.Directory).
		Msg("Starting Lifeboat with supervisor tree")

	cat, err := openCatalog(cfg.Catalog)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open catalog")
	}
	defer func() {
		if err := cat.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing catalog")
		}
	}()

	store, err := openStorage(cfg.Storage)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open storage")
	}

	enc, err := openEncryptor(cfg.Encryption)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize encryption")
	}
	if enc == nil {
		logging.Warn().Msg("No encryption key configured (LIFEBOAT_ENCRYPTION_KEY); backups are stored in plaintext")
	}

	src, err := source.NewDirectory(cfg.Source.Directory, cfg.Source.SchemaVersion, cfg.Restore.DefaultTarget)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open data source")
	}

	notifier, err := notify.New(notify.Config{
		Driver:        cfg.Notify.Driver,
		NATSURL:       cfg.Notify.NATSURL,
		Topic:         cfg.Notify.Topic,
		RatePerMinute: cfg.Notify.RatePerMinute,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize notifications")
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing notifier")
		}
	}()

	retention := backup.NewRetention(cat, store, cfg.Retention.MinFullBackups)
	validator := backup.NewValidator(store)
	executor := backup.NewExecutor(backup.Config{
		DefaultRetentionDays: cfg.Backup.DefaultRetentionDays,
		Encrypt:              cfg.Backup.Encrypt && enc != nil,
		Creator:              cfg.Backup.Creator,
	}, cat, store, src, enc, retention)
	restorer := backup.NewRestorer(cat, store, src, enc, validator, retention)

	// Records a previous process left in flight can never finish.
	if n, err := executor.RecoverInterrupted(context.Background()); err != nil {
		logging.Fatal().Err(err).Msg("Failed to recover interrupted backups")
	} else if n > 0 {
		logging.Warn().Int("backups", n).Msg("Marked interrupted backups as failed")
	}

	// Scheduled runs are reported by the scheduler itself.
	executor.SetOnBackupFailed(func(rec *models.BackupRecord, cause error) {
		if rec.ScheduleID != "" {
			return
		}
		msg := "backup " + rec.Name + " (" + rec.ID + ") failed: " + cause.Error()
		if err := notifier.Send(context.Background(), models.AlertBackupFailed, msg); err != nil {
			logging.Warn().Err(err).Msg("Failed to send backup failure notification")
		}
	})

	loc, err := cfg.Schedule.Location()
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid schedule timezone")
	}
	scheduler := schedule.New(schedule.Config{
		DefaultWeekday: time.Weekday(cfg.Schedule.DefaultWeekday),
		Location:       loc,
		MaxConcurrent:  cfg.Schedule.MaxConcurrent,
	}, cat, schedule.ExecutorBackups(executor), retention, notifier)

	scripts, err := openScripts(cfg.Drill)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open drill script directory")
	}
	planner := drplan.New(drplan.Config{StepTimeout: cfg.Drill.StepTimeout}, cat, scripts, drplan.Builtins{
		Backups:  executor,
		Verifier: validator,
		Restorer: restorer,
	}, notifier)

	monitor := health.New(health.Config{
		Lookback:             cfg.Health.Lookback,
		CapacityBytes:        cfg.Health.CapacityBytes,
		CapacityWarnFraction: cfg.Health.CapacityWarnFraction,
	}, cat, store, notifier)

	handler := api.NewHandler(api.Deps{
		Catalog:   cat,
		Executor:  executor,
		Restorer:  restorer,
		Validator: validator,
		Retention: retention,
		Scheduler: scheduler,
		Planner:   planner,
		Monitor:   monitor,
	})
	mwConfig := api.DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Server.RateLimitReqs
	mwConfig.RateLimitWindow = cfg.Server.RateLimitWindow
	router := api.NewRouter(handler, mwConfig)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		// Synchronous restores and drills may run well past the read timeout.
		WriteTimeout: 0,
		IdleTimeout:  2 * time.Minute,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddEngineService(services.NewTickerService("scheduler", cfg.Schedule.TickInterval, true,
		func(ctx context.Context) error {
			res, err := scheduler.Tick(ctx)
			if err != nil {
				return err
			}
			if len(res.Fired) > 0 {
				logging.Ctx(ctx).Info().
					Strs("fired", res.Fired).
					Strs("failed", res.Failed).
					Msg("Scheduler tick")
			}
			return nil
		}))
	tree.AddEngineService(services.NewDrainService("backup-drain", 25*time.Second,
		func(ctx context.Context) error {
			err := executor.Shutdown(ctx)
			if werr := scheduler.Wait(ctx); werr != nil && err == nil {
				err = werr
			}
			restorer.Wait()
			return err
		}))
	tree.AddMonitorService(services.NewTickerService("health-monitor", cfg.Health.Interval, true, monitor.Check))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("Lifeboat stopped")
}
