package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"field-tracker/internal/core/config"
	"field-tracker/internal/core/logger"
	"field-tracker/internal/core/server"
	eventadapter "field-tracker/internal/features/events/adapters"
	eventhandler "field-tracker/internal/features/events/handler"
	eventservice "field-tracker/internal/features/events/service"
	perfdomain "field-tracker/internal/features/performance/domain"
	perfhandler "field-tracker/internal/features/performance/handler"
	perfservice "field-tracker/internal/features/performance/service"
	statushandler "field-tracker/internal/features/status/handler"
	statusservice "field-tracker/internal/features/status/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// @title Field Tracker API
// @version 1.0
// @description This API tracks field representatives in real time, derives their operational status and aggregates performance statistics.
// @contact.name API Support
// @contact.email support@fieldtracker.io
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	// Initialize the event store and verify connectivity.
	store, err := eventadapter.NewRedisStore(cfg.RedisURL)
	if err != nil {
		l.Fatal("Failed to create event store", zap.Error(err))
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		l.Fatal("Event store health check failed", zap.Error(err))
	}
	l.Info("Event store connection verified")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Status resolver: event-triggered recomputation plus staleness sweep.
	resolver := statusservice.NewResolver(
		store, store, store,
		time.Duration(cfg.Tracking.StaleMaxAgeHours*float64(time.Hour)),
		time.Duration(cfg.Tracking.SweepIntervalSeconds)*time.Second,
		l.Named("resolver"),
	)
	go resolver.Run(ctx)

	// Event ingest with bounded write retries and the retention sweep.
	ingest := eventservice.NewIngestService(
		store, store, store, resolver,
		cfg.Tracking.IngestRetries,
		time.Duration(cfg.Tracking.IngestBackoffMillis)*time.Millisecond,
		cfg.Tracking.RetentionDays,
		l.Named("ingest"),
	)
	go ingest.RunRetentionSweep(ctx, time.Duration(cfg.Tracking.RetentionSweepMinutes)*time.Minute)

	query := eventservice.NewQueryService(store)

	aggregator := perfservice.NewAggregator(
		store, store,
		time.Duration(cfg.Aggregation.IdleGapHours*float64(time.Hour)),
		time.Duration(cfg.Aggregation.TimeoutSeconds)*time.Second,
		perfdomain.RatingBands{
			Band5: cfg.Aggregation.RatingBand5,
			Band4: cfg.Aggregation.RatingBand4,
			Band3: cfg.Aggregation.RatingBand3,
			Band2: cfg.Aggregation.RatingBand2,
		},
		l.Named("aggregator"),
	)

	ingestHdl := eventhandler.NewIngestHandler(ingest)
	movementsHdl := eventhandler.NewMovementsHandler(query)
	statusHdl := statushandler.NewStatusHandler(resolver)
	perfHdl := perfhandler.NewPerformanceHandler(aggregator)

	srv := server.New(cfg)

	// Register Routes
	srv.App.Post("/events/location", ingestHdl.SubmitLocation)
	srv.App.Post("/events/attendance", ingestHdl.SubmitAttendance)
	srv.App.Post("/events/visit", ingestHdl.SubmitVisit)
	srv.App.Get("/representatives/status", statusHdl.GetBulkStatus)
	srv.App.Get("/representatives/status/stream", statusHdl.StreamStatus)
	srv.App.Get("/representatives/:id/status", statusHdl.GetStatus)
	srv.App.Get("/representatives/:id/movements", movementsHdl.GetMovements)
	srv.App.Get("/representatives/:id/performance", perfHdl.GetPerformance)
	srv.App.Get("/fleet/performance", perfHdl.GetFleetPerformance)
	srv.App.Get("/healthz", func(c *fiber.Ctx) error {
		if err := store.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unhealthy"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	go func() {
		if err := srv.Run(); err != nil {
			l.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	l.Info("Shutting down")

	if err := srv.Shutdown(); err != nil {
		l.Error("Server shutdown failed", zap.Error(err))
	}
	resolver.Stop()
}
