package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bulkwave/bulkwave-backend/internal/config"
	"github.com/bulkwave/bulkwave-backend/internal/db"
	"github.com/bulkwave/bulkwave-backend/internal/dispatch"
	"github.com/bulkwave/bulkwave-backend/internal/events"
	"github.com/bulkwave/bulkwave-backend/internal/handler"
	"github.com/bulkwave/bulkwave-backend/internal/observability"
	"github.com/bulkwave/bulkwave-backend/internal/repository"
	"github.com/bulkwave/bulkwave-backend/internal/scheduler"
	"github.com/bulkwave/bulkwave-backend/internal/sender"
	"github.com/bulkwave/bulkwave-backend/internal/service"
)

func main() {
	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("starting bulkwave server")

	// Load .env if present, then configuration from the environment
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Connect to database
	database, err := db.New(cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	logger.Info("connected to database")

	// Delivery event publisher
	var publisher events.Publisher
	if cfg.Events.Enabled {
		publisher, err = events.NewRedisPublisher(events.RedisConfig{
			URL:    cfg.Events.RedisURL,
			Stream: cfg.Events.Stream,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		publisher = events.NewNoopPublisher()
		logger.Info("delivery event publishing disabled")
	}
	defer publisher.Close()

	// Metrics
	registry := prometheus.NewRegistry()
	observability.Register(registry)

	// Repositories
	messageRepo := repository.NewMessageRepository(database.DB)
	campaignRepo := repository.NewCampaignRepository(database.DB)
	contactRepo := repository.NewContactRepository(database.DB)
	accountRepo := repository.NewAccountRepository(database.DB)
	scheduleRepo := repository.NewScheduleRepository(database.DB)

	// Outbound channel: mock transport behind pacing and a circuit breaker
	channel := sender.NewThrottledChannel(
		sender.NewMockChannel(cfg.Sender.MockSuccessRate),
		sender.ThrottledConfig{
			RatePerSecond: cfg.Sender.RatePerSecond,
			Burst:         cfg.Sender.Burst,
		},
	)

	// Dispatch engine
	templateSvc := service.NewTemplateService()
	engine := dispatch.NewEngine(
		dispatch.Config{
			TickInterval: cfg.Dispatch.TickInterval,
			PerTickCap:   cfg.Dispatch.PerTickCap,
			BatchLimit:   cfg.Dispatch.BatchLimit,
			BackoffBase:  cfg.Dispatch.BackoffBase,
			WindowLength: cfg.Dispatch.WindowLength,
		},
		messageRepo,
		campaignRepo,
		contactRepo,
		templateSvc,
		channel,
		publisher,
		logger,
	)
	defer engine.Stop()

	// Recurring trigger scheduler
	sched := scheduler.New(
		scheduler.Config{
			AccountFanOut:   cfg.Scheduler.AccountFanOut,
			DefaultTimezone: cfg.Scheduler.DefaultTimezone,
		},
		scheduleRepo,
		campaignRepo,
		accountRepo,
		engine,
		logger,
	)
	if err := sched.Start(context.Background()); err != nil {
		logger.Error("failed to start scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sched.Stop()

	// Services and handlers
	progressSvc := service.NewProgressService(messageRepo, campaignRepo, engine, logger)

	dispatchHandler := handler.NewDispatchHandler(
		engine, campaignRepo, accountRepo, messageRepo, progressSvc, cfg.Scheduler.AccountFanOut, logger)
	scheduleHandler := handler.NewScheduleHandler(sched, logger)
	healthHandler := handler.NewHealthHandler(database, publisher, logger)

	// Router
	r := chi.NewRouter()
	r.Use(handler.RecoveryMiddleware(logger))
	r.Use(handler.LoggingMiddleware(logger))
	r.Use(handler.CORSMiddleware)

	r.Get("/health", healthHandler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/campaigns", func(r chi.Router) {
		r.Post("/{id}/dispatch", dispatchHandler.DispatchCampaign)
		r.Get("/{id}/progress", dispatchHandler.CampaignProgress)
	})

	r.Get("/messages", dispatchHandler.ListMessages)
	r.Post("/messages/direct", dispatchHandler.DirectSend)
	r.Get("/dispatch/status", dispatchHandler.QueueStatus)

	r.Route("/schedules", func(r chi.Router) {
		r.Post("/", scheduleHandler.CreateSchedule)
		r.Get("/", scheduleHandler.ListSchedules)
		r.Get("/stats", scheduleHandler.SchedulerStats)
		r.Get("/{id}", scheduleHandler.GetSchedule)
		r.Patch("/{id}", scheduleHandler.UpdateSchedule)
		r.Delete("/{id}", scheduleHandler.DeleteSchedule)
	})

	// Server
	addr := fmt.Sprintf(":%d", cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API server listening", slog.String("addr", addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)

	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown failed", slog.String("error", err.Error()))
			os.Exit(1)
		}

		logger.Info("server stopped gracefully")
	}
}
