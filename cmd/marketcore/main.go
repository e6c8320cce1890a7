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
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kelseyhightower/envconfig"

	"github.com/dev-analyshd/main-albash-sub001/internal/audit"
	auditapi "github.com/dev-analyshd/main-albash-sub001/internal/audit/api"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/database"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/events"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/middleware"
	natsclient "github.com/dev-analyshd/main-albash-sub001/internal/common/nats"
	"github.com/dev-analyshd/main-albash-sub001/internal/payments"
	paymentsapi "github.com/dev-analyshd/main-albash-sub001/internal/payments/api"
	"github.com/dev-analyshd/main-albash-sub001/internal/swaps"
	swapsapi "github.com/dev-analyshd/main-albash-sub001/internal/swaps/api"
	"github.com/dev-analyshd/main-albash-sub001/internal/verification"
	verificationapi "github.com/dev-analyshd/main-albash-sub001/internal/verification/api"
)

// Config holds service configuration
type Config struct {
	Port        int    `envconfig:"MARKETCORE_PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	// SweepInterval is how often the expiry and auto-refund sweeps run.
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`

	Database     database.Config
	NATS         natsclient.Config
	Fees         payments.FeeSchedule
	Swaps        swaps.Policy
	Verification verification.Policy
}

func main() {
	// Load configuration
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to process config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)

	// Create context that listens for shutdown signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Run migrations before opening the pool
	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(cfg.Database, logger); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	// Connect to database
	db, err := database.New(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to NATS
	nc, err := natsclient.New(ctx, cfg.NATS, logger)
	if err != nil {
		logger.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()

	if _, err := nc.EnsureStream(ctx, natsclient.DefaultStreamConfig("MARKETPLACE", []string{
		events.SubjectSwapUpdate,
		events.SubjectVerificationUpdate,
		events.SubjectPaymentMethods,
		events.SubjectAuditAppended,
	})); err != nil {
		logger.Error("failed to ensure event stream", "error", err)
		os.Exit(1)
	}

	publisher := natsclient.NewPublisher(nc, logger)

	// Create stores
	auditStore := audit.NewPostgresStore(db)
	methodStore := payments.NewPostgresMethodStore(db)
	swapStore := swaps.NewPostgresStore(db)
	verificationStore := verification.NewPostgresStore(db)

	// Create services
	calculator := payments.NewCalculator(cfg.Fees)
	paymentsService := payments.NewService(methodStore, calculator, publisher, logger)
	swapsService := swaps.NewService(swapStore, auditStore, publisher, cfg.Swaps, logger)
	verificationService := verification.NewService(verificationStore, auditStore, publisher, cfg.Verification, logger)

	// Create handlers
	paymentsHandler := paymentsapi.NewHandler(paymentsService)
	swapsHandler := swapsapi.NewHandler(swapsService)
	verificationHandler := verificationapi.NewHandler(verificationService)
	auditHandler := auditapi.NewHandler(auditStore)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.ActorExtractor)
	r.Use(chimw.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		if err := nc.HealthCheck(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Ready check
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.RequireTenant).Mount("/payments", paymentsHandler.Routes())
		r.With(middleware.RequireTenant).Mount("/swaps", swapsHandler.Routes())
		r.With(middleware.RequireTenant).Mount("/verification", verificationHandler.Routes())
		r.With(middleware.RequireTenant).Mount("/audit", auditHandler.Routes())
	})

	// Background sweeps: expire stale proposals, refund stale disputes
	go runSweeps(ctx, swapsService, cfg.SweepInterval, logger)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting marketcore service",
			"port", cfg.Port,
			"environment", cfg.Environment,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown
	<-ctx.Done()

	// Graceful shutdown
	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

// runSweeps drives the periodic swap maintenance jobs until ctx ends.
func runSweeps(ctx context.Context, svc *swaps.Service, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.ExpirePending(ctx); err != nil {
				logger.Error("expiry sweep failed", "error", err)
			}
			if _, err := svc.AutoRefundDisputes(ctx); err != nil {
				logger.Error("auto-refund sweep failed", "error", err)
			}
		}
	}
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
