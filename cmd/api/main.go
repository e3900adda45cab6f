// Package main is the entry point for the Mergington activities API server.
//
// It loads configuration, wires the in-memory stores, the notification
// dispatch pipeline, and the delivery channel (in-process worker pool or
// SQS), builds the HTTP server with the core chassis, and starts listening.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM):
// the HTTP server stops accepting requests, then the notification queue is
// drained before the process exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"

	"mergington/internal/api/handlers"
	"mergington/internal/config"
	"mergington/internal/core"
	"mergington/internal/external"
	"mergington/internal/notify"
	"mergington/internal/notify/email"
	"mergington/internal/prefs"
	"mergington/internal/queue"
	"mergington/internal/roster"
	"mergington/internal/scheduler"
	"mergington/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on
// error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("mergington activities API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
		"queue_mode", cfg.Queue.Mode,
		"email_configured", cfg.Email.Configured(),
	)

	appLogger := &slogAdapter{logger: logger}
	clock := types.RealClock{}

	// Stores and preference pipeline.
	prefsStore := prefs.NewMemoryStore()
	rosterStore := roster.NewMemoryStore(nil)
	evaluator := prefs.NewEvaluator(prefsStore, appLogger)
	resolver := prefs.NewResolver(prefsStore, evaluator)

	// Mail transport.
	provider, err := buildProvider(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("building email provider: %w", err)
	}

	renderer, err := email.NewRenderer()
	if err != nil {
		return fmt.Errorf("loading email templates: %w", err)
	}

	// Telemetry.
	metrics, err := buildMetrics(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("building metrics: %w", err)
	}

	from := types.EmailIdentity{
		Address: cfg.Email.FromAddress,
		Name:    cfg.Email.FromName,
	}
	worker := notify.NewDeliveryWorker(renderer, provider, from, clock, appLogger, metrics)

	// Delivery channel.
	channel, err := buildChannel(cfg, worker, appLogger)
	if err != nil {
		return fmt.Errorf("building notification channel: %w", err)
	}

	dispatcher := notify.NewDispatcher(
		evaluator,
		resolver,
		channel,
		clock,
		appLogger,
		metrics,
		cfg.Server.PortalURL,
	)

	// HTTP chassis.
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	activitiesHandler := handlers.NewActivitiesHandler(rosterStore, dispatcher, srv.Validator, logger)
	preferencesHandler := handlers.NewPreferencesHandler(prefsStore, srv.Validator, logger)
	announcementsHandler := handlers.NewAnnouncementsHandler(rosterStore, prefsStore, dispatcher, renderer, srv.Validator, logger)
	statusHandler := handlers.NewStatusHandler(provider, cfg.Email.Provider, cfg.Queue.Mode)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		func(r chi.Router) { activitiesHandler.RegisterRoutes(r) },
		func(r chi.Router) { preferencesHandler.RegisterRoutes(r) },
		func(r chi.Router) { announcementsHandler.RegisterRoutes(r) },
		func(r chi.Router) { statusHandler.RegisterRoutes(r) },
	)

	srv.HealthProbes = []core.HealthProbe{
		queueProbe{channel: channel},
	}

	srv.MountRoutes()

	// Periodic triggers.
	var runner *scheduler.Runner
	if cfg.Scheduler.Enabled {
		digestSvc := scheduler.NewDigestService(prefsStore, rosterStore, clock, appLogger)
		reminderSvc := scheduler.NewReminderService(prefsStore, evaluator, rosterStore, clock, appLogger)
		runner, err = scheduler.NewRunner(
			digestSvc,
			reminderSvc,
			cfg.Scheduler.Timezone,
			cfg.Scheduler.DigestDay,
			cfg.Scheduler.DigestTime,
			cfg.Scheduler.DailyReminderAt,
			appLogger,
		)
		if err != nil {
			return fmt.Errorf("building scheduler: %w", err)
		}
		runner.Start(context.Background())
	}

	err = runHTTPServer(srv, cfg, logger)

	// Drain the notification queue before exiting so queued confirmations
	// are not lost on restart.
	if runner != nil {
		runner.Stop()
	}
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.ShutdownTimeout)
	defer cancel()
	if closeErr := channel.Close(drainCtx); closeErr != nil {
		logger.Error("notification queue drain failed", "error", closeErr)
	}

	return err
}

// buildProvider selects the EmailProvider from configuration. Without an API
// key the service runs with delivery disabled: dispatches are accepted and
// logged, but every delivery resolves to a not-configured outcome.
func buildProvider(cfg *config.Config, logger types.Logger) (external.EmailProvider, error) {
	if !cfg.Email.Configured() {
		logger.Warn("MAIL_API_KEY is not set; email delivery is disabled")
		return external.DisabledProvider{}, nil
	}

	switch cfg.Email.Provider {
	case "stub":
		return external.NewStubProvider(logger), nil
	case "sendgrid":
		return external.NewSendGridClient(
			cfg.Email.APIKey,
			types.EmailIdentity{Address: cfg.Email.FromAddress, Name: cfg.Email.FromName},
			cfg.Email.SendTimeout,
			logger,
		), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Email.Provider)
	}
}

// buildMetrics returns the CloudWatch metrics implementation when enabled,
// a no-op otherwise.
func buildMetrics(cfg *config.Config, logger types.Logger) (notify.Metrics, error) {
	if !cfg.Observability.EnableMetrics {
		return notify.NoopMetrics{}, nil
	}

	awsCfg, err := loadAWSConfig(cfg)
	if err != nil {
		return nil, err
	}
	return notify.NewCloudWatchMetrics(
		cloudwatch.NewFromConfig(awsCfg),
		cfg.Observability.MetricNamespace,
		logger,
	), nil
}

// buildChannel selects the delivery channel from configuration.
func buildChannel(cfg *config.Config, worker *notify.DeliveryWorker, logger types.Logger) (queue.Channel, error) {
	switch cfg.Queue.Mode {
	case "inproc":
		return queue.NewInProc(worker.Deliver, cfg.Queue.BufferSize, cfg.Queue.WorkerCount, logger), nil
	case "sqs":
		if cfg.AWS.NotificationQueue == "" {
			return nil, fmt.Errorf("SQS_NOTIFICATIONS must be set when QUEUE_MODE=sqs")
		}
		awsCfg, err := loadAWSConfig(cfg)
		if err != nil {
			return nil, err
		}
		return queue.NewSQSChannel(sqs.NewFromConfig(awsCfg), cfg.AWS.NotificationQueue, logger), nil
	default:
		return nil, fmt.Errorf("unknown queue mode %q", cfg.Queue.Mode)
	}
}

func loadAWSConfig(cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	if cfg.AWS.EndpointURL != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
	}
	return awsCfg, nil
}

// queueProbe reports notification channel health by submitting nothing: a
// closed or misconfigured channel rejects immediately, which the probe
// surfaces without enqueueing work.
type queueProbe struct {
	channel queue.Channel
}

func (queueProbe) Name() string { return "notification_queue" }

func (p queueProbe) Check(ctx context.Context) error {
	if p.channel == nil {
		return fmt.Errorf("notification channel is not configured")
	}
	return nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful
// shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})
	return slog.New(handler)
}

// slogAdapter bridges *slog.Logger to the types.Logger interface used by the
// domain packages.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }

func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}
