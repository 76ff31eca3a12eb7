// adpulse-orchestrator is the analytics assistant service: a Temporal
// worker running the analytics workflow plus the HTTP API that fronts
// it.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/adpulse-labs/orchestrator/internal/activities"
	"github.com/adpulse-labs/orchestrator/internal/config"
	"github.com/adpulse-labs/orchestrator/internal/constants"
	"github.com/adpulse-labs/orchestrator/internal/db"
	"github.com/adpulse-labs/orchestrator/internal/health"
	"github.com/adpulse-labs/orchestrator/internal/httpapi"
	"github.com/adpulse-labs/orchestrator/internal/reasoning"
	"github.com/adpulse-labs/orchestrator/internal/registry"
	"github.com/adpulse-labs/orchestrator/internal/server"
	"github.com/adpulse-labs/orchestrator/internal/session"
	"github.com/adpulse-labs/orchestrator/internal/specialists"
	"github.com/adpulse-labs/orchestrator/internal/streaming"
	"github.com/adpulse-labs/orchestrator/internal/temporal"
	"github.com/adpulse-labs/orchestrator/internal/warehouse"
	"github.com/adpulse-labs/orchestrator/internal/workflows"
)

const shutdownGrace = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "adpulse-orchestrator: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting adpulse-orchestrator",
		zap.String("temporal", cfg.Temporal.HostPort),
		zap.Int("http_port", cfg.Server.Port),
	)

	// Sessions ride Redis behind a circuit breaker; the same wrapper
	// backs the warehouse query cache.
	sessions, err := session.NewManager(session.Config{
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		TTL:           cfg.Redis.SessionTTL,
		MaxCached:     cfg.Redis.MaxCached,
	}, logger)
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}
	defer func() { _ = sessions.Close() }()

	wh, err := warehouse.NewClient(warehouse.Config{
		Host:            cfg.Warehouse.Host,
		Port:            cfg.Warehouse.Port,
		User:            cfg.Warehouse.User,
		Password:        cfg.Warehouse.Password,
		Database:        cfg.Warehouse.Database,
		SSLMode:         cfg.Warehouse.SSLMode,
		MaxConnections:  cfg.Warehouse.MaxConnections,
		IdleConnections: cfg.Warehouse.IdleConnections,
		MaxLifetime:     cfg.Warehouse.MaxLifetime,
		QueryTimeout:    cfg.Warehouse.QueryTimeout,
		CacheTTL:        cfg.Warehouse.CacheTTL,
	}, sessions.RedisWrapper(), logger)
	if err != nil {
		return fmt.Errorf("warehouse client: %w", err)
	}
	defer func() { _ = wh.Close() }()

	engine, err := reasoning.NewAnthropicEngine(reasoning.AnthropicConfig{
		APIKey:      cfg.Anthropic.APIKey,
		Model:       cfg.Anthropic.Model,
		MaxTokens:   cfg.Anthropic.MaxTokens,
		Temperature: cfg.Anthropic.Temperature,
		Timeout:     cfg.Anthropic.Timeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("reasoning engine: %w", err)
	}

	reg := registry.New(logger)
	if err := specialists.RegisterAll(reg, specialists.Deps{
		Warehouse:  wh,
		Engine:     engine,
		Advertiser: cfg.Advertiser,
		Logger:     logger,
	}); err != nil {
		return fmt.Errorf("register specialists: %w", err)
	}

	streams := streaming.NewManager(cfg.Streaming.ReplayCapacity)

	// Run persistence is best-effort: without the store the service
	// still answers queries, it just keeps no audit trail.
	var runs activities.RunRecorder
	runStore, err := db.NewClient(db.Config{
		Host:            cfg.RunStore.Host,
		Port:            cfg.RunStore.Port,
		User:            cfg.RunStore.User,
		Password:        cfg.RunStore.Password,
		Database:        cfg.RunStore.Database,
		SSLMode:         cfg.RunStore.SSLMode,
		MaxConnections:  cfg.RunStore.MaxConnections,
		IdleConnections: cfg.RunStore.IdleConnections,
		MaxLifetime:     cfg.RunStore.MaxLifetime,
	}, logger)
	if err != nil {
		logger.Warn("Run store unavailable, continuing without run history", zap.Error(err))
		runStore = nil
	} else {
		runs = runStore
		defer func() { _ = runStore.Close() }()
	}

	acts := activities.NewActivities(reg, engine, sessions, streams, runs, logger)

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporal.NewLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("temporal dial: %w", err)
	}
	defer temporalClient.Close()

	taskQueue := cfg.Temporal.TaskQueue
	if taskQueue == "" {
		taskQueue = constants.AnalyticsTaskQueue
	}

	w := worker.New(temporalClient, taskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(workflows.AnalyticsWorkflow, workflow.RegisterOptions{
		Name: constants.AnalyticsWorkflowName,
	})
	registerActivities(w, acts)

	if err := w.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	defer w.Stop()

	checks := buildHealthManager(logger, sessions, wh, runStore)

	svc := server.NewService(temporalClient, sessions, taskQueue, logger)
	mux := http.NewServeMux()
	httpapi.NewChatHandler(svc, sessions, streams, logger).RegisterRoutes(mux)
	httpapi.NewSessionHandler(sessions, logger).RegisterRoutes(mux)
	httpapi.NewStreamHandler(streams, logger).RegisterRoutes(mux)
	health.NewHTTPHandler(checks, logger).RegisterRoutes(mux)

	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("HTTP API listening", zap.String("addr", apiServer.Addr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		logger.Info("Metrics listening", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
	return nil
}

func registerActivities(w worker.Worker, acts *activities.Activities) {
	w.RegisterActivityWithOptions(acts.RouteQuery, activity.RegisterOptions{Name: constants.RouteQueryActivity})
	w.RegisterActivityWithOptions(acts.ExecuteSpecialist, activity.RegisterOptions{Name: constants.ExecuteSpecialistActivity})
	w.RegisterActivityWithOptions(acts.DiagnoseFindings, activity.RegisterOptions{Name: constants.DiagnoseFindingsActivity})
	w.RegisterActivityWithOptions(acts.GenerateRecommendations, activity.RegisterOptions{Name: constants.GenerateRecommendationsActivity})
	w.RegisterActivityWithOptions(acts.UpdateSessionResult, activity.RegisterOptions{Name: constants.UpdateSessionResultActivity})
	w.RegisterActivityWithOptions(acts.RecordWorkflowRun, activity.RegisterOptions{Name: constants.RecordWorkflowRunActivity})
	w.RegisterActivityWithOptions(acts.EmitProgress, activity.RegisterOptions{Name: constants.EmitProgressActivity})
}

func buildHealthManager(logger *zap.Logger, sessions *session.Manager, wh *warehouse.Client, runStore *db.Client) *health.Manager {
	m := health.NewManager(logger)
	_ = m.Register(health.NewRedisChecker(sessions.RedisWrapper()))
	_ = m.Register(health.NewPingChecker("warehouse", true, wh))
	if runStore != nil {
		_ = m.Register(health.NewPingChecker("run_store", false, runStore))
	}
	return m
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
