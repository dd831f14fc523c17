package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clientcheck/followup-platform/cmd/mainconfig"
	"github.com/clientcheck/followup-platform/internal/api/router"
	appbootstrap "github.com/clientcheck/followup-platform/internal/app/bootstrap"
	"github.com/clientcheck/followup-platform/internal/auth"
	"github.com/clientcheck/followup-platform/internal/callevents"
	appconfig "github.com/clientcheck/followup-platform/internal/config"
	"github.com/clientcheck/followup-platform/internal/followup"
	"github.com/clientcheck/followup-platform/internal/monitoring"
	"github.com/clientcheck/followup-platform/internal/notify"
	"github.com/clientcheck/followup-platform/internal/observability/metrics"
	"github.com/clientcheck/followup-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting followup-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewFollowupMetrics(nil)

	redisClient := appbootstrap.BuildRedisClient(ctx, cfg, logger, true)
	store := appbootstrap.BuildMonitoringStore(redisClient, cfg)
	if store == nil {
		logger.Error("monitoring state unavailable: redis is required")
		os.Exit(1)
	}

	verifier := auth.NewVerifier(cfg.SessionJWTSecret)
	lifecycle := appbootstrap.BuildLifecycleManager(store, cfg, logger)
	gateway := appbootstrap.BuildNotifyGateway(cfg, m, logger)

	var ingestHandler *callevents.Handler
	if gateway != nil {
		prompter := followup.NewPrompter(store, gateway, m, logger)
		window := callevents.NewDedupWindow(cfg.DedupRetention)
		ingestor := callevents.NewIngestor(window, prompter, m, logger)
		ingestHandler = callevents.NewHandler(ingestor, logger)
	} else {
		logger.Warn("call-event ingest disabled: no notification gateway")
	}

	var actionQueue *followup.Publisher
	var inlineWorker *followup.Worker
	if cfg.UseMemoryQueue {
		memQueue := followup.NewMemoryQueue(256)
		actionQueue = followup.NewPublisher(memQueue)
		inlineWorker = buildInlineWorker(cfg, memQueue, store, verifier, gateway, m, logger)
	} else {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		sqsClient := sqs.NewFromConfig(awsCfg)
		actionQueue = followup.NewPublisher(followup.NewSQSQueue(sqsClient, cfg.ActionQueueURL))
	}

	actionHandler := followup.NewHandler(actionQueue, logger)
	monitoringHandler := monitoring.NewHandler(store, lifecycle, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		IngestHandler:      ingestHandler,
		ActionHandler:      actionHandler,
		MonitoringHandler:  monitoringHandler,
		SessionVerifier:    verifier,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSOrigins(),
		IngestRatePerSec:   10,
		IngestBurst:        50,
	})

	if inlineWorker != nil {
		inlineWorker.Start(ctx)
		logger.Info("inline followup worker started", "workers", cfg.WorkerCount)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if inlineWorker != nil {
		inlineWorker.Wait()
	}

	logger.Info("server stopped")
}

// buildInlineWorker runs the decision pipeline inside the API process for
// local development with the in-memory queue.
func buildInlineWorker(
	cfg *appconfig.Config,
	queue *followup.MemoryQueue,
	store *monitoring.Store,
	verifier *auth.Verifier,
	gateway *notify.Gateway,
	m *metrics.FollowupMetrics,
	logger *logging.Logger,
) *followup.Worker {
	platformClient := appbootstrap.BuildPlatformClient(cfg, logger)
	dispatcher := appbootstrap.BuildDispatcher(cfg, m, logger)
	if platformClient == nil || gateway == nil || dispatcher == nil {
		logger.Warn("inline followup worker disabled: missing platform, push, or dispatch wiring")
		return nil
	}

	pipeline := followup.NewPipeline(
		verifier,
		store,
		platformClient,
		platformClient,
		gateway,
		dispatcher,
		m,
		logger,
	)
	return followup.NewWorker(queue, pipeline, logger).WithWorkers(cfg.WorkerCount)
}
