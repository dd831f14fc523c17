package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/clientcheck/followup-platform/cmd/mainconfig"
	appbootstrap "github.com/clientcheck/followup-platform/internal/app/bootstrap"
	"github.com/clientcheck/followup-platform/internal/audit"
	"github.com/clientcheck/followup-platform/internal/auth"
	appconfig "github.com/clientcheck/followup-platform/internal/config"
	"github.com/clientcheck/followup-platform/internal/followup"
	"github.com/clientcheck/followup-platform/internal/observability/metrics"
	"github.com/clientcheck/followup-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting followup worker", "env", cfg.Env)

	if cfg.UseMemoryQueue {
		logger.Error("followup worker cannot run when USE_MEMORY_QUEUE=true; run inline workers via the API process instead")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewFollowupMetrics(nil)

	redisClient := appbootstrap.BuildRedisClient(ctx, cfg, logger, true)
	store := appbootstrap.BuildMonitoringStore(redisClient, cfg)
	if store == nil {
		logger.Error("monitoring state unavailable: redis is required")
		os.Exit(1)
	}

	gateway := appbootstrap.BuildNotifyGateway(cfg, m, logger)
	if gateway == nil {
		logger.Error("push subsystem is required: set PUSH_BASE_URL")
		os.Exit(1)
	}
	platformClient := appbootstrap.BuildPlatformClient(cfg, logger)
	if platformClient == nil {
		logger.Error("platform backend is required: set PLATFORM_BASE_URL")
		os.Exit(1)
	}
	dispatcher := appbootstrap.BuildDispatcher(cfg, m, logger)

	awsConfig, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	sqsClient := sqs.NewFromConfig(awsConfig)
	queue := followup.NewSQSQueue(sqsClient, cfg.ActionQueueURL)

	pipeline := followup.NewPipeline(
		auth.NewVerifier(cfg.SessionJWTSecret),
		store,
		platformClient,
		platformClient,
		gateway,
		dispatcher,
		m,
		logger,
	)

	var retryWriter *audit.RetryWriter
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		outbox := audit.NewStore(pool)
		pipeline = pipeline.WithOutbox(outbox)
		retryWriter = audit.NewRetryWriter(outbox, platformClient, logger).
			WithMaxAttempts(cfg.OutboxMaxAttempts).
			WithBaseDelay(cfg.OutboxBaseDelay).
			WithInterval(cfg.OutboxInterval)
	} else {
		logger.Warn("audit outbox disabled: DATABASE_URL not set")
	}

	worker := followup.NewWorker(queue, pipeline, logger).WithWorkers(cfg.WorkerCount)
	worker.Start(ctx)
	if retryWriter != nil {
		go retryWriter.Run(ctx)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down followup worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("followup worker stopped")
	case <-doneCtx.Done():
		logger.Error("followup worker shutdown timed out", "error", doneCtx.Err())
	}
}
