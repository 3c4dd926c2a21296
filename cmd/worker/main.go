package main

import (
	"affiliate/infra"
	"affiliate/infra/rabbitmq"
	"affiliate/internal/consumers"
	"affiliate/pkg/config"
	"affiliate/pkg/docstore"
	"affiliate/pkg/events"
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// poolReporter is implemented by the SQL backends.
type poolReporter interface {
	PoolStats() sql.DBStats
}

func main() {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, _ := zapConfig.Build()
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	zap.L().Info("Affiliate click worker starting...")

	appConfig := config.Read()
	zap.L().Info("Worker config loaded",
		zap.String("serviceName", appConfig.ServiceName),
		zap.String("storeDriver", appConfig.StoreDriver),
	)

	if appConfig.RabbitMQURL == "" {
		zap.L().Fatal("RABBITMQ_URL is required for worker service")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := infra.OpenBackend(ctx, appConfig)
	if err != nil {
		zap.L().Fatal("Worker needs a document store", zap.Error(err))
	}
	store := docstore.New(backend)
	defer store.Close()

	clickHandler := consumers.NewClickEventHandler(store)

	clickConsumer, err := rabbitmq.NewConsumer(appConfig.RabbitMQURL, rabbitmq.ConsumerConfig{
		Exchange:       events.ClickExchange,
		QueueName:      appConfig.ServiceName + ".click.recorded.v1",
		RoutingKeys:    []string{events.ClickRecordedEvent + "." + events.EventVersionV1},
		ServiceName:    appConfig.ServiceName,
		PrefetchCount:  20,
		WorkerPoolSize: 8,
	})
	if err != nil {
		zap.L().Fatal("Failed to create click consumer", zap.Error(err))
	}
	defer clickConsumer.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		zap.L().Info("Starting click event consumer...")
		if err := clickConsumer.Consume(ctx, clickHandler.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			zap.L().Error("Click consumer error", zap.Error(err))
			select {
			case sigChan <- syscall.SIGTERM:
			default:
			}
		}
	}()

	if reporter, ok := backend.(poolReporter); ok {
		go monitorPool(ctx, reporter)
	}

	zap.L().Info("Worker service started successfully. Waiting for events...",
		zap.String("exchange", events.ClickExchange),
	)

	<-sigChan
	zap.L().Info("Shutdown signal received, stopping worker service...")
	cancel()

	// Clicks being stored finish before the consumer and store close.
	<-consumerDone

	zap.L().Info("Worker service stopped gracefully")
}

func monitorPool(ctx context.Context, reporter poolReporter) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := reporter.PoolStats()
			zap.L().Info("Connection pool stats",
				zap.Int("max_open", stats.MaxOpenConnections),
				zap.Int("open", stats.OpenConnections),
				zap.Int("in_use", stats.InUse),
				zap.Int("idle", stats.Idle),
				zap.Int64("wait_count", stats.WaitCount),
				zap.Int64("wait_duration_ms", stats.WaitDuration.Milliseconds()),
			)
		}
	}
}
