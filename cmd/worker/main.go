package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/foodflow/internal/config"
	"github.com/joao-fontenele/foodflow/internal/domain"
	"github.com/joao-fontenele/foodflow/internal/messaging"
	"github.com/joao-fontenele/foodflow/internal/telemetry"
	"github.com/joao-fontenele/foodflow/internal/worker"
)

const groupID = "notification-worker"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load("")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}
	if cfg.EmailServiceURL == "" {
		logger.Error("EMAIL_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "worker", "0.1.0", cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	placedConsumer := messaging.NewConsumer(cfg.KafkaBrokers, domain.TopicOrderPlaced, groupID)
	defer func() { _ = placedConsumer.Close() }()
	statusConsumer := messaging.NewConsumer(cfg.KafkaBrokers, domain.TopicOrderStatusChanged, groupID)
	defer func() { _ = statusConsumer.Close() }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	notificationHandler := worker.NewNotificationHandler(cfg.EmailServiceURL, httpClient, logger)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting notification worker", "brokers", cfg.KafkaBrokers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return placedConsumer.Consume(gctx, notificationHandler.HandleOrderPlaced) })
	g.Go(func() error { return statusConsumer.Consume(gctx, notificationHandler.HandleStatusChanged) })

	if err := g.Wait(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
