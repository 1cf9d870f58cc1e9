package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/foodflow/internal/cart"
	"github.com/joao-fontenele/foodflow/internal/catalog"
	"github.com/joao-fontenele/foodflow/internal/config"
	"github.com/joao-fontenele/foodflow/internal/messaging"
	"github.com/joao-fontenele/foodflow/internal/orders"
	"github.com/joao-fontenele/foodflow/internal/telemetry"
)

const serviceVersion = "0.1.0"

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load("8081")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.PostgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}
	if cfg.CatalogServiceURL == "" {
		logger.Error("CATALOG_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "orders", serviceVersion, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("orders", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	dsn, err := cfg.DSN("orders")
	if err != nil {
		logger.Error("invalid database url", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", dsn, telemetry.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := telemetry.WaitForDB(ctx, db, 10, 2*time.Second); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	orderMetrics, err := telemetry.NewOrderMetrics()
	if err != nil {
		logger.Error("failed to create order metrics", "error", err)
		os.Exit(1)
	}

	var publisher orders.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers)
		defer func() { _ = producer.Close() }()
		publisher = producer
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events will not be published")
	}

	httpClient := &http.Client{
		Timeout:   5 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	catalogClient := catalog.NewClient(cfg.CatalogServiceURL, httpClient)

	var pricing orders.Pricing = orders.NoPricing{}
	if cfg.DeliveryFee > 0 || !cfg.TaxRate.IsZero() {
		pricing = orders.FlatPricing{DeliveryFee: cfg.DeliveryFee, TaxRate: cfg.TaxRate}
	}

	cartService := cart.NewService(cart.NewRepository(db), catalogClient, logger)
	ledger := orders.NewOrderRepository(db, cfg.OrderNumberPrefix)
	checkout := orders.NewCheckoutService(ledger, catalogClient, cartService, pricing, publisher, orderMetrics, logger)
	fulfillment := orders.NewFulfillmentService(ledger, publisher, orderMetrics, cfg.EstimatedDeliveryOffset, logger)

	mux := telemetry.NewRouteMux()
	orders.NewHandler(checkout, fulfillment, ledger, logger).Register(mux)
	cart.NewHandler(cartService, logger).Register(mux)
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(mux, "orders",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting orders service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
