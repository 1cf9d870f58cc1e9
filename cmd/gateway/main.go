package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/foodflow/internal/config"
	"github.com/joao-fontenele/foodflow/internal/gateway"
	"github.com/joao-fontenele/foodflow/internal/identity"
	"github.com/joao-fontenele/foodflow/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load("8080")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.OrdersServiceURL == "" {
		logger.Error("ORDERS_SERVICE_URL is required")
		os.Exit(1)
	}
	if cfg.CatalogServiceURL == "" {
		logger.Error("CATALOG_SERVICE_URL is required")
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "gateway", "0.1.0", cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("gateway", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	ordersProxy := gateway.NewServiceProxy(cfg.OrdersServiceURL, httpClient)
	catalogProxy := gateway.NewServiceProxy(cfg.CatalogServiceURL, httpClient)
	handler := gateway.NewHandler(ordersProxy, catalogProxy, logger)
	auth := gateway.NewAuthenticator(cfg.JWTSecret, logger)

	authenticated := auth.Require()
	staff := auth.Require(identity.RoleAdmin, identity.RoleRestaurant)
	orders := authenticated(http.HandlerFunc(handler.HandleOrders))

	mux := telemetry.NewRouteMux()
	for _, pattern := range []string{
		"GET /orders",
		"POST /orders",
		"GET /orders/mine",
		"GET /orders/stats",
		"GET /orders/{id}",
		"PUT /orders/{id}/cancel",
		"PUT /orders/{id}/status",
		"GET /cart",
		"DELETE /cart",
		"GET /cart/summary",
		"POST /cart/items",
		"PUT /cart/items/{id}",
		"DELETE /cart/items/{id}",
	} {
		mux.HandleFunc(pattern, orders.ServeHTTP)
	}
	mux.HandleFunc("GET /catalog", handler.HandleCatalog)
	mux.HandleFunc("GET /catalog/{itemId}", handler.HandleCatalog)
	mux.HandleFunc("PUT /catalog/{itemId}/availability", staff(http.HandlerFunc(handler.HandleCatalog)).ServeHTTP)
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(mux, "gateway",
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
		logger.Info("starting gateway service", "port", cfg.Port)
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
