package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitMeterProvider initializes the Prometheus exporter and MeterProvider
// and starts Go runtime metrics collection.
// It returns an http.Handler for the /metrics endpoint and a shutdown function.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	mp := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(15 * time.Second)); err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, nil, err
	}

	return promhttp.Handler(), mp.Shutdown, nil
}

// OrderMetrics records checkout and fulfillment outcomes. Instruments come
// from the global MeterProvider, so they are no-ops until one is installed.
type OrderMetrics struct {
	placed      otelmetric.Int64Counter
	failures    otelmetric.Int64Counter
	transitions otelmetric.Int64Counter
}

func NewOrderMetrics() (*OrderMetrics, error) {
	meter := otel.Meter("foodflow/orders")

	placed, err := meter.Int64Counter("orders.placed",
		otelmetric.WithDescription("Orders committed by checkout"))
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("orders.checkout.failures",
		otelmetric.WithDescription("Checkout attempts rejected or rolled back"))
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter("orders.transitions",
		otelmetric.WithDescription("Order status transitions committed"))
	if err != nil {
		return nil, err
	}

	return &OrderMetrics{placed: placed, failures: failures, transitions: transitions}, nil
}

func (m *OrderMetrics) OrderPlaced(ctx context.Context, restaurantID int64) {
	if m == nil {
		return
	}
	m.placed.Add(ctx, 1, otelmetric.WithAttributes(attribute.Int64("restaurant_id", restaurantID)))
}

func (m *OrderMetrics) CheckoutFailed(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("reason", reason)))
}

func (m *OrderMetrics) Transitioned(ctx context.Context, to string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("to", to)))
}
