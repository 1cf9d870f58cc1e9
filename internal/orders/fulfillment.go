package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/joao-fontenele/foodflow/internal/domain"
	"github.com/joao-fontenele/foodflow/internal/telemetry"
)

const DefaultEstimatedDeliveryOffset = 45 * time.Minute

type TransitionRequest struct {
	OrderID  int64
	Status   string
	Reason   string
	ActorID  string
	DriverID string
}

type FulfillmentService struct {
	ledger         Ledger
	publisher      EventPublisher
	metrics        *telemetry.OrderMetrics
	logger         *slog.Logger
	deliveryOffset time.Duration
	now            func() time.Time
}

// NewFulfillmentService wires the status controller. A non-positive
// deliveryOffset falls back to DefaultEstimatedDeliveryOffset.
func NewFulfillmentService(ledger Ledger, publisher EventPublisher, metrics *telemetry.OrderMetrics,
	deliveryOffset time.Duration, logger *slog.Logger) *FulfillmentService {
	if deliveryOffset <= 0 {
		deliveryOffset = DefaultEstimatedDeliveryOffset
	}
	return &FulfillmentService{
		ledger:         ledger,
		publisher:      publisher,
		metrics:        metrics,
		logger:         logger.With("component", "fulfillment"),
		deliveryOffset: deliveryOffset,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SetStatus moves an order to req.Status along the lifecycle graph, applying
// the target's side effects in the same transaction as the status write.
func (s *FulfillmentService) SetStatus(ctx context.Context, req TransitionRequest) (*domain.Order, error) {
	to, err := domain.ParseStatus(strings.TrimSpace(req.Status))
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, req.OrderID, to, func(order *domain.Order) (Effects, error) {
		if err := domain.CheckTransition(order.Status, to); err != nil {
			return Effects{}, err
		}
		return s.apply(order, to, req)
	})
}

// CancelOwn lets a customer cancel their own order while it is still
// pending. Orders owned by someone else are reported as not found.
func (s *FulfillmentService) CancelOwn(ctx context.Context, userID string, orderID int64, reason string) (*domain.Order, error) {
	req := TransitionRequest{OrderID: orderID, Reason: reason, ActorID: userID}

	return s.transition(ctx, orderID, domain.OrderStatusCancelled, func(order *domain.Order) (Effects, error) {
		if order.UserID != userID {
			return Effects{}, fmt.Errorf("%w: order %d", domain.ErrNotFound, orderID)
		}
		if err := domain.CheckTransition(order.Status, domain.OrderStatusCancelled); err != nil {
			return Effects{}, err
		}
		if order.Status != domain.OrderStatusPending {
			return Effects{}, fmt.Errorf("%w: only pending orders can be cancelled by the customer, order is %s",
				domain.ErrInvalidStatus, order.Status)
		}
		return s.apply(order, domain.OrderStatusCancelled, req)
	})
}

func (s *FulfillmentService) transition(ctx context.Context, orderID int64, to domain.OrderStatus, apply TransitionFunc) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "fulfillment.set_status")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.status.to", string(to)),
	)

	var from domain.OrderStatus
	order, err := s.ledger.Transition(ctx, orderID, func(order *domain.Order) (Effects, error) {
		from = order.Status
		return apply(order)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("status transition rejected", "order_id", orderID, "to", to, "error", err)
		return nil, err
	}

	span.SetAttributes(attribute.String("order.status.from", string(from)))
	s.metrics.Transitioned(ctx, string(to))
	s.logger.Info("order status changed", "order_id", order.ID, "from", from, "to", to)

	s.publishStatusChanged(ctx, order, from)
	return order, nil
}

// apply mutates the locked order for the target status. Every status is
// listed so adding one forces a decision here.
func (s *FulfillmentService) apply(order *domain.Order, to domain.OrderStatus, req TransitionRequest) (Effects, error) {
	now := s.now()
	effects := Effects{ActorID: req.ActorID, Note: strings.TrimSpace(req.Reason)}

	switch to {
	case domain.OrderStatusConfirmed:
		effects.ClearCart = true
	case domain.OrderStatusPreparing, domain.OrderStatusReady:
	case domain.OrderStatusOutForDelivery:
		eta := now.Add(s.deliveryOffset)
		order.EstimatedDeliveryAt = &eta
		if driverID := strings.TrimSpace(req.DriverID); driverID != "" {
			order.DriverID = driverID
		}
	case domain.OrderStatusDelivered:
		order.DeliveredAt = &now
	case domain.OrderStatusCancelled:
		order.CancelledAt = &now
		if effects.Note != "" {
			order.CancelReason = effects.Note
		}
	case domain.OrderStatusPending:
		return Effects{}, fmt.Errorf("%w: cannot move back to %s", domain.ErrInvalidStatus, to)
	default:
		return Effects{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidStatus, to)
	}

	order.Status = to
	order.UpdatedAt = now
	return effects, nil
}

func (s *FulfillmentService) publishStatusChanged(ctx context.Context, order *domain.Order, from domain.OrderStatus) {
	if s.publisher == nil {
		return
	}
	event := domain.OrderStatusChangedEvent{
		EventID:      uuid.NewString(),
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		UserID:       order.UserID,
		RestaurantID: order.RestaurantID,
		From:         from,
		To:           order.Status,
		Reason:       order.CancelReason,
		Timestamp:    order.UpdatedAt,
	}
	if err := s.publisher.Publish(ctx, domain.TopicOrderStatusChanged, orderKey(order.ID), event); err != nil {
		s.logger.Error("failed to publish status changed event", "error", err, "order_id", order.ID)
	}
}
