package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/joao-fontenele/foodflow/internal/catalog"
	"github.com/joao-fontenele/foodflow/internal/domain"
	"github.com/joao-fontenele/foodflow/internal/telemetry"
)

var tracer = otel.Tracer("foodflow/orders")

// EventPublisher is satisfied by messaging.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

// CartSource yields a user's cart lines for one restaurant.
type CartSource interface {
	LinesForRestaurant(ctx context.Context, userID string, restaurantID int64) ([]domain.CartLine, error)
}

type LineRequest struct {
	ItemID   string
	Quantity int
}

// PlaceOrderRequest carries no prices; they always come from the catalog.
type PlaceOrderRequest struct {
	UserID          string
	RestaurantID    int64
	Lines           []LineRequest
	DeliveryAddress string
	Phone           string
	PaymentMethod   string
	Notes           string
}

// DeliveryDetails is the part of a PlaceOrderRequest that does not come
// from the cart.
type DeliveryDetails struct {
	DeliveryAddress string
	Phone           string
	PaymentMethod   string
	Notes           string
}

type CheckoutService struct {
	ledger    Ledger
	catalog   catalog.Reader
	carts     CartSource
	pricing   Pricing
	publisher EventPublisher
	metrics   *telemetry.OrderMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewCheckoutService wires checkout. publisher and metrics may be nil.
func NewCheckoutService(ledger Ledger, reader catalog.Reader, carts CartSource, pricing Pricing,
	publisher EventPublisher, metrics *telemetry.OrderMetrics, logger *slog.Logger) *CheckoutService {
	if pricing == nil {
		pricing = NoPricing{}
	}
	return &CheckoutService{
		ledger:    ledger,
		catalog:   reader,
		carts:     carts,
		pricing:   pricing,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With("component", "checkout"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder prices the requested lines from the catalog and commits the
// order. Either the order and all its lines are stored or nothing is. The
// cart is left untouched.
func (s *CheckoutService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "checkout.place_order")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", req.UserID),
		attribute.Int64("restaurant.id", req.RestaurantID),
		attribute.Int("order.line_count", len(req.Lines)),
	)

	order, err := s.placeOrder(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.CheckoutFailed(ctx, failureReason(err))
		return nil, err
	}

	span.SetAttributes(attribute.String("order.number", order.OrderNumber))
	s.metrics.OrderPlaced(ctx, order.RestaurantID)
	s.logger.Info("order placed",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"user_id", order.UserID,
		"total", order.Total,
	)

	s.publishPlaced(ctx, order)
	return order, nil
}

// PlaceOrderFromCart checks out the user's cart lines for one restaurant.
func (s *CheckoutService) PlaceOrderFromCart(ctx context.Context, userID string, restaurantID int64, details DeliveryDetails) (*domain.Order, error) {
	if s.carts == nil {
		return nil, fmt.Errorf("%w: cart checkout is not available", domain.ErrValidation)
	}

	cartLines, err := s.carts.LinesForRestaurant(ctx, userID, restaurantID)
	if err != nil {
		return nil, err
	}
	if len(cartLines) == 0 {
		return nil, fmt.Errorf("%w: cart has no items for restaurant %d", domain.ErrValidation, restaurantID)
	}

	lines := make([]LineRequest, 0, len(cartLines))
	for _, line := range cartLines {
		lines = append(lines, LineRequest{ItemID: line.ItemID, Quantity: line.Quantity})
	}

	return s.PlaceOrder(ctx, PlaceOrderRequest{
		UserID:          userID,
		RestaurantID:    restaurantID,
		Lines:           lines,
		DeliveryAddress: details.DeliveryAddress,
		Phone:           details.Phone,
		PaymentMethod:   details.PaymentMethod,
		Notes:           details.Notes,
	})
}

func (s *CheckoutService) placeOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	method, err := validatePlaceOrder(req)
	if err != nil {
		return nil, err
	}

	merged := mergeLines(req.Lines)
	for _, line := range merged {
		if line.Quantity > domain.MaxQuantity {
			return nil, fmt.Errorf("%w: item %s total quantity %d exceeds %d",
				domain.ErrValidation, line.ItemID, line.Quantity, domain.MaxQuantity)
		}
	}

	lines, err := s.resolveLines(ctx, req.RestaurantID, merged)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &domain.Order{
		UserID:          req.UserID,
		RestaurantID:    req.RestaurantID,
		Status:          domain.OrderStatusPending,
		PaymentMethod:   method,
		PaymentStatus:   domain.PaymentStatusPending,
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		Phone:           strings.TrimSpace(req.Phone),
		Notes:           strings.TrimSpace(req.Notes),
		Lines:           lines,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	order.RecomputeTotals()

	adj, err := s.pricing.Quote(ctx, order.RestaurantID, order.Subtotal)
	if err != nil {
		return nil, fmt.Errorf("quote order: %w", err)
	}
	order.DeliveryFee = adj.DeliveryFee
	order.TaxAmount = adj.TaxAmount
	order.DiscountAmount = adj.DiscountAmount
	order.RecomputeTotals()

	if err := order.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	if err := s.ledger.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *CheckoutService) resolveLines(ctx context.Context, restaurantID int64, requested []LineRequest) ([]domain.OrderLine, error) {
	lines := make([]domain.OrderLine, 0, len(requested))
	for _, req := range requested {
		item, err := s.catalog.ResolveItem(ctx, req.ItemID)
		if err != nil {
			return nil, err
		}
		if !item.Available {
			return nil, fmt.Errorf("%w: %s", domain.ErrItemUnavailable, item.ID)
		}
		if item.RestaurantID != restaurantID {
			return nil, fmt.Errorf("%w: item %s belongs to restaurant %d, not %d",
				domain.ErrValidation, item.ID, item.RestaurantID, restaurantID)
		}
		lines = append(lines, domain.OrderLine{
			ItemID:   item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: req.Quantity,
		})
	}
	return lines, nil
}

func (s *CheckoutService) publishPlaced(ctx context.Context, order *domain.Order) {
	if s.publisher == nil {
		return
	}
	event := domain.OrderPlacedEvent{
		EventID:      uuid.NewString(),
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		UserID:       order.UserID,
		RestaurantID: order.RestaurantID,
		Total:        order.Total,
		Items:        order.Lines,
		Timestamp:    order.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, domain.TopicOrderPlaced, orderKey(order.ID), event); err != nil {
		s.logger.Error("failed to publish order placed event", "error", err, "order_id", order.ID)
	}
}

func validatePlaceOrder(req PlaceOrderRequest) (domain.PaymentMethod, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return "", fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if req.RestaurantID <= 0 {
		return "", fmt.Errorf("%w: restaurant id must be positive", domain.ErrValidation)
	}
	if len(req.Lines) == 0 {
		return "", fmt.Errorf("%w: order must contain at least one item", domain.ErrValidation)
	}
	for i, line := range req.Lines {
		if strings.TrimSpace(line.ItemID) == "" {
			return "", fmt.Errorf("%w: item %d has no item id", domain.ErrValidation, i)
		}
		if line.Quantity < 1 || line.Quantity > domain.MaxQuantity {
			return "", fmt.Errorf("%w: item %s quantity must be between 1 and %d",
				domain.ErrValidation, line.ItemID, domain.MaxQuantity)
		}
	}
	if strings.TrimSpace(req.DeliveryAddress) == "" {
		return "", fmt.Errorf("%w: delivery address is required", domain.ErrValidation)
	}
	if strings.TrimSpace(req.Phone) == "" {
		return "", fmt.Errorf("%w: phone is required", domain.ErrValidation)
	}
	return domain.ParsePaymentMethod(req.PaymentMethod)
}

// mergeLines folds repeated item ids into one line, summing quantities and
// keeping the position of the first occurrence.
func mergeLines(lines []LineRequest) []LineRequest {
	merged := make([]LineRequest, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		id := strings.TrimSpace(line.ItemID)
		if i, ok := index[id]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[id] = len(merged)
		merged = append(merged, LineRequest{ItemID: id, Quantity: line.Quantity})
	}
	return merged
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, domain.ErrItemUnavailable):
		return "item_unavailable"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence"
	default:
		return "other"
	}
}

func orderKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
