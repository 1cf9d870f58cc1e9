package domain

import "fmt"

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// AllStatuses lists every status in fulfillment order, cancelled last.
var AllStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// forwardTransitions holds the single allowed forward step from each
// non-terminal status. Cancellation is handled separately.
var forwardTransitions = map[OrderStatus]OrderStatus{
	OrderStatusPending:        OrderStatusConfirmed,
	OrderStatusConfirmed:      OrderStatusPreparing,
	OrderStatusPreparing:      OrderStatusReady,
	OrderStatusReady:          OrderStatusOutForDelivery,
	OrderStatusOutForDelivery: OrderStatusDelivered,
}

func ParseStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, s)
	}
	return status, nil
}

func (s OrderStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CheckTransition reports whether an order may move from one status to
// another. Terminal sources fail with ErrTerminalState; every other
// disallowed edge fails with ErrInvalidStatus.
func CheckTransition(from, to OrderStatus) error {
	if from.IsTerminal() {
		return fmt.Errorf("%w: order is %s, cannot move to %s", ErrTerminalState, from, to)
	}
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, from, to)
	}
	if to == OrderStatusCancelled {
		return nil
	}
	if forwardTransitions[from] == to {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, from, to)
}
