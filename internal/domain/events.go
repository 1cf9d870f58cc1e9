package domain

import "time"

const (
	TopicOrderPlaced        = "order.placed"
	TopicOrderStatusChanged = "order.status_changed"
)

type OrderPlacedEvent struct {
	EventID      string      `json:"event_id"`
	OrderID      int64       `json:"order_id"`
	OrderNumber  string      `json:"order_number"`
	UserID       string      `json:"user_id"`
	RestaurantID int64       `json:"restaurant_id"`
	Total        int64       `json:"total"`
	Items        []OrderLine `json:"items"`
	Timestamp    time.Time   `json:"timestamp"`
}

type OrderStatusChangedEvent struct {
	EventID      string      `json:"event_id"`
	OrderID      int64       `json:"order_id"`
	OrderNumber  string      `json:"order_number"`
	UserID       string      `json:"user_id"`
	RestaurantID int64       `json:"restaurant_id"`
	From         OrderStatus `json:"from"`
	To           OrderStatus `json:"to"`
	Reason       string      `json:"reason,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
}
