package domain

import "time"

type CartLine struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	RestaurantID int64     `json:"restaurant_id"`
	ItemID       string    `json:"item_id"`
	Quantity     int       `json:"quantity"`
	Instructions string    `json:"instructions,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CartItemView is a cart line priced with live catalog data, unlike the
// snapshot stored on an OrderLine.
type CartItemView struct {
	CartLine
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Available bool   `json:"available"`
	Subtotal  int64  `json:"subtotal"`
}

type Cart struct {
	UserID string         `json:"user_id"`
	Items  []CartItemView `json:"items"`
	Total  int64          `json:"total"`
	Count  int            `json:"count"`
}
