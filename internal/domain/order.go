package domain

import (
	"fmt"
	"math"
	"time"
)

// MaxQuantity bounds the quantity of a single cart or order line.
const MaxQuantity = 1000

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodWallet PaymentMethod = "wallet"
)

// ParsePaymentMethod defaults an empty method to cash.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case "":
		return PaymentMethodCash, nil
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodWallet:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown payment method %q", ErrValidation, s)
	}
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

type OrderLine struct {
	ID       int64  `json:"id"`
	OrderID  int64  `json:"order_id"`
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Subtotal int64  `json:"subtotal"`
}

type Order struct {
	ID                  int64         `json:"id"`
	OrderNumber         string        `json:"order_number"`
	UserID              string        `json:"user_id"`
	RestaurantID        int64         `json:"restaurant_id"`
	Status              OrderStatus   `json:"status"`
	PaymentMethod       PaymentMethod `json:"payment_method"`
	PaymentStatus       PaymentStatus `json:"payment_status"`
	Subtotal            int64         `json:"subtotal"`
	DeliveryFee         int64         `json:"delivery_fee"`
	TaxAmount           int64         `json:"tax_amount"`
	DiscountAmount      int64         `json:"discount_amount"`
	Total               int64         `json:"total"`
	DeliveryAddress     string        `json:"delivery_address"`
	Phone               string        `json:"phone"`
	Notes               string        `json:"notes,omitempty"`
	DriverID            string        `json:"driver_id,omitempty"`
	EstimatedDeliveryAt *time.Time    `json:"estimated_delivery_at,omitempty"`
	DeliveredAt         *time.Time    `json:"delivered_at,omitempty"`
	CancelledAt         *time.Time    `json:"cancelled_at,omitempty"`
	CancelReason        string        `json:"cancel_reason,omitempty"`
	Lines               []OrderLine   `json:"items"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// RecomputeTotals derives every line subtotal, the order subtotal and the
// total from the lines and the three adjustment fields.
func (o *Order) RecomputeTotals() {
	var subtotal int64
	for i := range o.Lines {
		o.Lines[i].Subtotal = o.Lines[i].Price * int64(o.Lines[i].Quantity)
		subtotal += o.Lines[i].Subtotal
	}
	o.Subtotal = subtotal
	o.Total = subtotal + o.DeliveryFee + o.TaxAmount - o.DiscountAmount
}

// Validate checks that the stored totals agree with the lines.
func (o *Order) Validate() error {
	var subtotal int64
	for _, line := range o.Lines {
		if line.Quantity < 1 || line.Quantity > MaxQuantity {
			return fmt.Errorf("order %d line %s: quantity %d outside 1..%d", o.ID, line.ItemID, line.Quantity, MaxQuantity)
		}
		if line.Price < 0 {
			return fmt.Errorf("order %d line %s: negative price %d", o.ID, line.ItemID, line.Price)
		}
		if line.Price > math.MaxInt64/int64(line.Quantity) {
			return fmt.Errorf("order %d line %s: price %d x %d overflows", o.ID, line.ItemID, line.Price, line.Quantity)
		}
		if line.Subtotal != line.Price*int64(line.Quantity) {
			return fmt.Errorf("order %d line %s: subtotal %d != %d x %d", o.ID, line.ItemID, line.Subtotal, line.Price, line.Quantity)
		}
		if subtotal > math.MaxInt64-line.Subtotal {
			return fmt.Errorf("order %d: subtotal overflows", o.ID)
		}
		subtotal += line.Subtotal
	}
	if o.Subtotal != subtotal {
		return fmt.Errorf("order %d: subtotal %d != sum of lines %d", o.ID, o.Subtotal, subtotal)
	}
	if want := subtotal + o.DeliveryFee + o.TaxAmount - o.DiscountAmount; o.Total != want {
		return fmt.Errorf("order %d: total %d != %d", o.ID, o.Total, want)
	}
	return nil
}
