package orders

import (
	"context"

	"github.com/shopspring/decimal"
)

// Adjustments are the non-line components of an order total.
type Adjustments struct {
	DeliveryFee    int64
	TaxAmount      int64
	DiscountAmount int64
}

type Pricing interface {
	Quote(ctx context.Context, restaurantID, subtotal int64) (Adjustments, error)
}

// NoPricing charges nothing beyond the lines.
type NoPricing struct{}

func (NoPricing) Quote(context.Context, int64, int64) (Adjustments, error) {
	return Adjustments{}, nil
}

// FlatPricing adds a fixed delivery fee and a proportional tax on the
// subtotal, rounded to the nearest minor unit with halves away from zero.
type FlatPricing struct {
	DeliveryFee int64
	TaxRate     decimal.Decimal
}

func (p FlatPricing) Quote(_ context.Context, _ int64, subtotal int64) (Adjustments, error) {
	tax := decimal.NewFromInt(subtotal).Mul(p.TaxRate).Round(0)
	return Adjustments{
		DeliveryFee: p.DeliveryFee,
		TaxAmount:   tax.IntPart(),
	}, nil
}
