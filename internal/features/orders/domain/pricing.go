package domain

import "github.com/shopspring/decimal"

// Pricing holds the shipping rule applied to every order.
type Pricing struct {
	// FreeShippingThreshold is the subtotal from which shipping is free.
	FreeShippingThreshold int64
	// FlatFee is charged below the threshold.
	FlatFee int64
}

// DefaultPricing is the store's standard rule: free shipping from 499, else 50.
var DefaultPricing = Pricing{FreeShippingThreshold: 499, FlatFee: 50}

// Totals are whole currency units.
type Totals struct {
	Subtotal     int64
	ShippingCost int64
	Total        int64
}

// LineTotal is unit price times quantity, unrounded.
func LineTotal(unitPrice decimal.Decimal, quantity int64) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(quantity))
}

// RoundUnits rounds a monetary amount to whole currency units, half away from zero.
func RoundUnits(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// Compute derives the totals of the given lines.
func (p Pricing) Compute(items []LineItem) Totals {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal)
	}
	return p.ForSubtotal(RoundUnits(sum))
}

// ForSubtotal applies the shipping rule to an already rounded subtotal.
func (p Pricing) ForSubtotal(subtotal int64) Totals {
	shipping := p.FlatFee
	if subtotal >= p.FreeShippingThreshold {
		shipping = 0
	}
	return Totals{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Total:        subtotal + shipping,
	}
}
