package service

import (
	"context"
	"errors"
	"testing"
	"time"

	inventory "fulfillment-engine/internal/features/inventory/domain"
	"fulfillment-engine/internal/features/orders/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func product(id, code, name, price string, stock int64) *inventory.Product {
	return &inventory.Product{
		ID:     id,
		Code:   code,
		Name:   name,
		Image:  "https://img.example/" + code + ".jpg",
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Active: true,
	}
}

func validAddress() domain.ShippingAddress {
	return domain.ShippingAddress{Street: "12 MG Road", City: "Pune", State: "MH", ZipCode: "411001"}
}

func TestBuilder_Build(t *testing.T) {
	ctx := context.Background()
	guest := Owner{Guest: true, Snapshot: domain.CustomerSnapshot{Name: "Asha", Email: "asha@example.com"}}
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	newBuilder := func(ledger *MockLedger) *Builder {
		b := NewBuilder(ledger, domain.DefaultPricing, "India")
		b.now = func() time.Time { return fixed }
		return b
	}

	t.Run("Prices lines from the catalog", func(t *testing.T) {
		ledger := new(MockLedger)
		ledger.On("Resolve", ctx, "FP001").Return(product("p1", "FP001", "Rice Flour", "85", 50), nil)
		ledger.On("Resolve", ctx, "RS002").Return(product("p2", "RS002", "Roasted Rava", "75.50", 65), nil)

		order, err := newBuilder(ledger).Build(ctx, CheckoutRequest{
			Items: []ItemRequest{
				{ProductRef: "FP001", Quantity: 2, ClientPrice: ptr(decimal.NewFromInt(1))},
				{ProductRef: "RS002", Quantity: 1},
			},
			ShippingAddress: validAddress(),
		}, guest)

		require.NoError(t, err)
		assert.NotEmpty(t, order.ID)
		assert.Regexp(t, `^ORD-\d+-\d{4}$`, order.OrderNumber)
		assert.Equal(t, domain.StatusPending, order.Status)
		assert.Equal(t, domain.PaymentPending, order.PaymentStatus)
		assert.Equal(t, domain.PaymentCOD, order.PaymentMethod)
		assert.True(t, order.IsGuest)
		assert.Equal(t, "India", order.ShippingAddress.Country)
		assert.Equal(t, fixed, order.CreatedAt)

		require.Len(t, order.Items, 2)
		assert.Equal(t, "p1", order.Items[0].ProductID)
		assert.Equal(t, "Rice Flour", order.Items[0].ProductName)
		assert.True(t, order.Items[0].UnitPrice.Equal(decimal.NewFromInt(85)))
		assert.True(t, order.Items[0].LineTotal.Equal(decimal.NewFromInt(170)))

		// 170 + 75.5 = 245.5 rounds to 246, below the threshold
		assert.Equal(t, int64(246), order.Subtotal)
		assert.Equal(t, int64(50), order.ShippingCost)
		assert.Equal(t, int64(296), order.Total)
		ledger.AssertExpectations(t)
	})

	t.Run("Authenticated orders are paid", func(t *testing.T) {
		ledger := new(MockLedger)
		ledger.On("Resolve", ctx, "FP001").Return(product("p1", "FP001", "Rice Flour", "85", 50), nil)

		order, err := newBuilder(ledger).Build(ctx, CheckoutRequest{
			Items:           []ItemRequest{{ProductRef: "FP001", Quantity: 6}},
			ShippingAddress: validAddress(),
			PaymentMethod:   "card",
		}, Owner{CustomerID: "u1"})

		require.NoError(t, err)
		assert.False(t, order.IsGuest)
		assert.Equal(t, "u1", order.CustomerID)
		assert.Equal(t, domain.PaymentCompleted, order.PaymentStatus)
		assert.Equal(t, domain.PaymentCard, order.PaymentMethod)
		assert.Equal(t, int64(510), order.Subtotal)
		assert.Equal(t, int64(0), order.ShippingCost)
	})

	t.Run("Validation errors", func(t *testing.T) {
		tests := []struct {
			name string
			req  CheckoutRequest
		}{
			{"No items", CheckoutRequest{ShippingAddress: validAddress()}},
			{"Missing product", CheckoutRequest{Items: []ItemRequest{{Quantity: 1}}, ShippingAddress: validAddress()}},
			{"Zero quantity", CheckoutRequest{Items: []ItemRequest{{ProductRef: "FP001"}}, ShippingAddress: validAddress()}},
			{"Incomplete address", CheckoutRequest{Items: []ItemRequest{{ProductRef: "FP001", Quantity: 1}}, ShippingAddress: domain.ShippingAddress{Street: "x"}}},
			{"Bad payment method", CheckoutRequest{Items: []ItemRequest{{ProductRef: "FP001", Quantity: 1}}, ShippingAddress: validAddress(), PaymentMethod: "cheque"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				ledger := new(MockLedger)
				_, err := newBuilder(ledger).Build(ctx, tt.req, guest)

				assert.ErrorIs(t, err, domain.ErrValidation)
				ledger.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("Unknown product", func(t *testing.T) {
		ledger := new(MockLedger)
		ledger.On("Resolve", ctx, "NOPE").Return(nil, inventory.ErrProductNotFound)

		_, err := newBuilder(ledger).Build(ctx, CheckoutRequest{
			Items:           []ItemRequest{{ProductRef: "NOPE", Quantity: 1}},
			ShippingAddress: validAddress(),
		}, guest)

		assert.ErrorIs(t, err, inventory.ErrProductNotFound)
	})

	t.Run("Inactive product", func(t *testing.T) {
		p := product("p1", "FP001", "Rice Flour", "85", 50)
		p.Active = false
		ledger := new(MockLedger)
		ledger.On("Resolve", ctx, "FP001").Return(p, nil)

		_, err := newBuilder(ledger).Build(ctx, CheckoutRequest{
			Items:           []ItemRequest{{ProductRef: "FP001", Quantity: 1}},
			ShippingAddress: validAddress(),
		}, guest)

		assert.ErrorIs(t, err, inventory.ErrProductNotFound)
	})

	t.Run("Advisory stock check sums repeated lines", func(t *testing.T) {
		ledger := new(MockLedger)
		ledger.On("Resolve", ctx, "FP001").Return(product("p1", "FP001", "Rice Flour", "85", 3), nil)

		_, err := newBuilder(ledger).Build(ctx, CheckoutRequest{
			Items:           []ItemRequest{{ProductRef: "FP001", Quantity: 2}, {ProductRef: "FP001", Quantity: 2}},
			ShippingAddress: validAddress(),
		}, guest)

		var stockErr *inventory.InsufficientStockError
		require.True(t, errors.As(err, &stockErr))
		assert.Equal(t, "Rice Flour", stockErr.Name)
		assert.Equal(t, int64(4), stockErr.Requested)
		assert.Equal(t, int64(3), stockErr.Available)
	})
}

func ptr[T any](v T) *T {
	return &v
}
