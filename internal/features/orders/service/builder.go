package service

import (
	"context"
	"fmt"
	"time"

	"fulfillment-engine/internal/core/logger"
	inventory "fulfillment-engine/internal/features/inventory/domain"
	"fulfillment-engine/internal/features/orders/domain"
	"fulfillment-engine/internal/features/orders/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Owner describes who an order is placed for.
type Owner struct {
	// CustomerID is the account id; empty for guests.
	CustomerID string
	Guest      bool
	Snapshot   domain.CustomerSnapshot
}

// Builder validates a checkout request and assembles an uncommitted order.
// It reads the catalog but never changes stock.
type Builder struct {
	ledger         ports.InventoryLedger
	pricing        domain.Pricing
	defaultCountry string
	now            func() time.Time
}

// NewBuilder creates a new Builder.
func NewBuilder(ledger ports.InventoryLedger, pricing domain.Pricing, defaultCountry string) *Builder {
	return &Builder{
		ledger:         ledger,
		pricing:        pricing,
		defaultCountry: defaultCountry,
		now:            time.Now,
	}
}

// Build returns a pending order priced from the current catalog.
// The stock check here is advisory; reservation is what enforces availability.
func (b *Builder) Build(ctx context.Context, req CheckoutRequest, owner Owner) (*domain.Order, error) {
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}

	address := req.ShippingAddress
	if address.Country == "" {
		address.Country = b.defaultCountry
	}
	if err := address.Validate(); err != nil {
		return nil, err
	}

	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	items := make([]domain.LineItem, 0, len(req.Items))
	requested := make(map[string]int64, len(req.Items))
	for _, item := range req.Items {
		product, err := b.ledger.Resolve(ctx, item.ProductRef)
		if err != nil {
			return nil, err
		}
		if !product.Active {
			return nil, fmt.Errorf("product %s: %w", item.ProductRef, inventory.ErrProductNotFound)
		}

		requested[product.ID] += item.Quantity
		if requested[product.ID] > product.Stock {
			return nil, &inventory.InsufficientStockError{
				ProductID: product.ID,
				Name:      product.Name,
				Requested: requested[product.ID],
				Available: product.Stock,
			}
		}

		if item.ClientPrice != nil && !item.ClientPrice.Equal(product.Price) {
			logger.Get().Warn("Client price differs from catalog price",
				zap.String("product_id", product.ID),
				zap.String("client_price", item.ClientPrice.String()),
				zap.String("catalog_price", product.Price.String()),
			)
		}

		items = append(items, domain.LineItem{
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductImage: product.Image,
			Quantity:     item.Quantity,
			UnitPrice:    product.Price,
			LineTotal:    domain.LineTotal(product.Price, item.Quantity),
		})
	}

	totals := b.pricing.Compute(items)
	warnOnClientTotals(req.ClientTotals, totals)

	payment := domain.PaymentCompleted
	if owner.Guest {
		payment = domain.PaymentPending
	}

	now := b.now().UTC()
	return &domain.Order{
		ID:              uuid.NewString(),
		OrderNumber:     domain.NewOrderNumber(now),
		CustomerID:      owner.CustomerID,
		IsGuest:         owner.Guest,
		Customer:        owner.Snapshot,
		Items:           items,
		Subtotal:        totals.Subtotal,
		ShippingCost:    totals.ShippingCost,
		Total:           totals.Total,
		ShippingAddress: address,
		Status:          domain.StatusPending,
		PaymentStatus:   payment,
		PaymentMethod:   method,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func validateItems(items []ItemRequest) error {
	if len(items) == 0 {
		return domain.Invalid("order must contain at least one item")
	}
	for i, item := range items {
		if item.ProductRef == "" {
			return domain.Invalid("item %d: product id is required", i+1)
		}
		if item.Quantity < 1 {
			return domain.Invalid("item %d: quantity must be at least 1", i+1)
		}
	}
	return nil
}

// warnOnClientTotals logs totals sent by the client that disagree with the
// server computation. The server values always win.
func warnOnClientTotals(client ClientTotals, server domain.Totals) {
	fields := []struct {
		name string
		got  *decimal.Decimal
		want int64
	}{
		{"subtotal", client.Subtotal, server.Subtotal},
		{"shipping_cost", client.ShippingCost, server.ShippingCost},
		{"total", client.Total, server.Total},
	}
	for _, f := range fields {
		if f.got == nil {
			continue
		}
		if got := domain.RoundUnits(*f.got); got != f.want {
			logger.Get().Warn("Client total differs from computed total",
				zap.String("field", f.name),
				zap.Int64("client", got),
				zap.Int64("computed", f.want),
			)
		}
	}
}
