package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound is returned when neither the catalog code nor the internal id match.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned when a reservation exceeds the available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidQuantity is returned for non-positive reservation quantities.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrReservationClosed is returned when reserving against a reservation that
	// was already committed or rolled back.
	ErrReservationClosed = errors.New("reservation is closed")
)

// Product is the catalog entry as seen by the ledger. Only Stock is mutated here.
type Product struct {
	// ID is the internal identifier.
	ID string `json:"id"`
	// Code is the external catalog code (e.g. "FP001"). May be empty.
	Code string `json:"code,omitempty"`
	// Name is the display name snapshotted into order lines.
	Name string `json:"name"`
	// Image is the product image URL snapshotted into order lines.
	Image string `json:"image"`
	// Price is the current unit price.
	Price decimal.Decimal `json:"price"`
	// Stock is the number of units available for reservation. Never negative.
	Stock int64 `json:"stock"`
	// Active marks products that can still be ordered.
	Active bool `json:"active"`
}

// Validate checks the invariants a stored product must satisfy.
func (p *Product) Validate() error {
	if p.ID == "" {
		return errors.New("product id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("product %s: name is required", p.ID)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("product %s: price cannot be negative", p.ID)
	}
	if p.Stock < 0 {
		return fmt.Errorf("product %s: stock cannot be negative", p.ID)
	}
	return nil
}

// InsufficientStockError carries the detail of a failed reservation.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	label := e.Name
	if label == "" {
		label = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, only %d available", label, e.Requested, e.Available)
}

// Is lets errors.Is match ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Allocation is a quantity of one product held against an order.
type Allocation struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}
