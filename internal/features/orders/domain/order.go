package domain

import (
	"fmt"
	"math/rand/v2"
	"time"

	inventory "fulfillment-engine/internal/features/inventory/domain"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the fulfillment state of an order.
type OrderStatus string

const (
	// StatusPending is the initial state: stock is reserved, awaiting review.
	StatusPending OrderStatus = "pending"
	// StatusApproved indicates an admin accepted the order.
	StatusApproved OrderStatus = "approved"
	// StatusRejected indicates an admin refused the order; stock was returned.
	StatusRejected OrderStatus = "rejected"
	// StatusShipped indicates the order has been handed to the carrier.
	StatusShipped OrderStatus = "shipped"
	// StatusDelivered indicates the order reached the customer.
	StatusDelivered OrderStatus = "delivered"
	// StatusCancelled indicates the order was withdrawn; stock was returned.
	StatusCancelled OrderStatus = "cancelled"
)

// IsTerminal reports whether no further transition leaves this status.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusDelivered || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// PaymentStatus is tracked independently from fulfillment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "cod"
	PaymentUPI  PaymentMethod = "upi"
	PaymentCard PaymentMethod = "card"
)

// ParsePaymentMethod validates a payment method, defaulting to cash on delivery.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch PaymentMethod(raw) {
	case "":
		return PaymentCOD, nil
	case PaymentCOD, PaymentUPI, PaymentCard:
		return PaymentMethod(raw), nil
	}
	return "", Invalid("invalid payment method %q: must be cod, upi or card", raw)
}

// CustomerSnapshot is the contact record frozen on the order at creation.
type CustomerSnapshot struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ShippingAddress is where the order is delivered. Immutable after creation.
type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// Validate requires street, city, state and zip code.
func (a ShippingAddress) Validate() error {
	if a.Street == "" || a.City == "" || a.State == "" || a.ZipCode == "" {
		return Invalid("complete shipping address is required")
	}
	return nil
}

// LineItem is one product on an order with its price snapshotted at order time.
type LineItem struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage string          `json:"product_image"`
	Quantity     int64           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// Order is the aggregate root. Items, address and totals never change after
// creation; only the status and the audit fields do.
type Order struct {
	// ID is the internal identifier.
	ID string `json:"id"`
	// OrderNumber is the unique human-facing number.
	OrderNumber string `json:"order_number"`
	// CustomerID references the account; empty for guest orders.
	CustomerID string `json:"customer_id,omitempty"`
	// IsGuest marks orders placed without an account.
	IsGuest bool `json:"is_guest"`
	// Customer is the denormalized contact record.
	Customer CustomerSnapshot `json:"customer"`
	// Items are the ordered lines.
	Items []LineItem `json:"items"`
	// Subtotal is the rounded sum of line totals.
	Subtotal int64 `json:"subtotal"`
	// ShippingCost is zero above the free shipping threshold.
	ShippingCost int64 `json:"shipping_cost"`
	// Total is Subtotal + ShippingCost.
	Total int64 `json:"total"`

	ShippingAddress ShippingAddress `json:"shipping_address"`

	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentMethod PaymentMethod `json:"payment_method"`

	ApprovedBy  string     `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	AdminNotes  string     `json:"admin_notes,omitempty"`
	CancelledBy string     `json:"cancelled_by,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version is the optimistic concurrency token maintained by the repository.
	Version int64 `json:"-"`
}

// Allocations lists the stock held by the order, one entry per line.
func (o *Order) Allocations() []inventory.Allocation {
	out := make([]inventory.Allocation, 0, len(o.Items))
	for _, item := range o.Items {
		out = append(out, inventory.Allocation{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

// BelongsTo reports whether the order was placed by the given account.
func (o *Order) BelongsTo(customerID string) bool {
	return !o.IsGuest && customerID != "" && o.CustomerID == customerID
}

// NewOrderNumber generates a human-facing order number.
// Uniqueness is enforced by the repository; callers retry on collision.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%04d", now.UnixMilli(), rand.IntN(10000))
}
