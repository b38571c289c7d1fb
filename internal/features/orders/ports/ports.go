package ports

import (
	"context"

	customers "fulfillment-engine/internal/features/customers/domain"
	inventory "fulfillment-engine/internal/features/inventory/domain"
	"fulfillment-engine/internal/features/orders/domain"
)

// OrderRepository defines the secondary port for order persistence.
type OrderRepository interface {
	// Create stores a new order. Returns domain.ErrDuplicateOrderNumber when the number is taken.
	Create(ctx context.Context, order *domain.Order) error
	// Get loads an order by internal id or order number.
	Get(ctx context.Context, ref string) (*domain.Order, error)
	// Update replaces the order only if its stored version still equals
	// order.Version and the stored status equals from. On success order.Version
	// is advanced. Returns domain.ErrVersionConflict otherwise.
	Update(ctx context.Context, order *domain.Order, from domain.OrderStatus) error
	// List returns a page of orders matching the filter, newest first.
	List(ctx context.Context, filter domain.ListFilter) ([]domain.Order, int64, error)
}

// InventoryLedger is the subset of the inventory ledger used by orders.
type InventoryLedger interface {
	Resolve(ctx context.Context, ref string) (*inventory.Product, error)
	Reserve(ctx context.Context, reservationID, productID string, quantity int64) (int64, error)
	CancelReservation(ctx context.Context, reservationID string) ([]inventory.Allocation, error)
	CommitReservation(ctx context.Context, reservationID string) error
	ReleaseAll(ctx context.Context, allocations []inventory.Allocation) ([]string, error)
}

// CustomerDirectory resolves authenticated callers to their account profile.
type CustomerDirectory interface {
	FindCustomer(ctx context.Context, id string) (*customers.Customer, error)
}

// EventEmitter hands committed domain events to the notification pipeline.
// Emit must not block.
type EventEmitter interface {
	Emit(eventType string, payload any)
}
