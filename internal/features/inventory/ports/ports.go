package ports

import (
	"context"

	"fulfillment-engine/internal/features/inventory/domain"
)

// Catalog resolves product references.
type Catalog interface {
	// Resolve finds a product by catalog code first, then by internal id.
	Resolve(ctx context.Context, ref string) (*domain.Product, error)
}

// Ledger defines the primary port for stock reservation.
// It is the only code path allowed to change a product's stock.
type Ledger interface {
	Catalog
	// Reserve atomically decrements stock if at least quantity units are available
	// and records the units under reservationID.
	Reserve(ctx context.Context, reservationID, productID string, quantity int64) (int64, error)
	// CancelReservation returns every unit recorded under reservationID and closes it.
	// It is idempotent and reports what was released.
	CancelReservation(ctx context.Context, reservationID string) ([]domain.Allocation, error)
	// CommitReservation closes the reservation, leaving the units with the order.
	CommitReservation(ctx context.Context, reservationID string) error
	// ReleaseAll returns every allocation in one atomic step, skipping products
	// that no longer exist. It reports the ids that were skipped.
	ReleaseAll(ctx context.Context, allocations []domain.Allocation) ([]string, error)
}

// ProductStore defines the secondary port backing the ledger.
type ProductStore interface {
	FindByCode(ctx context.Context, code string) (*domain.Product, error)
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	// DecrementIfAvailable is the conditional update: decrement only if stock >= quantity.
	DecrementIfAvailable(ctx context.Context, holdID, id string, quantity int64) (remaining int64, err error)
	ReleaseHold(ctx context.Context, holdID string) (released []domain.Allocation, missing []string, err error)
	CloseHold(ctx context.Context, holdID string) error
	IncrementAll(ctx context.Context, allocations []domain.Allocation) (missing []string, err error)
	Save(ctx context.Context, product *domain.Product) error
}
