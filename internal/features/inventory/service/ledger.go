package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fulfillment-engine/internal/core/logger"
	"fulfillment-engine/internal/features/inventory/domain"
	"fulfillment-engine/internal/features/inventory/ports"

	"go.uber.org/zap"
)

// LedgerService implements ports.Ledger on top of a ProductStore.
//
// Product references are resolved by catalog code first and internal id second.
// A reference that matches a code of one product and the id of another resolves
// to the code match; colliding identifiers across the two keyspaces are unsupported.
type LedgerService struct {
	store ports.ProductStore
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(store ports.ProductStore) *LedgerService {
	return &LedgerService{store: store}
}

// Resolve looks the reference up as a catalog code, then as an internal id.
func (s *LedgerService) Resolve(ctx context.Context, ref string) (*domain.Product, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, domain.ErrProductNotFound
	}

	product, err := s.store.FindByCode(ctx, ref)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, domain.ErrProductNotFound) {
		return nil, fmt.Errorf("ledger: resolve %s: %w", ref, err)
	}

	product, err = s.store.FindByID(ctx, ref)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return nil, fmt.Errorf("product %s: %w", ref, domain.ErrProductNotFound)
		}
		return nil, fmt.Errorf("ledger: resolve %s: %w", ref, err)
	}
	return product, nil
}

// Reserve takes quantity units of the product out of stock and records them
// under reservationID.
func (s *LedgerService) Reserve(ctx context.Context, reservationID, productID string, quantity int64) (int64, error) {
	if quantity < 1 {
		return 0, domain.ErrInvalidQuantity
	}
	if reservationID == "" {
		return 0, errors.New("reservation id is required")
	}

	remaining, err := s.store.DecrementIfAvailable(ctx, reservationID, productID, quantity)
	if err != nil {
		return 0, err
	}

	logger.Get().Debug("Stock reserved",
		zap.String("reservation_id", reservationID),
		zap.String("product_id", productID),
		zap.Int64("quantity", quantity),
		zap.Int64("remaining", remaining),
	)
	return remaining, nil
}

// CancelReservation returns what the store recorded for the reservation, which
// includes reservations whose reply never reached the caller.
func (s *LedgerService) CancelReservation(ctx context.Context, reservationID string) ([]domain.Allocation, error) {
	released, missing, err := s.store.ReleaseHold(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if len(missing) > 0 {
		logger.Get().Warn("Skipped stock release for products no longer in catalog",
			zap.String("reservation_id", reservationID),
			zap.Strings("product_ids", missing),
		)
	}
	logger.Get().Debug("Reservation cancelled",
		zap.String("reservation_id", reservationID),
		zap.Any("released", released),
	)
	return released, nil
}

// CommitReservation hands the reserved units over to the stored order.
func (s *LedgerService) CommitReservation(ctx context.Context, reservationID string) error {
	return s.store.CloseHold(ctx, reservationID)
}

// ReleaseAll puts every allocation back in one step. Products that were removed
// from the catalog since the reservation are skipped and reported.
func (s *LedgerService) ReleaseAll(ctx context.Context, allocations []domain.Allocation) ([]string, error) {
	for _, a := range allocations {
		if a.Quantity < 1 {
			return nil, fmt.Errorf("product %s: %w", a.ProductID, domain.ErrInvalidQuantity)
		}
	}

	missing, err := s.store.IncrementAll(ctx, allocations)
	if err != nil {
		return nil, err
	}

	if len(missing) > 0 {
		logger.Get().Warn("Skipped stock release for products no longer in catalog",
			zap.Strings("product_ids", missing),
		)
	}
	return missing, nil
}
