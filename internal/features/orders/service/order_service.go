package service

import (
	"context"
	"time"

	"fulfillment-engine/internal/core/logger"
	inventory "fulfillment-engine/internal/features/inventory/domain"
	"fulfillment-engine/internal/features/orders/domain"
	"fulfillment-engine/internal/features/orders/ports"

	"go.uber.org/zap"
)

const (
	defaultCheckoutTimeout = 10 * time.Second
	// compensationTimeout bounds stock releases that must run after the caller is gone.
	compensationTimeout = 5 * time.Second
	// maxNumberAttempts is how many order numbers are tried before giving up.
	maxNumberAttempts = 3
)

// Options tune the order service.
type Options struct {
	Pricing         domain.Pricing
	DefaultCountry  string
	CheckoutTimeout time.Duration
}

// OrderService places orders, drives them through their lifecycle and serves
// the order read paths.
type OrderService struct {
	builder   *Builder
	ledger    ports.InventoryLedger
	repo      ports.OrderRepository
	directory ports.CustomerDirectory
	emitter   ports.EventEmitter

	checkoutTimeout time.Duration
	now             func() time.Time
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	repo ports.OrderRepository,
	ledger ports.InventoryLedger,
	directory ports.CustomerDirectory,
	emitter ports.EventEmitter,
	opts Options,
) *OrderService {
	if opts.CheckoutTimeout <= 0 {
		opts.CheckoutTimeout = defaultCheckoutTimeout
	}
	if opts.Pricing == (domain.Pricing{}) {
		opts.Pricing = domain.DefaultPricing
	}
	return &OrderService{
		builder:         NewBuilder(ledger, opts.Pricing, opts.DefaultCountry),
		ledger:          ledger,
		repo:            repo,
		directory:       directory,
		emitter:         emitter,
		checkoutTimeout: opts.CheckoutTimeout,
		now:             time.Now,
	}
}

// releaseDetached returns stock even when ctx is already cancelled.
func (s *OrderService) releaseDetached(ctx context.Context, allocations []inventory.Allocation) error {
	if len(allocations) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if _, err := s.ledger.ReleaseAll(ctx, allocations); err != nil {
		logger.Ctx(ctx).Error("Failed to release reserved stock",
			zap.Any("allocations", allocations),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// cancelReservation rolls a checkout's reservation back even when ctx is
// already cancelled.
func (s *OrderService) cancelReservation(ctx context.Context, reservationID string) ([]inventory.Allocation, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	released, err := s.ledger.CancelReservation(ctx, reservationID)
	if err != nil {
		logger.Ctx(ctx).Error("Failed to cancel reservation",
			zap.String("reservation_id", reservationID),
			zap.Error(err),
		)
		return nil, err
	}
	return released, nil
}

// commitDetached closes the reservation of a stored order. A failure only
// leaves the record to expire; the order already holds the stock.
func (s *OrderService) commitDetached(ctx context.Context, reservationID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := s.ledger.CommitReservation(ctx, reservationID); err != nil {
		logger.Ctx(ctx).Warn("Failed to commit reservation",
			zap.String("reservation_id", reservationID),
			zap.Error(err),
		)
	}
}
