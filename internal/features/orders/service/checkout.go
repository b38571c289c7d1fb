package service

import (
	"context"
	"errors"
	"fmt"

	"fulfillment-engine/internal/core/logger"
	"fulfillment-engine/internal/core/telemetry"
	inventory "fulfillment-engine/internal/features/inventory/domain"
	"fulfillment-engine/internal/features/orders/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Confirmation is returned once an order is committed.
type Confirmation struct {
	OrderID     string        `json:"order_id"`
	OrderNumber string        `json:"order_number"`
	Order       *domain.Order `json:"order"`
}

// PlaceOrder checks out on behalf of an authenticated customer.
func (s *OrderService) PlaceOrder(ctx context.Context, actor domain.Actor, raw RawCheckout) (*Confirmation, error) {
	if !actor.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}

	req := raw.Normalize()

	account, err := s.directory.FindCustomer(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("customer %s: %w", actor.ID, err)
	}

	snapshot := domain.CustomerSnapshot{
		Name:  firstString(account.Name, req.Contact.Name),
		Email: firstString(account.Email, req.Contact.Email),
		Phone: firstString(req.Contact.Phone, account.Phone),
	}

	return s.checkout(ctx, req, Owner{CustomerID: account.ID, Snapshot: snapshot})
}

// PlaceGuestOrder checks out without an account. Name and email are required.
func (s *OrderService) PlaceGuestOrder(ctx context.Context, raw RawCheckout) (*Confirmation, error) {
	req := raw.Normalize()
	if req.Contact.Name == "" || req.Contact.Email == "" {
		return nil, domain.Invalid("customer name and email are required")
	}

	return s.checkout(ctx, req, Owner{Guest: true, Snapshot: req.Contact})
}

// checkout builds, reserves and persists an order as one all-or-nothing step.
// Any reservation taken is released again before an error is returned.
func (s *OrderService) checkout(ctx context.Context, req CheckoutRequest, owner Owner) (_ *Confirmation, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.checkoutTimeout)
	defer cancel()

	ctx, span := telemetry.Tracer().Start(ctx, "orders.checkout")
	defer func() { telemetry.End(span, err) }()
	span.SetAttributes(
		attribute.Bool("order.guest", owner.Guest),
		attribute.Int("order.items", len(req.Items)),
	)

	order, err := s.builder.Build(ctx, req, owner)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID))

	for _, item := range order.Items {
		if _, err := s.ledger.Reserve(ctx, order.ID, item.ProductID, item.Quantity); err != nil {
			var stockErr *inventory.InsufficientStockError
			if errors.As(err, &stockErr) && stockErr.Name == "" {
				stockErr.Name = item.ProductName
			}
			return nil, s.abort(ctx, order.ID, err)
		}
	}

	if err := s.persist(ctx, order); err != nil {
		if errors.Is(err, domain.ErrOutcomeUnknown) {
			return nil, err
		}
		return nil, s.abort(ctx, order.ID, fmt.Errorf("failed to persist order: %w", err))
	}
	s.commitDetached(ctx, order.ID)

	logger.Ctx(ctx).Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Bool("is_guest", order.IsGuest),
		zap.Int64("total", order.Total),
	)

	s.emitter.Emit(domain.EventOrderCreated, domain.OrderCreated{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		CustomerName: order.Customer.Name,
		Total:        order.Total,
		IsGuest:      order.IsGuest,
		Timestamp:    s.now().UTC(),
	})

	return &Confirmation{OrderID: order.ID, OrderNumber: order.OrderNumber, Order: order}, nil
}

// persist stores the order, drawing a new number on collision. A store error
// leaves the outcome open, so the order is looked up before it is reported as
// missing. ErrOutcomeUnknown is returned when the lookup cannot tell either.
func (s *OrderService) persist(ctx context.Context, order *domain.Order) error {
	var err error
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		err = s.repo.Create(ctx, order)
		if !errors.Is(err, domain.ErrDuplicateOrderNumber) {
			break
		}
		logger.Ctx(ctx).Warn("Order number collision, retrying",
			zap.String("order_number", order.OrderNumber),
			zap.Int("attempt", attempt),
		)
		order.OrderNumber = domain.NewOrderNumber(s.now())
	}
	if err == nil || errors.Is(err, domain.ErrDuplicateOrderNumber) {
		return err
	}

	lookup, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	stored, getErr := s.repo.Get(lookup, order.ID)
	switch {
	case getErr == nil:
		logger.Ctx(ctx).Warn("Order write reported failure but the order was stored",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		order.OrderNumber = stored.OrderNumber
		order.Version = stored.Version
		return nil
	case errors.Is(getErr, domain.ErrOrderNotFound):
		return err
	default:
		logger.Ctx(ctx).Error("Order outcome unknown, reservation kept",
			zap.String("order_id", order.ID),
			zap.NamedError("write_error", err),
			zap.NamedError("lookup_error", getErr),
		)
		return fmt.Errorf("order %s: %w: %v", order.ID, domain.ErrOutcomeUnknown, err)
	}
}

// abort cancels the checkout's reservation and returns the error to surface.
// A failed release is reported in place of cause since stock is then out of step.
func (s *OrderService) abort(ctx context.Context, reservationID string, cause error) error {
	released, err := s.cancelReservation(ctx, reservationID)
	if err != nil {
		return fmt.Errorf("checkout failed (%v) and reservations could not be released: %w", cause, err)
	}
	if len(released) > 0 {
		logger.Ctx(ctx).Info("Checkout rolled back",
			zap.String("reservation_id", reservationID),
			zap.Int("released_lines", len(released)),
			zap.Error(cause),
		)
	}
	return cause
}
