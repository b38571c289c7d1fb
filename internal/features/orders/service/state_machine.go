package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fulfillment-engine/internal/core/logger"
	"fulfillment-engine/internal/core/telemetry"
	"fulfillment-engine/internal/features/orders/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Approve accepts a pending order.
func (s *OrderService) Approve(ctx context.Context, actor domain.Actor, ref, notes string) (*domain.Order, error) {
	return s.transition(ctx, actor, ref, domain.ApproveRule, adminOnly, func(o *domain.Order, now time.Time) {
		s.review(o, actor, notes, now)
	})
}

// Reject refuses a pending order and returns its stock.
func (s *OrderService) Reject(ctx context.Context, actor domain.Actor, ref, notes string) (*domain.Order, error) {
	return s.transition(ctx, actor, ref, domain.RejectRule, adminOnly, func(o *domain.Order, now time.Time) {
		s.review(o, actor, notes, now)
	})
}

// UpdateStatus moves an order to the status named by an admin label
// (Pending, Processing, Shipped, Delivered, Cancelled).
func (s *OrderService) UpdateStatus(ctx context.Context, actor domain.Actor, ref, label, notes string) (*domain.Order, error) {
	rule, err := domain.RuleForLabel(label)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, ref, rule, adminOnly, func(o *domain.Order, now time.Time) {
		s.review(o, actor, notes, now)
		if rule.Target == domain.StatusCancelled {
			o.CancelledBy = actor.ID
			o.CancelledAt = &now
		}
	})
}

// Cancel withdraws an order on behalf of the customer who placed it.
func (s *OrderService) Cancel(ctx context.Context, actor domain.Actor, ref string) (*domain.Order, error) {
	return s.transition(ctx, actor, ref, domain.CancelRule, ownerOnly, func(o *domain.Order, now time.Time) {
		o.CancelledBy = actor.ID
		o.CancelledAt = &now
	})
}

func (s *OrderService) review(o *domain.Order, actor domain.Actor, notes string, now time.Time) {
	o.ApprovedBy = actor.ID
	o.ApprovedAt = &now
	if notes != "" {
		o.AdminNotes = notes
	}
}

// access selects who may apply a transition.
type access int

const (
	adminOnly access = iota
	ownerOnly
)

func authorize(actor domain.Actor, who access, order *domain.Order) error {
	if !actor.Authenticated() {
		return domain.ErrUnauthenticated
	}
	switch who {
	case ownerOnly:
		if !order.BelongsTo(actor.ID) {
			return domain.ErrForbidden
		}
	default:
		if !actor.Admin {
			return domain.ErrForbidden
		}
	}
	return nil
}

// transition applies rule to the order under an optimistic version check.
// Stock is released only after the status change is committed; if the release
// fails the status change is reverted.
func (s *OrderService) transition(
	ctx context.Context,
	actor domain.Actor,
	ref string,
	rule domain.Rule,
	who access,
	mutate func(*domain.Order, time.Time),
) (_ *domain.Order, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "orders.transition")
	defer func() { telemetry.End(span, err) }()
	span.SetAttributes(
		attribute.String("order.ref", ref),
		attribute.String("order.action", rule.Action),
		attribute.String("order.target", string(rule.Target)),
	)

	order, err := s.repo.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, who, order); err != nil {
		return nil, err
	}

	from := order.Status
	if !rule.Allows(from) {
		return nil, &domain.TransitionError{OrderID: order.ID, Action: rule.Action, Current: from}
	}

	previous := *order
	now := s.now().UTC()
	order.Status = rule.Target
	order.UpdatedAt = now
	mutate(order, now)

	if err := s.repo.Update(ctx, order, from); err != nil {
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, fmt.Errorf("failed to update order %s: %w", order.ID, err)
		}
		current, getErr := s.repo.Get(ctx, order.ID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to reload order %s: %w", order.ID, getErr)
		}
		return nil, &domain.TransitionError{OrderID: order.ID, Action: rule.Action, Current: current.Status}
	}

	if rule.ReleasesStock {
		if err := s.releaseDetached(ctx, order.Allocations()); err != nil {
			return nil, s.revert(ctx, order, &previous, err)
		}
	}

	logger.Ctx(ctx).Info("Order status changed",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("from", string(from)),
		zap.String("status", string(order.Status)),
		zap.String("actor_id", actor.ID),
	)

	s.emitter.Emit(domain.EventOrderStatusChanged, domain.OrderStatusChanged{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		PreviousStatus: from,
		NewStatus:      order.Status,
		ActorID:        actor.ID,
		Timestamp:      now,
	})

	return order, nil
}

// revert puts the order back to its previous state after a failed release.
func (s *OrderService) revert(ctx context.Context, applied, previous *domain.Order, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	previous.Version = applied.Version
	previous.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, previous, applied.Status); err != nil {
		logger.Ctx(ctx).Error("Failed to revert order after stock release failure",
			zap.String("order_id", applied.ID),
			zap.String("status", string(applied.Status)),
			zap.Error(err),
		)
		return fmt.Errorf("order %s left %s without stock release: %w", applied.ID, applied.Status, cause)
	}
	return fmt.Errorf("failed to release stock for order %s: %w", applied.ID, cause)
}
