package service

import (
	"context"
	"fmt"
	"strings"

	"fulfillment-engine/internal/features/orders/domain"
)

const (
	defaultOwnLimit = 10
	defaultAllLimit = 20
	maxLimit        = 100
)

// ListQuery is the caller-facing list filter.
type ListQuery struct {
	// Status is a status name or "all".
	Status string
	Search string
	Page   int
	Limit  int
}

// GetOrder returns an order by id or order number. Non-admins only see their
// own orders; anything else is reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, actor domain.Actor, ref string) (*domain.Order, error) {
	if !actor.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}

	order, err := s.repo.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && !order.BelongsTo(actor.ID) {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// ListOrders returns every order. Admin only.
func (s *OrderService) ListOrders(ctx context.Context, actor domain.Actor, q ListQuery) (*domain.OrderPage, error) {
	if !actor.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	if !actor.Admin {
		return nil, domain.ErrForbidden
	}
	return s.list(ctx, "", q, defaultAllLimit)
}

// ListMyOrders returns the orders placed by the actor.
func (s *OrderService) ListMyOrders(ctx context.Context, actor domain.Actor, q ListQuery) (*domain.OrderPage, error) {
	if !actor.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	return s.list(ctx, actor.ID, q, defaultOwnLimit)
}

func (s *OrderService) list(ctx context.Context, customerID string, q ListQuery, defaultLimit int) (*domain.OrderPage, error) {
	filter, err := buildFilter(customerID, q, defaultLimit)
	if err != nil {
		return nil, err
	}

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return &domain.OrderPage{
		Orders:     orders,
		Pagination: domain.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

func buildFilter(customerID string, q ListQuery, defaultLimit int) (domain.ListFilter, error) {
	filter := domain.ListFilter{
		CustomerID: customerID,
		Search:     strings.TrimSpace(q.Search),
		Page:       q.Page,
		Limit:      q.Limit,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultLimit
	}
	filter.Limit = min(filter.Limit, maxLimit)

	status := strings.ToLower(strings.TrimSpace(q.Status))
	if status != "" && status != "all" {
		filter.Status = domain.OrderStatus(status)
		if !filter.Status.Valid() {
			return domain.ListFilter{}, domain.Invalid("invalid status filter %q", q.Status)
		}
	}
	return filter, nil
}
