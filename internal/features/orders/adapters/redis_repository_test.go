package adapters

import (
	"context"
	"fmt"
	"testing"
	"time"

	"fulfillment-engine/internal/core/store"
	"fulfillment-engine/internal/features/orders/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepository(t *testing.T) (*RedisOrderRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	db, err := store.NewRedis("redis://"+mr.Addr(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRedisOrderRepository(db), mr
}

var baseTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newOrder(n int, customerID string) *domain.Order {
	return &domain.Order{
		ID:          fmt.Sprintf("o%d", n),
		OrderNumber: fmt.Sprintf("ORD-%d-%04d", baseTime.UnixMilli(), n),
		CustomerID:  customerID,
		IsGuest:     customerID == "",
		Customer:    domain.CustomerSnapshot{Name: fmt.Sprintf("Customer %d", n), Email: fmt.Sprintf("c%d@example.com", n)},
		Items: []domain.LineItem{
			{ProductID: "p1", ProductName: "Rice Flour", Quantity: 2, UnitPrice: decimal.NewFromInt(85), LineTotal: decimal.NewFromInt(170)},
		},
		Subtotal:     170,
		ShippingCost: 50,
		Total:        220,
		Status:       domain.StatusPending,
		CreatedAt:    baseTime.Add(time.Duration(n) * time.Minute),
		UpdatedAt:    baseTime.Add(time.Duration(n) * time.Minute),
	}
}

func TestRedisOrderRepository_CreateAndGet(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()
	order := newOrder(1, "u1")

	require.NoError(t, repo.Create(ctx, order))
	assert.Equal(t, int64(1), order.Version)

	t.Run("By id", func(t *testing.T) {
		got, err := repo.Get(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, order.OrderNumber, got.OrderNumber)
		assert.Equal(t, int64(1), got.Version)
		assert.True(t, got.Items[0].LineTotal.Equal(decimal.NewFromInt(170)))
		assert.True(t, got.CreatedAt.Equal(order.CreatedAt))
	})

	t.Run("By order number", func(t *testing.T) {
		got, err := repo.Get(ctx, order.OrderNumber)
		require.NoError(t, err)
		assert.Equal(t, "o1", got.ID)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := repo.Get(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})

	t.Run("Duplicate number", func(t *testing.T) {
		dup := newOrder(2, "u1")
		dup.OrderNumber = order.OrderNumber

		err := repo.Create(ctx, dup)
		assert.ErrorIs(t, err, domain.ErrDuplicateOrderNumber)

		_, err = repo.Get(ctx, "o2")
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}

func TestRedisOrderRepository_Update(t *testing.T) {
	repo, mr := setupRepository(t)
	ctx := context.Background()
	order := newOrder(1, "u1")
	require.NoError(t, repo.Create(ctx, order))

	stale := *order

	order.Status = domain.StatusApproved
	order.ApprovedBy = "admin"
	require.NoError(t, repo.Update(ctx, order, domain.StatusPending))
	assert.Equal(t, int64(2), order.Version)

	got, err := repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, got.Status)
	assert.Equal(t, "admin", got.ApprovedBy)
	assert.Equal(t, int64(2), got.Version)

	members, err := mr.ZMembers("orders:status:approved")
	require.NoError(t, err)
	assert.Equal(t, []string{"o1"}, members)
	_, pending, err := repo.List(ctx, domain.ListFilter{Status: domain.StatusPending, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, pending)

	t.Run("Stale version", func(t *testing.T) {
		stale.Status = domain.StatusCancelled
		err := repo.Update(ctx, &stale, domain.StatusPending)
		assert.ErrorIs(t, err, domain.ErrVersionConflict)
	})

	t.Run("Wrong source status", func(t *testing.T) {
		next := *got
		next.Status = domain.StatusShipped
		err := repo.Update(ctx, &next, domain.StatusPending)
		assert.ErrorIs(t, err, domain.ErrVersionConflict)
	})

	t.Run("Missing order", func(t *testing.T) {
		ghost := newOrder(9, "u1")
		ghost.Version = 1
		err := repo.Update(ctx, ghost, domain.StatusPending)
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}

func TestRedisOrderRepository_List(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Create(ctx, newOrder(i, "u1")))
	}
	require.NoError(t, repo.Create(ctx, newOrder(6, "")))

	approved := newOrder(7, "u2")
	require.NoError(t, repo.Create(ctx, approved))
	approved.Status = domain.StatusApproved
	require.NoError(t, repo.Update(ctx, approved, domain.StatusPending))

	ids := func(orders []domain.Order) []string {
		out := make([]string, 0, len(orders))
		for _, o := range orders {
			out = append(out, o.ID)
		}
		return out
	}

	tests := []struct {
		name      string
		filter    domain.ListFilter
		wantIDs   []string
		wantTotal int64
	}{
		{"All newest first", domain.ListFilter{Page: 1, Limit: 3}, []string{"o7", "o6", "o5"}, 7},
		{"Second page", domain.ListFilter{Page: 2, Limit: 3}, []string{"o4", "o3", "o2"}, 7},
		{"Past the end", domain.ListFilter{Page: 4, Limit: 3}, []string{}, 7},
		{"By customer", domain.ListFilter{CustomerID: "u1", Page: 1, Limit: 2}, []string{"o5", "o4"}, 5},
		{"By status", domain.ListFilter{Status: domain.StatusApproved, Page: 1, Limit: 10}, []string{"o7"}, 1},
		{"Customer and status", domain.ListFilter{CustomerID: "u1", Status: domain.StatusApproved, Page: 1, Limit: 10}, []string{}, 0},
		{"Search by email", domain.ListFilter{Search: "C6@EXAMPLE", Page: 1, Limit: 10}, []string{"o6"}, 1},
		{"Search by number", domain.ListFilter{Search: "0003", Page: 1, Limit: 10}, []string{"o3"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, total, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids(orders))
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}
