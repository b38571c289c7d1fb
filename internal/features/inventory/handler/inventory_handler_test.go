package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fulfillment-engine/internal/features/inventory/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCatalog is a mock implementation of ports.Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Resolve(ctx context.Context, ref string) (*domain.Product, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func setupApp(ledger *MockCatalog) *fiber.App {
	app := fiber.New()
	app.Get("/products/:ref/stock", NewInventoryHandler(ledger).GetStock)
	return app
}

func TestInventoryHandler_GetStock(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ledger := new(MockCatalog)
		ledger.On("Resolve", mock.Anything, "FP001").Return(&domain.Product{
			ID: "p1", Code: "FP001", Name: "Rice Flour", Price: decimal.NewFromInt(85), Stock: 48, Active: true,
		}, nil).Once()

		resp, err := setupApp(ledger).Test(httptest.NewRequest("GET", "/products/FP001/stock", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body StockResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "p1", body.ProductID)
		assert.Equal(t, int64(48), body.Stock)
		ledger.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		ledger := new(MockCatalog)
		ledger.On("Resolve", mock.Anything, "nope").Return(nil, domain.ErrProductNotFound).Once()

		resp, err := setupApp(ledger).Test(httptest.NewRequest("GET", "/products/nope/stock", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("InternalError", func(t *testing.T) {
		ledger := new(MockCatalog)
		ledger.On("Resolve", mock.Anything, "FP001").Return(nil, errors.New("redis down")).Once()

		resp, err := setupApp(ledger).Test(httptest.NewRequest("GET", "/products/FP001/stock", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}
