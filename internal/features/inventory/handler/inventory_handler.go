package handler

import (
	"errors"
	"net/http"

	"fulfillment-engine/internal/core/logger"
	"fulfillment-engine/internal/features/inventory/domain"
	"fulfillment-engine/internal/features/inventory/ports"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InventoryHandler exposes read-only stock lookups.
type InventoryHandler struct {
	catalog ports.Catalog
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(catalog ports.Catalog) *InventoryHandler {
	return &InventoryHandler{catalog: catalog}
}

// StockResponse is the stock view of a product.
type StockResponse struct {
	ProductID string          `json:"product_id"`
	Code      string          `json:"code,omitempty"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int64           `json:"stock"`
	Active    bool            `json:"active"`
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for debugging.
	RayID string `json:"ray_id"`
}

// GetStock handles GET /products/:ref/stock.
// @Summary Get product stock
// @Description Resolves a product by catalog code or internal id and returns its current stock.
// @Tags Inventory
// @Produce json
// @Param ref path string true "Catalog code or internal id"
// @Success 200 {object} StockResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /products/{ref}/stock [get]
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	ref := c.Params("ref")
	rayID, ok := c.Locals("requestid").(string)
	if !ok {
		rayID = "unknown"
	}

	product, err := h.catalog.Resolve(c.UserContext(), ref)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{
				Message: "Product not found",
				RayID:   rayID,
			})
		}
		logger.Get().Error("Failed to resolve product",
			zap.String("ref", ref),
			zap.String("ray_id", rayID),
			zap.Error(err),
		)
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Message: "Internal Server Error",
			RayID:   rayID,
		})
	}

	return c.Status(http.StatusOK).JSON(StockResponse{
		ProductID: product.ID,
		Code:      product.Code,
		Name:      product.Name,
		Price:     product.Price,
		Stock:     product.Stock,
		Active:    product.Active,
	})
}
