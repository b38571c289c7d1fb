package handler

import (
	"context"
	"errors"
	"net/http"

	"fulfillment-engine/internal/core/identity"
	"fulfillment-engine/internal/core/logger"
	customers "fulfillment-engine/internal/features/customers/domain"
	inventory "fulfillment-engine/internal/features/inventory/domain"
	"fulfillment-engine/internal/features/orders/domain"
	"fulfillment-engine/internal/features/orders/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderService is the order use-case surface consumed by the handler.
type OrderService interface {
	PlaceOrder(ctx context.Context, actor domain.Actor, raw service.RawCheckout) (*service.Confirmation, error)
	PlaceGuestOrder(ctx context.Context, raw service.RawCheckout) (*service.Confirmation, error)
	GetOrder(ctx context.Context, actor domain.Actor, ref string) (*domain.Order, error)
	ListOrders(ctx context.Context, actor domain.Actor, q service.ListQuery) (*domain.OrderPage, error)
	ListMyOrders(ctx context.Context, actor domain.Actor, q service.ListQuery) (*domain.OrderPage, error)
	Approve(ctx context.Context, actor domain.Actor, ref, notes string) (*domain.Order, error)
	Reject(ctx context.Context, actor domain.Actor, ref, notes string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, actor domain.Actor, ref, label, notes string) (*domain.Order, error)
	Cancel(ctx context.Context, actor domain.Actor, ref string) (*domain.Order, error)
}

// OrderHandler handles HTTP requests related to orders.
type OrderHandler struct {
	// service is the order use-case implementation.
	service OrderService
}

// NewOrderHandler creates a new instance of OrderHandler.
func NewOrderHandler(s OrderService) *OrderHandler {
	return &OrderHandler{
		service: s,
	}
}

// ReviewRequest is the body of approve and reject.
type ReviewRequest struct {
	Notes string `json:"notes"`
}

// StatusRequest is the body of the admin status update.
type StatusRequest struct {
	// Status is one of Pending, Processing, Shipped, Delivered, Cancelled.
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// CreateOrder handles POST /orders.
// @Summary Place an order
// @Description Checks out the caller's cart. Stock is reserved atomically for every line or not at all.
// @Tags Orders
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Account id"
// @Param order body service.RawCheckout true "Checkout request"
// @Success 201 {object} service.Confirmation
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var raw service.RawCheckout
	if err := c.BodyParser(&raw); err != nil {
		return h.fail(c, domain.Invalid("invalid request body"))
	}

	conf, err := h.service.PlaceOrder(c.UserContext(), actorFrom(c), raw)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(conf)
}

// CreateGuestOrder handles POST /orders/guest.
// @Summary Place a guest order
// @Description Checks out without an account. Customer name and email are required.
// @Tags Orders
// @Accept json
// @Produce json
// @Param order body service.RawCheckout true "Checkout request"
// @Success 201 {object} service.Confirmation
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/guest [post]
func (h *OrderHandler) CreateGuestOrder(c *fiber.Ctx) error {
	var raw service.RawCheckout
	if err := c.BodyParser(&raw); err != nil {
		return h.fail(c, domain.Invalid("invalid request body"))
	}

	conf, err := h.service.PlaceGuestOrder(c.UserContext(), raw)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(conf)
}

// ListOrders handles GET /orders.
// @Summary List all orders
// @Description Admin listing with status filter, search and pagination.
// @Tags Orders
// @Produce json
// @Param status query string false "Status or all"
// @Param search query string false "Order number, customer name or email"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} domain.OrderPage
// @Failure 403 {object} ErrorResponse
// @Router /orders [get]
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	page, err := h.service.ListOrders(c.UserContext(), actorFrom(c), listQuery(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(page)
}

// ListMyOrders handles GET /orders/user.
// @Summary List my orders
// @Tags Orders
// @Produce json
// @Param status query string false "Status or all"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} domain.OrderPage
// @Failure 401 {object} ErrorResponse
// @Router /orders/user [get]
func (h *OrderHandler) ListMyOrders(c *fiber.Ctx) error {
	page, err := h.service.ListMyOrders(c.UserContext(), actorFrom(c), listQuery(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(page)
}

// GetOrder handles GET /orders/:id.
// @Summary Get an order
// @Description Accepts the internal id or the order number.
// @Tags Orders
// @Produce json
// @Param id path string true "Order id or number"
// @Success 200 {object} domain.Order
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(order)
}

// ApproveOrder handles PUT /orders/:id/approve.
// @Summary Approve an order
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order id or number"
// @Param review body ReviewRequest false "Admin notes"
// @Success 200 {object} domain.Order
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/approve [put]
func (h *OrderHandler) ApproveOrder(c *fiber.Ctx) error {
	var req ReviewRequest
	if err := parseOptional(c, &req); err != nil {
		return h.fail(c, err)
	}

	order, err := h.service.Approve(c.UserContext(), actorFrom(c), c.Params("id"), req.Notes)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(order)
}

// RejectOrder handles PUT /orders/:id/reject.
// @Summary Reject an order
// @Description Rejects a pending order and returns its stock.
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order id or number"
// @Param review body ReviewRequest false "Admin notes"
// @Success 200 {object} domain.Order
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/reject [put]
func (h *OrderHandler) RejectOrder(c *fiber.Ctx) error {
	var req ReviewRequest
	if err := parseOptional(c, &req); err != nil {
		return h.fail(c, err)
	}

	order, err := h.service.Reject(c.UserContext(), actorFrom(c), c.Params("id"), req.Notes)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(order)
}

// UpdateStatus handles PUT /orders/:id/status.
// @Summary Update order status
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order id or number"
// @Param status body StatusRequest true "Target status label"
// @Success 200 {object} domain.Order
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, domain.Invalid("invalid request body"))
	}

	order, err := h.service.UpdateStatus(c.UserContext(), actorFrom(c), c.Params("id"), req.Status, req.Notes)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(order)
}

// CancelOrder handles PUT /orders/:id/cancel.
// @Summary Cancel my order
// @Description Owners may cancel pending or approved orders; stock is returned.
// @Tags Orders
// @Produce json
// @Param id path string true "Order id or number"
// @Success 200 {object} domain.Order
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/cancel [put]
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	order, err := h.service.Cancel(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(order)
}

func actorFrom(c *fiber.Ctx) domain.Actor {
	id, ok := identity.FromCtx(c)
	if !ok {
		return domain.Actor{}
	}
	return domain.Actor{ID: id.UserID, Admin: id.IsAdmin()}
}

func listQuery(c *fiber.Ctx) service.ListQuery {
	return service.ListQuery{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 0),
	}
}

// parseOptional decodes the body when one was sent.
func parseOptional(c *fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(v); err != nil {
		return domain.Invalid("invalid request body")
	}
	return nil
}

// fail maps err onto a status code and error body. Internal errors are logged
// and reported without detail.
func (h *OrderHandler) fail(c *fiber.Ctx, err error) error {
	rayID, ok := c.Locals("requestid").(string)
	if !ok {
		rayID = "unknown"
	}

	status, kind := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Get().Error("Order request failed",
			zap.String("path", c.Path()),
			zap.String("ray_id", rayID),
			zap.Error(err),
		)
		msg = "Internal Server Error"
	}

	return c.Status(status).JSON(ErrorResponse{
		Message: msg,
		Kind:    kind,
		RayID:   rayID,
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found"
	case errors.Is(err, inventory.ErrProductNotFound):
		return http.StatusNotFound, "product_not_found"
	case errors.Is(err, customers.ErrCustomerNotFound):
		return http.StatusNotFound, "customer_not_found"
	case errors.Is(err, inventory.ErrInsufficientStock):
		return http.StatusConflict, "insufficient_stock"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// Kind is the machine readable error class.
	Kind string `json:"kind"`
	// RayID is the unique request identifier for debugging.
	RayID string `json:"ray_id"`
}
