package handlers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"
	"storefront/pkg/logger"
)

// OrderHandler handles HTTP requests related to orders.
type OrderHandler struct {
	orderService *services.OrderService
	validate     *validator.Validate
	log          *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *services.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		validate:     newValidator(),
		log:          logger.OrNop(log),
	}
}

// RegisterRoutes registers the order routes. Every route requires
// authentication; status changes and history are admin only.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	orderRoutes := router.Group("/orders", authRequired)
	adminOnly := middleware.RoleRequired(models.RoleAdmin)

	orderRoutes.Get("/", h.HandleList)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/:id", h.HandleGetOrder)
	orderRoutes.Patch("/:id", adminOnly, h.HandleUpdateOrderStatus)
	orderRoutes.Get("/:id/history", adminOnly, h.HandleHistory)
}

// CreateOrderRequest represents the checkout request body.
type CreateOrderRequest struct {
	Items           []services.CartLine   `json:"items"`
	CustomerDetails models.ContactDetails `json:"customerDetails"`
	AddressID       string                `json:"addressId" validate:"max=64"`
	PaymentMethod   string                `json:"paymentMethod" validate:"max=100"`
}

// HandleCreateOrder handles the creation of a new order from a cart snapshot.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return fail(c, h.log, err)
	}

	order, err := h.orderService.PlaceOrder(c.UserContext(), middleware.ClaimsFrom(c), services.PlaceOrderRequest{
		Items:         req.Items,
		Contact:       req.CustomerDetails,
		AddressID:     req.AddressID,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleList returns every order to an admin, and the caller's own orders,
// narrowed by ?category=, to anyone else.
func (h *OrderHandler) HandleList(c *fiber.Ctx) error {
	claims := middleware.ClaimsFrom(c)

	var (
		orders []models.Order
		err    error
	)
	if claims.IsAdmin() {
		orders, err = h.orderService.ListAll(c.UserContext(), claims)
	} else {
		category := models.OrderCategory(strings.ToLower(strings.TrimSpace(c.Query("category"))))
		orders, err = h.orderService.ListByCategory(c.UserContext(), claims.UserID, category)
	}
	if err != nil {
		return fail(c, h.log, err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return c.JSON(orders)
}

// HandleGetOrder returns one order to its owner or an admin.
func (h *OrderHandler) HandleGetOrder(c *fiber.Ctx) error {
	order, err := h.orderService.GetOrder(c.UserContext(), middleware.ClaimsFrom(c), c.Params("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(order)
}

// UpdateStatusRequest represents the request body for updating an order's status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// HandleUpdateOrderStatus handles updating the status of an order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return fail(c, h.log, err)
	}

	claims := middleware.ClaimsFrom(c)
	order, err := h.orderService.SetStatus(c.UserContext(), c.Params("id"), models.OrderStatus(req.Status), claims.UserID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(order)
}

// HandleHistory returns the status changes of an order.
func (h *OrderHandler) HandleHistory(c *fiber.Ctx) error {
	history, err := h.orderService.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(history)
}
