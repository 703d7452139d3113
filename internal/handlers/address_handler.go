package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"storefront/internal/middleware"
	"storefront/internal/services"
	"storefront/pkg/logger"
)

// AddressHandler handles HTTP requests for the caller's address book.
type AddressHandler struct {
	service  *services.AddressService
	validate *validator.Validate
	log      *zap.Logger
}

// NewAddressHandler creates a new AddressHandler.
func NewAddressHandler(service *services.AddressService, log *zap.Logger) *AddressHandler {
	return &AddressHandler{
		service:  service,
		validate: newValidator(),
		log:      logger.OrNop(log),
	}
}

// RegisterRoutes registers the address routes. Every route requires authentication.
func (h *AddressHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	addressRoutes := router.Group("/auth/address", authRequired)
	addressRoutes.Get("/", h.HandleList)
	addressRoutes.Post("/", h.HandleAdd)
	addressRoutes.Delete("/:id", h.HandleRemove)
	addressRoutes.Put("/:id/default", h.HandleSetDefault)
}

// AddressRequest represents the request body of a new address.
type AddressRequest struct {
	Name       string `json:"name" validate:"max=100"`
	Street     string `json:"street" validate:"required,max=255"`
	City       string `json:"city" validate:"required,max=100"`
	Province   string `json:"province" validate:"max=100"`
	PostalCode string `json:"postalCode" validate:"max=20"`
	Phone      string `json:"phone" validate:"max=32"`
	IsDefault  bool   `json:"isDefault"`
}

// HandleList returns the caller's addresses.
func (h *AddressHandler) HandleList(c *fiber.Ctx) error {
	addresses, err := h.service.List(c.UserContext(), middleware.ClaimsFrom(c).UserID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(addresses)
}

// HandleAdd appends an address and returns the full list.
func (h *AddressHandler) HandleAdd(c *fiber.Ctx) error {
	var req AddressRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return fail(c, h.log, err)
	}

	addresses, err := h.service.Add(c.UserContext(), middleware.ClaimsFrom(c).UserID, services.AddressInput{
		Name:       req.Name,
		Street:     req.Street,
		City:       req.City,
		Province:   req.Province,
		PostalCode: req.PostalCode,
		Phone:      req.Phone,
		IsDefault:  req.IsDefault,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(addresses)
}

// HandleRemove deletes an address and returns the remaining list.
func (h *AddressHandler) HandleRemove(c *fiber.Ctx) error {
	addresses, err := h.service.Remove(c.UserContext(), middleware.ClaimsFrom(c).UserID, c.Params("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(addresses)
}

// HandleSetDefault makes an address the default and returns the full list.
func (h *AddressHandler) HandleSetDefault(c *fiber.Ctx) error {
	addresses, err := h.service.SetDefault(c.UserContext(), middleware.ClaimsFrom(c).UserID, c.Params("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(addresses)
}
