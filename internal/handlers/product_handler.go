package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/middleware"
	"storefront/internal/services"
	"storefront/pkg/logger"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	productService *services.ProductService
	validate       *validator.Validate
	log            *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(productService *services.ProductService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		validate:       newValidator(),
		log:            logger.OrNop(log),
	}
}

// RegisterRoutes registers the catalog routes. Reads are public; writes need a
// verified token and the service enforces the admin role.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetAll)
	productRoutes.Get("/:id", h.HandleGetByID)
	productRoutes.Post("/", authRequired, h.HandleCreate)
	productRoutes.Delete("/:id", authRequired, h.HandleDelete)
}

// CreateProductRequest represents the request body for a new product.
type CreateProductRequest struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	ImageURL    string           `json:"imageUrl"`
	Description string           `json:"description" validate:"max=2000"`
}

// HandleGetAll lists the catalog.
func (h *ProductHandler) HandleGetAll(c *fiber.Ctx) error {
	products, err := h.productService.GetAllProducts(c.UserContext())
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(products)
}

// HandleGetByID returns one product.
func (h *ProductHandler) HandleGetByID(c *fiber.Ctx) error {
	product, err := h.productService.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(product)
}

// HandleCreate adds a product to the catalog.
func (h *ProductHandler) HandleCreate(c *fiber.Ctx) error {
	var req CreateProductRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return fail(c, h.log, err)
	}

	product, err := h.productService.CreateProduct(c.UserContext(), middleware.ClaimsFrom(c), services.ProductInput{
		Name:        req.Name,
		Price:       *req.Price,
		ImageURL:    req.ImageURL,
		Description: req.Description,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleDelete removes a product from the catalog.
func (h *ProductHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.productService.DeleteProduct(c.UserContext(), middleware.ClaimsFrom(c), c.Params("id")); err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}
