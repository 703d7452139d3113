package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

// ProductInput are the fields of a new catalog entry.
type ProductInput struct {
	Name        string
	Price       decimal.Decimal
	ImageURL    string
	Description string
}

// ProductService handles business logic related to products.
// Reads are public; writes require the admin role.
type ProductService struct {
	repo repositories.ProductRepository
	rt   Runtime
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, rt Runtime) *ProductService {
	return &ProductService{
		repo: repo,
		rt:   rt.normalize(),
	}
}

// requireAdmin is the role gate shared by every privileged operation.
func requireAdmin(claims *models.Claims) error {
	if claims == nil {
		return apperr.New(apperr.Unauthenticated, "authentication required")
	}
	if !claims.IsAdmin() {
		return apperr.New(apperr.Forbidden, "admin role required")
	}
	return nil
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()
	return s.repo.GetAll(ctx)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()
	return s.repo.GetByID(ctx, id)
}

// CreateProduct adds a product to the catalog.
func (s *ProductService) CreateProduct(ctx context.Context, claims *models.Claims, input ProductInput) (*models.Product, error) {
	if err := requireAdmin(claims); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Price:       input.Price,
		ImageURL:    strings.TrimSpace(input.ImageURL),
		Description: strings.TrimSpace(input.Description),
	}
	fields := map[string]string{}
	if product.Name == "" {
		fields["name"] = "name is required"
	}
	if product.Price.IsNegative() {
		fields["price"] = "price must not be negative"
	}
	if len(fields) > 0 {
		return nil, apperr.Invalid("validation failed", fields)
	}

	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	s.rt.Logger.Info("product created", zap.String("product_id", product.ID), zap.String("by", claims.UserID))
	return product, nil
}

// DeleteProduct removes a product from the catalog.
func (s *ProductService) DeleteProduct(ctx context.Context, claims *models.Claims, id string) error {
	if err := requireAdmin(claims); err != nil {
		return err
	}

	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.rt.Logger.Info("product deleted", zap.String("product_id", id), zap.String("by", claims.UserID))
	return nil
}

// SeedProducts inserts products when the catalog is empty and reports how many were added.
func (s *ProductService) SeedProducts(ctx context.Context, products []models.Product) (int, error) {
	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()

	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	for i := range products {
		if err := s.repo.Create(ctx, &products[i]); err != nil {
			return i, err
		}
		s.rt.Logger.Debug("seeded product", zap.String("name", products[i].Name), zap.String("product_id", products[i].ID))
	}
	return len(products), nil
}
