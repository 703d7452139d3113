package repositories

import (
	"context"

	"storefront/internal/models"
)

// OrderRepository defines the interface for order data access.
// Orders are never deleted.
type OrderRepository interface {
	// GetAll returns every order, newest first, with the owner populated where the store can.
	GetAll(ctx context.Context) ([]models.Order, error)
	// ListByUser returns the orders of userID, newest first. When statuses is
	// non-empty only orders in one of those statuses are returned.
	ListByUser(ctx context.Context, userID string, statuses ...models.OrderStatus) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	// UpdateStatus writes only the status column and appends a history entry.
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus, changedBy string) (*models.Order, error)
	History(ctx context.Context, id string) ([]models.OrderStatusHistory, error)
}
