package repositories

import (
	"context"
	"sync"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/pkg/ids"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders  map[string]models.Order
	order   []string
	history map[string][]models.OrderStatusHistory
	mu      sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders:  make(map[string]models.Order),
		history: make(map[string][]models.OrderStatusHistory),
	}
}

// newestFirst collects orders accepted by keep, most recent insertion first.
func (r *MockOrderRepository) newestFirst(keep func(models.Order) bool) []models.Order {
	orderList := make([]models.Order, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		o := r.orders[r.order[i]]
		if keep(o) {
			orderList = append(orderList, cloneOrder(o))
		}
	}
	return orderList
}

// GetAll returns all orders.
func (r *MockOrderRepository) GetAll(ctx context.Context) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.newestFirst(func(models.Order) bool { return true }), nil
}

// ListByUser returns the orders owned by userID.
func (r *MockOrderRepository) ListByUser(ctx context.Context, userID string, statuses ...models.OrderStatus) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.newestFirst(func(o models.Order) bool {
		if o.UserID != userID {
			return false
		}
		if len(statuses) == 0 {
			return true
		}
		for _, s := range statuses {
			if o.Status == s {
				return true
			}
		}
		return false
	}), nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	order = cloneOrder(order)
	return &order, nil
}

// Create adds a new order.
func (r *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = ids.NewUUID()
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	r.orders[order.ID] = cloneOrder(*order)
	r.order = append(r.order, order.ID)
	r.history[order.ID] = []models.OrderStatusHistory{{
		ID:        1,
		OrderID:   order.ID,
		ToStatus:  order.Status,
		ChangedBy: order.UserID,
		CreatedAt: order.CreatedAt,
	}}
	return nil
}

// UpdateStatus updates the status of an order.
func (r *MockOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, changedBy string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	from := order.Status
	order.Status = status
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	r.history[id] = append(r.history[id], models.OrderStatusHistory{
		ID:         uint(len(r.history[id]) + 1),
		OrderID:    id,
		FromStatus: from,
		ToStatus:   status,
		ChangedBy:  changedBy,
		CreatedAt:  order.UpdatedAt,
	})
	order = cloneOrder(order)
	return &order, nil
}

// History returns the status changes of an order.
func (r *MockOrderRepository) History(ctx context.Context, id string) ([]models.OrderStatusHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.orders[id]; !ok {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	out := make([]models.OrderStatusHistory, len(r.history[id]))
	copy(out, r.history[id])
	return out, nil
}

func cloneOrder(o models.Order) models.Order {
	lines := make([]models.OrderLine, len(o.Lines))
	copy(lines, o.Lines)
	o.Lines = lines
	return o
}
