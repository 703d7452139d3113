package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"storefront/internal/models"
	"storefront/pkg/ids"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

func linesInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("id asc")
}

func ownerColumns(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "email", "role")
}

// GetAll retrieves every order with its lines and owner.
func (r *GORMOrderRepository) GetAll(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	err := r.db.WithContext(ctx).
		Preload("Lines", linesInOrder).
		Preload("User", ownerColumns).
		Order("created_at desc").
		Find(&orders).Error
	if err != nil {
		return nil, translate(err, "order")
	}
	return orders, nil
}

// ListByUser retrieves the orders owned by userID.
func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID string, statuses ...models.OrderStatus) ([]models.Order, error) {
	orders := []models.Order{}
	q := r.db.WithContext(ctx).
		Preload("Lines", linesInOrder).
		Where("user_id = ?", userID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if err := q.Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, translate(err, "order")
	}
	return orders, nil
}

// GetByID retrieves one order with its lines.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", linesInOrder).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "order")
	}
	return &order, nil
}

// Create writes the order, its lines and the initial history entry in one transaction.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = ids.NewUUID()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User").Create(order).Error; err != nil {
			return err
		}
		return tx.Create(&models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  order.Status,
			ChangedBy: order.UserID,
		}).Error
	})
	return translate(err, "order")
}

// UpdateStatus sets the status of an order. Lines and totals are untouched.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, changedBy string) (*models.Order, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Order
		if err := tx.Select("id", "status").First(&current, "id = ?", id).Error; err != nil {
			return err
		}
		err := tx.Model(&models.Order{}).
			Where("id = ?", id).
			UpdateColumns(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
		if err != nil {
			return err
		}
		return tx.Create(&models.OrderStatusHistory{
			OrderID:    id,
			FromStatus: current.Status,
			ToStatus:   status,
			ChangedBy:  changedBy,
		}).Error
	})
	if err != nil {
		return nil, translate(err, "order")
	}
	return r.GetByID(ctx, id)
}

// History returns the status changes of an order, oldest first.
func (r *GORMOrderRepository) History(ctx context.Context, id string) ([]models.OrderStatusHistory, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return nil, translate(err, "order")
	}
	if count == 0 {
		return nil, translate(gorm.ErrRecordNotFound, "order")
	}
	history := []models.OrderStatusHistory{}
	err := r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Order("id asc").
		Find(&history).Error
	if err != nil {
		return nil, translate(err, "order")
	}
	return history, nil
}
