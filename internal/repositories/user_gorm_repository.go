package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"storefront/internal/models"
	"storefront/pkg/ids"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = ids.NewUUID()
	}
	if err := r.db.WithContext(ctx).Omit("Addresses").Create(user).Error; err != nil {
		return translate(err, "user")
	}
	return nil
}

// GetByEmail retrieves a user and its addresses by exact email match.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Addresses", orderByPosition).
		First(&user, "email = ?", email).Error
	if err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

// GetByID retrieves a user and its addresses by id.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Addresses", orderByPosition).
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

// UpdateProfile updates the mutable profile columns. Email is never written.
func (r *GORMUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Select("name", "phone", "avatar", "password_hash").
		Updates(map[string]interface{}{
			"name":          user.Name,
			"phone":         user.Phone,
			"avatar":        user.Avatar,
			"password_hash": user.PasswordHash,
		})
	if res.Error != nil {
		return translate(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "user")
	}
	return nil
}

// MutateAddresses replaces the address book of userID with the result of fn
// inside one transaction. The user row's version column is bumped with a
// compare-and-set; a concurrent writer makes it return ErrVersionConflict.
func (r *GORMUserRepository) MutateAddresses(ctx context.Context, userID string, fn AddressMutation) ([]models.Address, error) {
	var result []models.Address
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id", "version").First(&user, "id = ?", userID).Error; err != nil {
			return err
		}

		var current []models.Address
		if err := tx.Where("user_id = ?", userID).Order("position asc").Find(&current).Error; err != nil {
			return fmt.Errorf("failed to load addresses: %w", err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		res := tx.Model(&models.User{}).
			Where("id = ? AND version = ?", userID, user.Version).
			Update("version", gorm.Expr("version + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.Address{}).Error; err != nil {
			return fmt.Errorf("failed to clear addresses: %w", err)
		}
		for i := range next {
			next[i].UserID = userID
			next[i].Position = i
			if next[i].ID == "" {
				next[i].ID = ids.NewUUID()
			}
		}
		if len(next) > 0 {
			if err := tx.Create(&next).Error; err != nil {
				return fmt.Errorf("failed to write addresses: %w", err)
			}
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, translate(err, "user")
	}
	if result == nil {
		result = []models.Address{}
	}
	return result, nil
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}
