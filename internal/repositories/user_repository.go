package repositories

import (
	"context"

	"storefront/internal/models"
)

// AddressMutation receives the current address list of one user, in
// insertion order, and returns the list that must replace it.
type AddressMutation func(current []models.Address) ([]models.Address, error)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// UpdateProfile writes name, phone, avatar and password hash of user.
	UpdateProfile(ctx context.Context, user *models.User) error
	// MutateAddresses applies fn and persists its result as a single atomic
	// update of the user's address book.
	MutateAddresses(ctx context.Context, userID string, fn AddressMutation) ([]models.Address, error)
}
