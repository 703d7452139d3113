package repositories

import (
	"context"
	"sync"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/pkg/ids"
)

// MockUserRepository is an in-memory implementation of UserRepository.
// Writes to one user are serialized by a per-user lock.
type MockUserRepository struct {
	users   map[string]models.User
	byEmail map[string]string
	locks   map[string]*sync.Mutex
	mu      sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Create adds a new user, rejecting a duplicate email.
func (r *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return apperr.New(apperr.Conflict, "user already exists")
	}
	if user.ID == "" {
		user.ID = ids.NewUUID()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = cloneUser(*user)
	r.byEmail[user.Email] = user.ID
	r.locks[user.ID] = &sync.Mutex{}
	return nil
}

// GetByEmail returns a user by exact email.
func (r *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	user := cloneUser(r.users[id])
	return &user, nil
}

// GetByID returns a user by id.
func (r *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	user = cloneUser(user)
	return &user, nil
}

// UpdateProfile writes the mutable profile fields.
func (r *MockUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[user.ID]
	if !ok {
		return apperr.New(apperr.NotFound, "user not found")
	}
	stored.Name = user.Name
	stored.Phone = user.Phone
	stored.Avatar = user.Avatar
	stored.PasswordHash = user.PasswordHash
	stored.UpdatedAt = time.Now()
	r.users[user.ID] = stored
	return nil
}

// MutateAddresses applies fn while holding the user's lock.
func (r *MockUserRepository) MutateAddresses(ctx context.Context, userID string, fn AddressMutation) ([]models.Address, error) {
	r.mu.RLock()
	lock, ok := r.locks[userID]
	r.mu.RUnlock()
	if !ok {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}

	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	current := cloneAddresses(r.users[userID].Addresses)
	r.mu.RUnlock()

	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	for i := range next {
		next[i].UserID = userID
		next[i].Position = i
		if next[i].ID == "" {
			next[i].ID = ids.NewUUID()
		}
	}

	r.mu.Lock()
	user := r.users[userID]
	user.Addresses = cloneAddresses(next)
	user.Version++
	r.users[userID] = user
	r.mu.Unlock()

	if next == nil {
		next = []models.Address{}
	}
	return cloneAddresses(next), nil
}

func cloneUser(u models.User) models.User {
	u.Addresses = cloneAddresses(u.Addresses)
	return u
}

func cloneAddresses(list []models.Address) []models.Address {
	if list == nil {
		return nil
	}
	out := make([]models.Address, len(list))
	copy(out, list)
	return out
}
