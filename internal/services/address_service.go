package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

// AddressInput are the caller-supplied fields of a new address.
type AddressInput struct {
	Name       string
	Street     string
	City       string
	Province   string
	PostalCode string
	Phone      string
	IsDefault  bool
}

func (in AddressInput) toAddress() models.Address {
	return models.Address{
		Name:       strings.TrimSpace(in.Name),
		Street:     strings.TrimSpace(in.Street),
		City:       strings.TrimSpace(in.City),
		Province:   strings.TrimSpace(in.Province),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Phone:      strings.TrimSpace(in.Phone),
		IsDefault:  in.IsDefault,
	}
}

// AddressService manages the address book of a user. Once a user has an
// address, exactly one of them is the default, unless the default itself
// was removed.
type AddressService struct {
	userRepo repositories.UserRepository
	rt       Runtime
}

// NewAddressService creates a new AddressService.
func NewAddressService(userRepo repositories.UserRepository, rt Runtime) *AddressService {
	return &AddressService{userRepo: userRepo, rt: rt.normalize()}
}

// List returns the addresses of userID in insertion order.
func (s *AddressService) List(ctx context.Context, userID string) ([]models.Address, error) {
	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Addresses == nil {
		return []models.Address{}, nil
	}
	return user.Addresses, nil
}

// Add appends an address. A default address clears the flag on every
// sibling; the first address of an empty book is always the default.
func (s *AddressService) Add(ctx context.Context, userID string, input AddressInput) ([]models.Address, error) {
	addr := input.toAddress()
	fields := map[string]string{}
	if addr.Street == "" {
		fields["street"] = "street is required"
	}
	if addr.City == "" {
		fields["city"] = "city is required"
	}
	if len(fields) > 0 {
		return nil, apperr.Invalid("validation failed", fields)
	}

	addresses, err := s.mutate(ctx, userID, func(current []models.Address) ([]models.Address, error) {
		next := addr
		if next.IsDefault {
			for i := range current {
				current[i].IsDefault = false
			}
		} else if len(current) == 0 {
			next.IsDefault = true
		}
		return append(current, next), nil
	})
	if err != nil {
		return nil, err
	}
	s.rt.Logger.Info("address added", zap.String("user_id", userID), zap.Int("count", len(addresses)))
	return addresses, nil
}

// Remove deletes one address. Removing the default does not promote another.
func (s *AddressService) Remove(ctx context.Context, userID, addressID string) ([]models.Address, error) {
	return s.mutate(ctx, userID, func(current []models.Address) ([]models.Address, error) {
		next := make([]models.Address, 0, len(current))
		found := false
		for _, a := range current {
			if a.ID == addressID {
				found = true
				continue
			}
			next = append(next, a)
		}
		if !found {
			return nil, apperr.New(apperr.NotFound, "address not found")
		}
		return next, nil
	})
}

// SetDefault marks addressID as the only default address of userID.
func (s *AddressService) SetDefault(ctx context.Context, userID, addressID string) ([]models.Address, error) {
	return s.mutate(ctx, userID, func(current []models.Address) ([]models.Address, error) {
		found := false
		for i := range current {
			current[i].IsDefault = current[i].ID == addressID
			found = found || current[i].IsDefault
		}
		if !found {
			return nil, apperr.New(apperr.NotFound, "address not found")
		}
		return current, nil
	})
}

// Get returns one address owned by userID.
func (s *AddressService) Get(ctx context.Context, userID, addressID string) (*models.Address, error) {
	addresses, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range addresses {
		if addresses[i].ID == addressID {
			return &addresses[i], nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "address not found")
}

func (s *AddressService) mutate(ctx context.Context, userID string, fn repositories.AddressMutation) ([]models.Address, error) {
	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()

	var addresses []models.Address
	err := withRetry(ctx, func() error {
		var err error
		addresses, err = s.userRepo.MutateAddresses(ctx, userID, fn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return addresses, nil
}
