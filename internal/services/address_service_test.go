package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
)

func newAddressFixture(t *testing.T) (*services.AddressService, *repositories.MockUserRepository, string) {
	t.Helper()
	repo := repositories.NewMockUserRepository()
	user := &models.User{Email: "home@example.com", Name: "Home"}
	require.NoError(t, repo.Create(context.Background(), user))
	return services.NewAddressService(repo, services.Runtime{}), repo, user.ID
}

func defaults(list []models.Address) []string {
	var out []string
	for _, a := range list {
		if a.IsDefault {
			out = append(out, a.ID)
		}
	}
	return out
}

func TestAddressService_FirstAddressIsDefault(t *testing.T) {
	service, _, userID := newAddressFixture(t)

	list, err := service.Add(context.Background(), userID, services.AddressInput{Street: "1 A St", City: "X", IsDefault: false})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsDefault)
	assert.NotEmpty(t, list[0].ID)
}

func TestAddressService_AddDefaultClearsOthers(t *testing.T) {
	service, _, userID := newAddressFixture(t)
	ctx := context.Background()

	_, err := service.Add(ctx, userID, services.AddressInput{Street: "1 A St", City: "X"})
	require.NoError(t, err)
	_, err = service.Add(ctx, userID, services.AddressInput{Street: "2 B St", City: "Y"})
	require.NoError(t, err)

	list, err := service.Add(ctx, userID, services.AddressInput{Street: "3 C St", City: "Z", IsDefault: true})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{list[2].ID}, defaults(list))

	// Insertion order is kept
	assert.Equal(t, "1 A St", list[0].Street)
	assert.Equal(t, "2 B St", list[1].Street)
}

func TestAddressService_AddValidation(t *testing.T) {
	service, _, userID := newAddressFixture(t)

	_, err := service.Add(context.Background(), userID, services.AddressInput{Street: " "})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Validation))
	assert.Contains(t, apperr.FieldsOf(err), "street")
	assert.Contains(t, apperr.FieldsOf(err), "city")

	_, err = service.Add(context.Background(), "missing", services.AddressInput{Street: "1 A St", City: "X"})
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestAddressService_SetDefault(t *testing.T) {
	service, _, userID := newAddressFixture(t)
	ctx := context.Background()

	_, err := service.Add(ctx, userID, services.AddressInput{Street: "1 A St", City: "X"})
	require.NoError(t, err)
	list, err := service.Add(ctx, userID, services.AddressInput{Street: "2 B St", City: "Y"})
	require.NoError(t, err)

	list, err = service.SetDefault(ctx, userID, list[1].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{list[1].ID}, defaults(list))

	_, err = service.SetDefault(ctx, userID, "missing")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	// A failed call leaves the book unchanged
	list, err = service.List(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{list[1].ID}, defaults(list))
}

func TestAddressService_RemoveDoesNotPromote(t *testing.T) {
	service, _, userID := newAddressFixture(t)
	ctx := context.Background()

	first, err := service.Add(ctx, userID, services.AddressInput{Street: "1 A St", City: "X"})
	require.NoError(t, err)
	_, err = service.Add(ctx, userID, services.AddressInput{Street: "2 B St", City: "Y"})
	require.NoError(t, err)

	list, err := service.Remove(ctx, userID, first[0].ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, defaults(list))

	_, err = service.Remove(ctx, userID, first[0].ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	got, err := service.Get(ctx, userID, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "2 B St", got.Street)
}

func TestAddressService_ListEmpty(t *testing.T) {
	service, _, userID := newAddressFixture(t)
	list, err := service.List(context.Background(), userID)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestAddressService_ConcurrentSetDefault(t *testing.T) {
	service, _, userID := newAddressFixture(t)
	ctx := context.Background()

	var list []models.Address
	var err error
	for _, street := range []string{"1 A St", "2 B St", "3 C St"} {
		list, err = service.Add(ctx, userID, services.AddressInput{Street: street, City: "X"})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := service.SetDefault(ctx, userID, id)
			assert.NoError(t, err)
		}(list[i%len(list)].ID)
	}
	wg.Wait()

	final, err := service.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, defaults(final), 1)
}

func TestAddressService_RetriesVersionConflict(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := services.NewAddressService(mockRepo, services.Runtime{})
	want := []models.Address{{ID: "a1", Street: "1 A St", City: "X", IsDefault: true}}

	mockRepo.On("MutateAddresses", mock.Anything, "user-1", mock.Anything).
		Return(nil, repositories.ErrVersionConflict).Twice()
	mockRepo.On("MutateAddresses", mock.Anything, "user-1", mock.Anything).
		Return(want, nil).Once()

	list, err := service.SetDefault(context.Background(), "user-1", "a1")
	require.NoError(t, err)
	assert.Equal(t, want, list)
	mockRepo.AssertNumberOfCalls(t, "MutateAddresses", 3)
}

func TestAddressService_RetriesExhausted(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := services.NewAddressService(mockRepo, services.Runtime{StoreTimeout: time.Second})

	mockRepo.On("MutateAddresses", mock.Anything, "user-1", mock.Anything).
		Return(nil, repositories.ErrVersionConflict)

	_, err := service.SetDefault(context.Background(), "user-1", "a1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Transient))
	mockRepo.AssertNumberOfCalls(t, "MutateAddresses", 5)
}
