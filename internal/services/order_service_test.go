package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/ids"
)

type orderFixture struct {
	service   *services.OrderService
	orders    *repositories.MockOrderRepository
	users     *repositories.MockUserRepository
	publisher *MockPublisher
	user      *models.User
	claims    *models.Claims
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	users := repositories.NewMockUserRepository()
	orders := repositories.NewMockOrderRepository()
	publisher := new(MockPublisher)

	user := &models.User{Email: "buyer@example.com", Name: "Buyer", Role: models.RoleUser}
	require.NoError(t, users.Create(context.Background(), user))

	service := services.NewOrderService(orders, users, publisher, ids.NewSequence(1),
		decimal.NewFromInt(500), services.Runtime{})
	return &orderFixture{
		service:   service,
		orders:    orders,
		users:     users,
		publisher: publisher,
		user:      user,
		claims:    &models.Claims{UserID: user.ID, Email: user.Email, Role: models.RoleUser},
	}
}

func cartOf(price int64, qty int) []services.CartLine {
	return []services.CartLine{{ProductID: "p1", Name: "Widget", Price: decimal.NewFromInt(price), Quantity: qty}}
}

var shipTo = models.ContactDetails{Address: "1 Main St", Phone: "555-0100"}

func TestOrderService_PlaceOrderTotals(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.On("Publish", mock.Anything, services.EventOrderCreated, mock.Anything).Return(nil).Once()

	order, err := f.service.PlaceOrder(context.Background(), f.claims, services.PlaceOrderRequest{
		Items:   cartOf(1000, 2),
		Contact: shipTo,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.NotEmpty(t, order.Number)
	assert.True(t, decimal.NewFromInt(2500).Equal(order.Total), order.Total.String())
	assert.True(t, decimal.NewFromInt(500).Equal(order.Shipping))
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, f.user.ID, order.UserID)
	assert.Equal(t, services.DefaultPaymentMethod, order.PaymentMethod)
	assert.True(t, order.IsPaid)
	assert.NotNil(t, order.PaidAt)

	// Contact name and email default to the profile
	assert.Equal(t, "Buyer", order.Contact.Name)
	assert.Equal(t, "buyer@example.com", order.Contact.Email)
	assert.Equal(t, "1 Main St", order.Contact.Address)

	require.Len(t, order.Lines, 1)
	assert.Equal(t, "p1", order.Lines[0].ProductID)
	assert.True(t, decimal.NewFromInt(1000).Equal(order.Lines[0].Price))
	f.publisher.AssertExpectations(t)

	stored, err := f.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2500).Equal(stored.Total))
}

func TestOrderService_PlaceOrderEventBody(t *testing.T) {
	f := newOrderFixture(t)
	var body []byte
	f.publisher.On("Publish", mock.Anything, services.EventOrderCreated, mock.Anything).
		Run(func(args mock.Arguments) { body = args.Get(2).([]byte) }).
		Return(nil).Once()

	order, err := f.service.PlaceOrder(context.Background(), f.claims, services.PlaceOrderRequest{
		Items:   cartOf(10, 1),
		Contact: shipTo,
	})
	require.NoError(t, err)

	var event services.OrderEvent
	require.NoError(t, json.Unmarshal(body, &event))
	assert.Equal(t, services.EventOrderCreated, event.Event)
	assert.Equal(t, order.ID, event.OrderID)
	assert.Equal(t, order.Number, event.Number)
	assert.Equal(t, models.StatusPending, event.Status)
}

func TestOrderService_PublishFailureDoesNotFailOrder(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	order, err := f.service.PlaceOrder(context.Background(), f.claims, services.PlaceOrderRequest{
		Items:   cartOf(10, 1),
		Contact: shipTo,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
}

func TestOrderService_NilPublisher(t *testing.T) {
	users := repositories.NewMockUserRepository()
	user := &models.User{Email: "x@example.com", Name: "X"}
	require.NoError(t, users.Create(context.Background(), user))
	service := services.NewOrderService(repositories.NewMockOrderRepository(), users, nil, nil,
		decimal.Zero, services.Runtime{})

	order, err := service.PlaceOrder(context.Background(), &models.Claims{UserID: user.ID, Role: models.RoleUser},
		services.PlaceOrderRequest{Items: cartOf(10, 3), Contact: shipTo})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(30).Equal(order.Total))
	assert.NotEmpty(t, order.Number)
}

func TestOrderService_PlaceOrderFailures(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.service.PlaceOrder(ctx, nil, services.PlaceOrderRequest{Items: cartOf(10, 1), Contact: shipTo})
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))

	_, err = f.service.PlaceOrder(ctx, f.claims, services.PlaceOrderRequest{Contact: shipTo})
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = f.service.PlaceOrder(ctx, f.claims, services.PlaceOrderRequest{Items: cartOf(10, 0), Contact: shipTo})
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = f.service.PlaceOrder(ctx, f.claims, services.PlaceOrderRequest{Items: cartOf(-5, 1), Contact: shipTo})
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = f.service.PlaceOrder(ctx, f.claims, services.PlaceOrderRequest{Items: cartOf(10, 1)})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Validation))
	assert.Contains(t, apperr.FieldsOf(err), "address")
	assert.Contains(t, apperr.FieldsOf(err), "phone")

	_, err = f.service.PlaceOrder(ctx, f.claims, services.PlaceOrderRequest{Items: cartOf(10, 1), AddressID: "nope"})
	assert.True(t, apperr.Is(err, apperr.NotFound))

	orders, err := f.orders.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_PlaceOrderWithSavedAddress(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	addresses := services.NewAddressService(f.users, services.Runtime{})

	list, err := addresses.Add(context.Background(), f.user.ID, services.AddressInput{
		Street: "9 Elm St", City: "Springfield", PostalCode: "12345", Phone: "555-0199",
	})
	require.NoError(t, err)

	order, err := f.service.PlaceOrder(context.Background(), f.claims, services.PlaceOrderRequest{
		Items:         cartOf(10, 1),
		AddressID:     list[0].ID,
		PaymentMethod: "Bank Transfer",
	})
	require.NoError(t, err)
	assert.Equal(t, "9 Elm St, Springfield, 12345", order.Contact.Address)
	assert.Equal(t, "555-0199", order.Contact.Phone)
	assert.Equal(t, "Bank Transfer", order.PaymentMethod)
}

func TestOrderService_LinesAreSnapshots(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	items := cartOf(1000, 1)
	order, err := f.service.PlaceOrder(context.Background(), f.claims, services.PlaceOrderRequest{Items: items, Contact: shipTo})
	require.NoError(t, err)

	// Later price changes in the caller's cart or catalog do not reach the order.
	items[0].Price = decimal.NewFromInt(1)
	stored, err := f.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(stored.Lines[0].Price))
	assert.True(t, decimal.NewFromInt(1500).Equal(stored.Total))
}

func TestOrderService_SetStatus(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.On("Publish", mock.Anything, services.EventOrderCreated, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, services.EventOrderStatusChanged, mock.Anything).Return(nil)
	ctx := context.Background()

	order, err := f.service.PlaceOrder(ctx, f.claims, services.PlaceOrderRequest{Items: cartOf(10, 1), Contact: shipTo})
	require.NoError(t, err)

	updated, err := f.service.SetStatus(ctx, order.ID, models.StatusShipped, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, updated.Status)
	assert.True(t, order.Total.Equal(updated.Total))

	// Any known status may follow any other.
	updated, err = f.service.SetStatus(ctx, order.ID, models.StatusPending, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)

	_, err = f.service.SetStatus(ctx, order.ID, "Lost", "admin-1")
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = f.service.SetStatus(ctx, "missing", models.StatusShipped, "admin-1")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	history, err := f.service.History(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.StatusPending, history[1].FromStatus)
	assert.Equal(t, models.StatusShipped, history[1].ToStatus)
	assert.Equal(t, "admin-1", history[1].ChangedBy)
	f.publisher.AssertNumberOfCalls(t, "Publish", 3)
}

func TestOrderService_ListByCategory(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	other := &models.User{Email: "other@example.com", Name: "Other"}
	require.NoError(t, f.users.Create(ctx, other))
	otherClaims := &models.Claims{UserID: other.ID, Role: models.RoleUser}

	place := func(claims *models.Claims, status models.OrderStatus) *models.Order {
		o, err := f.service.PlaceOrder(ctx, claims, services.PlaceOrderRequest{Items: cartOf(10, 1), Contact: shipTo})
		require.NoError(t, err)
		if status != models.StatusPending {
			o, err = f.service.SetStatus(ctx, o.ID, status, "admin-1")
			require.NoError(t, err)
		}
		return o
	}
	place(f.claims, models.StatusPending)
	returned := place(f.claims, models.StatusReturned)
	cancelled := place(f.claims, models.StatusCancelled)
	place(otherClaims, models.StatusReturned)

	returns, err := f.service.ListByCategory(ctx, f.user.ID, models.CategoryReturns)
	require.NoError(t, err)
	require.Len(t, returns, 1)
	assert.Equal(t, returned.ID, returns[0].ID)
	assert.Equal(t, f.user.ID, returns[0].UserID)

	cancellations, err := f.service.ListByCategory(ctx, f.user.ID, models.CategoryCancellations)
	require.NoError(t, err)
	require.Len(t, cancellations, 1)
	assert.Equal(t, cancelled.ID, cancellations[0].ID)

	all, err := f.service.ListByCategory(ctx, f.user.ID, models.CategoryOrders)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := f.service.ListForUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	_, err = f.service.ListByCategory(ctx, f.user.ID, "wishlist")
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = f.service.ListAll(ctx, f.claims)
	assert.True(t, apperr.Is(err, apperr.Forbidden))
	everything, err := f.service.ListAll(ctx, adminClaims)
	require.NoError(t, err)
	assert.Len(t, everything, 4)
}

func TestOrderService_GetOrder(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	order, err := f.service.PlaceOrder(ctx, f.claims, services.PlaceOrderRequest{Items: cartOf(10, 1), Contact: shipTo})
	require.NoError(t, err)

	got, err := f.service.GetOrder(ctx, f.claims, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = f.service.GetOrder(ctx, adminClaims, order.ID)
	assert.NoError(t, err)

	_, err = f.service.GetOrder(ctx, &models.Claims{UserID: "stranger", Role: models.RoleUser}, order.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = f.service.GetOrder(ctx, nil, order.ID)
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
}

func TestOrderService_ListByCategoryUsesStatusFilter(t *testing.T) {
	mockOrders := new(MockOrderRepository)
	service := services.NewOrderService(mockOrders, new(MockUserRepository), nil, nil, decimal.Zero, services.Runtime{})

	mockOrders.On("ListByUser", mock.Anything, "user-1", []models.OrderStatus{models.StatusReturned}).
		Return([]models.Order{{ID: "o1", Status: models.StatusReturned}}, nil).Once()
	mockOrders.On("ListByUser", mock.Anything, "user-1", []models.OrderStatus(nil)).
		Return(nil, apperr.New(apperr.Transient, "store unavailable")).Once()

	orders, err := service.ListByCategory(context.Background(), "user-1", models.CategoryReturns)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	_, err = service.ListByCategory(context.Background(), "user-1", "")
	assert.True(t, apperr.Is(err, apperr.Transient))
	mockOrders.AssertExpectations(t)
}

func TestOrderService_PlaceOrderFallsBackToDefaultAddress(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	addresses := services.NewAddressService(f.users, services.Runtime{})
	ctx := context.Background()

	_, err := addresses.Add(ctx, f.user.ID, services.AddressInput{Street: "1 Old Rd", City: "A", Phone: "111"})
	require.NoError(t, err)
	_, err = addresses.Add(ctx, f.user.ID, services.AddressInput{Street: "2 New Rd", City: "B", Phone: "222", IsDefault: true})
	require.NoError(t, err)

	order, err := f.service.PlaceOrder(ctx, f.claims, services.PlaceOrderRequest{Items: cartOf(10, 1)})
	require.NoError(t, err)
	assert.Equal(t, "2 New Rd, B", order.Contact.Address)
	assert.Equal(t, "222", order.Contact.Phone)

	// An explicit phone wins over the saved one
	order, err = f.service.PlaceOrder(ctx, f.claims, services.PlaceOrderRequest{
		Items:   cartOf(10, 1),
		Contact: models.ContactDetails{Phone: "999"},
	})
	require.NoError(t, err)
	assert.Equal(t, "999", order.Contact.Phone)
}
