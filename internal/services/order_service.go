package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/ids"
)

// DefaultPaymentMethod is recorded when checkout names no payment method.
// Payment is simulated: every order is flagged paid at creation.
const DefaultPaymentMethod = "Cash on Delivery"

// CartLine is one line of the cart snapshot submitted at checkout.
type CartLine struct {
	ProductID string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// PlaceOrderRequest is the checkout input.
type PlaceOrderRequest struct {
	Items   []CartLine
	Contact models.ContactDetails
	// AddressID optionally selects a saved address to ship to.
	AddressID     string
	PaymentMethod string
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo repositories.OrderRepository
	userRepo  repositories.UserRepository
	publisher EventPublisher
	numbers   *ids.Sequence
	shipping  decimal.Decimal
	rt        Runtime
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	userRepo repositories.UserRepository,
	publisher EventPublisher,
	numbers *ids.Sequence,
	shipping decimal.Decimal,
	rt Runtime,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		publisher: publisher,
		numbers:   numbers,
		shipping:  shipping,
		rt:        rt.normalize(),
	}
}

// PlaceOrder turns a cart snapshot into a Pending order. Line prices and names
// are copied from the snapshot; the catalog is not consulted. The cart is not
// cleared here.
func (s *OrderService) PlaceOrder(ctx context.Context, claims *models.Claims, req PlaceOrderRequest) (*models.Order, error) {
	if claims == nil || claims.UserID == "" {
		return nil, apperr.New(apperr.Unauthenticated, "authentication required")
	}

	lines, subtotal, err := snapshotLines(req.Items)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()

	contact, err := s.resolveContact(ctx, claims.UserID, req)
	if err != nil {
		return nil, err
	}

	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = DefaultPaymentMethod
	}
	now := time.Now()

	order := &models.Order{
		ID:            ids.NewUUID(),
		Number:        s.numbers.Next(),
		UserID:        claims.UserID,
		Lines:         lines,
		Shipping:      s.shipping,
		Total:         subtotal.Add(s.shipping),
		Status:        models.StatusPending,
		Contact:       contact,
		PaymentMethod: paymentMethod,
		IsPaid:        true,
		PaidAt:        &now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.rt.Logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.String("total", order.Total.String()))

	publishOrderEvent(ctx, s.publisher, s.rt.Logger, OrderEvent{
		Event:      EventOrderCreated,
		OrderID:    order.ID,
		Number:     order.Number,
		UserID:     order.UserID,
		Status:     order.Status,
		Total:      order.Total,
		OccurredAt: now,
	})
	return order, nil
}

func snapshotLines(items []CartLine) ([]models.OrderLine, decimal.Decimal, error) {
	if len(items) == 0 {
		return nil, decimal.Zero, apperr.Invalid("cart is empty", map[string]string{"items": "at least one item is required"})
	}

	fields := map[string]string{}
	lines := make([]models.OrderLine, 0, len(items))
	subtotal := decimal.Zero
	for i, item := range items {
		key := fmt.Sprintf("items[%d]", i)
		switch {
		case strings.TrimSpace(item.ProductID) == "":
			fields[key] = "product id is required"
		case item.Quantity < 1:
			fields[key] = "quantity must be at least 1"
		case item.Price.IsNegative():
			fields[key] = "price must not be negative"
		}
		line := models.OrderLine{
			ProductID: strings.TrimSpace(item.ProductID),
			Name:      item.Name,
			Image:     item.Image,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
		lines = append(lines, line)
		subtotal = subtotal.Add(line.Subtotal())
	}
	if len(fields) > 0 {
		return nil, decimal.Zero, apperr.Invalid("invalid cart", fields)
	}
	return lines, subtotal, nil
}

// resolveContact fills missing contact fields from the selected (or default)
// saved address and the caller's profile, then checks the required ones.
func (s *OrderService) resolveContact(ctx context.Context, userID string, req PlaceOrderRequest) (models.ContactDetails, error) {
	contact := models.ContactDetails{
		Name:    strings.TrimSpace(req.Contact.Name),
		Email:   strings.TrimSpace(req.Contact.Email),
		Address: strings.TrimSpace(req.Contact.Address),
		Phone:   strings.TrimSpace(req.Contact.Phone),
	}
	addressID := strings.TrimSpace(req.AddressID)

	if contact.Name == "" || contact.Email == "" || contact.Address == "" || contact.Phone == "" {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return contact, err
		}
		if contact.Name == "" {
			contact.Name = user.Name
		}
		if contact.Email == "" {
			contact.Email = user.Email
		}

		var (
			addr models.Address
			ok   bool
		)
		if addressID != "" {
			addr, ok = findAddress(user.Addresses, addressID)
			if !ok {
				return contact, apperr.New(apperr.NotFound, "address not found")
			}
		} else if contact.Address == "" {
			addr, ok = models.DefaultAddress(user.Addresses)
		}
		if ok {
			if contact.Address == "" {
				contact.Address = formatAddress(addr)
			}
			if contact.Phone == "" {
				contact.Phone = addr.Phone
			}
		}
	}

	fields := map[string]string{}
	if contact.Address == "" {
		fields["address"] = "shipping address is required"
	}
	if contact.Phone == "" {
		fields["phone"] = "phone is required"
	}
	if len(fields) > 0 {
		return contact, apperr.Invalid("missing contact details", fields)
	}
	return contact, nil
}

func findAddress(list []models.Address, id string) (models.Address, bool) {
	for _, a := range list {
		if a.ID == id {
			return a, true
		}
	}
	return models.Address{}, false
}

func formatAddress(a models.Address) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.City, a.Province, a.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// SetStatus moves an order to status. Any known status may follow any other;
// the caller is expected to have passed the admin gate.
func (s *OrderService) SetStatus(ctx context.Context, orderID string, status models.OrderStatus, changedBy string) (*models.Order, error) {
	if !status.Valid() {
		return nil, apperr.Invalid("invalid order status", map[string]string{
			"status": fmt.Sprintf("must be one of %v", models.OrderStatuses),
		})
	}

	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()

	before, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order, err := s.orderRepo.UpdateStatus(ctx, orderID, status, changedBy)
	if err != nil {
		return nil, err
	}

	s.rt.Logger.Info("order status changed",
		zap.String("order_id", orderID),
		zap.String("from", string(before.Status)),
		zap.String("to", string(status)))

	publishOrderEvent(ctx, s.publisher, s.rt.Logger, OrderEvent{
		Event:      EventOrderStatusChanged,
		OrderID:    order.ID,
		Number:     order.Number,
		UserID:     order.UserID,
		Status:     order.Status,
		FromStatus: before.Status,
		Total:      order.Total,
		OccurredAt: time.Now(),
	})
	return order, nil
}

// ListForUser returns every order owned by userID.
func (s *OrderService) ListForUser(ctx context.Context, userID string) ([]models.Order, error) {
	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()
	return s.orderRepo.ListByUser(ctx, userID)
}

// ListByCategory returns a filtered view of the orders owned by userID.
// The orders category is unfiltered and includes returns and cancellations.
func (s *OrderService) ListByCategory(ctx context.Context, userID string, category models.OrderCategory) ([]models.Order, error) {
	var statuses []models.OrderStatus
	switch category {
	case models.CategoryOrders, "":
	case models.CategoryReturns:
		statuses = []models.OrderStatus{models.StatusReturned}
	case models.CategoryCancellations:
		statuses = []models.OrderStatus{models.StatusCancelled}
	default:
		return nil, apperr.Invalid("invalid category", map[string]string{
			"category": "must be one of orders, returns, cancellations",
		})
	}

	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()
	return s.orderRepo.ListByUser(ctx, userID, statuses...)
}

// ListAll returns every order with its owner.
func (s *OrderService) ListAll(ctx context.Context, claims *models.Claims) ([]models.Order, error) {
	if err := requireAdmin(claims); err != nil {
		return nil, err
	}
	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()
	return s.orderRepo.GetAll(ctx)
}

// GetOrder returns one order to its owner or an admin. Another user's order
// is reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, claims *models.Claims, orderID string) (*models.Order, error) {
	if claims == nil {
		return nil, apperr.New(apperr.Unauthenticated, "authentication required")
	}
	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != claims.UserID && !claims.IsAdmin() {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	return order, nil
}

// History returns the status changes of an order.
func (s *OrderService) History(ctx context.Context, orderID string) ([]models.OrderStatusHistory, error) {
	ctx, cancel := s.rt.bounded(ctx)
	defer cancel()
	return s.orderRepo.History(ctx, orderID)
}
