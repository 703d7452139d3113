package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is a state of the order lifecycle.
type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusShipped   OrderStatus = "Shipped"
	StatusDelivered OrderStatus = "Delivered"
	StatusCancelled OrderStatus = "Cancelled"
	StatusReturned  OrderStatus = "Returned"
)

// OrderStatuses lists every known status.
var OrderStatuses = []OrderStatus{StatusPending, StatusShipped, StatusDelivered, StatusCancelled, StatusReturned}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// OrderCategory selects a per-user order view.
type OrderCategory string

const (
	CategoryOrders        OrderCategory = "orders"
	CategoryReturns       OrderCategory = "returns"
	CategoryCancellations OrderCategory = "cancellations"
)

// OrderLine is a frozen copy of a cart line taken at checkout.
type OrderLine struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	OrderID   string          `json:"-" gorm:"index;type:varchar(36);not null"`
	ProductID string          `json:"productId" gorm:"type:varchar(36);not null"`
	Name      string          `json:"name" gorm:"type:varchar(200)"`
	Image     string          `json:"image" gorm:"type:text"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"` // price at the time of order
	Quantity  int             `json:"quantity" gorm:"not null"`
}

// Subtotal is price × quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ContactDetails are the shipping/contact values captured at checkout.
type ContactDetails struct {
	Name    string `json:"name" gorm:"type:varchar(100)"`
	Email   string `json:"email" gorm:"type:varchar(255)"`
	Address string `json:"address" gorm:"type:text"`
	Phone   string `json:"phone" gorm:"type:varchar(32)"`
}

// Order represents a placed order. Only Status changes after creation.
type Order struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Number        string          `json:"number" gorm:"uniqueIndex;type:varchar(32)"`
	UserID        string          `json:"userId" gorm:"index;type:varchar(36);not null"`
	User          *User           `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Lines         []OrderLine     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Shipping      decimal.Decimal `json:"shipping" gorm:"type:decimal(12,2);not null"`
	Total         decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`
	Status        OrderStatus     `json:"status" gorm:"type:varchar(16);index;not null"`
	Contact       ContactDetails  `json:"customerDetails" gorm:"embedded;embeddedPrefix:contact_"`
	PaymentMethod string          `json:"paymentMethod" gorm:"type:varchar(50)"`
	IsPaid        bool            `json:"isPaid"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// OrderStatusHistory records one status change.
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    string      `json:"orderId" gorm:"index;type:varchar(36);not null"`
	FromStatus OrderStatus `json:"fromStatus" gorm:"type:varchar(16)"`
	ToStatus   OrderStatus `json:"toStatus" gorm:"type:varchar(16);not null"`
	ChangedBy  string      `json:"changedBy" gorm:"type:varchar(36)"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// TableName keeps the history table name singular.
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
