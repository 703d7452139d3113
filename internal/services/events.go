package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/models"
)

// Routing keys of order events.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// EventPublisher delivers order events to a broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// OrderEvent is the message body of every order event.
type OrderEvent struct {
	Event      string             `json:"event"`
	OrderID    string             `json:"orderId"`
	Number     string             `json:"number"`
	UserID     string             `json:"userId"`
	Status     models.OrderStatus `json:"status"`
	FromStatus models.OrderStatus `json:"fromStatus,omitempty"`
	Total      decimal.Decimal    `json:"total"`
	OccurredAt time.Time          `json:"occurredAt"`
}

// publishOrderEvent sends an event without ever failing the caller.
func publishOrderEvent(ctx context.Context, pub EventPublisher, log *zap.Logger, event OrderEvent) {
	if pub == nil {
		log.Debug("event publisher not configured, skipping", zap.String("event", event.Event))
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Warn("failed to marshal order event", zap.String("order_id", event.OrderID), zap.Error(err))
		return
	}
	if err := pub.Publish(ctx, event.Event, body); err != nil {
		log.Warn("failed to publish order event",
			zap.String("event", event.Event),
			zap.String("order_id", event.OrderID),
			zap.Error(err))
		return
	}
	log.Debug("order event published", zap.String("event", event.Event), zap.String("order_id", event.OrderID))
}
