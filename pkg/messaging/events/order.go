// Package events holds the wire shapes of published domain events.
package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/orders/pkg/messaging"
	"github.com/google/uuid"
)

// OrderCreatedEvent is published after an order is persisted and its stock
// reconciliation confirmed.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	ClientID    uuid.UUID `json:"client_id"`
	Total       int64     `json:"total"`
	CreatedAt   time.Time `json:"created_at"`
}

func (o OrderCreatedEvent) Subject() string {
	return messaging.OrdersCreatedSubject
}

func (o OrderCreatedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}
