// Package events publishes order lifecycle events after their transaction
// has committed.
package events

import (
	"context"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/shopspring/decimal"
)

// Event types
const (
	TypeOrderProvisional   = "order.provisional"
	TypeOrderPlaced        = "order.placed"
	TypeOrderStatusChanged = "order.status_changed"
	TypeOrdersReclaimed    = "orders.reclaimed"
)

// Event is one order lifecycle fact
type Event struct {
	Type           string             `json:"type"`
	OrderID        int64              `json:"order_id,omitempty"`
	AccountID      int64              `json:"account_id,omitempty"`
	Status         models.OrderStatus `json:"status,omitempty"`
	PreviousStatus models.OrderStatus `json:"previous_status,omitempty"`
	PaymentMethod  string             `json:"payment_method,omitempty"`
	TotalAmount    *decimal.Decimal   `json:"total_amount,omitempty"`
	Count          int64              `json:"count,omitempty"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

// OrderEvent builds an event of type typ describing o.
func OrderEvent(typ string, o *models.Order, previous models.OrderStatus) Event {
	total := o.TotalAmount
	return Event{
		Type:           typ,
		OrderID:        o.ID,
		AccountID:      o.AccountID,
		Status:         o.Status,
		PreviousStatus: previous,
		PaymentMethod:  string(o.PaymentMethod),
		TotalAmount:    &total,
		OccurredAt:     time.Now().UTC(),
	}
}

// Publisher delivers events
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, ...Event) error { return nil }
func (Noop) Close() error                           { return nil }
