package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the closed set of order lifecycle states
type OrderStatus string

const (
	// OrderStatusCreated is a provisional online order awaiting payment.
	OrderStatusCreated   OrderStatus = "Created"
	OrderStatusPlaced    OrderStatus = "Placed"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// PaymentMethod is the closed set of payment paths
type PaymentMethod string

const (
	PaymentOnline PaymentMethod = "online"
	PaymentCOD    PaymentMethod = "cod"
)

var (
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidOrderStatus   = errors.New("invalid order status")
)

// ParsePaymentMethod maps user input to a PaymentMethod, ignoring case.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentOnline:
		return PaymentOnline, nil
	case PaymentCOD:
		return PaymentCOD, nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}

// ParseOrderStatus maps user input to one of the statuses a privileged caller
// may set. Created is never settable.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "placed":
		return OrderStatusPlaced, nil
	case "shipped":
		return OrderStatusShipped, nil
	case "delivered":
		return OrderStatusDelivered, nil
	case "cancelled", "canceled":
		return OrderStatusCancelled, nil
	default:
		return "", ErrInvalidOrderStatus
	}
}

// transitions lists the legal moves of the order state machine.
// Created -> Placed happens only through payment verification.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated: {OrderStatusPlaced, OrderStatusCancelled},
	OrderStatusPlaced:  {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered, OrderStatusCancelled},
}

// CanTransition reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Cancellable reports whether an order in this status may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	return s.CanTransition(OrderStatusCancelled)
}

// Terminal reports whether no further transition exists.
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// OrderLine is an immutable snapshot of a cart line taken at checkout
type OrderLine struct {
	ID        int64           `json:"id" db:"id"`
	OrderID   int64           `json:"-" db:"order_id"`
	ProductID int64           `json:"product_id" db:"product_id"`
	Title     string          `json:"title" db:"title"`
	UnitPrice decimal.Decimal `json:"sale_price" db:"unit_price"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Color     string          `json:"color" db:"color"`
	Size      string          `json:"size" db:"size"`
	Image     string          `json:"image" db:"image"`
}

// Subtotal is UnitPrice × Quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order represents a placed or provisional order. Lines and Address are
// copies; later catalog or address-book edits never reach them.
type Order struct {
	ID             int64           `json:"id" db:"id"`
	AccountID      int64           `json:"account_id" db:"account_id"`
	Lines          []OrderLine     `json:"items"`
	ShippingFee    decimal.Decimal `json:"shipping_fee" db:"shipping_fee"`
	TotalAmount    decimal.Decimal `json:"total_amount" db:"total_amount"`
	Address        Address         `json:"address"`
	PaymentMethod  PaymentMethod   `json:"payment_method" db:"payment_method"`
	Status         OrderStatus     `json:"status" db:"status"`
	GatewayOrderID string          `json:"gateway_order_id,omitempty" db:"gateway_order_id"`
	OrderDate      time.Time       `json:"order_date" db:"order_date"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// ItemsCount sums the quantities of every order line.
func (o *Order) ItemsCount() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

// OrderTotal sums the line subtotals and adds the shipping fee.
func OrderTotal(lines []OrderLine, shippingFee decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total.Add(shippingFee)
}

// ToMinorUnits converts a decimal amount to integer minor currency units,
// rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// OrderSummary is the list view of an order
type OrderSummary struct {
	ID            int64           `json:"id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Status        OrderStatus     `json:"status"`
	ItemsCount    int             `json:"items_count"`
	OrderDate     time.Time       `json:"order_date"`
}

// Summary returns the list view of o.
func (o *Order) Summary() OrderSummary {
	return OrderSummary{
		ID:            o.ID,
		TotalAmount:   o.TotalAmount,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		ItemsCount:    o.ItemsCount(),
		OrderDate:     o.OrderDate,
	}
}
