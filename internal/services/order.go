package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/events"
	"github.com/SigNoz/retail-order-engine/internal/metrics"
	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/store"
	"github.com/rs/zerolog"
)

const maxOrderPageSize = 100

// OrderService handles order-related operations after checkout
type OrderService struct {
	uow       unitOfWork
	publisher events.Publisher
	metrics   *metrics.AppMetrics
	logger    zerolog.Logger
}

// NewOrderService creates a new order service
func NewOrderService(st store.Store, pub events.Publisher, m *metrics.AppMetrics, storeTimeout time.Duration, logger zerolog.Logger) *OrderService {
	return &OrderService{
		uow:       unitOfWork{store: st, timeout: storeTimeout},
		publisher: pub,
		metrics:   m,
		logger:    logger.With().Str("component", "orders").Logger(),
	}
}

// GetOrder returns an order to its owner or to a privileged caller
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, orderID int64) (*models.Order, error) {
	if orderID <= 0 {
		return nil, Validation("order id is required")
	}
	var o *models.Order
	err := s.uow.run(ctx, "order", func(tx store.Tx) error {
		var err error
		o, err = tx.Orders().GetOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !OwnsOrder(actor, o) && !CanManageOrders(actor) {
		return nil, Forbidden("you are not authorized to view this order")
	}
	return o, nil
}

// AdvanceStatus sets the status of any order. Only privileged callers may use
// it, the target must be Placed, Shipped, Delivered or Cancelled and the move
// must be an edge of the order state machine. Created orders only become
// Placed through payment verification.
func (s *OrderService) AdvanceStatus(ctx context.Context, actor Actor, orderID int64, status string) (*models.Order, error) {
	if !CanManageOrders(actor) {
		return nil, Forbidden("you are not authorized to update order status")
	}
	if orderID <= 0 || status == "" {
		return nil, Validation("status and order id are required")
	}
	next, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, Validation("invalid status value provided")
	}

	var o *models.Order
	var previous models.OrderStatus
	err = s.uow.run(ctx, "order", func(tx store.Tx) error {
		var err error
		if o, err = tx.Orders().LockOrder(ctx, orderID); err != nil {
			return err
		}
		previous = o.Status
		if previous == models.OrderStatusCreated && next == models.OrderStatusPlaced {
			return Conflict("order is awaiting payment and is placed only once payment is verified", nil)
		}
		if !previous.CanTransition(next) {
			return Conflict(fmt.Sprintf("order is %s and can't move to %s", previous, next), nil)
		}
		if err := tx.Orders().UpdateStatus(ctx, orderID, previous, next); err != nil {
			return err
		}
		o.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.statusChanged(ctx, o, previous, actor)
	return o, nil
}

// Cancel lets the owner of an order cancel it while it is not yet Delivered
// or Cancelled. Stock is not returned to the catalog.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, orderID int64) (*models.Order, error) {
	if orderID <= 0 {
		return nil, Validation("order id is required")
	}

	var o *models.Order
	var previous models.OrderStatus
	err := s.uow.run(ctx, "order", func(tx store.Tx) error {
		var err error
		if o, err = tx.Orders().LockOrder(ctx, orderID); err != nil {
			return err
		}
		if !OwnsOrder(actor, o) {
			return Forbidden("you are not authorized to cancel this order")
		}
		previous = o.Status
		if !previous.Cancellable() {
			return Conflict(fmt.Sprintf("order is %s and can't be cancelled", previous), nil)
		}
		if err := tx.Orders().UpdateStatus(ctx, orderID, previous, models.OrderStatusCancelled); err != nil {
			return err
		}
		o.Status = models.OrderStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.statusChanged(ctx, o, previous, actor)
	return o, nil
}

func (s *OrderService) statusChanged(ctx context.Context, o *models.Order, previous models.OrderStatus, actor Actor) {
	s.metrics.RecordStatusChange(ctx, previous, o.Status)
	publishEvents(ctx, s.publisher, s.logger, events.OrderEvent(events.TypeOrderStatusChanged, o, previous))
	s.logger.Info().
		Int64("order_id", o.ID).
		Str("from", string(previous)).
		Str("to", string(o.Status)).
		Int64("actor_id", actor.AccountID).
		Str("actor_role", string(actor.Role)).
		Msg("order status changed")
}

// OrderQuery selects a page of orders
type OrderQuery struct {
	Status string
	SortBy string
	Order  string
	Page   int
	Size   int
}

// OrderPage is one page of order summaries
type OrderPage struct {
	Orders []models.OrderSummary `json:"orders"`
	models.Page
}

// ListOrders pages through the caller's own orders. Provisional orders are
// hidden unless asked for by status.
func (s *OrderService) ListOrders(ctx context.Context, actor Actor, q OrderQuery) (*OrderPage, error) {
	if actor.AccountID == 0 {
		return nil, Forbidden("an account is required to list orders")
	}
	return s.list(ctx, actor.AccountID, q)
}

// ListAllOrders pages through every account's orders.
func (s *OrderService) ListAllOrders(ctx context.Context, actor Actor, q OrderQuery) (*OrderPage, error) {
	if !CanManageOrders(actor) {
		return nil, Forbidden("you are not authorized to list all orders")
	}
	return s.list(ctx, 0, q)
}

func (s *OrderService) list(ctx context.Context, accountID int64, q OrderQuery) (*OrderPage, error) {
	f := store.OrderFilter{
		AccountID:  accountID,
		SortBy:     "orderDate",
		Descending: !strings.EqualFold(q.Order, "asc"),
		Pagination: models.NormalizePagination(q.Page, q.Size, maxOrderPageSize),
	}
	if q.SortBy == "totalAmount" {
		f.SortBy = q.SortBy
	}
	if q.Status != "" {
		if strings.EqualFold(q.Status, string(models.OrderStatusCreated)) {
			f.Status = models.OrderStatusCreated
		} else {
			st, err := models.ParseOrderStatus(q.Status)
			if err != nil {
				return nil, Validation("invalid status filter")
			}
			f.Status = st
		}
	}

	var orders []models.Order
	var total int
	err := s.uow.run(ctx, "order", func(tx store.Tx) error {
		var err error
		orders, total, err = tx.Orders().ListOrders(ctx, f)
		return err
	})
	if err != nil {
		return nil, err
	}

	page := &OrderPage{
		Orders: make([]models.OrderSummary, 0, len(orders)),
		Page:   models.NewPage(f.Page, f.Size, total, len(orders)),
	}
	for i := range orders {
		page.Orders = append(page.Orders, orders[i].Summary())
	}
	return page, nil
}
