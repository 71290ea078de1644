package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/events"
	"github.com/SigNoz/retail-order-engine/internal/gateway"
	"github.com/SigNoz/retail-order-engine/internal/metrics"
	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PaymentGateway creates payment intents and checks signed receipts
type PaymentGateway interface {
	KeyID() string
	CreateIntent(ctx context.Context, amount int64, currency, receipt string) (*gateway.Intent, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// CheckoutConfig holds the pricing and timeout settings of checkout
type CheckoutConfig struct {
	ShippingFee    decimal.Decimal
	Currency       string
	GatewayTimeout time.Duration
	StoreTimeout   time.Duration
}

// CheckoutService turns carts into orders and confirms online payments
type CheckoutService struct {
	uow       unitOfWork
	catalog   *CatalogService
	gateway   PaymentGateway
	publisher events.Publisher
	metrics   *metrics.AppMetrics
	logger    zerolog.Logger
	cfg       CheckoutConfig
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(st store.Store, catalog *CatalogService, gw PaymentGateway, pub events.Publisher, m *metrics.AppMetrics, cfg CheckoutConfig, logger zerolog.Logger) *CheckoutService {
	return &CheckoutService{
		uow:       unitOfWork{store: st, timeout: cfg.StoreTimeout},
		catalog:   catalog,
		gateway:   gw,
		publisher: pub,
		metrics:   m,
		logger:    logger.With().Str("component", "checkout").Logger(),
		cfg:       cfg,
	}
}

// PlaceOrderResult is the outcome of PlaceOrder. Intent and KeyID are only
// set for online payments.
type PlaceOrderResult struct {
	Order  *models.Order   `json:"order"`
	Intent *gateway.Intent `json:"payment,omitempty"`
	KeyID  string          `json:"key,omitempty"`
}

// PaymentKey returns the publishable gateway key.
func (s *CheckoutService) PaymentKey() string {
	return s.gateway.KeyID()
}

// PlaceOrder prices the account's cart and creates an order. Cash on
// delivery orders commit inventory, are born Placed and clear the cart in one
// transaction. Online orders are stored as provisional (Created) once the
// gateway has issued an intent; inventory and cart stay untouched until
// VerifyPayment.
func (s *CheckoutService) PlaceOrder(ctx context.Context, accountID int64, req models.PlaceOrderRequest) (*PlaceOrderResult, error) {
	if req.AddressID <= 0 {
		return nil, Validation("address id is required")
	}
	if req.PaymentMethod == "" {
		return nil, Validation("payment method is required")
	}
	method, err := models.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, Validation("invalid payment method provided")
	}

	if method == models.PaymentCOD {
		return s.placeCOD(ctx, accountID, req.AddressID)
	}
	return s.placeOnline(ctx, accountID, req.AddressID)
}

// snapshot copies the cart and address of acct into a new order.
func (s *CheckoutService) snapshot(ctx context.Context, tx store.Tx, acct *models.Account, addressID int64, method models.PaymentMethod) (*models.Order, error) {
	if len(acct.Cart) == 0 {
		return nil, Validation("your cart is empty")
	}
	addr, ok := acct.Address(addressID)
	if !ok {
		return nil, NotFound("address not found", nil)
	}

	ids := make([]int64, len(acct.Cart))
	for i, l := range acct.Cart {
		ids[i] = l.ProductID
	}
	products, err := tx.Products().GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]models.OrderLine, 0, len(acct.Cart))
	for _, l := range acct.Cart {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, NotFound(fmt.Sprintf("product %d in your cart is no longer available", l.ProductID), nil)
		}
		lines = append(lines, models.OrderLine{
			ProductID: p.ID,
			Title:     p.Title,
			UnitPrice: p.SalePrice,
			Quantity:  l.Quantity,
			Color:     l.Color,
			Size:      l.Size,
			Image:     p.PrimaryImage(),
		})
	}

	if !models.OrderTotal(lines, decimal.Zero).IsPositive() {
		return nil, Validation("invalid total amount")
	}

	return &models.Order{
		AccountID:     acct.ID,
		Lines:         lines,
		ShippingFee:   s.cfg.ShippingFee,
		TotalAmount:   models.OrderTotal(lines, s.cfg.ShippingFee),
		Address:       addr,
		PaymentMethod: method,
		OrderDate:     time.Now().UTC(),
	}, nil
}

func (s *CheckoutService) placeCOD(ctx context.Context, accountID, addressID int64) (*PlaceOrderResult, error) {
	var order *models.Order
	var committed []*models.Product
	var missing []int64

	err := s.uow.run(ctx, "account", func(tx store.Tx) error {
		acct, err := tx.Accounts().LockAccount(ctx, accountID)
		if err != nil {
			return fromStore(err, "account")
		}
		order, err = s.snapshot(ctx, tx, acct, addressID, models.PaymentCOD)
		if err != nil {
			return err
		}
		order.Status = models.OrderStatusPlaced

		if committed, missing, err = commitInventory(ctx, tx, order.Lines); err != nil {
			return err
		}
		if err := tx.Orders().CreateOrder(ctx, order); err != nil {
			return err
		}
		return tx.Accounts().ClearCart(ctx, accountID)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, order, "", committed, missing)
	s.logger.Info().
		Int64("order_id", order.ID).
		Int64("account_id", accountID).
		Str("total_amount", order.TotalAmount.String()).
		Msg("cash on delivery order placed")
	return &PlaceOrderResult{Order: order}, nil
}

func (s *CheckoutService) placeOnline(ctx context.Context, accountID, addressID int64) (*PlaceOrderResult, error) {
	var order *models.Order
	err := s.uow.run(ctx, "account", func(tx store.Tx) error {
		acct, err := tx.Accounts().GetAccount(ctx, accountID)
		if err != nil {
			return fromStore(err, "account")
		}
		order, err = s.snapshot(ctx, tx, acct, addressID, models.PaymentOnline)
		return err
	})
	if err != nil {
		return nil, err
	}

	// The gateway call stays outside any transaction so no row is held while
	// waiting on it.
	gwCtx := ctx
	if s.cfg.GatewayTimeout > 0 {
		var cancel context.CancelFunc
		gwCtx, cancel = context.WithTimeout(ctx, s.cfg.GatewayTimeout)
		defer cancel()
	}
	intent, err := s.gateway.CreateIntent(gwCtx, models.ToMinorUnits(order.TotalAmount), s.cfg.Currency, uuid.NewString())
	if err != nil {
		s.logger.Error().Err(err).Int64("account_id", accountID).Msg("payment intent creation failed")
		return nil, Upstream("order creation failed, the payment gateway did not accept the order", err)
	}

	order.Status = models.OrderStatusCreated
	order.GatewayOrderID = intent.ID
	err = s.uow.run(ctx, "order", func(tx store.Tx) error {
		return tx.Orders().CreateOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordOrder(ctx, order, s.cfg.Currency)
	s.publish(ctx, events.OrderEvent(events.TypeOrderProvisional, order, ""))
	s.logger.Info().
		Int64("order_id", order.ID).
		Int64("account_id", accountID).
		Str("gateway_order_id", intent.ID).
		Int64("amount_minor", intent.Amount).
		Msg("provisional order created, awaiting payment")
	return &PlaceOrderResult{Order: order, Intent: intent, KeyID: s.gateway.KeyID()}, nil
}

// VerifyPayment checks the gateway receipt and, when it is authentic,
// commits the provisional order: inventory is committed, the order becomes
// Placed and the cart is cleared. A receipt for an order that is no longer
// provisional finds nothing and reports not found, so inventory is committed
// at most once per order.
func (s *CheckoutService) VerifyPayment(ctx context.Context, accountID int64, gatewayOrderID, paymentID, signature string) (*models.Order, error) {
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return nil, Validation("payment credentials are missing")
	}
	if !s.gateway.VerifySignature(gatewayOrderID, paymentID, signature) {
		s.metrics.Count(ctx, s.metrics.PaymentVerifications, 1, "result", "invalid_signature")
		s.logger.Warn().Int64("account_id", accountID).Str("gateway_order_id", gatewayOrderID).
			Msg("payment signature mismatch")
		return nil, Validation("payment verification failed")
	}

	var order *models.Order
	var committed []*models.Product
	var missing []int64
	err := s.uow.run(ctx, "order", func(tx store.Tx) error {
		if _, err := tx.Accounts().LockAccount(ctx, accountID); err != nil {
			return fromStore(err, "account")
		}
		var err error
		order, err = tx.Orders().LockProvisionalOrder(ctx, accountID, gatewayOrderID)
		if err != nil {
			return fromStore(err, "order")
		}
		if committed, missing, err = commitInventory(ctx, tx, order.Lines); err != nil {
			return err
		}
		if err := tx.Orders().UpdateStatus(ctx, order.ID, models.OrderStatusCreated, models.OrderStatusPlaced); err != nil {
			return fromStore(err, "order")
		}
		order.Status = models.OrderStatusPlaced
		return tx.Accounts().ClearCart(ctx, accountID)
	})
	if err != nil {
		result := "error"
		if KindOf(err) == KindNotFound {
			result = "not_found"
		}
		s.metrics.Count(ctx, s.metrics.PaymentVerifications, 1, "result", result)
		return nil, err
	}

	s.metrics.Count(ctx, s.metrics.PaymentVerifications, 1, "result", "verified")
	s.afterCommit(ctx, order, models.OrderStatusCreated, committed, missing)
	s.logger.Info().
		Int64("order_id", order.ID).
		Int64("account_id", accountID).
		Str("payment_id", paymentID).
		Msg("payment verified, order placed")
	return order, nil
}

// afterCommit refreshes caches, metrics and subscribers once an order has
// been placed.
func (s *CheckoutService) afterCommit(ctx context.Context, order *models.Order, previous models.OrderStatus, committed []*models.Product, missing []int64) {
	s.catalog.invalidate(ctx, productIDs(committed)...)
	for _, p := range committed {
		s.metrics.RecordInventory(ctx, p)
	}
	if len(missing) > 0 {
		s.logger.Warn().Int64("order_id", order.ID).Ints64("product_ids", missing).
			Msg("products removed from catalog, inventory commit skipped")
	}
	s.metrics.RecordOrder(ctx, order, s.cfg.Currency)
	if previous != "" {
		s.metrics.RecordStatusChange(ctx, previous, order.Status)
	}
	s.publish(ctx, events.OrderEvent(events.TypeOrderPlaced, order, previous))
}

func (s *CheckoutService) publish(ctx context.Context, evs ...events.Event) {
	publishEvents(ctx, s.publisher, s.logger, evs...)
}

// eventPublishTimeout bounds how long a committed operation waits on the
// event publisher before answering.
var eventPublishTimeout = 2 * time.Second

// publishEvents delivers events after commit. Failures are only logged; the
// committed state is authoritative. The caller's cancellation does not abort
// delivery, only eventPublishTimeout does.
func publishEvents(ctx context.Context, p events.Publisher, logger zerolog.Logger, evs ...events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()
	if err := p.Publish(ctx, evs...); err != nil {
		logger.Warn().Err(err).Str("event", evs[0].Type).Msg("failed to publish order event")
	}
}
