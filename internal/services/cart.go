package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/metrics"
	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// Cart adjustment directions
const (
	ActionIncrease = "increase"
	ActionDecrease = "decrease"
)

// CartService handles cart-related operations. Every mutation locks the
// account first, so the capacity check and the write it guards see the same
// cart.
type CartService struct {
	uow         unitOfWork
	catalog     *CatalogService
	metrics     *metrics.AppMetrics
	logger      zerolog.Logger
	maxQuantity int
}

// NewCartService creates a new cart service. maxQuantity caps the total
// quantity across all lines of one cart.
func NewCartService(st store.Store, catalog *CatalogService, m *metrics.AppMetrics, maxQuantity int, storeTimeout time.Duration, logger zerolog.Logger) *CartService {
	return &CartService{
		uow:         unitOfWork{store: st, timeout: storeTimeout},
		catalog:     catalog,
		metrics:     m,
		logger:      logger.With().Str("component", "cart").Logger(),
		maxQuantity: maxQuantity,
	}
}

func (s *CartService) cartFull() *Error {
	return CapacityExceeded(fmt.Sprintf("your cart is full, it can hold at most %d items", s.maxQuantity))
}

// AddLine adds quantity units of a product variant, merging into an existing
// line with the same product, color and size. It returns the new total.
func (s *CartService) AddLine(ctx context.Context, accountID int64, req models.AddToCartRequest) (int, error) {
	if req.ProductID <= 0 {
		return 0, Validation("product id is required")
	}
	if req.Quantity < 1 {
		return 0, Validation("quantity must be at least 1")
	}

	var total int
	err := s.uow.run(ctx, "account", func(tx store.Tx) error {
		if _, err := tx.Products().GetProduct(ctx, req.ProductID); err != nil {
			return fromStore(err, "product")
		}
		acct, err := tx.Accounts().LockAccount(ctx, accountID)
		if err != nil {
			return fromStore(err, "account")
		}

		total = acct.TotalQuantity()
		if total+req.Quantity > s.maxQuantity {
			return s.cartFull()
		}
		total += req.Quantity

		if i := acct.FindLine(req.ProductID, req.Color, req.Size); i >= 0 {
			line := acct.Cart[i]
			return tx.Accounts().SetCartLineQuantity(ctx, accountID, line.ID, line.Quantity+req.Quantity)
		}
		return tx.Accounts().AddCartLine(ctx, &models.CartLine{
			AccountID: accountID,
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			Color:     req.Color,
			Size:      req.Size,
		})
	})
	if err != nil {
		return 0, err
	}

	s.metrics.CartItemsCount.Record(ctx, int64(total), metric.WithAttributes(s.metrics.WithServiceName(nil)...))
	s.logger.Debug().Int64("account_id", accountID).Int64("product_id", req.ProductID).
		Int("quantity", req.Quantity).Int("total_quantity", total).Msg("cart line added")
	return total, nil
}

// AdjustQuantity moves one cart line up or down by one unit. A decrease never
// goes below 1; removing a line is RemoveLine's job.
func (s *CartService) AdjustQuantity(ctx context.Context, accountID, lineID int64, action string) (*models.CartView, error) {
	if action != ActionIncrease && action != ActionDecrease {
		return nil, Validation("invalid action, use 'increase' or 'decrease'")
	}

	var cart []models.CartLine
	err := s.uow.run(ctx, "account", func(tx store.Tx) error {
		acct, err := tx.Accounts().LockAccount(ctx, accountID)
		if err != nil {
			return fromStore(err, "account")
		}

		idx := -1
		for i, line := range acct.Cart {
			if line.ID == lineID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return NotFound("cart item not found", nil)
		}

		line := &acct.Cart[idx]
		next := line.Quantity
		if action == ActionIncrease {
			if acct.TotalQuantity()+1 > s.maxQuantity {
				return s.cartFull()
			}
			next++
		} else if next > 1 {
			next--
		}

		if next != line.Quantity {
			if err := tx.Accounts().SetCartLineQuantity(ctx, accountID, lineID, next); err != nil {
				return fromStore(err, "cart item")
			}
			line.Quantity = next
		}
		cart = acct.Cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// RemoveLine deletes the cart line keyed by product, color and size.
func (s *CartService) RemoveLine(ctx context.Context, accountID int64, req models.RemoveFromCartRequest) (*models.CartView, error) {
	if req.ProductID <= 0 {
		return nil, Validation("product id is required")
	}

	var cart []models.CartLine
	err := s.uow.run(ctx, "account", func(tx store.Tx) error {
		acct, err := tx.Accounts().LockAccount(ctx, accountID)
		if err != nil {
			return fromStore(err, "account")
		}
		i := acct.FindLine(req.ProductID, req.Color, req.Size)
		if i < 0 {
			return NotFound("cart item not found", nil)
		}
		if err := tx.Accounts().DeleteCartLine(ctx, accountID, acct.Cart[i].ID); err != nil {
			return fromStore(err, "cart item")
		}
		cart = append(acct.Cart[:i:i], acct.Cart[i+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// ReadCart resolves the cart against the current catalog. Lines whose
// product has been deleted are shown with placeholder values.
func (s *CartService) ReadCart(ctx context.Context, accountID int64) (*models.CartView, error) {
	var acct *models.Account
	err := s.uow.run(ctx, "account", func(tx store.Tx) error {
		var err error
		acct, err = tx.Accounts().GetAccount(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, acct.Cart)
}

func (s *CartService) view(ctx context.Context, lines []models.CartLine) (*models.CartView, error) {
	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	products, err := s.catalog.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &models.CartView{Lines: make([]models.CartLineView, 0, len(lines))}
	for _, l := range lines {
		lv := models.CartLineView{
			ID:        l.ID,
			ProductID: l.ProductID,
			Title:     models.UnknownProductTitle,
			SalePrice: decimal.Zero,
			Quantity:  l.Quantity,
			Color:     l.Color,
			Size:      l.Size,
		}
		if p, ok := products[l.ProductID]; ok {
			lv.Title = p.Title
			lv.SalePrice = p.SalePrice
			lv.StockCount = p.StockCount
			lv.Image = p.PrimaryImage()
		}
		view.Lines = append(view.Lines, lv)
		view.TotalQuantity += l.Quantity
	}
	return view, nil
}
