// Package store defines the persistence contract used by the services.
// Every read and write happens inside Store.Atomic so that derived fields
// and the counters they come from are always written together.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional update matched no row
	// because the record changed underneath it.
	ErrConflict = errors.New("record changed concurrently")
)

// Store runs units of work.
type Store interface {
	// Atomic runs fn in a single transaction. Any error returned by fn
	// rolls back every write fn made.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes the repositories bound to one transaction.
type Tx interface {
	Accounts() AccountRepository
	Products() ProductRepository
	Orders() OrderRepository
	Reviews() ReviewRepository
}

// AccountRepository reads accounts and mutates their embedded cart.
type AccountRepository interface {
	// GetAccount loads the account with its addresses and cart.
	GetAccount(ctx context.Context, accountID int64) (*models.Account, error)
	// LockAccount is GetAccount and holds the account until the transaction
	// ends, serialising cart mutations of one account.
	LockAccount(ctx context.Context, accountID int64) (*models.Account, error)
	AddCartLine(ctx context.Context, line *models.CartLine) error
	SetCartLineQuantity(ctx context.Context, accountID, lineID int64, quantity int) error
	DeleteCartLine(ctx context.Context, accountID, lineID int64) error
	ClearCart(ctx context.Context, accountID int64) error
}

// ProductRepository reads products and writes their counters.
type ProductRepository interface {
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	// GetProducts returns the products that exist among ids, keyed by id.
	GetProducts(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
	ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error)
	// LockProduct is GetProduct and holds the row until the transaction ends.
	LockProduct(ctx context.Context, productID int64) (*models.Product, error)
	// SaveInventory writes StockCount, InStock and BoughtCounter.
	SaveInventory(ctx context.Context, p *models.Product) error
	// SaveRatings writes the histogram and AverageRating.
	SaveRatings(ctx context.Context, p *models.Product) error
}

// OrderFilter selects orders for listing.
type OrderFilter struct {
	// AccountID restricts to one account when non-zero.
	AccountID int64
	// Status restricts to one status; when empty Created orders are excluded.
	Status models.OrderStatus
	// SortBy is "orderDate" or "totalAmount".
	SortBy     string
	Descending bool
	models.Pagination
}

// OrderRepository persists orders.
type OrderRepository interface {
	// CreateOrder inserts the order with its lines and sets ID.
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	// LockOrder is GetOrder and holds the row until the transaction ends.
	LockOrder(ctx context.Context, orderID int64) (*models.Order, error)
	// LockProvisionalOrder finds the account's order in status Created for
	// the given gateway order id and holds it.
	LockProvisionalOrder(ctx context.Context, accountID int64, gatewayOrderID string) (*models.Order, error)
	// UpdateStatus moves the order from one status to another. It returns
	// ErrConflict if the order is no longer in status from.
	UpdateStatus(ctx context.Context, orderID int64, from, to models.OrderStatus) error
	ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, int, error)
	// DeleteByStatus removes every order in status placed before cutoff and
	// returns how many were removed.
	DeleteByStatus(ctx context.Context, status models.OrderStatus, cutoff time.Time) (int64, error)
}

// ReviewRepository persists reviews.
type ReviewRepository interface {
	CreateReview(ctx context.Context, r *models.Review) error
	GetReview(ctx context.Context, reviewID int64) (*models.Review, error)
	DeleteReview(ctx context.Context, reviewID int64) error
	// ListReviews pages through a product's reviews sorted by "createdAt"
	// or "rating".
	ListReviews(ctx context.Context, productID int64, sortBy string, descending bool, p models.Pagination) ([]models.Review, int, error)
}
