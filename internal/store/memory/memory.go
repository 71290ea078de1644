// Package memory is an in-process implementation of store.Store. All
// transactions are serialised; each one works on a private copy of the data
// that replaces the shared copy only when the transaction succeeds.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/store"
)

type state struct {
	accounts map[int64]*models.Account
	products map[int64]*models.Product
	orders   map[int64]*models.Order
	reviews  map[int64]*models.Review

	nextCartLineID  int64
	nextOrderID     int64
	nextOrderLineID int64
	nextReviewID    int64
}

func newState() *state {
	return &state{
		accounts: make(map[int64]*models.Account),
		products: make(map[int64]*models.Product),
		orders:   make(map[int64]*models.Order),
		reviews:  make(map[int64]*models.Review),
	}
}

func (s *state) clone() *state {
	c := &state{
		accounts:        make(map[int64]*models.Account, len(s.accounts)),
		products:        make(map[int64]*models.Product, len(s.products)),
		orders:          make(map[int64]*models.Order, len(s.orders)),
		reviews:         make(map[int64]*models.Review, len(s.reviews)),
		nextCartLineID:  s.nextCartLineID,
		nextOrderID:     s.nextOrderID,
		nextOrderLineID: s.nextOrderLineID,
		nextReviewID:    s.nextReviewID,
	}
	for id, a := range s.accounts {
		c.accounts[id] = copyAccount(a)
	}
	for id, p := range s.products {
		c.products[id] = copyProduct(p)
	}
	for id, o := range s.orders {
		c.orders[id] = copyOrder(o)
	}
	for id, r := range s.reviews {
		rc := *r
		c.reviews[id] = &rc
	}
	return c
}

func copyAccount(a *models.Account) *models.Account {
	c := *a
	c.Addresses = append([]models.Address(nil), a.Addresses...)
	c.Cart = append([]models.CartLine(nil), a.Cart...)
	return &c
}

func copyProduct(p *models.Product) *models.Product {
	c := *p
	c.Images = append([]string(nil), p.Images...)
	return &c
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	c.Lines = append([]models.OrderLine(nil), o.Lines...)
	return &c
}

// Store keeps all records in memory.
type Store struct {
	mu  sync.Mutex
	cur *state
	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{cur: newState(), now: time.Now}
}

// Atomic implements store.Store.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.cur.clone()
	if err := fn(&tx{st: work, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cur = work
	return nil
}

// PutAccount inserts or replaces an account. Cart line and address ids are
// kept as given.
func (s *Store) PutAccount(a models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range a.Cart {
		a.Cart[i].AccountID = a.ID
		if a.Cart[i].ID > s.cur.nextCartLineID {
			s.cur.nextCartLineID = a.Cart[i].ID
		}
	}
	for i := range a.Addresses {
		a.Addresses[i].AccountID = a.ID
	}
	s.cur.accounts[a.ID] = copyAccount(&a)
}

// PutProduct inserts or replaces a product.
func (s *Store) PutProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.InStock = p.StockCount > 0
	p.AverageRating = p.Ratings.Average()
	s.cur.products[p.ID] = copyProduct(&p)
}

// PutOrder inserts or replaces an order.
func (s *Store) PutOrder(o models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == 0 {
		s.cur.nextOrderID++
		o.ID = s.cur.nextOrderID
	} else if o.ID > s.cur.nextOrderID {
		s.cur.nextOrderID = o.ID
	}
	s.cur.orders[o.ID] = copyOrder(&o)
}

// Product returns a copy of the committed product.
func (s *Store) Product(id int64) (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.cur.products[id]
	if !ok {
		return models.Product{}, false
	}
	return *copyProduct(p), true
}

// Account returns a copy of the committed account.
func (s *Store) Account(id int64) (models.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.cur.accounts[id]
	if !ok {
		return models.Account{}, false
	}
	return *copyAccount(a), true
}

// Order returns a copy of the committed order.
func (s *Store) Order(id int64) (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.cur.orders[id]
	if !ok {
		return models.Order{}, false
	}
	return *copyOrder(o), true
}

// Orders returns copies of all committed orders ordered by id.
func (s *Store) Orders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Order, 0, len(s.cur.orders))
	for _, o := range s.cur.orders {
		out = append(out, *copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type tx struct {
	st  *state
	now func() time.Time
}

func (t *tx) Accounts() store.AccountRepository { return accountRepo{t} }
func (t *tx) Products() store.ProductRepository { return productRepo{t} }
func (t *tx) Orders() store.OrderRepository     { return orderRepo{t} }
func (t *tx) Reviews() store.ReviewRepository   { return reviewRepo{t} }

var _ store.Store = (*Store)(nil)

type accountRepo struct{ *tx }

func (r accountRepo) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	a, ok := r.st.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", accountID, store.ErrNotFound)
	}
	return copyAccount(a), nil
}

func (r accountRepo) LockAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	return r.GetAccount(ctx, accountID)
}

func (r accountRepo) AddCartLine(ctx context.Context, line *models.CartLine) error {
	a, ok := r.st.accounts[line.AccountID]
	if !ok {
		return fmt.Errorf("account %d: %w", line.AccountID, store.ErrNotFound)
	}
	r.st.nextCartLineID++
	line.ID = r.st.nextCartLineID
	a.Cart = append(a.Cart, *line)
	return nil
}

func (r accountRepo) cartLine(accountID, lineID int64) (*models.Account, int, error) {
	a, ok := r.st.accounts[accountID]
	if !ok {
		return nil, 0, fmt.Errorf("account %d: %w", accountID, store.ErrNotFound)
	}
	for i := range a.Cart {
		if a.Cart[i].ID == lineID {
			return a, i, nil
		}
	}
	return nil, 0, fmt.Errorf("cart line %d: %w", lineID, store.ErrNotFound)
}

func (r accountRepo) SetCartLineQuantity(ctx context.Context, accountID, lineID int64, quantity int) error {
	a, i, err := r.cartLine(accountID, lineID)
	if err != nil {
		return err
	}
	a.Cart[i].Quantity = quantity
	return nil
}

func (r accountRepo) DeleteCartLine(ctx context.Context, accountID, lineID int64) error {
	a, i, err := r.cartLine(accountID, lineID)
	if err != nil {
		return err
	}
	a.Cart = append(a.Cart[:i], a.Cart[i+1:]...)
	return nil
}

func (r accountRepo) ClearCart(ctx context.Context, accountID int64) error {
	a, ok := r.st.accounts[accountID]
	if !ok {
		return fmt.Errorf("account %d: %w", accountID, store.ErrNotFound)
	}
	a.Cart = nil
	return nil
}

type productRepo struct{ *tx }

func (r productRepo) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	p, ok := r.st.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", productID, store.ErrNotFound)
	}
	return copyProduct(p), nil
}

func (r productRepo) GetProducts(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	out := make(map[int64]*models.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.st.products[id]; ok {
			out[id] = copyProduct(p)
		}
	}
	return out, nil
}

func (r productRepo) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	ids := make([]int64, 0, len(r.st.products))
	for id := range r.st.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []models.Product
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, *copyProduct(r.st.products[ids[i]]))
	}
	return out, nil
}

func (r productRepo) LockProduct(ctx context.Context, productID int64) (*models.Product, error) {
	return r.GetProduct(ctx, productID)
}

func (r productRepo) SaveInventory(ctx context.Context, p *models.Product) error {
	cur, ok := r.st.products[p.ID]
	if !ok {
		return fmt.Errorf("product %d: %w", p.ID, store.ErrNotFound)
	}
	cur.StockCount = p.StockCount
	cur.InStock = p.InStock
	cur.BoughtCounter = p.BoughtCounter
	cur.UpdatedAt = r.now()
	return nil
}

func (r productRepo) SaveRatings(ctx context.Context, p *models.Product) error {
	cur, ok := r.st.products[p.ID]
	if !ok {
		return fmt.Errorf("product %d: %w", p.ID, store.ErrNotFound)
	}
	cur.Ratings = p.Ratings
	cur.AverageRating = p.AverageRating
	cur.UpdatedAt = r.now()
	return nil
}

type orderRepo struct{ *tx }

func (r orderRepo) CreateOrder(ctx context.Context, o *models.Order) error {
	r.st.nextOrderID++
	o.ID = r.st.nextOrderID
	if o.OrderDate.IsZero() {
		o.OrderDate = r.now()
	}
	o.UpdatedAt = o.OrderDate
	for i := range o.Lines {
		r.st.nextOrderLineID++
		o.Lines[i].ID = r.st.nextOrderLineID
		o.Lines[i].OrderID = o.ID
	}
	r.st.orders[o.ID] = copyOrder(o)
	return nil
}

func (r orderRepo) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	o, ok := r.st.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", orderID, store.ErrNotFound)
	}
	return copyOrder(o), nil
}

func (r orderRepo) LockOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	return r.GetOrder(ctx, orderID)
}

func (r orderRepo) LockProvisionalOrder(ctx context.Context, accountID int64, gatewayOrderID string) (*models.Order, error) {
	for _, o := range r.st.orders {
		if o.AccountID == accountID && o.Status == models.OrderStatusCreated && o.GatewayOrderID == gatewayOrderID {
			return copyOrder(o), nil
		}
	}
	return nil, fmt.Errorf("provisional order %s: %w", gatewayOrderID, store.ErrNotFound)
}

func (r orderRepo) UpdateStatus(ctx context.Context, orderID int64, from, to models.OrderStatus) error {
	o, ok := r.st.orders[orderID]
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, store.ErrNotFound)
	}
	if o.Status != from {
		return fmt.Errorf("order %d is %s, not %s: %w", orderID, o.Status, from, store.ErrConflict)
	}
	o.Status = to
	o.UpdatedAt = r.now()
	return nil
}

func (r orderRepo) ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, int, error) {
	var matched []*models.Order
	for _, o := range r.st.orders {
		if f.AccountID != 0 && o.AccountID != f.AccountID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.Status == "" && o.Status == models.OrderStatusCreated {
			continue
		}
		matched = append(matched, o)
	}
	less := func(a, b *models.Order) bool {
		if f.SortBy == "totalAmount" && !a.TotalAmount.Equal(b.TotalAmount) {
			return a.TotalAmount.LessThan(b.TotalAmount)
		}
		if !a.OrderDate.Equal(b.OrderDate) {
			return a.OrderDate.Before(b.OrderDate)
		}
		return a.ID < b.ID
	}
	sort.Slice(matched, func(i, j int) bool {
		if f.Descending {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})

	total := len(matched)
	var out []models.Order
	for i := f.Offset(); i < total && len(out) < f.Size; i++ {
		out = append(out, *copyOrder(matched[i]))
	}
	return out, total, nil
}

func (r orderRepo) DeleteByStatus(ctx context.Context, status models.OrderStatus, cutoff time.Time) (int64, error) {
	var n int64
	for id, o := range r.st.orders {
		if o.Status == status && !o.OrderDate.After(cutoff) {
			delete(r.st.orders, id)
			n++
		}
	}
	return n, nil
}

type reviewRepo struct{ *tx }

func (r reviewRepo) CreateReview(ctx context.Context, rv *models.Review) error {
	if _, ok := r.st.products[rv.ProductID]; !ok {
		return fmt.Errorf("product %d: %w", rv.ProductID, store.ErrNotFound)
	}
	r.st.nextReviewID++
	rv.ID = r.st.nextReviewID
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = r.now()
	}
	c := *rv
	r.st.reviews[rv.ID] = &c
	return nil
}

func (r reviewRepo) GetReview(ctx context.Context, reviewID int64) (*models.Review, error) {
	rv, ok := r.st.reviews[reviewID]
	if !ok {
		return nil, fmt.Errorf("review %d: %w", reviewID, store.ErrNotFound)
	}
	c := *rv
	return &c, nil
}

func (r reviewRepo) DeleteReview(ctx context.Context, reviewID int64) error {
	if _, ok := r.st.reviews[reviewID]; !ok {
		return fmt.Errorf("review %d: %w", reviewID, store.ErrNotFound)
	}
	delete(r.st.reviews, reviewID)
	return nil
}

func (r reviewRepo) ListReviews(ctx context.Context, productID int64, sortBy string, descending bool, p models.Pagination) ([]models.Review, int, error) {
	var matched []models.Review
	for _, rv := range r.st.reviews {
		if rv.ProductID == productID {
			matched = append(matched, *rv)
		}
	}
	less := func(a, b models.Review) bool {
		if sortBy == "rating" && a.Rating != b.Rating {
			return a.Rating < b.Rating
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	}
	sort.Slice(matched, func(i, j int) bool {
		if descending {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})

	total := len(matched)
	var out []models.Review
	for i := p.Offset(); i < total && len(out) < p.Size; i++ {
		out = append(out, matched[i])
	}
	return out, total, nil
}
