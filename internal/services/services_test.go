package services

import (
	"context"
	"crypto/hmac"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/cache"
	"github.com/SigNoz/retail-order-engine/internal/events"
	"github.com/SigNoz/retail-order-engine/internal/gateway"
	"github.com/SigNoz/retail-order-engine/internal/metrics"
	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/store/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_secret"

type fakeGateway struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeGateway) KeyID() string { return "key_test" }

func (f *fakeGateway) CreateIntent(ctx context.Context, amount int64, currency, receipt string) (*gateway.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &gateway.Intent{
		ID:       fmt.Sprintf("order_gw_%d", f.calls),
		Entity:   "order",
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (f *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return hmac.Equal([]byte(gateway.Sign(testSecret, orderID, paymentID)), []byte(signature))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evs ...events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evs...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// stalledPublisher holds every publish until its context ends, like a broker
// that stopped answering.
type stalledPublisher struct {
	mu    sync.Mutex
	calls int
}

func (p *stalledPublisher) Publish(ctx context.Context, evs ...events.Event) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (p *stalledPublisher) Close() error { return nil }

func (p *stalledPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fixture struct {
	store     *memory.Store
	gw        *fakeGateway
	pub       *recordingPublisher
	catalog   *CatalogService
	cart      *CartService
	checkout  *CheckoutService
	orders    *OrderService
	ratings   *RatingService
	reclaimer *Reclaimer
}

const (
	alice     int64 = 1
	bob       int64 = 2
	aliceHome int64 = 10
	bobHome   int64 = 20
	shirt     int64 = 100
	socks     int64 = 200
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	st.PutAccount(models.Account{
		ID: alice, FirstName: "Alice", Email: "alice@example.com", Role: models.RoleUser,
		Addresses: []models.Address{{ID: aliceHome, Line: "12 MG Road", City: "Pune", Phone: "9000000001", IsDefault: true}},
	})
	st.PutAccount(models.Account{
		ID: bob, FirstName: "Bob", Email: "bob@example.com", Role: models.RoleUser,
		Addresses: []models.Address{{ID: bobHome, Line: "4 Park Street", City: "Kolkata", Phone: "9000000002"}},
	})
	st.PutProduct(models.Product{
		ID: shirt, Title: "Linen Shirt", Category: "men",
		OriginalPrice: decimal.NewFromInt(150), SalePrice: decimal.NewFromInt(100),
		StockCount: 5, Images: []string{"shirt-front.png", "shirt-back.png"},
	})
	st.PutProduct(models.Product{
		ID: socks, Title: "Wool Socks", Category: "accessories",
		OriginalPrice: decimal.NewFromInt(80), SalePrice: decimal.NewFromInt(50),
		StockCount: 3,
	})

	m := metrics.NewNoop()
	logger := zerolog.Nop()
	gw := &fakeGateway{}
	pub := &recordingPublisher{}
	catalog := NewCatalogService(st, cache.NewMemory(time.Minute, m), time.Second, logger)
	reclaimer, err := NewReclaimer(st, pub, m, "0 0 1 * *", 24*time.Hour, time.Second, logger)
	require.NoError(t, err)

	return &fixture{
		store:   st,
		gw:      gw,
		pub:     pub,
		catalog: catalog,
		cart:    NewCartService(st, catalog, m, 40, time.Second, logger),
		checkout: NewCheckoutService(st, catalog, gw, pub, m, CheckoutConfig{
			ShippingFee:    decimal.NewFromInt(60),
			Currency:       "INR",
			GatewayTimeout: time.Second,
			StoreTimeout:   time.Second,
		}, logger),
		orders:    NewOrderService(st, pub, m, time.Second, logger),
		ratings:   NewRatingService(st, catalog, m, time.Second, logger),
		reclaimer: reclaimer,
	}
}

func (f *fixture) add(t *testing.T, account, product int64, qty int, color, size string) int {
	t.Helper()
	total, err := f.cart.AddLine(context.Background(), account, models.AddToCartRequest{
		ProductID: product, Quantity: qty, Color: color, Size: size,
	})
	require.NoError(t, err)
	return total
}

func (f *fixture) stock(t *testing.T, id int64) models.Product {
	t.Helper()
	p, ok := f.store.Product(id)
	require.True(t, ok)
	return p
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "error: %v", err)
}
