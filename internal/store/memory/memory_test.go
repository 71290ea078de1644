package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicRollsBackOnError(t *testing.T) {
	s := New()
	s.PutProduct(models.Product{ID: 1, Title: "Shirt", StockCount: 5})
	s.PutAccount(models.Account{ID: 9, Cart: []models.CartLine{{ID: 1, ProductID: 1, Quantity: 2}}})

	boom := errors.New("boom")
	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		p, err := tx.Products().LockProduct(context.Background(), 1)
		require.NoError(t, err)
		p.CommitPurchase(2)
		require.NoError(t, tx.Products().SaveInventory(context.Background(), p))
		require.NoError(t, tx.Accounts().ClearCart(context.Background(), 9))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, _ := s.Product(1)
	assert.Equal(t, 5, p.StockCount)
	a, _ := s.Account(9)
	assert.Len(t, a.Cart, 1)
}

func TestAtomicCommits(t *testing.T) {
	s := New()
	s.PutAccount(models.Account{ID: 3})

	var lineID int64
	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		line := &models.CartLine{AccountID: 3, ProductID: 4, Quantity: 1, Color: "red", Size: "S"}
		if err := tx.Accounts().AddCartLine(context.Background(), line); err != nil {
			return err
		}
		lineID = line.ID
		return nil
	})
	require.NoError(t, err)

	a, ok := s.Account(3)
	require.True(t, ok)
	require.Len(t, a.Cart, 1)
	assert.Equal(t, lineID, a.Cart[0].ID)
}

func TestUpdateStatusIsCompareAndSet(t *testing.T) {
	s := New()
	s.PutOrder(models.Order{ID: 1, Status: models.OrderStatusPlaced})

	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		return tx.Orders().UpdateStatus(context.Background(), 1, models.OrderStatusCreated, models.OrderStatusPlaced)
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	err = s.Atomic(context.Background(), func(tx store.Tx) error {
		return tx.Orders().UpdateStatus(context.Background(), 2, models.OrderStatusPlaced, models.OrderStatusShipped)
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListOrdersExcludesCreatedByDefault(t *testing.T) {
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.PutOrder(models.Order{AccountID: 1, Status: models.OrderStatusCreated, OrderDate: base, TotalAmount: decimal.NewFromInt(10)})
	s.PutOrder(models.Order{AccountID: 1, Status: models.OrderStatusPlaced, OrderDate: base.Add(time.Hour), TotalAmount: decimal.NewFromInt(30)})
	s.PutOrder(models.Order{AccountID: 1, Status: models.OrderStatusShipped, OrderDate: base.Add(2 * time.Hour), TotalAmount: decimal.NewFromInt(20)})
	s.PutOrder(models.Order{AccountID: 2, Status: models.OrderStatusPlaced, OrderDate: base, TotalAmount: decimal.NewFromInt(5)})

	var (
		orders []models.Order
		total  int
	)
	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		var err error
		orders, total, err = tx.Orders().ListOrders(context.Background(), store.OrderFilter{
			AccountID:  1,
			Descending: true,
			Pagination: models.Pagination{Page: 1, Size: 10},
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, orders, 2)
	assert.Equal(t, models.OrderStatusShipped, orders[0].Status)

	err = s.Atomic(context.Background(), func(tx store.Tx) error {
		var err error
		orders, total, err = tx.Orders().ListOrders(context.Background(), store.OrderFilter{
			SortBy:     "totalAmount",
			Pagination: models.Pagination{Page: 1, Size: 2},
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, orders, 2)
	assert.True(t, orders[0].TotalAmount.Equal(decimal.NewFromInt(5)))
}

func TestDeleteByStatusHonoursCutoff(t *testing.T) {
	s := New()
	now := time.Now()
	s.PutOrder(models.Order{Status: models.OrderStatusCreated, OrderDate: now.Add(-48 * time.Hour)})
	s.PutOrder(models.Order{Status: models.OrderStatusCreated, OrderDate: now})
	s.PutOrder(models.Order{Status: models.OrderStatusPlaced, OrderDate: now.Add(-48 * time.Hour)})

	var n int64
	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		var err error
		n, err = tx.Orders().DeleteByStatus(context.Background(), models.OrderStatusCreated, now.Add(-24*time.Hour))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, s.Orders(), 2)
}
