package services

import (
	"context"
	"testing"

	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestAddLineMergesSameVariant(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, 2, f.add(t, alice, shirt, 2, "blue", "M"))
	assert.Equal(t, 5, f.add(t, alice, shirt, 3, "blue", "M"))
	assert.Equal(t, 6, f.add(t, alice, shirt, 1, "blue", "L"))

	acct, _ := f.store.Account(alice)
	require.Len(t, acct.Cart, 2)
	assert.Equal(t, 5, acct.Cart[0].Quantity)
	assert.Equal(t, "L", acct.Cart[1].Size)
}

func TestAddLineCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, 40, f.add(t, alice, shirt, 40, "blue", "M"))

	_, err := f.cart.AddLine(ctx, alice, models.AddToCartRequest{ProductID: socks, Quantity: 1})
	requireKind(t, err, KindCapacityExceeded)

	acct, _ := f.store.Account(alice)
	require.Len(t, acct.Cart, 1)
	assert.Equal(t, 40, acct.TotalQuantity())
}

func TestAddLineValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cart.AddLine(ctx, alice, models.AddToCartRequest{ProductID: shirt, Quantity: 0})
	requireKind(t, err, KindValidation)

	_, err = f.cart.AddLine(ctx, alice, models.AddToCartRequest{ProductID: 999, Quantity: 1})
	requireKind(t, err, KindNotFound)

	_, err = f.cart.AddLine(ctx, 999, models.AddToCartRequest{ProductID: shirt, Quantity: 1})
	requireKind(t, err, KindNotFound)
}

func TestAdjustQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, alice, shirt, 1, "blue", "M")
	acct, _ := f.store.Account(alice)
	lineID := acct.Cart[0].ID

	view, err := f.cart.AdjustQuantity(ctx, alice, lineID, ActionDecrease)
	require.NoError(t, err)
	assert.Equal(t, 1, view.TotalQuantity, "decrease floors at one")
	require.Len(t, view.Lines, 1)

	view, err = f.cart.AdjustQuantity(ctx, alice, lineID, ActionIncrease)
	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalQuantity)
	assert.Equal(t, "Linen Shirt", view.Lines[0].Title)
	assert.Equal(t, "shirt-front.png", view.Lines[0].Image)

	_, err = f.cart.AdjustQuantity(ctx, alice, lineID, "double")
	requireKind(t, err, KindValidation)

	_, err = f.cart.AdjustQuantity(ctx, alice, 12345, ActionIncrease)
	requireKind(t, err, KindNotFound)
}

func TestAdjustQuantityAtCeiling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, alice, shirt, 40, "blue", "M")
	acct, _ := f.store.Account(alice)
	lineID := acct.Cart[0].ID

	_, err := f.cart.AdjustQuantity(ctx, alice, lineID, ActionIncrease)
	requireKind(t, err, KindCapacityExceeded)

	view, err := f.cart.AdjustQuantity(ctx, alice, lineID, ActionDecrease)
	require.NoError(t, err)
	assert.Equal(t, 39, view.TotalQuantity)
}

func TestRemoveLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, alice, shirt, 2, "blue", "M")
	f.add(t, alice, socks, 1, "grey", "free")

	view, err := f.cart.RemoveLine(ctx, alice, models.RemoveFromCartRequest{ProductID: shirt, Color: "blue", Size: "M"})
	require.NoError(t, err)
	assert.Equal(t, 1, view.TotalQuantity)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, socks, view.Lines[0].ProductID)

	_, err = f.cart.RemoveLine(ctx, alice, models.RemoveFromCartRequest{ProductID: shirt, Color: "blue", Size: "M"})
	requireKind(t, err, KindNotFound)
}

func TestReadCartWithDeletedProduct(t *testing.T) {
	f := newFixture(t)
	acct, _ := f.store.Account(alice)
	acct.Cart = []models.CartLine{
		{ID: 1, ProductID: shirt, Quantity: 1, Color: "blue", Size: "M"},
		{ID: 2, ProductID: 777, Quantity: 2, Color: "red", Size: "S"},
	}
	f.store.PutAccount(acct)

	view, err := f.cart.ReadCart(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, view.Lines, 2)
	assert.Equal(t, 3, view.TotalQuantity)

	gone := view.Lines[1]
	assert.Equal(t, models.UnknownProductTitle, gone.Title)
	assert.True(t, gone.SalePrice.IsZero())
	assert.Empty(t, gone.Image)
	assert.Equal(t, 0, gone.StockCount)
}

func TestConcurrentAddsRespectCeiling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 30; i++ {
		g.Go(func() error {
			_, err := f.cart.AddLine(ctx, alice, models.AddToCartRequest{ProductID: shirt, Quantity: 3, Color: "blue", Size: "M"})
			if err != nil && KindOf(err) != KindCapacityExceeded {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	acct, _ := f.store.Account(alice)
	assert.Equal(t, 39, acct.TotalQuantity())
}
