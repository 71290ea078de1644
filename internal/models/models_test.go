package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingHistogramAverage(t *testing.T) {
	var p Product
	for _, r := range []int{5, 5, 4} {
		require.NoError(t, p.RecordRating(r))
	}
	assert.Equal(t, 4.7, p.AverageRating)
	assert.Equal(t, int64(3), p.Ratings.Count())

	underflow, err := p.RemoveRating(5)
	require.NoError(t, err)
	assert.False(t, underflow)
	assert.Equal(t, 4.5, p.AverageRating)
	assert.Equal(t, 4.5, p.Ratings.Average())
}

func TestRatingHistogramAverageRoundsStoredQuotient(t *testing.T) {
	cases := []struct {
		name string
		h    RatingHistogram
		want float64
	}{
		{"thirteen fours seven fives", RatingHistogram{0, 0, 0, 13, 7}, 4.3},
		{"two fives one four", RatingHistogram{0, 0, 0, 1, 2}, 4.7},
		{"one two one three", RatingHistogram{0, 1, 1, 0, 0}, 2.5},
		{"all ones", RatingHistogram{4, 0, 0, 0, 0}, 1},
		{"one one one two", RatingHistogram{1, 1, 0, 0, 0}, 1.5},
		{"one to five once each", RatingHistogram{1, 1, 1, 1, 1}, 3},
		{"two ones one two", RatingHistogram{2, 1, 0, 0, 0}, 1.3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.h.Average())
		})
	}
}

func TestRatingHistogramEmptyAndUnderflow(t *testing.T) {
	var h RatingHistogram
	assert.Equal(t, 0.0, h.Average())

	underflow, err := h.Remove(3)
	require.NoError(t, err)
	assert.True(t, underflow)
	assert.Equal(t, int64(0), h[2])

	assert.ErrorIs(t, h.Add(0), ErrRatingOutOfRange)
	assert.ErrorIs(t, h.Add(6), ErrRatingOutOfRange)
	_, err = h.Remove(7)
	assert.ErrorIs(t, err, ErrRatingOutOfRange)
}

func TestCommitPurchaseClampsAtZero(t *testing.T) {
	p := Product{StockCount: 3, InStock: true, BoughtCounter: 10}

	p.CommitPurchase(2)
	assert.Equal(t, 1, p.StockCount)
	assert.True(t, p.InStock)
	assert.Equal(t, int64(12), p.BoughtCounter)

	p.CommitPurchase(5)
	assert.Equal(t, 0, p.StockCount)
	assert.False(t, p.InStock)
	assert.Equal(t, int64(17), p.BoughtCounter)
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusCreated, OrderStatusPlaced, true},
		{OrderStatusCreated, OrderStatusCancelled, true},
		{OrderStatusCreated, OrderStatusShipped, false},
		{OrderStatusPlaced, OrderStatusShipped, true},
		{OrderStatusPlaced, OrderStatusDelivered, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPlaced, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}

	assert.True(t, OrderStatusShipped.Cancellable())
	assert.False(t, OrderStatusDelivered.Cancellable())
	assert.True(t, OrderStatusDelivered.Terminal())
	assert.True(t, OrderStatusCancelled.Terminal())
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod("COD")
	require.NoError(t, err)
	assert.Equal(t, PaymentCOD, m)

	m, err = ParsePaymentMethod(" Online ")
	require.NoError(t, err)
	assert.Equal(t, PaymentOnline, m)

	_, err = ParsePaymentMethod("card")
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, s)

	_, err = ParseOrderStatus("Created")
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
}

func TestOrderTotalAndMinorUnits(t *testing.T) {
	lines := []OrderLine{
		{UnitPrice: decimal.NewFromInt(100), Quantity: 2},
		{UnitPrice: decimal.NewFromInt(50), Quantity: 1},
	}
	total := OrderTotal(lines, decimal.NewFromInt(60))
	assert.True(t, total.Equal(decimal.NewFromInt(310)))
	assert.Equal(t, int64(31000), ToMinorUnits(total))

	assert.Equal(t, int64(1000), ToMinorUnits(decimal.RequireFromString("9.995")))
}

func TestAccountCartHelpers(t *testing.T) {
	a := Account{Cart: []CartLine{
		{ID: 1, ProductID: 7, Quantity: 2, Color: "red", Size: "M"},
		{ID: 2, ProductID: 7, Quantity: 3, Color: "blue", Size: "M"},
	}}
	assert.Equal(t, 5, a.TotalQuantity())
	assert.Equal(t, 1, a.FindLine(7, "blue", "M"))
	assert.Equal(t, -1, a.FindLine(7, "blue", "L"))
}

func TestNewPage(t *testing.T) {
	p := NewPage(1, 10, 25, 10)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.IsFirst)
	assert.False(t, p.IsLast)
	assert.True(t, p.HasNext)

	empty := NewPage(1, 10, 0, 0)
	assert.True(t, empty.IsLast)
	assert.False(t, empty.HasNext)

	pg := NormalizePagination(0, 0, 50)
	assert.Equal(t, 1, pg.Page)
	assert.Equal(t, 10, pg.Size)
	assert.Equal(t, 0, pg.Offset())
}
