package services

import (
	"context"
	"testing"

	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingAverage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var fives []int64
	for _, r := range []int{5, 5, 4} {
		rv, err := f.ratings.RecordReview(ctx, aliceActor, shirt, models.AddReviewRequest{Rating: r, Review: "nice"})
		require.NoError(t, err)
		if r == 5 {
			fives = append(fives, rv.ID)
		}
	}
	p := f.stock(t, shirt)
	assert.Equal(t, 4.7, p.AverageRating)
	assert.Equal(t, models.RatingHistogram{0, 0, 0, 1, 2}, p.Ratings)

	require.NoError(t, f.ratings.RemoveReview(ctx, aliceActor, shirt, fives[0]))
	p = f.stock(t, shirt)
	assert.Equal(t, 4.5, p.AverageRating)
	assert.Equal(t, p.Ratings.Average(), p.AverageRating)

	cached, err := f.catalog.GetProduct(ctx, shirt)
	require.NoError(t, err)
	assert.Equal(t, 4.5, cached.AverageRating)
}

func TestRecordReviewValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ratings.RecordReview(ctx, aliceActor, shirt, models.AddReviewRequest{Rating: 6})
	requireKind(t, err, KindValidation)
	_, err = f.ratings.RecordReview(ctx, aliceActor, 999, models.AddReviewRequest{Rating: 3})
	requireKind(t, err, KindNotFound)

	assert.Zero(t, f.stock(t, shirt).Ratings.Count())
}

func TestRemoveReviewAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rv, err := f.ratings.RecordReview(ctx, aliceActor, shirt, models.AddReviewRequest{Rating: 3})
	require.NoError(t, err)

	err = f.ratings.RemoveReview(ctx, bobActor, shirt, rv.ID)
	requireKind(t, err, KindForbidden)

	err = f.ratings.RemoveReview(ctx, aliceActor, socks, rv.ID)
	requireKind(t, err, KindNotFound)

	require.NoError(t, f.ratings.RemoveReview(ctx, manager, shirt, rv.ID))
	assert.Zero(t, f.stock(t, shirt).AverageRating)

	err = f.ratings.RemoveReview(ctx, aliceActor, shirt, rv.ID)
	requireKind(t, err, KindNotFound)
}

func TestRemoveReviewUnderflowClamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rv, err := f.ratings.RecordReview(ctx, aliceActor, shirt, models.AddReviewRequest{Rating: 2})
	require.NoError(t, err)

	p := f.stock(t, shirt)
	p.Ratings = models.RatingHistogram{}
	f.store.PutProduct(p)

	require.NoError(t, f.ratings.RemoveReview(ctx, aliceActor, shirt, rv.ID))
	p = f.stock(t, shirt)
	assert.Equal(t, models.RatingHistogram{}, p.Ratings)
	assert.Zero(t, p.AverageRating)
}

func TestListReviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, r := range []int{1, 4, 3} {
		_, err := f.ratings.RecordReview(ctx, aliceActor, shirt, models.AddReviewRequest{Rating: r})
		require.NoError(t, err)
	}

	page, err := f.ratings.ListReviews(ctx, shirt, ReviewQuery{SortBy: "rating", Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Reviews, 2)
	assert.Equal(t, 4, page.Reviews[0].Rating)
	assert.Equal(t, 3, page.Reviews[1].Rating)

	page, err = f.ratings.ListReviews(ctx, socks, ReviewQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Reviews)
	assert.True(t, page.IsLast)
}
