package services

import (
	"context"
	"strings"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/metrics"
	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/store"
	"github.com/rs/zerolog"
)

const maxReviewPageSize = 50

// RatingService stores reviews and keeps each product's rating histogram and
// average in step with them
type RatingService struct {
	uow     unitOfWork
	catalog *CatalogService
	metrics *metrics.AppMetrics
	logger  zerolog.Logger
}

// NewRatingService creates a new rating service
func NewRatingService(st store.Store, catalog *CatalogService, m *metrics.AppMetrics, storeTimeout time.Duration, logger zerolog.Logger) *RatingService {
	return &RatingService{
		uow:     unitOfWork{store: st, timeout: storeTimeout},
		catalog: catalog,
		metrics: m,
		logger:  logger.With().Str("component", "ratings").Logger(),
	}
}

// RecordReview stores a review and counts its rating in the product's
// histogram in the same transaction.
func (s *RatingService) RecordReview(ctx context.Context, actor Actor, productID int64, req models.AddReviewRequest) (*models.Review, error) {
	if productID <= 0 {
		return nil, Validation("product id is required")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, Validation("rating must be between 1 and 5")
	}
	if actor.AccountID == 0 {
		return nil, Forbidden("an account is required to review a product")
	}

	rv := &models.Review{
		ProductID: productID,
		AccountID: actor.AccountID,
		Rating:    req.Rating,
		Text:      strings.TrimSpace(req.Review),
		CreatedAt: time.Now().UTC(),
	}
	var average float64
	err := s.uow.run(ctx, "product", func(tx store.Tx) error {
		p, err := tx.Products().LockProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := p.RecordRating(req.Rating); err != nil {
			return Validation("rating must be between 1 and 5")
		}
		if err := tx.Products().SaveRatings(ctx, p); err != nil {
			return err
		}
		average = p.AverageRating
		return tx.Reviews().CreateReview(ctx, rv)
	})
	if err != nil {
		return nil, err
	}

	s.catalog.invalidate(ctx, productID)
	s.logger.Debug().Int64("product_id", productID).Int("rating", req.Rating).
		Float64("average_rating", average).Msg("review recorded")
	return rv, nil
}

// RemoveReview deletes a review and takes its rating out of the histogram.
// Authors may remove their own reviews, privileged callers any review. An
// already empty bucket is left at zero and reported as a warning.
func (s *RatingService) RemoveReview(ctx context.Context, actor Actor, productID, reviewID int64) error {
	if productID <= 0 || reviewID <= 0 {
		return Validation("product id and review id are required")
	}

	var underflow bool
	var rating int
	err := s.uow.run(ctx, "review", func(tx store.Tx) error {
		rv, err := tx.Reviews().GetReview(ctx, reviewID)
		if err != nil {
			return err
		}
		if rv.ProductID != productID {
			return NotFound("review not found", nil)
		}
		if rv.AccountID != actor.AccountID && !CanModerateReviews(actor) {
			return Forbidden("you are not authorized to delete this review")
		}

		p, err := tx.Products().LockProduct(ctx, productID)
		if err != nil {
			return fromStore(err, "product")
		}
		rating = rv.Rating
		if underflow, err = p.RemoveRating(rv.Rating); err != nil {
			return Conflict("stored review has an invalid rating", err)
		}
		if err := tx.Products().SaveRatings(ctx, p); err != nil {
			return err
		}
		return tx.Reviews().DeleteReview(ctx, reviewID)
	})
	if err != nil {
		return err
	}

	if underflow {
		s.metrics.Count(ctx, s.metrics.RatingUnderflows, 1)
		s.logger.Warn().Int64("product_id", productID).Int64("review_id", reviewID).Int("rating", rating).
			Msg("rating bucket already empty, histogram out of step with reviews")
	}
	s.catalog.invalidate(ctx, productID)
	return nil
}

// ReviewQuery selects a page of a product's reviews
type ReviewQuery struct {
	SortBy string
	Order  string
	Page   int
	Size   int
}

// ReviewPage is one page of reviews
type ReviewPage struct {
	Reviews []models.Review `json:"reviews"`
	models.Page
}

// ListReviews pages through a product's reviews, newest first by default.
func (s *RatingService) ListReviews(ctx context.Context, productID int64, q ReviewQuery) (*ReviewPage, error) {
	if productID <= 0 {
		return nil, Validation("product id is required")
	}
	sortBy := "createdAt"
	if q.SortBy == "rating" {
		sortBy = q.SortBy
	}
	descending := !strings.EqualFold(q.Order, "asc")
	p := models.NormalizePagination(q.Page, q.Size, maxReviewPageSize)

	var reviews []models.Review
	var total int
	err := s.uow.run(ctx, "product", func(tx store.Tx) error {
		if _, err := tx.Products().GetProduct(ctx, productID); err != nil {
			return err
		}
		var err error
		reviews, total, err = tx.Reviews().ListReviews(ctx, productID, sortBy, descending, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return &ReviewPage{Reviews: reviews, Page: models.NewPage(p.Page, p.Size, total, len(reviews))}, nil
}
