package db

import (
	"context"
	"fmt"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/store"
)

type reviewRepo struct{ *tx }

func (r reviewRepo) CreateReview(ctx context.Context, rv *models.Review) error {
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = time.Now().UTC()
	}
	res, err := r.exec(ctx, "reviews",
		"INSERT INTO reviews (product_id, account_id, rating, body, created_at) VALUES (?, ?, ?, ?, ?)",
		rv.ProductID, rv.AccountID, rv.Rating, rv.Text, rv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	if rv.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get review id: %w", err)
	}
	return nil
}

func (r reviewRepo) GetReview(ctx context.Context, reviewID int64) (*models.Review, error) {
	var rv models.Review
	if err := r.queryRow(ctx, "reviews",
		"SELECT id, product_id, account_id, rating, body, created_at FROM reviews WHERE id = ?",
		[]any{reviewID}, &rv.ID, &rv.ProductID, &rv.AccountID, &rv.Rating, &rv.Text, &rv.CreatedAt); err != nil {
		if errNoRows(err) {
			return nil, fmt.Errorf("review %d: %w", reviewID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &rv, nil
}

func (r reviewRepo) DeleteReview(ctx context.Context, reviewID int64) error {
	res, err := r.exec(ctx, "reviews", "DELETE FROM reviews WHERE id = ?", reviewID)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return affected(res, fmt.Errorf("review %d: %w", reviewID, store.ErrNotFound))
}

func (r reviewRepo) ListReviews(ctx context.Context, productID int64, sortBy string, descending bool, p models.Pagination) ([]models.Review, int, error) {
	var total int
	if err := r.queryRow(ctx, "reviews", "SELECT COUNT(*) FROM reviews WHERE product_id = ?",
		[]any{productID}, &total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	sortColumn := "created_at"
	if sortBy == "rating" {
		sortColumn = "rating"
	}
	direction := "ASC"
	if descending {
		direction = "DESC"
	}

	rows, err := r.query(ctx, "reviews",
		"SELECT id, product_id, account_id, rating, body, created_at FROM reviews WHERE product_id = ?"+
			" ORDER BY "+sortColumn+" "+direction+", id "+direction+" LIMIT ? OFFSET ?",
		productID, p.Size, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.AccountID, &rv.Rating, &rv.Text, &rv.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return reviews, total, nil
}
