package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/store"
)

const productColumns = `id, title, category, original_price, sale_price, stock_count, in_stock,
	bought_counter, star1, star2, star3, star4, star5, average_rating, images, created_at, updated_at`

func scanProduct(s scanner) (*models.Product, error) {
	var p models.Product
	var images []byte
	if err := s.Scan(&p.ID, &p.Title, &p.Category, &p.OriginalPrice, &p.SalePrice, &p.StockCount,
		&p.InStock, &p.BoughtCounter, &p.Ratings[0], &p.Ratings[1], &p.Ratings[2], &p.Ratings[3],
		&p.Ratings[4], &p.AverageRating, &images, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, fmt.Errorf("failed to decode images of product %d: %w", p.ID, err)
		}
	}
	return &p, nil
}

type productRepo struct{ *tx }

func (r productRepo) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	return r.get(ctx, productID, false)
}

func (r productRepo) LockProduct(ctx context.Context, productID int64) (*models.Product, error) {
	return r.get(ctx, productID, true)
}

func (r productRepo) get(ctx context.Context, productID int64, lock bool) (*models.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE id = ?"
	if lock {
		query += " FOR UPDATE"
	}
	rows, err := r.query(ctx, "products", query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get product: %w", err)
		}
		return nil, fmt.Errorf("product %d: %w", productID, store.ErrNotFound)
	}
	p, err := scanProduct(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	return p, nil
}

func (r productRepo) GetProducts(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	out := make(map[int64]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.query(ctx, "products",
		"SELECT "+productColumns+" FROM products WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return out, nil
}

func (r productRepo) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	rows, err := r.query(ctx, "products",
		"SELECT "+productColumns+" FROM products ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

func (r productRepo) SaveInventory(ctx context.Context, p *models.Product) error {
	res, err := r.exec(ctx, "products",
		"UPDATE products SET stock_count = ?, in_stock = ?, bought_counter = ?, updated_at = NOW(6) WHERE id = ?",
		p.StockCount, p.InStock, p.BoughtCounter, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update inventory: %w", err)
	}
	return affected(res, fmt.Errorf("product %d: %w", p.ID, store.ErrNotFound))
}

func (r productRepo) SaveRatings(ctx context.Context, p *models.Product) error {
	res, err := r.exec(ctx, "products",
		`UPDATE products SET star1 = ?, star2 = ?, star3 = ?, star4 = ?, star5 = ?, average_rating = ?,
		updated_at = NOW(6) WHERE id = ?`,
		p.Ratings[0], p.Ratings[1], p.Ratings[2], p.Ratings[3], p.Ratings[4], p.AverageRating, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update ratings: %w", err)
	}
	return affected(res, fmt.Errorf("product %d: %w", p.ID, store.ErrNotFound))
}

// errNoRows reports whether err is the driver's empty result.
func errNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
