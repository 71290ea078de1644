package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/store"
)

const orderColumns = `id, account_id, shipping_fee, total_amount, address_id, address_line, address_city,
	address_landmark, address_pincode, address_phone, payment_method, status, gateway_order_id,
	order_date, updated_at`

func scanOrder(s scanner) (*models.Order, error) {
	var o models.Order
	var gatewayOrderID sql.NullString
	if err := s.Scan(&o.ID, &o.AccountID, &o.ShippingFee, &o.TotalAmount, &o.Address.ID,
		&o.Address.Line, &o.Address.City, &o.Address.Landmark, &o.Address.Pincode, &o.Address.Phone,
		&o.PaymentMethod, &o.Status, &gatewayOrderID, &o.OrderDate, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Address.AccountID = o.AccountID
	o.GatewayOrderID = gatewayOrderID.String
	return &o, nil
}

type orderRepo struct{ *tx }

func (r orderRepo) CreateOrder(ctx context.Context, o *models.Order) error {
	if o.OrderDate.IsZero() {
		o.OrderDate = time.Now().UTC()
	}
	o.UpdatedAt = o.OrderDate

	var gatewayOrderID sql.NullString
	if o.GatewayOrderID != "" {
		gatewayOrderID = sql.NullString{String: o.GatewayOrderID, Valid: true}
	}

	res, err := r.exec(ctx, "orders",
		`INSERT INTO orders (account_id, shipping_fee, total_amount, address_id, address_line, address_city,
		address_landmark, address_pincode, address_phone, payment_method, status, gateway_order_id,
		order_date, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.AccountID, o.ShippingFee, o.TotalAmount, o.Address.ID, o.Address.Line, o.Address.City,
		o.Address.Landmark, o.Address.Pincode, o.Address.Phone, o.PaymentMethod, o.Status, gatewayOrderID,
		o.OrderDate, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get order id: %w", err)
	}
	o.ID = orderID

	for i := range o.Lines {
		line := &o.Lines[i]
		res, err := r.exec(ctx, "order_lines",
			`INSERT INTO order_lines (order_id, product_id, title, unit_price, quantity, color, size, image)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			orderID, line.ProductID, line.Title, line.UnitPrice, line.Quantity, line.Color, line.Size, line.Image)
		if err != nil {
			return fmt.Errorf("failed to create order line: %w", err)
		}
		if line.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get order line id: %w", err)
		}
		line.OrderID = orderID
	}
	return nil
}

func (r orderRepo) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	return r.getOne(ctx, fmt.Sprintf("order %d", orderID),
		"SELECT "+orderColumns+" FROM orders WHERE id = ?", orderID)
}

func (r orderRepo) LockOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	return r.getOne(ctx, fmt.Sprintf("order %d", orderID),
		"SELECT "+orderColumns+" FROM orders WHERE id = ? FOR UPDATE", orderID)
}

func (r orderRepo) LockProvisionalOrder(ctx context.Context, accountID int64, gatewayOrderID string) (*models.Order, error) {
	return r.getOne(ctx, "provisional order "+gatewayOrderID,
		"SELECT "+orderColumns+" FROM orders WHERE account_id = ? AND status = ? AND gateway_order_id = ? LIMIT 1 FOR UPDATE",
		accountID, models.OrderStatusCreated, gatewayOrderID)
}

func (r orderRepo) getOne(ctx context.Context, what, query string, args ...any) (*models.Order, error) {
	rows, err := r.query(ctx, "orders", query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	var o *models.Order
	if rows.Next() {
		o, err = scanOrder(rows)
	}
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if o == nil {
		return nil, fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}

	lines, err := r.lines(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]
	return o, nil
}

// lines loads the order lines of every order in ids, keyed by order id.
func (r orderRepo) lines(ctx context.Context, ids []int64) (map[int64][]models.OrderLine, error) {
	out := make(map[int64][]models.OrderLine, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.query(ctx, "order_lines",
		`SELECT id, order_id, product_id, title, unit_price, quantity, color, size, image
		FROM order_lines WHERE order_id IN (`+placeholders(len(ids))+`) ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l models.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Title, &l.UnitPrice, &l.Quantity,
			&l.Color, &l.Size, &l.Image); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order lines: %w", err)
	}
	return out, nil
}

func (r orderRepo) UpdateStatus(ctx context.Context, orderID int64, from, to models.OrderStatus) error {
	res, err := r.exec(ctx, "orders",
		"UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		to, time.Now().UTC(), orderID, from)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Tell a missing order apart from one that moved on.
	var current models.OrderStatus
	if err := r.queryRow(ctx, "orders", "SELECT status FROM orders WHERE id = ?", []any{orderID}, &current); err != nil {
		if errNoRows(err) {
			return fmt.Errorf("order %d: %w", orderID, store.ErrNotFound)
		}
		return fmt.Errorf("failed to get order status: %w", err)
	}
	return fmt.Errorf("order %d is %s, not %s: %w", orderID, current, from, store.ErrConflict)
}

func (r orderRepo) ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, int, error) {
	where := " WHERE 1 = 1"
	var args []any
	if f.AccountID != 0 {
		where += " AND account_id = ?"
		args = append(args, f.AccountID)
	}
	if f.Status != "" {
		where += " AND status = ?"
		args = append(args, f.Status)
	} else {
		where += " AND status <> ?"
		args = append(args, models.OrderStatusCreated)
	}

	var total int
	if err := r.queryRow(ctx, "orders", "SELECT COUNT(*) FROM orders"+where, args, &total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	sortColumn := "order_date"
	if f.SortBy == "totalAmount" {
		sortColumn = "total_amount"
	}
	direction := "ASC"
	if f.Descending {
		direction = "DESC"
	}

	query := "SELECT " + orderColumns + " FROM orders" + where +
		" ORDER BY " + sortColumn + " " + direction + ", id " + direction + " LIMIT ? OFFSET ?"
	rows, err := r.query(ctx, "orders", query, append(args, f.Size, f.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	var ids []int64
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate orders: %w", err)
	}
	rows.Close()

	lines, err := r.lines(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, total, nil
}

// DeleteByStatus relies on the order_lines foreign key cascading.
func (r orderRepo) DeleteByStatus(ctx context.Context, status models.OrderStatus, cutoff time.Time) (int64, error) {
	res, err := r.exec(ctx, "orders",
		"DELETE FROM orders WHERE status = ? AND order_date <= ?", status, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orders: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}
