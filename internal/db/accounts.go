package db

import (
	"context"
	"fmt"

	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/store"
)

type accountRepo struct{ *tx }

func (r accountRepo) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	return r.load(ctx, accountID, false)
}

// LockAccount holds the account row so cart mutations of one account run one
// at a time. The cart lines themselves are only written behind this lock.
func (r accountRepo) LockAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	return r.load(ctx, accountID, true)
}

func (r accountRepo) load(ctx context.Context, accountID int64, lock bool) (*models.Account, error) {
	query := "SELECT id, first_name, last_name, email, role FROM accounts WHERE id = ?"
	if lock {
		query += " FOR UPDATE"
	}

	var a models.Account
	if err := r.queryRow(ctx, "accounts", query, []any{accountID},
		&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.Role); err != nil {
		if errNoRows(err) {
			return nil, fmt.Errorf("account %d: %w", accountID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	addrRows, err := r.query(ctx, "addresses",
		"SELECT id, account_id, line, city, landmark, pincode, phone, is_default FROM addresses WHERE account_id = ? ORDER BY id",
		accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get addresses: %w", err)
	}
	defer addrRows.Close()
	for addrRows.Next() {
		var addr models.Address
		if err := addrRows.Scan(&addr.ID, &addr.AccountID, &addr.Line, &addr.City, &addr.Landmark,
			&addr.Pincode, &addr.Phone, &addr.IsDefault); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		a.Addresses = append(a.Addresses, addr)
	}
	if err := addrRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate addresses: %w", err)
	}

	cartRows, err := r.query(ctx, "cart_lines",
		"SELECT id, account_id, product_id, quantity, color, size FROM cart_lines WHERE account_id = ? ORDER BY id",
		accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	defer cartRows.Close()
	for cartRows.Next() {
		var line models.CartLine
		if err := cartRows.Scan(&line.ID, &line.AccountID, &line.ProductID, &line.Quantity,
			&line.Color, &line.Size); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		a.Cart = append(a.Cart, line)
	}
	if err := cartRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart: %w", err)
	}

	return &a, nil
}

func (r accountRepo) AddCartLine(ctx context.Context, line *models.CartLine) error {
	res, err := r.exec(ctx, "cart_lines",
		"INSERT INTO cart_lines (account_id, product_id, quantity, color, size) VALUES (?, ?, ?, ?, ?)",
		line.AccountID, line.ProductID, line.Quantity, line.Color, line.Size)
	if err != nil {
		return fmt.Errorf("failed to add cart line: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get cart line id: %w", err)
	}
	line.ID = id
	return nil
}

// SetCartLineQuantity also bumps updated_at so that writing an unchanged
// quantity still counts as an affected row.
func (r accountRepo) SetCartLineQuantity(ctx context.Context, accountID, lineID int64, quantity int) error {
	res, err := r.exec(ctx, "cart_lines",
		"UPDATE cart_lines SET quantity = ?, updated_at = NOW(6) WHERE id = ? AND account_id = ?",
		quantity, lineID, accountID)
	if err != nil {
		return fmt.Errorf("failed to update cart line: %w", err)
	}
	return affected(res, fmt.Errorf("cart line %d: %w", lineID, store.ErrNotFound))
}

func (r accountRepo) DeleteCartLine(ctx context.Context, accountID, lineID int64) error {
	res, err := r.exec(ctx, "cart_lines",
		"DELETE FROM cart_lines WHERE id = ? AND account_id = ?", lineID, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	return affected(res, fmt.Errorf("cart line %d: %w", lineID, store.ErrNotFound))
}

func (r accountRepo) ClearCart(ctx context.Context, accountID int64) error {
	if _, err := r.exec(ctx, "cart_lines", "DELETE FROM cart_lines WHERE account_id = ?", accountID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
