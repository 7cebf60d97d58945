package repo

import (
	"context"
	"errors"
	"fmt"
)

// CountUnusedStock returns how many unused codes of the type remain. The
// figure is advisory: it takes no locks.
func (q queries) CountUnusedStock(ctx context.Context, couponType string) (int, error) {
	var n int
	if err := q.get(ctx, &n, `SELECT COUNT(*) FROM coupon_stock WHERE type = ? AND is_used = FALSE`, couponType); err != nil {
		return 0, fmt.Errorf("count stock %s: %w", couponType, err)
	}
	return n, nil
}

// GetPrice returns the unit price of a coupon type, 0 when none is configured.
func (q queries) GetPrice(ctx context.Context, couponType string) (int64, error) {
	var price int64
	err := q.get(ctx, &price, `SELECT price FROM coupon_prices WHERE type = ?`, couponType)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("get price %s: %w", couponType, err)
	}
	return price, nil
}

// SetPrice stores the unit price of a coupon type.
func (q queries) SetPrice(ctx context.Context, couponType string, price int64) error {
	const stmt = `
INSERT INTO coupon_prices (type, price) VALUES (?, ?)
ON CONFLICT (type) DO UPDATE SET
    price = excluded.price,
    updated_at = CURRENT_TIMESTAMP`
	if _, err := q.exec(ctx, stmt, couponType, price); err != nil {
		return fmt.Errorf("set price %s: %w", couponType, err)
	}
	return nil
}

// InsertCodes appends unused codes of the given type.
func (t *Tx) InsertCodes(ctx context.Context, couponType string, codes []string) (int, error) {
	const stmt = `INSERT INTO coupon_stock (type, code) VALUES (?, ?)`
	for i, code := range codes {
		if _, err := t.exec(ctx, stmt, couponType, code); err != nil {
			return i, fmt.Errorf("insert code %d of %d: %w", i+1, len(codes), err)
		}
	}
	return len(codes), nil
}

// LockOldestUnused locks up to limit unused codes of the type in insertion
// order. Rows already locked by a concurrent transaction are skipped, so the
// result may be shorter than limit.
func (t *Tx) LockOldestUnused(ctx context.Context, couponType string, limit int) ([]StockItem, error) {
	q := `SELECT id, type, code FROM coupon_stock WHERE type = ? AND is_used = FALSE ORDER BY id ASC LIMIT ?` +
		t.dialect.lockSuffix(true)

	var items []StockItem
	if err := t.sel(ctx, &items, q, couponType, limit); err != nil {
		return nil, fmt.Errorf("lock stock %s: %w", couponType, err)
	}
	return items, nil
}

// MarkUsed flips the given codes to used. Every id must still be unused.
func (t *Tx) MarkUsed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := t.in(`UPDATE coupon_stock SET is_used = TRUE, used_at = CURRENT_TIMESTAMP WHERE is_used = FALSE AND id IN (?)`, ids)
	if err != nil {
		return err
	}
	n, err := t.exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("mark stock used: %w", err)
	}
	if n != int64(len(ids)) {
		return fmt.Errorf("mark stock used: %d of %d rows updated", n, len(ids))
	}
	return nil
}

// DeleteUnused removes the given codes if they are still unused.
func (t *Tx) DeleteUnused(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := t.in(`DELETE FROM coupon_stock WHERE is_used = FALSE AND id IN (?)`, ids)
	if err != nil {
		return 0, err
	}
	n, err := t.exec(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("delete stock: %w", err)
	}
	return int(n), nil
}
