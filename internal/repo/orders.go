package repo

import (
	"context"
	"fmt"
	"strings"
)

// InsertOrder appends an order recording the codes delivered to the user.
func (t *Tx) InsertOrder(ctx context.Context, userID int64, couponType string, totalPrice int64, codes []string) (*Order, error) {
	const stmt = `
INSERT INTO orders (user_id, coupon_type, quantity, total_price, codes)
VALUES (?, ?, ?, ?, ?)
RETURNING id, user_id, coupon_type, quantity, total_price, codes, created_at`

	var o Order
	if err := t.get(ctx, &o, stmt, userID, couponType, len(codes), totalPrice, strings.Join(codes, "\n")); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return &o, nil
}

// RecentOrders lists the newest orders of a user.
func (q queries) RecentOrders(ctx context.Context, userID int64, limit int) ([]Order, error) {
	const query = `
SELECT id, user_id, coupon_type, quantity, total_price, codes, created_at
FROM orders
WHERE user_id = ?
ORDER BY id DESC
LIMIT ?`

	var orders []Order
	if err := q.sel(ctx, &orders, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
