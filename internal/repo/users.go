package repo

import (
	"context"
	"fmt"
)

// UpsertUser creates the user on first contact and refreshes the handle afterwards.
func (q queries) UpsertUser(ctx context.Context, id int64, handle string) error {
	const stmt = `
INSERT INTO users (id, handle) VALUES (?, ?)
ON CONFLICT (id) DO UPDATE SET
    handle = excluded.handle,
    updated_at = CURRENT_TIMESTAMP`
	if _, err := q.exec(ctx, stmt, id, handle); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetUser loads a user row.
func (q queries) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	err := q.get(ctx, &u, `SELECT id, handle, balance, created_at, updated_at FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, notFound(err))
	}
	return &u, nil
}

// GetBalance returns the current balance without locking.
func (q queries) GetBalance(ctx context.Context, id int64) (int64, error) {
	var balance int64
	if err := q.get(ctx, &balance, `SELECT balance FROM users WHERE id = ?`, id); err != nil {
		return 0, fmt.Errorf("get balance %d: %w", id, notFound(err))
	}
	return balance, nil
}

// LockBalance reads the balance and holds the user row until the transaction ends.
func (t *Tx) LockBalance(ctx context.Context, id int64) (int64, error) {
	var balance int64
	q := `SELECT balance FROM users WHERE id = ?` + t.dialect.lockSuffix(false)
	if err := t.get(ctx, &balance, q, id); err != nil {
		return 0, fmt.Errorf("lock balance %d: %w", id, notFound(err))
	}
	return balance, nil
}

// AdjustBalance adds delta (negative to debit) to the user's balance.
func (t *Tx) AdjustBalance(ctx context.Context, id int64, delta int64) error {
	const stmt = `UPDATE users SET balance = balance + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	n, err := t.exec(ctx, stmt, delta, id)
	if err != nil {
		return fmt.Errorf("adjust balance %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("adjust balance %d: %w", id, ErrNotFound)
	}
	return nil
}
