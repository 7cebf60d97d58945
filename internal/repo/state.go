package repo

import (
	"context"
	"fmt"
)

// GetState loads the stored conversation step of a user.
func (q queries) GetState(ctx context.Context, userID int64) (*StateRecord, error) {
	var rec StateRecord
	err := q.get(ctx, &rec, `SELECT user_id, step, payload, updated_at FROM user_state WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("get state %d: %w", userID, notFound(err))
	}
	return &rec, nil
}

// PutState replaces the conversation step of a user.
func (q queries) PutState(ctx context.Context, userID int64, step, payload string) error {
	const stmt = `
INSERT INTO user_state (user_id, step, payload) VALUES (?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    step = excluded.step,
    payload = excluded.payload,
    updated_at = CURRENT_TIMESTAMP`
	if _, err := q.exec(ctx, stmt, userID, step, payload); err != nil {
		return fmt.Errorf("put state %d: %w", userID, err)
	}
	return nil
}

// DeleteState removes the conversation step of a user. Missing rows are not an error.
func (q queries) DeleteState(ctx context.Context, userID int64) error {
	if _, err := q.exec(ctx, `DELETE FROM user_state WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete state %d: %w", userID, err)
	}
	return nil
}
