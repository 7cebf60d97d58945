package repo

import (
	"context"
	"fmt"
)

// GetSetting returns a settings value, ErrNotFound when unset.
func (q queries) GetSetting(ctx context.Context, name string) (string, error) {
	var value string
	if err := q.get(ctx, &value, `SELECT value FROM settings WHERE name = ?`, name); err != nil {
		return "", fmt.Errorf("get setting %s: %w", name, notFound(err))
	}
	return value, nil
}

// PutSetting stores a settings value.
func (q queries) PutSetting(ctx context.Context, name, value string) error {
	const stmt = `
INSERT INTO settings (name, value) VALUES (?, ?)
ON CONFLICT (name) DO UPDATE SET
    value = excluded.value,
    updated_at = CURRENT_TIMESTAMP`
	if _, err := q.exec(ctx, stmt, name, value); err != nil {
		return fmt.Errorf("put setting %s: %w", name, err)
	}
	return nil
}
