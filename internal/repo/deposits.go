package repo

import (
	"context"
	"fmt"
)

const depositColumns = `id, user_id, method, diamonds, payment_amount, payer_name, gift_card, screenshot_ref, status, created_at, updated_at`

// CreateDeposit opens a pending deposit.
func (q queries) CreateDeposit(ctx context.Context, dep NewDeposit) (*Deposit, error) {
	stmt := `
INSERT INTO deposits (user_id, method, diamonds, payment_amount, status)
VALUES (?, ?, ?, ?, '` + DepositPending + `')
RETURNING ` + depositColumns

	var d Deposit
	if err := q.get(ctx, &d, stmt, dep.UserID, dep.Method, dep.Diamonds, dep.PaymentAmount); err != nil {
		return nil, fmt.Errorf("insert deposit: %w", err)
	}
	return &d, nil
}

// GetDeposit loads a deposit by id.
func (q queries) GetDeposit(ctx context.Context, id int64) (*Deposit, error) {
	var d Deposit
	if err := q.get(ctx, &d, `SELECT `+depositColumns+` FROM deposits WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("get deposit %d: %w", id, notFound(err))
	}
	return &d, nil
}

// SetPayerName records the payer name on a pending deposit owned by userID.
func (q queries) SetPayerName(ctx context.Context, id, userID int64, name string) error {
	return q.setPendingDetail(ctx, "payer_name", id, userID, name)
}

// SetGiftCard records the gift card amount and code on a pending deposit
// owned by userID.
func (q queries) SetGiftCard(ctx context.Context, id, userID int64, giftCard string) error {
	return q.setPendingDetail(ctx, "gift_card", id, userID, giftCard)
}

// setPendingDetail writes one free-text column of a pending deposit. column
// is always a constant from this file.
func (q queries) setPendingDetail(ctx context.Context, column string, id, userID int64, value string) error {
	stmt := `
UPDATE deposits SET ` + column + ` = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND user_id = ? AND status = '` + DepositPending + `'`
	n, err := q.exec(ctx, stmt, value, id, userID)
	if err != nil {
		return fmt.Errorf("set %s %d: %w", column, id, err)
	}
	if n == 0 {
		return fmt.Errorf("set %s %d: %w", column, id, ErrNotFound)
	}
	return nil
}

// SubmitScreenshot attaches the payment proof to a pending deposit owned by
// userID and moves it to submitted.
func (q queries) SubmitScreenshot(ctx context.Context, id, userID int64, ref string) (*Deposit, error) {
	stmt := `
UPDATE deposits SET screenshot_ref = ?, status = '` + DepositSubmitted + `', updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND user_id = ? AND status = '` + DepositPending + `'
RETURNING ` + depositColumns

	var d Deposit
	if err := q.get(ctx, &d, stmt, ref, id, userID); err != nil {
		return nil, fmt.Errorf("submit screenshot %d: %w", id, notFound(err))
	}
	return &d, nil
}

// RecentDeposits lists the newest deposits of a user.
func (q queries) RecentDeposits(ctx context.Context, userID int64, limit int) ([]Deposit, error) {
	var deps []Deposit
	err := q.sel(ctx, &deps, `SELECT `+depositColumns+` FROM deposits WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	return deps, nil
}

// LockDeposit loads a deposit and holds its row until the transaction ends.
func (t *Tx) LockDeposit(ctx context.Context, id int64) (*Deposit, error) {
	var d Deposit
	q := `SELECT ` + depositColumns + ` FROM deposits WHERE id = ?` + t.dialect.lockSuffix(false)
	if err := t.get(ctx, &d, q, id); err != nil {
		return nil, fmt.Errorf("lock deposit %d: %w", id, notFound(err))
	}
	return &d, nil
}

// SetDepositStatus overwrites the status of a locked deposit.
func (t *Tx) SetDepositStatus(ctx context.Context, id int64, status string) error {
	const stmt = `UPDATE deposits SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	n, err := t.exec(ctx, stmt, status, id)
	if err != nil {
		return fmt.Errorf("set deposit status %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("set deposit status %d: %w", id, ErrNotFound)
	}
	return nil
}
