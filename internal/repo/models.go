package repo

import (
	"database/sql"
	"strings"
	"time"
)

// Deposit statuses.
const (
	DepositPending   = "pending"
	DepositSubmitted = "submitted"
	DepositApproved  = "approved"
	DepositDeclined  = "declined"
)

// SettingPaymentQR names the settings row holding the payment QR image reference.
const SettingPaymentQR = "payment_qr"

// User represents the users table row.
type User struct {
	ID        int64     `db:"id"`
	Handle    string    `db:"handle"`
	Balance   int64     `db:"balance"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// StockItem is a single coupon code held in stock.
type StockItem struct {
	ID         int64  `db:"id"`
	CouponType string `db:"type"`
	Code       string `db:"code"`
}

// Order represents a row in orders table.
type Order struct {
	ID         int64     `db:"id"`
	UserID     int64     `db:"user_id"`
	CouponType string    `db:"coupon_type"`
	Quantity   int       `db:"quantity"`
	TotalPrice int64     `db:"total_price"`
	RawCodes   string    `db:"codes"`
	CreatedAt  time.Time `db:"created_at"`
}

// Codes returns the delivered codes snapshot.
func (o Order) Codes() []string {
	if o.RawCodes == "" {
		return nil
	}
	return strings.Split(o.RawCodes, "\n")
}

// Deposit represents a row in deposits table.
type Deposit struct {
	ID            int64          `db:"id"`
	UserID        int64          `db:"user_id"`
	Method        string         `db:"method"`
	Diamonds      int64          `db:"diamonds"`
	PaymentAmount int64          `db:"payment_amount"`
	PayerName     sql.NullString `db:"payer_name"`
	GiftCard      sql.NullString `db:"gift_card"`
	ScreenshotRef sql.NullString `db:"screenshot_ref"`
	Status        string         `db:"status"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// NewDeposit carries the fields needed to open a deposit.
type NewDeposit struct {
	UserID        int64
	Method        string
	Diamonds      int64
	PaymentAmount int64
}

// StateRecord is the persisted form of a user's conversation step.
type StateRecord struct {
	UserID    int64     `db:"user_id"`
	Step      string    `db:"step"`
	Payload   string    `db:"payload"`
	UpdatedAt time.Time `db:"updated_at"`
}
