package repo

import (
	"context"
	"io/fs"
)

// Repository defines the interface for ledger persistence.
type Repository interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error
	WithTx(ctx context.Context, fn func(*Tx) error) error

	// Users
	UpsertUser(ctx context.Context, id int64, handle string) error
	GetUser(ctx context.Context, id int64) (*User, error)
	GetBalance(ctx context.Context, id int64) (int64, error)

	// Stock and prices
	CountUnusedStock(ctx context.Context, couponType string) (int, error)
	GetPrice(ctx context.Context, couponType string) (int64, error)
	SetPrice(ctx context.Context, couponType string, price int64) error

	// Orders
	RecentOrders(ctx context.Context, userID int64, limit int) ([]Order, error)

	// Deposits
	CreateDeposit(ctx context.Context, dep NewDeposit) (*Deposit, error)
	GetDeposit(ctx context.Context, id int64) (*Deposit, error)
	SetPayerName(ctx context.Context, id, userID int64, name string) error
	SetGiftCard(ctx context.Context, id, userID int64, giftCard string) error
	SubmitScreenshot(ctx context.Context, id, userID int64, ref string) (*Deposit, error)
	RecentDeposits(ctx context.Context, userID int64, limit int) ([]Deposit, error)

	// Conversation state
	GetState(ctx context.Context, userID int64) (*StateRecord, error)
	PutState(ctx context.Context, userID int64, step, payload string) error
	DeleteState(ctx context.Context, userID int64) error

	// Settings
	GetSetting(ctx context.Context, name string) (string, error)
	PutSetting(ctx context.Context, name, value string) error
}

var _ Repository = (*Store)(nil)
