package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"coupon-bot/internal/metrics"
	"coupon-bot/internal/repo"
)

var (
	// ErrUnknownType is returned for coupon types outside the catalog.
	ErrUnknownType = errors.New("unknown coupon type")
	// ErrInvalidQuantity is returned when a purchase quantity is not positive.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrInvalidCount is returned when a removal count is not positive.
	ErrInvalidCount = errors.New("count must be positive")
	// ErrInvalidPrice is returned for negative prices and prices above MaxPrice.
	ErrInvalidPrice = errors.New("price out of range")
	// ErrNoCodes is returned when a stock batch holds no usable code.
	ErrNoCodes = errors.New("no codes supplied")
	// ErrNoStock is returned when no unused code is left to issue.
	ErrNoStock = errors.New("out of stock")

	errAbort = errors.New("abort transaction")
)

// MaxPrice is the highest unit price an administrator may set.
const MaxPrice int64 = 1_000_000_000

// Store is the slice of the ledger the engine needs.
type Store interface {
	CountUnusedStock(ctx context.Context, couponType string) (int, error)
	GetPrice(ctx context.Context, couponType string) (int64, error)
	SetPrice(ctx context.Context, couponType string, price int64) error
	WithTx(ctx context.Context, fn func(*repo.Tx) error) error
}

// Outcome classifies a purchase attempt that did not fail internally.
type Outcome int

const (
	Purchased Outcome = iota
	InsufficientStock
	InsufficientBalance
	StockRace
)

func (o Outcome) String() string {
	switch o {
	case Purchased:
		return "purchased"
	case InsufficientStock:
		return "insufficient_stock"
	case InsufficientBalance:
		return "insufficient_balance"
	case StockRace:
		return "stock_race"
	default:
		return "unknown"
	}
}

// PurchaseResult describes how a purchase ended. Only the fields relevant to
// the outcome are set.
type PurchaseResult struct {
	Outcome   Outcome
	Order     *repo.Order
	Codes     []string
	Available int
	Needed    int64
	Have      int64
}

// Quote is the advisory price and availability of a coupon type.
type Quote struct {
	CouponType string
	Price      int64
	Available  int
}

// Engine reserves, consumes and replenishes coupon stock against user balances.
type Engine struct {
	store   Store
	catalog *Catalog
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New constructs an inventory engine.
func New(store Store, catalog *Catalog, metricRegistry *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		store:   store,
		catalog: catalog,
		metrics: metricRegistry,
		logger:  logger.With("component", "inventory"),
	}
}

// Catalog exposes the coupon types on sale.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Quote returns price and unused count. Storage errors degrade to zero values.
func (e *Engine) Quote(ctx context.Context, couponType string) Quote {
	q := Quote{CouponType: couponType}

	price, err := e.store.GetPrice(ctx, couponType)
	if err != nil {
		e.fail("quote price", err, "type", couponType)
	}
	q.Price = price

	available, err := e.store.CountUnusedStock(ctx, couponType)
	if err != nil {
		e.fail("quote stock", err, "type", couponType)
	}
	q.Available = available
	return q
}

// Overview quotes every catalog type in display order.
func (e *Engine) Overview(ctx context.Context) []Quote {
	types := e.catalog.Types()
	out := make([]Quote, 0, len(types))
	for _, t := range types {
		out = append(out, e.Quote(ctx, t))
	}
	return out
}

// Purchase exchanges balance for qty unused codes in a single transaction.
// Any outcome other than Purchased leaves balance, stock and orders untouched.
func (e *Engine) Purchase(ctx context.Context, userID int64, couponType string, qty int) (PurchaseResult, error) {
	if qty <= 0 {
		return PurchaseResult{}, fmt.Errorf("purchase %d: %w", qty, ErrInvalidQuantity)
	}
	if !e.catalog.Has(couponType) {
		return PurchaseResult{}, fmt.Errorf("purchase %q: %w", couponType, ErrUnknownType)
	}

	available, err := e.store.CountUnusedStock(ctx, couponType)
	if err != nil {
		e.fail("purchase", err, "user_id", userID, "type", couponType)
		return PurchaseResult{}, fmt.Errorf("purchase: %w", err)
	}
	if available < qty {
		return e.settle(PurchaseResult{Outcome: InsufficientStock, Available: available}), nil
	}

	var res PurchaseResult
	err = e.store.WithTx(ctx, func(tx *repo.Tx) error {
		balance, err := tx.LockBalance(ctx, userID)
		if err != nil {
			return err
		}

		items, err := tx.LockOldestUnused(ctx, couponType, qty)
		if err != nil {
			return err
		}
		if len(items) < qty {
			res = PurchaseResult{Outcome: StockRace, Available: len(items)}
			return errAbort
		}

		price, err := tx.GetPrice(ctx, couponType)
		if err != nil {
			return err
		}
		if price > 0 && int64(qty) > math.MaxInt64/price {
			// The total is not representable, so no balance covers it.
			res = PurchaseResult{Outcome: InsufficientBalance, Needed: math.MaxInt64, Have: balance}
			return errAbort
		}
		total := price * int64(qty)
		if balance < total {
			res = PurchaseResult{Outcome: InsufficientBalance, Needed: total, Have: balance}
			return errAbort
		}

		ids := make([]int64, len(items))
		codes := make([]string, len(items))
		for i, it := range items {
			ids[i] = it.ID
			codes[i] = it.Code
		}

		if err := tx.AdjustBalance(ctx, userID, -total); err != nil {
			return err
		}
		if err := tx.MarkUsed(ctx, ids); err != nil {
			return err
		}
		order, err := tx.InsertOrder(ctx, userID, couponType, total, codes)
		if err != nil {
			return err
		}

		res = PurchaseResult{Outcome: Purchased, Order: order, Codes: codes}
		return nil
	})
	if err != nil && !errors.Is(err, errAbort) {
		e.fail("purchase", err, "user_id", userID, "type", couponType, "qty", qty)
		return PurchaseResult{}, fmt.Errorf("purchase %s x%d: %w", couponType, qty, err)
	}

	if res.Outcome == Purchased {
		e.logger.Info("coupons purchased", "user_id", userID, "type", couponType, "qty", qty, "order_id", res.Order.ID, "total", res.Order.TotalPrice)
	}
	return e.settle(res), nil
}

// AddStock appends codes to the stock of a type. Codes are trimmed and blanks
// dropped; the batch is stored all-or-nothing.
func (e *Engine) AddStock(ctx context.Context, couponType string, codes []string) (int, error) {
	if !e.catalog.Has(couponType) {
		return 0, fmt.Errorf("add stock %q: %w", couponType, ErrUnknownType)
	}
	clean := normaliseCodes(codes)
	if len(clean) == 0 {
		return 0, ErrNoCodes
	}

	var added int
	err := e.store.WithTx(ctx, func(tx *repo.Tx) error {
		n, err := tx.InsertCodes(ctx, couponType, clean)
		added = n
		return err
	})
	if err != nil {
		e.fail("add stock", err, "type", couponType)
		return 0, fmt.Errorf("add stock %s: %w", couponType, err)
	}
	e.countStock("add", added)
	e.logger.Info("stock added", "type", couponType, "count", added)
	return added, nil
}

// RemoveStock deletes up to count of the oldest unused codes and reports how
// many were removed.
func (e *Engine) RemoveStock(ctx context.Context, couponType string, count int) (int, error) {
	if !e.catalog.Has(couponType) {
		return 0, fmt.Errorf("remove stock %q: %w", couponType, ErrUnknownType)
	}
	if count <= 0 {
		return 0, ErrInvalidCount
	}

	var removed int
	err := e.store.WithTx(ctx, func(tx *repo.Tx) error {
		items, err := tx.LockOldestUnused(ctx, couponType, count)
		if err != nil {
			return err
		}
		ids := make([]int64, len(items))
		for i, it := range items {
			ids[i] = it.ID
		}
		removed, err = tx.DeleteUnused(ctx, ids)
		return err
	})
	if err != nil {
		e.fail("remove stock", err, "type", couponType)
		return 0, fmt.Errorf("remove stock %s: %w", couponType, err)
	}
	e.countStock("remove", removed)
	e.logger.Info("stock removed", "type", couponType, "requested", count, "removed", removed)
	return removed, nil
}

// IssueFree hands out the oldest unused code of a type without charging anyone.
func (e *Engine) IssueFree(ctx context.Context, couponType string) (string, error) {
	if !e.catalog.Has(couponType) {
		return "", fmt.Errorf("issue free %q: %w", couponType, ErrUnknownType)
	}

	var code string
	err := e.store.WithTx(ctx, func(tx *repo.Tx) error {
		items, err := tx.LockOldestUnused(ctx, couponType, 1)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrNoStock
		}
		code = items[0].Code
		return tx.MarkUsed(ctx, []int64{items[0].ID})
	})
	if err != nil {
		if errors.Is(err, ErrNoStock) {
			return "", ErrNoStock
		}
		e.fail("issue free", err, "type", couponType)
		return "", fmt.Errorf("issue free %s: %w", couponType, err)
	}
	e.countStock("issue_free", 1)
	e.logger.Info("free coupon issued", "type", couponType)
	return code, nil
}

// Price returns the unit price of a type, 0 when unset.
func (e *Engine) Price(ctx context.Context, couponType string) (int64, error) {
	if !e.catalog.Has(couponType) {
		return 0, fmt.Errorf("price %q: %w", couponType, ErrUnknownType)
	}
	return e.store.GetPrice(ctx, couponType)
}

// SetPrice updates the unit price of a type.
func (e *Engine) SetPrice(ctx context.Context, couponType string, price int64) error {
	if !e.catalog.Has(couponType) {
		return fmt.Errorf("set price %q: %w", couponType, ErrUnknownType)
	}
	if price < 0 || price > MaxPrice {
		return fmt.Errorf("set price %d: %w", price, ErrInvalidPrice)
	}
	if err := e.store.SetPrice(ctx, couponType, price); err != nil {
		e.fail("set price", err, "type", couponType)
		return err
	}
	e.logger.Info("price updated", "type", couponType, "price", price)
	return nil
}

func normaliseCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func (e *Engine) settle(res PurchaseResult) PurchaseResult {
	if e.metrics != nil {
		e.metrics.Purchases.WithLabelValues(res.Outcome.String()).Inc()
	}
	if res.Outcome == Purchased {
		e.countStock("sell", len(res.Codes))
	}
	return res
}

func (e *Engine) countStock(op string, n int) {
	if e.metrics != nil && n > 0 {
		e.metrics.StockChanges.WithLabelValues(op).Add(float64(n))
	}
}

func (e *Engine) fail(op string, err error, attrs ...any) {
	if e.metrics != nil {
		e.metrics.Errors.WithLabelValues("inventory").Inc()
	}
	e.logger.Error(op+" failed", append([]any{"error", err}, attrs...)...)
}
