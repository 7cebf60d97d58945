package inventory_test

import (
	"context"
	"math"
	"sync"
	"testing"

	"coupon-bot/internal/inventory"
	"coupon-bot/internal/logging"
	"coupon-bot/internal/metrics"
	"coupon-bot/internal/repo"
	"coupon-bot/internal/repo/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) (*inventory.Engine, *repo.Store) {
	t.Helper()
	store := repotest.NewStore(t)
	catalog := inventory.NewCatalog([]string{"500", "1000", "2000", "4000"})
	return inventory.New(store, catalog, metrics.Registry("coupon_bot_test"), logging.Discard()), store
}

func TestPurchaseMovesBalanceStockAndOrderTogether(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()

	repotest.SeedUser(t, store, 1, 100)
	repotest.SeedStock(t, store, "500", "A1", "A2", "A3", "A4", "A5")
	require.NoError(t, engine.SetPrice(ctx, "500", 30))

	res, err := engine.Purchase(ctx, 1, "500", 2)
	require.NoError(t, err)
	require.Equal(t, inventory.Purchased, res.Outcome)
	assert.Equal(t, []string{"A1", "A2"}, res.Codes)
	require.NotNil(t, res.Order)
	assert.EqualValues(t, 60, res.Order.TotalPrice)
	assert.Equal(t, 2, res.Order.Quantity)
	assert.Equal(t, []string{"A1", "A2"}, res.Order.Codes())

	balance, err := store.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 40, balance)

	q := engine.Quote(ctx, "500")
	assert.Equal(t, 3, q.Available)
	assert.EqualValues(t, 30, q.Price)

	orders, err := store.RecentOrders(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestPurchaseInsufficientBalanceChangesNothing(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()

	repotest.SeedUser(t, store, 1, 100)
	repotest.SeedStock(t, store, "1000", "B1", "B2", "B3")
	require.NoError(t, engine.SetPrice(ctx, "1000", 40))

	res, err := engine.Purchase(ctx, 1, "1000", 3)
	require.NoError(t, err)
	assert.Equal(t, inventory.InsufficientBalance, res.Outcome)
	assert.EqualValues(t, 120, res.Needed)
	assert.EqualValues(t, 100, res.Have)
	assert.Empty(t, res.Codes)

	balance, err := store.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 100, balance)
	assert.Equal(t, 3, engine.Quote(ctx, "1000").Available)

	orders, err := store.RecentOrders(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPurchaseInsufficientStock(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()

	repotest.SeedUser(t, store, 1, 1000)
	repotest.SeedStock(t, store, "2000", "C1")

	res, err := engine.Purchase(ctx, 1, "2000", 2)
	require.NoError(t, err)
	assert.Equal(t, inventory.InsufficientStock, res.Outcome)
	assert.Equal(t, 1, res.Available)

	balance, err := store.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, balance)
}

func TestPurchaseWithoutPriceIsFree(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()

	repotest.SeedUser(t, store, 1, 0)
	repotest.SeedStock(t, store, "4000", "D1")

	res, err := engine.Purchase(ctx, 1, "4000", 1)
	require.NoError(t, err)
	assert.Equal(t, inventory.Purchased, res.Outcome)
	assert.EqualValues(t, 0, res.Order.TotalPrice)
}

func TestPurchaseRejectsBadInput(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	repotest.SeedUser(t, store, 1, 100)

	_, err := engine.Purchase(ctx, 1, "300", 1)
	assert.ErrorIs(t, err, inventory.ErrUnknownType)

	_, err = engine.Purchase(ctx, 1, "500", 0)
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)

	_, err = engine.Purchase(ctx, 1, "500", -2)
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)

	// Quantity is checked before the type.
	_, err = engine.Purchase(ctx, 1, "300", 0)
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)
}

func TestPurchaseTotalOverflowIsNeverFree(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()

	repotest.SeedUser(t, store, 1, 0)
	repotest.SeedStock(t, store, "500", "A1", "A2", "A3", "A4")
	require.NoError(t, store.SetPrice(ctx, "500", 1<<62))

	res, err := engine.Purchase(ctx, 1, "500", 4)
	require.NoError(t, err)
	assert.Equal(t, inventory.InsufficientBalance, res.Outcome)
	assert.EqualValues(t, math.MaxInt64, res.Needed)
	assert.Empty(t, res.Codes)

	balance, err := store.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, balance)
	assert.Equal(t, 4, engine.Quote(ctx, "500").Available)

	orders, err := store.RecentOrders(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestConcurrentPurchasesNeverOversell(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()

	const buyers = 10
	repotest.SeedStock(t, store, "500", "E1", "E2", "E3", "E4", "E5")
	require.NoError(t, engine.SetPrice(ctx, "500", 10))
	for id := int64(1); id <= buyers; id++ {
		repotest.SeedUser(t, store, id, 100)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[inventory.Outcome]int{}
		issued   = map[string]int{}
	)
	for id := int64(1); id <= buyers; id++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			res, err := engine.Purchase(ctx, userID, "500", 1)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			outcomes[res.Outcome]++
			for _, c := range res.Codes {
				issued[c]++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 5, outcomes[inventory.Purchased])
	assert.Equal(t, buyers-5, outcomes[inventory.InsufficientStock]+outcomes[inventory.StockRace])
	assert.Len(t, issued, 5)
	for code, n := range issued {
		assert.Equal(t, 1, n, "code %s delivered more than once", code)
	}
	assert.Zero(t, engine.Quote(ctx, "500").Available)
}

func TestConcurrentPurchasesBySameUserRespectBalance(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()

	repotest.SeedUser(t, store, 1, 100)
	repotest.SeedStock(t, store, "1000", "F1", "F2", "F3", "F4", "F5")
	require.NoError(t, engine.SetPrice(ctx, "1000", 30))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		purchased int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := engine.Purchase(ctx, 1, "1000", 1)
			if assert.NoError(t, err) && res.Outcome == inventory.Purchased {
				mu.Lock()
				purchased++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, purchased)
	balance, err := store.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 10, balance)
	assert.Equal(t, 2, engine.Quote(ctx, "1000").Available)
}

func TestAddStockTrimsAndDropsBlanks(t *testing.T) {
	engine, _ := newEngine(t)
	ctx := context.Background()

	added, err := engine.AddStock(ctx, "500", []string{"A1", "  ", " B2 "})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 2, engine.Quote(ctx, "500").Available)

	code, err := engine.IssueFree(ctx, "500")
	require.NoError(t, err)
	assert.Equal(t, "A1", code)

	_, err = engine.AddStock(ctx, "500", []string{"", "   "})
	assert.ErrorIs(t, err, inventory.ErrNoCodes)

	_, err = engine.AddStock(ctx, "999", []string{"X"})
	assert.ErrorIs(t, err, inventory.ErrUnknownType)
}

func TestRemoveStockCapsAtAvailable(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()

	repotest.SeedUser(t, store, 1, 0)
	repotest.SeedStock(t, store, "2000", "G1", "G2", "G3", "G4")
	res, err := engine.Purchase(ctx, 1, "2000", 1)
	require.NoError(t, err)
	require.Equal(t, inventory.Purchased, res.Outcome)

	removed, err := engine.RemoveStock(ctx, "2000", 5)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Zero(t, engine.Quote(ctx, "2000").Available)

	orders, err := store.RecentOrders(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, []string{"G1"}, orders[0].Codes())

	_, err = engine.RemoveStock(ctx, "2000", 0)
	assert.ErrorIs(t, err, inventory.ErrInvalidCount)
}

func TestIssueFreeOnEmptyStock(t *testing.T) {
	engine, _ := newEngine(t)

	_, err := engine.IssueFree(context.Background(), "4000")
	assert.ErrorIs(t, err, inventory.ErrNoStock)
}

func TestSetPriceValidation(t *testing.T) {
	engine, _ := newEngine(t)
	ctx := context.Background()

	assert.ErrorIs(t, engine.SetPrice(ctx, "500", -1), inventory.ErrInvalidPrice)
	assert.ErrorIs(t, engine.SetPrice(ctx, "500", inventory.MaxPrice+1), inventory.ErrInvalidPrice)
	require.NoError(t, engine.SetPrice(ctx, "1000", inventory.MaxPrice))
	assert.ErrorIs(t, engine.SetPrice(ctx, "7", 10), inventory.ErrUnknownType)

	require.NoError(t, engine.SetPrice(ctx, "500", 25))
	price, err := engine.Price(ctx, "500")
	require.NoError(t, err)
	assert.EqualValues(t, 25, price)

	overview := engine.Overview(ctx)
	require.Len(t, overview, 4)
	assert.Equal(t, "500", overview[0].CouponType)
	assert.EqualValues(t, 25, overview[0].Price)
}
