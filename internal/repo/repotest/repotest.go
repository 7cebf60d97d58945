// Package repotest opens throwaway SQLite ledgers for tests.
package repotest

import (
	"context"
	"path/filepath"
	"testing"

	"coupon-bot/internal/logging"
	"coupon-bot/internal/repo"
	"coupon-bot/migrations"

	"github.com/stretchr/testify/require"
)

// NewStore returns a migrated store backed by a file in t.TempDir.
func NewStore(t testing.TB) *repo.Store {
	t.Helper()
	ctx := context.Background()

	store, err := repo.NewSQLite(ctx, filepath.Join(t.TempDir(), "ledger.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.RunMigrations(ctx, migrations.Files))
	return store
}

// SeedUser creates a user holding the given balance.
func SeedUser(t testing.TB, store *repo.Store, id, balance int64) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.UpsertUser(ctx, id, "user"))
	if balance == 0 {
		return
	}
	require.NoError(t, store.WithTx(ctx, func(tx *repo.Tx) error {
		return tx.AdjustBalance(ctx, id, balance)
	}))
}

// SeedStock appends codes of a coupon type.
func SeedStock(t testing.TB, store *repo.Store, couponType string, codes ...string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.WithTx(ctx, func(tx *repo.Tx) error {
		_, err := tx.InsertCodes(ctx, couponType, codes)
		return err
	}))
}
