package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftal/erc20bank/internal/storage"
	"github.com/siftal/erc20bank/internal/storage/postgres"
)

func TestEscrowStore_BalanceDefaultsToZero(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewEscrowStore(pool)

	bal, err := store.Balance(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bal)
}

func TestEscrowStore_CreditAccumulates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewEscrowStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Credit(ctx, "acct", 100))
	require.NoError(t, store.Credit(ctx, "acct", 25))

	bal, err := store.Balance(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, uint64(125), bal)
}

func TestEscrowStore_DebitGuarded(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewEscrowStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Credit(ctx, "acct", 30))

	// Over-debit is refused atomically
	err := store.Debit(ctx, "acct", 31)
	assert.ErrorIs(t, err, storage.ErrInsufficientBalance)

	bal, err := store.Balance(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, uint64(30), bal)

	// Debit of an unknown account is also insufficient
	err = store.Debit(ctx, "unknown", 1)
	assert.ErrorIs(t, err, storage.ErrInsufficientBalance)

	require.NoError(t, store.Debit(ctx, "acct", 30))
	bal, _ = store.Balance(ctx, "acct")
	assert.Equal(t, uint64(0), bal)
}

func TestEscrowStore_Zero(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewEscrowStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Credit(ctx, "acct", 70))

	held, err := store.Zero(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, uint64(70), held)

	bal, err := store.Balance(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bal)

	// Zeroing an absent row yields zero, not an error
	held, err = store.Zero(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), held)
}

func TestEscrowStore_Total(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewEscrowStore(pool)
	ctx := context.Background()

	total, err := store.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), total)

	require.NoError(t, store.Credit(ctx, "a", 10))
	require.NoError(t, store.Credit(ctx, "b", 20))
	require.NoError(t, store.Debit(ctx, "b", 5))

	total, err = store.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), total)
}
