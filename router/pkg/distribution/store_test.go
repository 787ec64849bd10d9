package distribution

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadelabs/feerouter/router/pkg/policy"
	routertesting "github.com/cascadelabs/feerouter/utils/pkg/testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	requireDB(t)

	ctx := context.Background()
	require.NoError(t, sharedDB.TruncateAll(ctx))

	pool, err := sharedDB.Pool(ctx)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store, err := NewStore(StoreConfig{Logger: routertesting.NewLogger(), DB: pool})
	require.NoError(t, err)
	return store
}

func TestStore_GlobalLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mint := solana.NewWallet().PublicKey()

	// Before any crank, the watermark reports the initial value.
	global, err := store.GetGlobal(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), global.LastDayIndex)
	assert.Equal(t, uint64(0), global.LifetimeDistributed)

	// Locking creates the row on first use.
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	global, err = store.LockGlobal(ctx, tx, mint)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), global.LastDayIndex)

	require.NoError(t, store.UpdateGlobalOnClose(ctx, tx, mint, 20_000, 6_880))
	require.NoError(t, tx.Commit(ctx))

	global, err = store.GetGlobal(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, int64(20_000), global.LastDayIndex)
	assert.Equal(t, uint64(6_880), global.LifetimeDistributed)
}

func TestStore_DayRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mint := solana.NewWallet().PublicKey()

	d := &DayState{
		QuoteMint:      mint,
		DayIndex:       20_000,
		OpenedAt:       20_000 * 86_400,
		ClaimedThisDay: 10_000,
		Phase:          PhaseOpen,
		Snapshot: policy.Snapshot{
			ShareCapBps: 8_000,
			DailyCap:    0,
			MinPayout:   100,
			Y0:          1_000_000,
		},
	}

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = store.LockGlobal(ctx, tx, mint)
	require.NoError(t, err)
	require.NoError(t, store.InsertDay(ctx, tx, d))
	require.NoError(t, tx.Commit(ctx))

	got, err := store.GetDay(ctx, mint, 20_000)
	require.NoError(t, err)
	assert.Equal(t, d.ClaimedThisDay, got.ClaimedThisDay)
	assert.Equal(t, PhaseOpen, got.Phase)
	assert.Equal(t, d.Snapshot, got.Snapshot)
	assert.Nil(t, got.LastPageDigest)
	assert.Equal(t, int64(0), got.ClosedAt)

	// Progress and closing survive a round trip.
	digest := PageDigest([]InvestorRef{newRef()})
	got.ApplyPage(digest, 8_000, 0)
	got.Close(20_000*86_400 + 900)

	tx, err = store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, store.UpdateDay(ctx, tx, got))
	require.NoError(t, tx.Commit(ctx))

	reloaded, err := store.GetDay(ctx, mint, 20_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(8_000), reloaded.DistributedThisDay)
	assert.Equal(t, uint64(1), reloaded.Cursor)
	assert.Equal(t, digest, reloaded.LastPageDigest)
	assert.Equal(t, PhaseClosed, reloaded.Phase)
	assert.Equal(t, int64(20_000*86_400+900), reloaded.ClosedAt)
}

func TestStore_GetDayMissing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetDay(ctx, solana.NewWallet().PublicKey(), 123)
	require.ErrorIs(t, err, ErrDayNotFound)
}

func TestStore_PayoutLog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mint := solana.NewWallet().PublicKey()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	rows := []PayoutRow{
		{Investor: solana.NewWallet().PublicKey(), Amount: 4_800},
		{Investor: solana.NewWallet().PublicKey(), Amount: 3_200},
	}
	require.NoError(t, store.InsertPayouts(ctx, tx, mint, 20_000, 0, rows))
	require.NoError(t, tx.Commit(ctx))

	pool, err := sharedDB.Pool(ctx)
	require.NoError(t, err)
	defer pool.Close()

	var count int
	var total int64
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*), COALESCE(sum(amount), 0) FROM payout_log WHERE quote_mint = $1 AND day_index = $2`,
		mint.String(), 20_000).Scan(&count, &total))
	assert.Equal(t, 2, count)
	assert.Equal(t, int64(8_000), total)
}
