package damm

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(mode CollectFeeMode) (*Pool, solana.PublicKey, solana.PublicKey) {
	tokenA := solana.NewWallet().PublicKey()
	tokenB := solana.NewWallet().PublicKey()
	return &Pool{
		TokenAMint:     tokenA,
		TokenBMint:     tokenB,
		PoolStatus:     0,
		CollectFeeMode: uint8(mode),
	}, tokenA, tokenB
}

func TestQuoteSide(t *testing.T) {
	t.Parallel()

	pool, tokenA, tokenB := testPool(CollectFeeOnlyB)

	quoteIsA, base, err := pool.QuoteSide(tokenA)
	require.NoError(t, err)
	assert.True(t, quoteIsA)
	assert.Equal(t, tokenB, base)

	quoteIsA, base, err = pool.QuoteSide(tokenB)
	require.NoError(t, err)
	assert.False(t, quoteIsA)
	assert.Equal(t, tokenA, base)

	_, _, err = pool.QuoteSide(solana.NewWallet().PublicKey())
	require.ErrorIs(t, err, ErrQuoteMintMismatch)
}

func TestValidateQuoteOnly(t *testing.T) {
	t.Parallel()

	t.Run("quote on B with fees only on B passes", func(t *testing.T) {
		pool, _, tokenB := testPool(CollectFeeOnlyB)
		require.NoError(t, ValidateQuoteOnly(pool, tokenB))
	})

	t.Run("quote on A with fees only on A passes", func(t *testing.T) {
		pool, tokenA, _ := testPool(CollectFeeOnlyA)
		require.NoError(t, ValidateQuoteOnly(pool, tokenA))
	})

	t.Run("fees on both sides rejected", func(t *testing.T) {
		pool, _, tokenB := testPool(CollectFeeBoth)
		require.ErrorIs(t, ValidateQuoteOnly(pool, tokenB), ErrBaseFeeConfigRejected)
	})

	t.Run("fees accruing on the base side rejected", func(t *testing.T) {
		// Quote declared on B while the pool collects only on A.
		pool, _, tokenB := testPool(CollectFeeOnlyA)
		require.ErrorIs(t, ValidateQuoteOnly(pool, tokenB), ErrBaseFeeConfigRejected)

		pool, tokenA, _ := testPool(CollectFeeOnlyB)
		require.ErrorIs(t, ValidateQuoteOnly(pool, tokenA), ErrBaseFeeConfigRejected)
	})

	t.Run("unknown quote mint rejected", func(t *testing.T) {
		pool, _, _ := testPool(CollectFeeOnlyB)
		require.ErrorIs(t, ValidateQuoteOnly(pool, solana.NewWallet().PublicKey()), ErrQuoteMintMismatch)
	})

	t.Run("disabled pool rejected", func(t *testing.T) {
		pool, _, tokenB := testPool(CollectFeeOnlyB)
		pool.PoolStatus = 1
		require.ErrorIs(t, ValidateQuoteOnly(pool, tokenB), ErrPoolDisabled)
	})

	t.Run("unknown fee mode rejected", func(t *testing.T) {
		pool, _, tokenB := testPool(CollectFeeOnlyB)
		pool.CollectFeeMode = 7
		require.ErrorIs(t, ValidateQuoteOnly(pool, tokenB), ErrInvalidPoolAccount)
	})
}

func TestDecodePool_ShortBuffer(t *testing.T) {
	t.Parallel()

	_, err := DecodePool([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidPoolAccount)
}
