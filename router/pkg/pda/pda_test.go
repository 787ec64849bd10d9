package pda

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionOwner_Deterministic(t *testing.T) {
	t.Parallel()

	programID := solana.NewWallet().PublicKey()
	vaultID := solana.NewWallet().PublicKey()

	addr1, bump1, err := PositionOwner(programID, vaultID)
	require.NoError(t, err)
	addr2, bump2, err := PositionOwner(programID, vaultID)
	require.NoError(t, err)

	assert.Equal(t, addr1, addr2)
	assert.Equal(t, bump1, bump2)
	assert.False(t, addr1.IsZero())
}

func TestPositionOwner_DistinctPerVault(t *testing.T) {
	t.Parallel()

	programID := solana.NewWallet().PublicKey()

	addr1, _, err := PositionOwner(programID, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	addr2, _, err := PositionOwner(programID, solana.NewWallet().PublicKey())
	require.NoError(t, err)

	assert.NotEqual(t, addr1, addr2)
}

func TestTreasuryAuthority_DistinctPerMint(t *testing.T) {
	t.Parallel()

	programID := solana.NewWallet().PublicKey()

	addr1, _, err := TreasuryAuthority(programID, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	addr2, _, err := TreasuryAuthority(programID, solana.NewWallet().PublicKey())
	require.NoError(t, err)

	assert.NotEqual(t, addr1, addr2)
}
