// Package pda derives the program-derived addresses owned by the fee
// router: the honorary position owner and the treasury authority.
package pda

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Seed strings. These are part of the wire contract and must not change.
const (
	VaultSeed             = "vault"
	PositionOwnerSeed     = "investor_fee_pos_owner"
	TreasuryAuthoritySeed = "treasury"
)

// PositionOwner derives the authority that owns the honorary fee
// position for a vault: seeds [VaultSeed, vault_id, PositionOwnerSeed].
func PositionOwner(programID, vaultID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{
			[]byte(VaultSeed),
			vaultID.Bytes(),
			[]byte(PositionOwnerSeed),
		},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive position owner: %w", err)
	}
	return addr, bump, nil
}

// TreasuryAuthority derives the authority of the quote treasury token
// account: seeds [TreasuryAuthoritySeed, quote_mint].
func TreasuryAuthority(programID, quoteMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{
			[]byte(TreasuryAuthoritySeed),
			quoteMint.Bytes(),
		},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive treasury authority: %w", err)
	}
	return addr, bump, nil
}
