// Package position owns the honorary fee-only position lifecycle: the
// quote-only preflight, creation through the AMM, and the persisted
// position and treasury records.
package position

import (
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrNotFound is returned when no position record exists.
	ErrNotFound = errors.New("position record not found")

	// ErrAlreadyInitialized is returned when a vault already has a
	// position.
	ErrAlreadyInitialized = errors.New("position already initialized")

	// ErrTreasuryNotFound is returned when no treasury exists for the
	// quote mint.
	ErrTreasuryNotFound = errors.New("treasury not found")
)

// Record is the persisted description of the honorary position.
type Record struct {
	VaultID         solana.PublicKey
	Pool            solana.PublicKey
	PositionAccount solana.PublicKey
	OwnerAuthority  solana.PublicKey
	OwnerBump       uint8
	BaseMint        solana.PublicKey
	QuoteMint       solana.PublicKey
	CreatedAt       time.Time
}

// Treasury is the program-owned token account claimed quote fees land
// in between claim and payout.
type Treasury struct {
	QuoteMint     solana.PublicKey
	TokenAccount  solana.PublicKey
	Authority     solana.PublicKey
	AuthorityBump uint8
	CreatedAt     time.Time
}
