// Package damm adapts the constant-product AMM (Meteora DAMM v2 style)
// to the fee router: the pool account model, the quote-only preflight
// and the claim/create operations the engine needs.
package damm

import (
	"errors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	// ErrQuoteMintMismatch is returned when the declared quote mint is
	// neither of the pool's two mints.
	ErrQuoteMintMismatch = errors.New("quote mint does not match pool")

	// ErrBaseFeeConfigRejected is returned when the pool configuration
	// could ever accrue fees on the base side.
	ErrBaseFeeConfigRejected = errors.New("pool config would accrue base-side fees")

	// ErrPoolDisabled is returned for pools not accepting positions.
	ErrPoolDisabled = errors.New("pool is disabled")

	// ErrInvalidPoolAccount is returned when the pool account fails to
	// decode.
	ErrInvalidPoolAccount = errors.New("invalid pool account data")
)

// CollectFeeMode is the pool's fee-collection configuration.
type CollectFeeMode uint8

const (
	CollectFeeBoth  CollectFeeMode = 0
	CollectFeeOnlyA CollectFeeMode = 1
	CollectFeeOnlyB CollectFeeMode = 2
)

// PoolFees is the pool's trade-fee configuration.
type PoolFees struct {
	TradeFeeBps         uint64
	ProtocolTradeFeeBps uint64
	FundTradeFeeBps     uint64
}

// Pool is the subset of the cp-amm pool account the router reads.
// Field order matches the on-chain layout.
type Pool struct {
	PoolFees         PoolFees
	TokenAMint       solana.PublicKey
	TokenBMint       solana.PublicKey
	TokenAVault      solana.PublicKey
	TokenBVault      solana.PublicKey
	WhitelistedVault solana.PublicKey
	Partner          solana.PublicKey
	Liquidity        bin.Uint128
	Padding          bin.Uint128
	ProtocolAFee     uint64
	ProtocolBFee     uint64
	PartnerAFee      uint64
	PartnerBFee      uint64
	SqrtMinPrice     bin.Uint128
	SqrtMaxPrice     bin.Uint128
	SqrtPrice        bin.Uint128
	ActivationPoint  uint64
	ActivationType   uint8
	PoolStatus       uint8
	TokenAFlag       uint8
	TokenBFlag       uint8
	CollectFeeMode   uint8
	PoolType         uint8
}

// accountDiscriminatorLen is the 8-byte anchor account discriminator
// prefixing the pool account data.
const accountDiscriminatorLen = 8

// DecodePool decodes a pool account's data.
func DecodePool(data []byte) (*Pool, error) {
	if len(data) < accountDiscriminatorLen {
		return nil, ErrInvalidPoolAccount
	}
	var pool Pool
	dec := bin.NewBorshDecoder(data[accountDiscriminatorLen:])
	if err := dec.Decode(&pool); err != nil {
		return nil, ErrInvalidPoolAccount
	}
	return &pool, nil
}

// Enabled reports whether the pool accepts new positions.
func (p *Pool) Enabled() bool {
	return p.PoolStatus == 0
}

// Mode returns the pool's collect-fee mode, or false if the stored
// value is unknown.
func (p *Pool) Mode() (CollectFeeMode, bool) {
	switch CollectFeeMode(p.CollectFeeMode) {
	case CollectFeeBoth, CollectFeeOnlyA, CollectFeeOnlyB:
		return CollectFeeMode(p.CollectFeeMode), true
	}
	return 0, false
}

// QuoteSide identifies which side of the pool the declared quote mint
// is on. Returns the base mint alongside.
func (p *Pool) QuoteSide(quoteMint solana.PublicKey) (quoteIsA bool, baseMint solana.PublicKey, err error) {
	switch {
	case p.TokenAMint.Equals(quoteMint):
		return true, p.TokenBMint, nil
	case p.TokenBMint.Equals(quoteMint):
		return false, p.TokenAMint, nil
	default:
		return false, solana.PublicKey{}, ErrQuoteMintMismatch
	}
}

// ValidateQuoteOnly is the deterministic preflight for the honorary
// position: the pool must be enabled and configured so fees can only
// ever accrue on the quote side. It is a pure function of the pool
// parameters, so any caller can verify the decision off-chain.
func ValidateQuoteOnly(pool *Pool, quoteMint solana.PublicKey) error {
	if !pool.Enabled() {
		return ErrPoolDisabled
	}

	mode, ok := pool.Mode()
	if !ok {
		return ErrInvalidPoolAccount
	}
	if mode == CollectFeeBoth {
		return ErrBaseFeeConfigRejected
	}

	quoteIsA, _, err := pool.QuoteSide(quoteMint)
	if err != nil {
		return err
	}

	if quoteIsA && mode != CollectFeeOnlyA {
		return ErrBaseFeeConfigRejected
	}
	if !quoteIsA && mode != CollectFeeOnlyB {
		return ErrBaseFeeConfigRejected
	}
	return nil
}
