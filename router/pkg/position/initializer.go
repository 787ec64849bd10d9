package position

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"

	"github.com/cascadelabs/feerouter/router/pkg/adapters/damm"
	"github.com/cascadelabs/feerouter/router/pkg/events"
	"github.com/cascadelabs/feerouter/router/pkg/pda"
)

// AMM is the slice of the AMM adapter the initializer uses.
type AMM interface {
	GetPool(ctx context.Context, pool solana.PublicKey) (*damm.Pool, error)
	CreateFeeOnlyPosition(ctx context.Context, pool, owner solana.PublicKey) (solana.PublicKey, error)
}

type InitializerConfig struct {
	Logger    *slog.Logger
	Clock     clockwork.Clock
	Store     *Store
	AMM       AMM
	Emitter   *events.Emitter
	ProgramID solana.PublicKey
}

func (cfg *InitializerConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if cfg.AMM == nil {
		return errors.New("amm adapter is required")
	}
	if cfg.Emitter == nil {
		return errors.New("emitter is required")
	}
	if cfg.ProgramID.IsZero() {
		return errors.New("program id is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Initializer runs the one-time position setup.
type Initializer struct {
	log *slog.Logger
	cfg InitializerConfig
}

func NewInitializer(cfg InitializerConfig) (*Initializer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Initializer{
		log: cfg.Logger,
		cfg: cfg,
	}, nil
}

// InitializeParams describe the honorary position to create.
type InitializeParams struct {
	VaultID   solana.PublicKey
	Pool      solana.PublicKey
	QuoteMint solana.PublicKey
}

// Initialize creates the honorary fee-only position: identifies the
// quote side, preflight-validates the pool so fees can only accrue in
// the quote mint, asks the AMM for a zero-liquidity position owned by
// the derived authority, and records the result.
func (in *Initializer) Initialize(ctx context.Context, params InitializeParams) (*Record, error) {
	in.log.Info("position: initializing honorary position",
		"vault", params.VaultID.String(),
		"pool", params.Pool.String(),
		"quote_mint", params.QuoteMint.String())

	pool, err := in.cfg.AMM.GetPool(ctx, params.Pool)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pool: %w", err)
	}

	_, baseMint, err := pool.QuoteSide(params.QuoteMint)
	if err != nil {
		return nil, err
	}
	if err := damm.ValidateQuoteOnly(pool, params.QuoteMint); err != nil {
		return nil, err
	}

	owner, bump, err := pda.PositionOwner(in.cfg.ProgramID, params.VaultID)
	if err != nil {
		return nil, err
	}

	positionAccount, err := in.cfg.AMM.CreateFeeOnlyPosition(ctx, params.Pool, owner)
	if err != nil {
		return nil, err
	}

	record := &Record{
		VaultID:         params.VaultID,
		Pool:            params.Pool,
		PositionAccount: positionAccount,
		OwnerAuthority:  owner,
		OwnerBump:       bump,
		BaseMint:        baseMint,
		QuoteMint:       params.QuoteMint,
	}
	if err := in.cfg.Store.InsertRecord(ctx, record); err != nil {
		return nil, err
	}

	in.cfg.Emitter.Emit(ctx, events.HonoraryPositionInitialized{
		VaultID:   params.VaultID,
		Pool:      params.Pool,
		Position:  positionAccount,
		QuoteMint: params.QuoteMint,
		Timestamp: in.cfg.Clock.Now().Unix(),
	})

	return record, nil
}

// InitializeTreasury creates the treasury record for a quote mint. The
// token account itself is provisioned externally; the record pins the
// derived authority the router signs debits with.
func (in *Initializer) InitializeTreasury(ctx context.Context, quoteMint, tokenAccount solana.PublicKey) (*Treasury, error) {
	authority, bump, err := pda.TreasuryAuthority(in.cfg.ProgramID, quoteMint)
	if err != nil {
		return nil, err
	}

	t := &Treasury{
		QuoteMint:     quoteMint,
		TokenAccount:  tokenAccount,
		Authority:     authority,
		AuthorityBump: bump,
	}
	if err := in.cfg.Store.InsertTreasury(ctx, t); err != nil {
		return nil, err
	}

	in.log.Info("position: treasury initialized",
		"quote_mint", quoteMint.String(),
		"token_account", tokenAccount.String(),
		"authority", authority.String())
	return t, nil
}
