package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StoreConfig struct {
	Logger *slog.Logger
	DB     *pgxpool.Pool
}

func (cfg *StoreConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.DB == nil {
		return errors.New("db pool is required")
	}
	return nil
}

type Store struct {
	log *slog.Logger
	db  *pgxpool.Pool
}

func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		log: cfg.Logger,
		db:  cfg.DB,
	}, nil
}

// Initialize creates the policy for a quote mint. Fails with
// ErrAlreadyExists if one is present.
func (s *Store) Initialize(ctx context.Context, quoteMint, authority, creatorAccount solana.PublicKey, params Params) (*Policy, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	s.log.Debug("policy/store: initializing policy",
		"quote_mint", quoteMint.String(),
		"share_cap_bps", params.InvestorShareCapBps,
		"daily_cap", params.DailyCap,
		"min_payout", params.MinPayout,
		"y0", params.Y0)

	const q = `
		INSERT INTO policy (quote_mint, authority, creator_account, investor_share_cap_bps, daily_cap, min_payout, y0)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.Exec(ctx, q,
		quoteMint.String(), authority.String(), creatorAccount.String(),
		int64(params.InvestorShareCapBps), int64(params.DailyCap),
		int64(params.MinPayout), int64(params.Y0))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to insert policy: %w", err)
	}

	return s.Get(ctx, quoteMint)
}

// Update replaces the mutable parameters. The caller's key must match
// the stored authority; updates take effect on the next day that opens
// because open days carry their own policy snapshot.
func (s *Store) Update(ctx context.Context, quoteMint, authority solana.PublicKey, params Params) (*Policy, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, quoteMint)
	if err != nil {
		return nil, err
	}
	if !current.Authority.Equals(authority) {
		return nil, ErrUnauthorized
	}

	const q = `
		UPDATE policy
		SET investor_share_cap_bps = $3, daily_cap = $4, min_payout = $5, y0 = $6, updated_at = now()
		WHERE quote_mint = $1 AND authority = $2`
	tag, err := s.db.Exec(ctx, q,
		quoteMint.String(), authority.String(),
		int64(params.InvestorShareCapBps), int64(params.DailyCap),
		int64(params.MinPayout), int64(params.Y0))
	if err != nil {
		return nil, fmt.Errorf("failed to update policy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrUnauthorized
	}

	s.log.Info("policy/store: policy updated", "quote_mint", quoteMint.String())
	return s.Get(ctx, quoteMint)
}

// Get returns the policy for a quote mint.
func (s *Store) Get(ctx context.Context, quoteMint solana.PublicKey) (*Policy, error) {
	const q = `
		SELECT quote_mint, authority, creator_account, investor_share_cap_bps, daily_cap, min_payout, y0, created_at, updated_at
		FROM policy
		WHERE quote_mint = $1`
	return scanPolicy(s.db.QueryRow(ctx, q, quoteMint.String()))
}

// GetTx is Get inside an open transaction. The crank reads the policy
// under the same snapshot as the day-state rows it locks.
func (s *Store) GetTx(ctx context.Context, tx pgx.Tx, quoteMint solana.PublicKey) (*Policy, error) {
	const q = `
		SELECT quote_mint, authority, creator_account, investor_share_cap_bps, daily_cap, min_payout, y0, created_at, updated_at
		FROM policy
		WHERE quote_mint = $1`
	return scanPolicy(tx.QueryRow(ctx, q, quoteMint.String()))
}

func scanPolicy(row pgx.Row) (*Policy, error) {
	var (
		p                            Policy
		mintStr, authStr, creatorStr string
		capBps, dailyCap             int64
		minPayout, y0                int64
	)
	err := row.Scan(&mintStr, &authStr, &creatorStr, &capBps, &dailyCap, &minPayout, &y0, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan policy: %w", err)
	}

	p.QuoteMint, err = solana.PublicKeyFromBase58(mintStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse quote mint: %w", err)
	}
	p.Authority, err = solana.PublicKeyFromBase58(authStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse authority: %w", err)
	}
	p.CreatorAccount, err = solana.PublicKeyFromBase58(creatorStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse creator account: %w", err)
	}
	p.InvestorShareCapBps = uint64(capBps)
	p.DailyCap = uint64(dailyCap)
	p.MinPayout = uint64(minPayout)
	p.Y0 = uint64(y0)
	return &p, nil
}
