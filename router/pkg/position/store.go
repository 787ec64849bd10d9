package position

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

// InsertRecord persists a freshly created position.
func (s *Store) InsertRecord(ctx context.Context, r *Record) error {
	const q = `
		INSERT INTO position_record (vault_id, pool, position_account, owner_authority, owner_bump, base_mint, quote_mint)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.Exec(ctx, q,
		r.VaultID.String(), r.Pool.String(), r.PositionAccount.String(),
		r.OwnerAuthority.String(), int16(r.OwnerBump),
		r.BaseMint.String(), r.QuoteMint.String())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyInitialized
		}
		return fmt.Errorf("failed to insert position record: %w", err)
	}
	return nil
}

// GetRecord returns the position record for a vault.
func (s *Store) GetRecord(ctx context.Context, vaultID solana.PublicKey) (*Record, error) {
	const q = `
		SELECT vault_id, pool, position_account, owner_authority, owner_bump, base_mint, quote_mint, created_at
		FROM position_record
		WHERE vault_id = $1`

	var (
		r                       Record
		vault, pool, pos, owner string
		baseMint, quoteMint     string
		bump                    int16
	)
	err := s.db.QueryRow(ctx, q, vaultID.String()).Scan(
		&vault, &pool, &pos, &owner, &bump, &baseMint, &quoteMint, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan position record: %w", err)
	}

	if r.VaultID, err = solana.PublicKeyFromBase58(vault); err != nil {
		return nil, fmt.Errorf("failed to parse vault id: %w", err)
	}
	if r.Pool, err = solana.PublicKeyFromBase58(pool); err != nil {
		return nil, fmt.Errorf("failed to parse pool: %w", err)
	}
	if r.PositionAccount, err = solana.PublicKeyFromBase58(pos); err != nil {
		return nil, fmt.Errorf("failed to parse position account: %w", err)
	}
	if r.OwnerAuthority, err = solana.PublicKeyFromBase58(owner); err != nil {
		return nil, fmt.Errorf("failed to parse owner authority: %w", err)
	}
	if r.BaseMint, err = solana.PublicKeyFromBase58(baseMint); err != nil {
		return nil, fmt.Errorf("failed to parse base mint: %w", err)
	}
	if r.QuoteMint, err = solana.PublicKeyFromBase58(quoteMint); err != nil {
		return nil, fmt.Errorf("failed to parse quote mint: %w", err)
	}
	r.OwnerBump = uint8(bump)
	return &r, nil
}

// GetRecordByQuoteMint returns the position record whose fees are
// denominated in quoteMint.
func (s *Store) GetRecordByQuoteMint(ctx context.Context, quoteMint solana.PublicKey) (*Record, error) {
	const q = `SELECT vault_id FROM position_record WHERE quote_mint = $1 LIMIT 1`
	var vault string
	err := s.db.QueryRow(ctx, q, quoteMint.String()).Scan(&vault)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up position by quote mint: %w", err)
	}
	vaultID, err := solana.PublicKeyFromBase58(vault)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault id: %w", err)
	}
	return s.GetRecord(ctx, vaultID)
}

// InsertTreasury persists the treasury record for a quote mint.
func (s *Store) InsertTreasury(ctx context.Context, t *Treasury) error {
	const q = `
		INSERT INTO treasury (quote_mint, token_account, authority, authority_bump)
		VALUES ($1, $2, $3, $4)`
	_, err := s.db.Exec(ctx, q,
		t.QuoteMint.String(), t.TokenAccount.String(),
		t.Authority.String(), int16(t.AuthorityBump))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyInitialized
		}
		return fmt.Errorf("failed to insert treasury: %w", err)
	}
	return nil
}

// GetTreasury returns the treasury record for a quote mint.
func (s *Store) GetTreasury(ctx context.Context, quoteMint solana.PublicKey) (*Treasury, error) {
	const q = `
		SELECT quote_mint, token_account, authority, authority_bump, created_at
		FROM treasury
		WHERE quote_mint = $1`

	var (
		t                Treasury
		mint, acct, auth string
		bump             int16
	)
	err := s.db.QueryRow(ctx, q, quoteMint.String()).Scan(&mint, &acct, &auth, &bump, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTreasuryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan treasury: %w", err)
	}

	if t.QuoteMint, err = solana.PublicKeyFromBase58(mint); err != nil {
		return nil, fmt.Errorf("failed to parse quote mint: %w", err)
	}
	if t.TokenAccount, err = solana.PublicKeyFromBase58(acct); err != nil {
		return nil, fmt.Errorf("failed to parse token account: %w", err)
	}
	if t.Authority, err = solana.PublicKeyFromBase58(auth); err != nil {
		return nil, fmt.Errorf("failed to parse authority: %w", err)
	}
	t.AuthorityBump = uint8(bump)
	return &t, nil
}
