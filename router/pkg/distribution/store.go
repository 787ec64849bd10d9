package distribution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
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

// Store persists DayState/GlobalState rows. Crank operations run inside
// a single transaction with the global row locked, which serializes
// concurrent crank attempts for the same quote mint.
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

// Begin opens the transaction a crank operation runs in.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// LockGlobal returns the global state row for update, creating it on
// first use. The row lock is the serialization point for all crank
// calls on a quote mint.
func (s *Store) LockGlobal(ctx context.Context, tx pgx.Tx, quoteMint solana.PublicKey) (*GlobalState, error) {
	const ins = `
		INSERT INTO global_state (quote_mint)
		VALUES ($1)
		ON CONFLICT (quote_mint) DO NOTHING`
	if _, err := tx.Exec(ctx, ins, quoteMint.String()); err != nil {
		return nil, fmt.Errorf("failed to ensure global state: %w", err)
	}

	const q = `
		SELECT quote_mint, last_day_index, lifetime_distributed, updated_at
		FROM global_state
		WHERE quote_mint = $1
		FOR UPDATE`
	return scanGlobal(tx.QueryRow(ctx, q, quoteMint.String()))
}

// GetGlobal reads the global state without locking.
func (s *Store) GetGlobal(ctx context.Context, quoteMint solana.PublicKey) (*GlobalState, error) {
	const q = `
		SELECT quote_mint, last_day_index, lifetime_distributed, updated_at
		FROM global_state
		WHERE quote_mint = $1`
	gs, err := scanGlobal(s.db.QueryRow(ctx, q, quoteMint.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		// No crank has ever run; report the initial watermark.
		return &GlobalState{QuoteMint: quoteMint, LastDayIndex: -1}, nil
	}
	return gs, err
}

const dayColumns = `quote_mint, day_index, opened_at, claimed_this_day, distributed_this_day,
		dust_carry, page_cursor, last_page_digest, state, COALESCE(closed_at, 0),
		share_cap_bps, daily_cap, min_payout, y0`

// GetDayTx reads one day's state inside the crank transaction. Returns
// nil (no error) when the day never opened.
func (s *Store) GetDayTx(ctx context.Context, tx pgx.Tx, quoteMint solana.PublicKey, dayIndex int64) (*DayState, error) {
	q := `SELECT ` + dayColumns + ` FROM day_state WHERE quote_mint = $1 AND day_index = $2 FOR UPDATE`
	day, err := scanDay(tx.QueryRow(ctx, q, quoteMint.String(), dayIndex))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return day, err
}

// GetDay reads one day's state without locking, for the read surface.
func (s *Store) GetDay(ctx context.Context, quoteMint solana.PublicKey, dayIndex int64) (*DayState, error) {
	q := `SELECT ` + dayColumns + ` FROM day_state WHERE quote_mint = $1 AND day_index = $2`
	day, err := scanDay(s.db.QueryRow(ctx, q, quoteMint.String(), dayIndex))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDayNotFound
	}
	return day, err
}

// InsertDay persists a freshly opened day.
func (s *Store) InsertDay(ctx context.Context, tx pgx.Tx, d *DayState) error {
	const q = `
		INSERT INTO day_state (quote_mint, day_index, opened_at, claimed_this_day, distributed_this_day,
			dust_carry, page_cursor, last_page_digest, state, share_cap_bps, daily_cap, min_payout, y0)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := tx.Exec(ctx, q,
		d.QuoteMint.String(), d.DayIndex, d.OpenedAt,
		int64(d.ClaimedThisDay), int64(d.DistributedThisDay), int64(d.DustCarry),
		int64(d.Cursor), d.LastPageDigest, string(d.Phase),
		int64(d.Snapshot.ShareCapBps), int64(d.Snapshot.DailyCap),
		int64(d.Snapshot.MinPayout), int64(d.Snapshot.Y0))
	if err != nil {
		return fmt.Errorf("failed to insert day state: %w", err)
	}
	return nil
}

// UpdateDay persists page progress (and closing) on an existing day.
func (s *Store) UpdateDay(ctx context.Context, tx pgx.Tx, d *DayState) error {
	const q = `
		UPDATE day_state
		SET claimed_this_day = $3, distributed_this_day = $4, dust_carry = $5,
			page_cursor = $6, last_page_digest = $7, state = $8, closed_at = NULLIF($9, 0)
		WHERE quote_mint = $1 AND day_index = $2`
	tag, err := tx.Exec(ctx, q,
		d.QuoteMint.String(), d.DayIndex,
		int64(d.ClaimedThisDay), int64(d.DistributedThisDay), int64(d.DustCarry),
		int64(d.Cursor), d.LastPageDigest, string(d.Phase), d.ClosedAt)
	if err != nil {
		return fmt.Errorf("failed to update day state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDayNotFound
	}
	return nil
}

// UpdateGlobalOnClose advances the watermark and lifetime counters when
// a day closes.
func (s *Store) UpdateGlobalOnClose(ctx context.Context, tx pgx.Tx, quoteMint solana.PublicKey, dayIndex int64, distributed uint64) error {
	const q = `
		UPDATE global_state
		SET last_day_index = $2, lifetime_distributed = lifetime_distributed + $3, updated_at = now()
		WHERE quote_mint = $1`
	if _, err := tx.Exec(ctx, q, quoteMint.String(), dayIndex, int64(distributed)); err != nil {
		return fmt.Errorf("failed to update global state: %w", err)
	}
	return nil
}

// PayoutRow is one audit entry in the payout log.
type PayoutRow struct {
	Investor solana.PublicKey
	Amount   uint64
}

// InsertPayouts appends audit rows for a page's completed transfers.
func (s *Store) InsertPayouts(ctx context.Context, tx pgx.Tx, quoteMint solana.PublicKey, dayIndex int64, cursor uint64, rows []PayoutRow) error {
	for _, r := range rows {
		const q = `
			INSERT INTO payout_log (quote_mint, day_index, page_cursor, investor, amount)
			VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.Exec(ctx, q, quoteMint.String(), dayIndex, int64(cursor), r.Investor.String(), int64(r.Amount)); err != nil {
			return fmt.Errorf("failed to insert payout row: %w", err)
		}
	}
	return nil
}

func scanGlobal(row pgx.Row) (*GlobalState, error) {
	var (
		gs      GlobalState
		mintStr string
		dist    int64
	)
	err := row.Scan(&mintStr, &gs.LastDayIndex, &dist, &gs.UpdatedAt)
	if err != nil {
		return nil, err
	}
	gs.QuoteMint, err = solana.PublicKeyFromBase58(mintStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse quote mint: %w", err)
	}
	gs.LifetimeDistributed = uint64(dist)
	return &gs, nil
}

func scanDay(row pgx.Row) (*DayState, error) {
	var (
		d                    DayState
		mintStr, phase       string
		claimed, distributed int64
		dust, cursor         int64
		capBps, dailyCap     int64
		minPayout, y0        int64
	)
	err := row.Scan(&mintStr, &d.DayIndex, &d.OpenedAt, &claimed, &distributed,
		&dust, &cursor, &d.LastPageDigest, &phase, &d.ClosedAt,
		&capBps, &dailyCap, &minPayout, &y0)
	if err != nil {
		return nil, err
	}
	d.QuoteMint, err = solana.PublicKeyFromBase58(mintStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse quote mint: %w", err)
	}
	d.ClaimedThisDay = uint64(claimed)
	d.DistributedThisDay = uint64(distributed)
	d.DustCarry = uint64(dust)
	d.Cursor = uint64(cursor)
	d.Phase = Phase(phase)
	d.Snapshot.ShareCapBps = uint64(capBps)
	d.Snapshot.DailyCap = uint64(dailyCap)
	d.Snapshot.MinPayout = uint64(minPayout)
	d.Snapshot.Y0 = uint64(y0)
	return &d, nil
}
