// Package crank orchestrates one permissionless crank call: gate the
// 24-hour cycle, claim quote fees on the opening page, run the page's
// pro-rata payouts and close the day on the final page. Each call is a
// single transaction: it commits all of its state writes or none.
package crank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/mr-tron/base58"

	"github.com/cascadelabs/feerouter/router/pkg/distribution"
	"github.com/cascadelabs/feerouter/router/pkg/events"
	"github.com/cascadelabs/feerouter/router/pkg/feemath"
	"github.com/cascadelabs/feerouter/router/pkg/metrics"
	"github.com/cascadelabs/feerouter/router/pkg/policy"
	"github.com/cascadelabs/feerouter/router/pkg/position"
)

var (
	// ErrBaseFeeDetected is returned when the fee claim yields a
	// non-zero base amount. The call aborts with no state change.
	ErrBaseFeeDetected = errors.New("base fees detected during claim")

	// ErrNotInitialized is returned when the quote mint has no policy,
	// position or treasury yet.
	ErrNotInitialized = errors.New("fee router not initialized for quote mint")
)

// AMM is the slice of the AMM adapter the crank uses.
type AMM interface {
	ClaimFees(ctx context.Context, pool, positionAccount, baseAccount, quoteAccount solana.PublicKey) (baseAmount, quoteAmount uint64, err error)
}

// Vesting reads the still-locked amount of a stream at a timestamp.
// The amount is monotonically non-increasing in time per record.
type Vesting interface {
	ReadLocked(ctx context.Context, stream solana.PublicKey, now int64) (uint64, error)
}

// Token executes delegated transfers out of the treasury.
type Token interface {
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
	Transfer(ctx context.Context, source, dest solana.PublicKey, amount uint64) error
}

type EngineConfig struct {
	Logger        *slog.Logger
	Clock         clockwork.Clock
	Distribution  *distribution.Store
	Policies      *policy.Store
	Positions     *position.Store
	AMM           AMM
	Vesting       Vesting
	Token         Token
	Emitter       *events.Emitter
}

func (cfg *EngineConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Distribution == nil {
		return errors.New("distribution store is required")
	}
	if cfg.Policies == nil {
		return errors.New("policy store is required")
	}
	if cfg.Positions == nil {
		return errors.New("position store is required")
	}
	if cfg.AMM == nil {
		return errors.New("amm adapter is required")
	}
	if cfg.Vesting == nil {
		return errors.New("vesting adapter is required")
	}
	if cfg.Token == nil {
		return errors.New("token adapter is required")
	}
	if cfg.Emitter == nil {
		return errors.New("emitter is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

type Engine struct {
	log *slog.Logger
	cfg EngineConfig
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		log: cfg.Logger,
		cfg: cfg,
	}, nil
}

// PageResult is what a successful crank call reports back.
type PageResult struct {
	DayIndex         int64  `json:"day_index"`
	Cursor           uint64 `json:"cursor"`
	Opened           bool   `json:"opened"`
	Retry            bool   `json:"retry"`
	Paid             uint64 `json:"paid"`
	Dust             uint64 `json:"dust"`
	Closed           bool   `json:"closed"`
	CreatorRemainder uint64 `json:"creator_remainder,omitempty"`
}

// ProcessPage runs one crank call for one page of investors.
func (e *Engine) ProcessPage(ctx context.Context, quoteMint solana.PublicKey, page distribution.Page) (result *PageResult, err error) {
	requestID := uuid.New()
	started := time.Now()

	span := sentry.StartSpan(ctx, "crank.page", sentry.WithDescription(fmt.Sprintf("crank %s page %d", quoteMint, page.Cursor)))
	defer func() {
		span.Finish()
		metrics.CrankDuration.Observe(time.Since(started).Seconds())
		if err != nil {
			span.Status = sentry.SpanStatusInternalError
			metrics.CrankTotal.WithLabelValues("error").Inc()
		} else {
			span.Status = sentry.SpanStatusOK
			metrics.CrankTotal.WithLabelValues("ok").Inc()
		}
	}()

	log := e.log.With("request_id", requestID.String(), "quote_mint", quoteMint.String(), "page_cursor", page.Cursor)

	now := e.cfg.Clock.Now().Unix()
	dayIndex := feemath.DayIndex(now)

	tx, err := e.cfg.Distribution.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// The global row lock serializes concurrent cranks per quote mint.
	global, err := e.cfg.Distribution.LockGlobal(ctx, tx, quoteMint)
	if err != nil {
		return nil, err
	}

	today, err := e.cfg.Distribution.GetDayTx(ctx, tx, quoteMint, dayIndex)
	if err != nil {
		return nil, err
	}
	var prev *distribution.DayState
	if global.LastDayIndex >= 0 && global.LastDayIndex != dayIndex {
		if prev, err = e.cfg.Distribution.GetDayTx(ctx, tx, quoteMint, global.LastDayIndex); err != nil {
			return nil, err
		}
	}

	decision, err := distribution.EvaluateGate(global, today, prev, now)
	if err != nil {
		return nil, err
	}

	var day *distribution.DayState
	opened := false
	switch decision {
	case distribution.GateOpenDay:
		if day, err = e.openDay(ctx, tx, log, quoteMint, dayIndex, now); err != nil {
			return nil, err
		}
		opened = true
	case distribution.GateContinue:
		day = today
	}

	digest := distribution.PageDigest(page.Investors)
	log = log.With("page_digest", base58.Encode(digest))
	retry, err := day.CheckPage(page.Cursor, digest)
	if err != nil {
		return nil, err
	}
	if retry {
		// Identical page replayed: succeed with no side effects. The
		// open transaction holds no writes worth keeping.
		log.Info("crank: idempotent retry detected, no-op")
		_ = tx.Rollback(ctx)
		return &PageResult{DayIndex: dayIndex, Cursor: page.Cursor, Retry: true}, nil
	}

	treasury, err := e.cfg.Positions.GetTreasury(ctx, quoteMint)
	if errors.Is(err, position.ErrTreasuryNotFound) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}

	paid, dust, payoutRows, err := e.processInvestors(ctx, log, quoteMint, treasury, day, page, now)
	if err != nil {
		return nil, err
	}

	day.ApplyPage(digest, paid, dust)
	if err = e.cfg.Distribution.UpdateDay(ctx, tx, day); err != nil {
		return nil, err
	}
	if err = e.cfg.Distribution.InsertPayouts(ctx, tx, quoteMint, dayIndex, page.Cursor, payoutRows); err != nil {
		return nil, err
	}

	e.cfg.Emitter.Emit(ctx, events.InvestorsProcessed{
		QuoteMint: quoteMint,
		DayIndex:  dayIndex,
		Cursor:    page.Cursor,
		Paid:      paid,
		Dust:      dust,
		Timestamp: now,
	})
	metrics.InvestorPayouts.WithLabelValues(quoteMint.String()).Add(float64(paid))
	metrics.DustCarried.WithLabelValues(quoteMint.String()).Set(float64(dust))

	result = &PageResult{
		DayIndex: dayIndex,
		Cursor:   page.Cursor,
		Opened:   opened,
		Paid:     paid,
		Dust:     dust,
	}

	if page.IsFinal {
		remainder, closeErr := e.closeDay(ctx, tx, log, quoteMint, treasury, day, now)
		if closeErr != nil {
			err = closeErr
			return nil, err
		}
		result.Closed = true
		result.CreatorRemainder = remainder
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit crank transaction: %w", err)
	}

	log.Info("crank: page processed",
		"day_index", dayIndex,
		"opened", opened,
		"paid", paid,
		"dust", dust,
		"closed", result.Closed)
	return result, nil
}

// openDay claims quote fees from the position into the treasury, pins
// the policy snapshot and persists the fresh day state. A non-zero base
// amount aborts the whole call before any state is written.
func (e *Engine) openDay(ctx context.Context, tx pgx.Tx, log *slog.Logger, quoteMint solana.PublicKey, dayIndex, now int64) (*distribution.DayState, error) {
	pol, err := e.cfg.Policies.GetTx(ctx, tx, quoteMint)
	if errors.Is(err, policy.ErrNotFound) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}

	record, err := e.cfg.Positions.GetRecordByQuoteMint(ctx, quoteMint)
	if errors.Is(err, position.ErrNotFound) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	treasury, err := e.cfg.Positions.GetTreasury(ctx, quoteMint)
	if errors.Is(err, position.ErrTreasuryNotFound) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}

	baseAccount, _, err := solana.FindAssociatedTokenAddress(record.OwnerAuthority, record.BaseMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive base fee account: %w", err)
	}

	baseAmount, quoteAmount, err := e.cfg.AMM.ClaimFees(ctx, record.Pool, record.PositionAccount, baseAccount, treasury.TokenAccount)
	if err != nil {
		return nil, err
	}
	if baseAmount != 0 {
		return nil, fmt.Errorf("%w: base=%d quote=%d", ErrBaseFeeDetected, baseAmount, quoteAmount)
	}

	day := &distribution.DayState{
		QuoteMint:      quoteMint,
		DayIndex:       dayIndex,
		OpenedAt:       now,
		ClaimedThisDay: quoteAmount,
		Phase:          distribution.PhaseOpen,
		Snapshot:       pol.Snapshot(),
	}
	if err := e.cfg.Distribution.InsertDay(ctx, tx, day); err != nil {
		return nil, err
	}

	e.cfg.Emitter.Emit(ctx, events.QuoteFeesClaimed{
		QuoteMint: quoteMint,
		DayIndex:  dayIndex,
		Amount:    quoteAmount,
		Timestamp: now,
	})
	metrics.QuoteFeesClaimed.WithLabelValues(quoteMint.String()).Add(float64(quoteAmount))

	log.Info("crank: day opened", "day_index", dayIndex, "claimed", quoteAmount)
	return day, nil
}

// processInvestors reads locked amounts, computes the page plan and
// executes the transfers. A failed or impossible transfer is skipped
// and its amount routed to dust; the creator collects it at close.
func (e *Engine) processInvestors(ctx context.Context, log *slog.Logger, quoteMint solana.PublicKey, treasury *position.Treasury, day *distribution.DayState, page distribution.Page, now int64) (paid, dust uint64, rows []distribution.PayoutRow, err error) {
	locked := make([]uint64, len(page.Investors))
	for i, ref := range page.Investors {
		amount, readErr := e.cfg.Vesting.ReadLocked(ctx, ref.Stream, now)
		if readErr != nil {
			// Per-investor failure contributes zero locked; the page
			// keeps going.
			e.cfg.Emitter.Emit(ctx, events.VestingReadFailed{
				QuoteMint: quoteMint,
				Stream:    ref.Stream,
				Reason:    readErr.Error(),
				Timestamp: now,
			})
			metrics.VestingReadFailures.WithLabelValues(quoteMint.String()).Inc()
			continue
		}
		locked[i] = amount
	}

	plan, err := distribution.ComputePage(day, locked)
	if err != nil {
		return 0, 0, nil, err
	}

	dust = plan.Dust
	for i, amount := range plan.Payouts {
		if amount == 0 {
			continue
		}
		ref := page.Investors[i]

		exists, exErr := e.cfg.Token.AccountExists(ctx, ref.PayoutAccount)
		if exErr != nil || !exists {
			log.Warn("crank: payout account unavailable, routing to dust",
				"investor", ref.Investor.String(), "amount", amount)
			metrics.TransferFailures.WithLabelValues(quoteMint.String()).Inc()
			dust += amount
			continue
		}
		if txErr := e.cfg.Token.Transfer(ctx, treasury.TokenAccount, ref.PayoutAccount, amount); txErr != nil {
			log.Warn("crank: transfer failed, routing to dust",
				"investor", ref.Investor.String(), "amount", amount, "error", txErr)
			metrics.TransferFailures.WithLabelValues(quoteMint.String()).Inc()
			dust += amount
			continue
		}

		paid += amount
		rows = append(rows, distribution.PayoutRow{Investor: ref.Investor, Amount: amount})
	}

	return paid, dust, rows, nil
}

// closeDay pays the creator remainder and marks the day terminal.
func (e *Engine) closeDay(ctx context.Context, tx pgx.Tx, log *slog.Logger, quoteMint solana.PublicKey, treasury *position.Treasury, day *distribution.DayState, now int64) (uint64, error) {
	pol, err := e.cfg.Policies.GetTx(ctx, tx, quoteMint)
	if err != nil {
		return 0, err
	}

	remainder := day.CreatorRemainder()
	if remainder > 0 {
		if err := e.cfg.Token.Transfer(ctx, treasury.TokenAccount, pol.CreatorAccount, remainder); err != nil {
			return 0, err
		}
	}

	day.Close(now)
	if err := e.cfg.Distribution.UpdateDay(ctx, tx, day); err != nil {
		return 0, err
	}
	if err := e.cfg.Distribution.UpdateGlobalOnClose(ctx, tx, quoteMint, day.DayIndex, day.DistributedThisDay); err != nil {
		return 0, err
	}

	e.cfg.Emitter.Emit(ctx, events.CreatorPayoutCompleted{
		QuoteMint: quoteMint,
		DayIndex:  day.DayIndex,
		Remainder: remainder,
		Timestamp: now,
	})
	metrics.CreatorPayouts.WithLabelValues(quoteMint.String()).Add(float64(remainder))
	metrics.DustCarried.WithLabelValues(quoteMint.String()).Set(0)

	log.Info("crank: day closed", "day_index", day.DayIndex, "creator_remainder", remainder)
	return remainder, nil
}
