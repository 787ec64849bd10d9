// Package events defines the router's observable events and how they
// are emitted: structured logs always, plus an optional analytics sink.
package events

import (
	"context"
	"log/slog"

	"github.com/gagliardetto/solana-go"
)

// Event is anything the router announces to the outside world.
type Event interface {
	// Name is the stable event identifier.
	Name() string
	// Attrs renders the event for structured logging.
	Attrs() []slog.Attr
}

// HonoraryPositionInitialized is emitted once when the fee-only
// position is created.
type HonoraryPositionInitialized struct {
	VaultID   solana.PublicKey
	Pool      solana.PublicKey
	Position  solana.PublicKey
	QuoteMint solana.PublicKey
	Timestamp int64
}

func (HonoraryPositionInitialized) Name() string { return "honorary_position_initialized" }

func (e HonoraryPositionInitialized) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("vault", e.VaultID.String()),
		slog.String("pool", e.Pool.String()),
		slog.String("position", e.Position.String()),
		slog.String("quote_mint", e.QuoteMint.String()),
	}
}

// QuoteFeesClaimed is emitted when the opening page pulls fees from the
// AMM into the treasury.
type QuoteFeesClaimed struct {
	QuoteMint solana.PublicKey
	DayIndex  int64
	Amount    uint64
	Timestamp int64
}

func (QuoteFeesClaimed) Name() string { return "quote_fees_claimed" }

func (e QuoteFeesClaimed) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("quote_mint", e.QuoteMint.String()),
		slog.Int64("day_index", e.DayIndex),
		slog.Uint64("amount", e.Amount),
	}
}

// InvestorsProcessed is emitted after every page.
type InvestorsProcessed struct {
	QuoteMint solana.PublicKey
	DayIndex  int64
	Cursor    uint64
	Paid      uint64
	Dust      uint64
	Timestamp int64
}

func (InvestorsProcessed) Name() string { return "investors_processed" }

func (e InvestorsProcessed) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("quote_mint", e.QuoteMint.String()),
		slog.Int64("day_index", e.DayIndex),
		slog.Uint64("cursor", e.Cursor),
		slog.Uint64("paid", e.Paid),
		slog.Uint64("dust", e.Dust),
	}
}

// CreatorPayoutCompleted is emitted when a day closes.
type CreatorPayoutCompleted struct {
	QuoteMint solana.PublicKey
	DayIndex  int64
	Remainder uint64
	Timestamp int64
}

func (CreatorPayoutCompleted) Name() string { return "creator_payout_completed" }

func (e CreatorPayoutCompleted) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("quote_mint", e.QuoteMint.String()),
		slog.Int64("day_index", e.DayIndex),
		slog.Uint64("remainder", e.Remainder),
	}
}

// PolicyUpdated is emitted on policy initialization and update.
type PolicyUpdated struct {
	QuoteMint solana.PublicKey
	Timestamp int64
}

func (PolicyUpdated) Name() string { return "policy_updated" }

func (e PolicyUpdated) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("quote_mint", e.QuoteMint.String()),
	}
}

// VestingReadFailed is the per-investor warning emitted when reading a
// vesting record returns an error; the investor contributes zero locked.
// The streamflow reader reports missing or malformed records as zero
// locked without an error, so those do not raise this event.
type VestingReadFailed struct {
	QuoteMint solana.PublicKey
	Stream    solana.PublicKey
	Reason    string
	Timestamp int64
}

func (VestingReadFailed) Name() string { return "vesting_read_failed" }

func (e VestingReadFailed) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("quote_mint", e.QuoteMint.String()),
		slog.String("stream", e.Stream.String()),
		slog.String("reason", e.Reason),
	}
}

// Sink receives emitted events, e.g. for analytics storage.
type Sink interface {
	Write(ctx context.Context, e Event) error
}

// Emitter logs every event and forwards it to the sink when one is
// configured. Sink failures are logged, never propagated: analytics
// must not abort a crank.
type Emitter struct {
	log  *slog.Logger
	sink Sink
}

func NewEmitter(log *slog.Logger, sink Sink) *Emitter {
	return &Emitter{log: log, sink: sink}
}

func (em *Emitter) Emit(ctx context.Context, e Event) {
	em.log.LogAttrs(ctx, slog.LevelInfo, "event: "+e.Name(), e.Attrs()...)

	if em.sink == nil {
		return
	}
	if err := em.sink.Write(ctx, e); err != nil {
		em.log.Warn("events: sink write failed", "event", e.Name(), "error", err)
	}
}
