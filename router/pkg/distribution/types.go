// Package distribution implements the 24-hour distribution cycle: the
// day gate, the pagination protocol and the pro-rata payout math. State
// transitions are pure functions over DayState/GlobalState; persistence
// lives in the store.
package distribution

import (
	"bytes"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/cascadelabs/feerouter/router/pkg/feemath"
	"github.com/cascadelabs/feerouter/router/pkg/policy"
)

var (
	// ErrTooEarly is returned when a day is opened before 24 hours have
	// elapsed since the previous opening.
	ErrTooEarly = errors.New("too early to open a new distribution day")

	// ErrDayAlreadyClosed is returned for pages against a closed day.
	ErrDayAlreadyClosed = errors.New("distribution day already closed")

	// ErrClockRewind is returned when the wall clock reports a day
	// earlier than the last observed one.
	ErrClockRewind = errors.New("clock rewind detected")

	// ErrPageOutOfOrder is returned when a page's cursor does not match
	// the day's next expected cursor.
	ErrPageOutOfOrder = errors.New("page out of order")

	// ErrDayNotFound is returned when reading a day that never opened.
	ErrDayNotFound = errors.New("distribution day not found")
)

// Phase is the lifecycle state of a distribution day.
type Phase string

const (
	PhaseOpen   Phase = "open"
	PhaseClosed Phase = "closed"
)

// InvestorRef identifies one investor within a page: the investor key,
// the vesting record to read the locked amount from, and the token
// account payouts go to.
type InvestorRef struct {
	Investor      solana.PublicKey `json:"investor"`
	Stream        solana.PublicKey `json:"stream"`
	PayoutAccount solana.PublicKey `json:"payout_account"`
}

// Page is one crank call's worth of investors. Cursor must equal the
// day's next expected page index; IsFinal triggers closing after the
// page is processed.
type Page struct {
	Cursor    uint64
	IsFinal   bool
	Investors []InvestorRef
}

// DayState tracks one distribution day for one quote mint. It pins the
// policy snapshot taken at opening time so mid-day policy updates only
// affect subsequent days.
type DayState struct {
	QuoteMint          solana.PublicKey
	DayIndex           int64
	OpenedAt           int64
	ClaimedThisDay     uint64
	DistributedThisDay uint64
	DustCarry          uint64
	Cursor             uint64 // next expected page index
	LastPageDigest     []byte
	Phase              Phase
	ClosedAt           int64
	Snapshot           policy.Snapshot
}

// GlobalState survives across days for one quote mint.
type GlobalState struct {
	QuoteMint           solana.PublicKey
	LastDayIndex        int64 // -1 before the first day
	LifetimeDistributed uint64
	UpdatedAt           time.Time
}

// GateDecision is the outcome of evaluating the day gate.
type GateDecision int

const (
	// GateOpenDay: the call is the opening page of a new day.
	GateOpenDay GateDecision = iota
	// GateContinue: the call is a continuation page of the open day.
	GateContinue
)

// EvaluateGate applies the 24-hour gate rules. today is the DayState
// for the current day index (nil if none), prev the DayState for
// global.LastDayIndex (nil if none; used for the strict 24h check).
func EvaluateGate(global *GlobalState, today, prev *DayState, now int64) (GateDecision, error) {
	dayIndex := feemath.DayIndex(now)

	if dayIndex < global.LastDayIndex {
		return 0, ErrClockRewind
	}

	if today != nil {
		if today.Phase == PhaseClosed {
			return 0, ErrDayAlreadyClosed
		}
		return GateContinue, nil
	}

	if global.LastDayIndex == dayIndex {
		// The day's state row is gone but the global watermark says it
		// ran; treat as closed rather than reopening.
		return 0, ErrDayAlreadyClosed
	}

	if prev != nil && now < prev.OpenedAt+feemath.SecondsPerDay {
		return 0, ErrTooEarly
	}

	return GateOpenDay, nil
}

// CheckPage validates a page's cursor against the day and recognizes
// idempotent retries. A retry is the previous page replayed with an
// identical digest; it must succeed with no side effects.
func (d *DayState) CheckPage(pageCursor uint64, digest []byte) (retry bool, err error) {
	if d.Phase == PhaseClosed {
		return false, ErrDayAlreadyClosed
	}
	if d.Cursor > 0 && pageCursor == d.Cursor-1 && bytes.Equal(digest, d.LastPageDigest) {
		return true, nil
	}
	if pageCursor != d.Cursor {
		return false, ErrPageOutOfOrder
	}
	return false, nil
}

// ApplyPage records a processed page on the day state.
func (d *DayState) ApplyPage(digest []byte, paid, newDust uint64) {
	d.Cursor++
	d.LastPageDigest = digest
	d.DistributedThisDay += paid
	d.DustCarry = newDust
}

// CreatorRemainder is everything claimed this day that did not go to
// investors: truncation dust, suppressed payouts and cap-clamped
// amounts all end up here.
func (d *DayState) CreatorRemainder() uint64 {
	return d.ClaimedThisDay - d.DistributedThisDay
}

// Close marks the day terminal.
func (d *DayState) Close(now int64) {
	d.Phase = PhaseClosed
	d.ClosedAt = now
}
