package distribution

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadelabs/feerouter/router/pkg/feemath"
)

const day20k = int64(20_000)

func openDayState(dayIndex, openedAt int64) *DayState {
	return &DayState{
		DayIndex: dayIndex,
		OpenedAt: openedAt,
		Phase:    PhaseOpen,
	}
}

func TestEvaluateGate_FirstEverDayOpens(t *testing.T) {
	t.Parallel()

	global := &GlobalState{LastDayIndex: -1}
	decision, err := EvaluateGate(global, nil, nil, day20k*feemath.SecondsPerDay+100)
	require.NoError(t, err)
	assert.Equal(t, GateOpenDay, decision)
}

func TestEvaluateGate_ContinuationOfOpenDay(t *testing.T) {
	t.Parallel()

	now := day20k*feemath.SecondsPerDay + 5_000
	global := &GlobalState{LastDayIndex: day20k - 1}
	today := openDayState(day20k, now-1_000)

	decision, err := EvaluateGate(global, today, nil, now)
	require.NoError(t, err)
	assert.Equal(t, GateContinue, decision)
}

func TestEvaluateGate_ClosedDayRejectsPages(t *testing.T) {
	t.Parallel()

	now := day20k*feemath.SecondsPerDay + 5_000
	global := &GlobalState{LastDayIndex: day20k}
	today := openDayState(day20k, now-1_000)
	today.Phase = PhaseClosed

	_, err := EvaluateGate(global, today, nil, now)
	require.ErrorIs(t, err, ErrDayAlreadyClosed)
}

func TestEvaluateGate_WatermarkWithoutDayStateIsClosed(t *testing.T) {
	t.Parallel()

	now := day20k*feemath.SecondsPerDay + 5_000
	global := &GlobalState{LastDayIndex: day20k}

	_, err := EvaluateGate(global, nil, nil, now)
	require.ErrorIs(t, err, ErrDayAlreadyClosed)
}

func TestEvaluateGate_ClockRewind(t *testing.T) {
	t.Parallel()

	global := &GlobalState{LastDayIndex: day20k}
	_, err := EvaluateGate(global, nil, nil, (day20k-1)*feemath.SecondsPerDay)
	require.ErrorIs(t, err, ErrClockRewind)
}

func TestEvaluateGate_TooEarlyWithinPreviousWindow(t *testing.T) {
	t.Parallel()

	// Previous day opened late in its day; opening the next day before
	// a full 24h elapsed fails.
	prevOpen := day20k*feemath.SecondsPerDay + 80_000
	global := &GlobalState{LastDayIndex: day20k}
	prev := openDayState(day20k, prevOpen)
	prev.Phase = PhaseClosed

	now := (day20k+1)*feemath.SecondsPerDay + 10_000 // < prevOpen + 86_400
	_, err := EvaluateGate(global, nil, prev, now)
	require.ErrorIs(t, err, ErrTooEarly)

	// Once the strict 24h window elapses, the day opens.
	decision, err := EvaluateGate(global, nil, prev, prevOpen+feemath.SecondsPerDay)
	require.NoError(t, err)
	assert.Equal(t, GateOpenDay, decision)
}

func TestCheckPage_OrderAndRetry(t *testing.T) {
	t.Parallel()

	refs := []InvestorRef{{
		Investor:      solana.NewWallet().PublicKey(),
		Stream:        solana.NewWallet().PublicKey(),
		PayoutAccount: solana.NewWallet().PublicKey(),
	}}
	digest := PageDigest(refs)

	d := openDayState(day20k, day20k*feemath.SecondsPerDay)

	// Opening page must be cursor 0.
	retry, err := d.CheckPage(1, digest)
	require.ErrorIs(t, err, ErrPageOutOfOrder)
	assert.False(t, retry)

	retry, err = d.CheckPage(0, digest)
	require.NoError(t, err)
	assert.False(t, retry)

	d.ApplyPage(digest, 500, 10)
	assert.Equal(t, uint64(1), d.Cursor)

	// Same page replayed with the same digest is an idempotent retry.
	retry, err = d.CheckPage(0, digest)
	require.NoError(t, err)
	assert.True(t, retry)

	// Same cursor with a different investor set is out of order, not a
	// retry.
	otherDigest := PageDigest([]InvestorRef{{
		Investor:      solana.NewWallet().PublicKey(),
		Stream:        solana.NewWallet().PublicKey(),
		PayoutAccount: solana.NewWallet().PublicKey(),
	}})
	_, err = d.CheckPage(0, otherDigest)
	require.ErrorIs(t, err, ErrPageOutOfOrder)

	// Next expected page proceeds.
	retry, err = d.CheckPage(1, otherDigest)
	require.NoError(t, err)
	assert.False(t, retry)

	// Skipping ahead fails.
	_, err = d.CheckPage(2, otherDigest)
	require.ErrorIs(t, err, ErrPageOutOfOrder)
}

func TestCheckPage_ClosedDayIsTerminal(t *testing.T) {
	t.Parallel()

	d := openDayState(day20k, day20k*feemath.SecondsPerDay)
	d.Close(day20k*feemath.SecondsPerDay + 500)

	_, err := d.CheckPage(0, PageDigest(nil))
	require.ErrorIs(t, err, ErrDayAlreadyClosed)
	assert.Equal(t, PhaseClosed, d.Phase)
}

func TestApplyPage_AccumulatesTotals(t *testing.T) {
	t.Parallel()

	d := openDayState(day20k, day20k*feemath.SecondsPerDay)
	d.ClaimedThisDay = 10_000

	d.ApplyPage([]byte{1}, 4_000, 100)
	d.ApplyPage([]byte{2}, 1_000, 50)

	assert.Equal(t, uint64(5_000), d.DistributedThisDay)
	assert.Equal(t, uint64(50), d.DustCarry, "dust carry is replaced, not summed")
	assert.Equal(t, uint64(2), d.Cursor)
	assert.Equal(t, []byte{2}, d.LastPageDigest)
	assert.Equal(t, uint64(5_000), d.CreatorRemainder())
}
