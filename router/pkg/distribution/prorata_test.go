package distribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadelabs/feerouter/router/pkg/policy"
)

func day(claimed, distributed, dust uint64, snap policy.Snapshot) *DayState {
	return &DayState{
		ClaimedThisDay:     claimed,
		DistributedThisDay: distributed,
		DustCarry:          dust,
		Phase:              PhaseOpen,
		Snapshot:           snap,
	}
}

func defaultSnapshot() policy.Snapshot {
	return policy.Snapshot{
		ShareCapBps: 8_000,
		DailyCap:    0,
		MinPayout:   100,
		Y0:          1_000_000,
	}
}

func TestComputePage_FullyLocked(t *testing.T) {
	t.Parallel()

	// Claimed 10_000, two investors locked {600_000, 400_000}: the
	// locked fraction saturates and the share cap binds at 8_000 bps.
	plan, err := ComputePage(day(10_000, 0, 0, defaultSnapshot()), []uint64{600_000, 400_000})
	require.NoError(t, err)

	assert.Equal(t, uint64(8_000), plan.EligibleBps)
	assert.Equal(t, uint64(8_000), plan.PagePool)
	assert.Equal(t, []uint64{4_800, 3_200}, plan.Payouts)
	assert.Equal(t, uint64(8_000), plan.Paid())
	assert.Equal(t, uint64(0), plan.Dust)
}

func TestComputePage_PartiallyLocked(t *testing.T) {
	t.Parallel()

	// One investor at 10% locked: the locked fraction binds below the
	// share cap.
	plan, err := ComputePage(day(10_000, 0, 0, defaultSnapshot()), []uint64{100_000})
	require.NoError(t, err)

	assert.Equal(t, uint64(1_000), plan.EligibleBps)
	assert.Equal(t, uint64(1_000), plan.PagePool)
	assert.Equal(t, []uint64{1_000}, plan.Payouts)
	assert.Equal(t, uint64(0), plan.Dust)
}

func TestComputePage_AllUnlocked(t *testing.T) {
	t.Parallel()

	plan, err := ComputePage(day(10_000, 0, 0, defaultSnapshot()), []uint64{0, 0, 0})
	require.NoError(t, err)

	assert.Equal(t, uint64(0), plan.PagePool)
	assert.Equal(t, uint64(0), plan.Paid())
	assert.Equal(t, uint64(0), plan.Dust)
}

func TestComputePage_AllBelowMinPayout(t *testing.T) {
	t.Parallel()

	// Claimed 1_000, two investors at 50% each, min payout 500: both
	// raw payouts of 400 are suppressed and the whole pool is dust.
	snap := defaultSnapshot()
	snap.MinPayout = 500
	plan, err := ComputePage(day(1_000, 0, 0, snap), []uint64{500_000, 500_000})
	require.NoError(t, err)

	assert.Equal(t, uint64(800), plan.PagePool)
	assert.Equal(t, []uint64{400, 400}, plan.Raw)
	assert.Equal(t, []uint64{0, 0}, plan.Payouts)
	assert.Equal(t, uint64(0), plan.Paid())
	assert.Equal(t, uint64(800), plan.Dust)
}

func TestComputePage_DailyCapClamps(t *testing.T) {
	t.Parallel()

	snap := defaultSnapshot()
	snap.DailyCap = 500
	snap.ShareCapBps = 10_000
	plan, err := ComputePage(day(10_000, 0, 0, snap), []uint64{1_000_000})
	require.NoError(t, err)

	assert.Equal(t, uint64(500), plan.PagePool)
	assert.Equal(t, []uint64{500}, plan.Payouts)
	assert.Equal(t, uint64(0), plan.Dust)
}

func TestComputePage_DailyCapExhausted(t *testing.T) {
	t.Parallel()

	snap := defaultSnapshot()
	snap.DailyCap = 500
	plan, err := ComputePage(day(10_000, 500, 0, snap), []uint64{1_000_000})
	require.NoError(t, err)

	assert.Equal(t, uint64(0), plan.PagePool)
	assert.Equal(t, uint64(0), plan.Paid())
}

func TestComputePage_TwoPageDay(t *testing.T) {
	t.Parallel()

	// Page 1: locked 600_000 -> f_locked 6_000 bps binds below the cap.
	d := day(10_000, 0, 0, defaultSnapshot())
	plan1, err := ComputePage(d, []uint64{600_000})
	require.NoError(t, err)
	assert.Equal(t, uint64(6_000), plan1.EligibleBps)
	assert.Equal(t, uint64(6_000), plan1.PagePool)
	assert.Equal(t, uint64(6_000), plan1.Paid())

	// Page 2 sees the residual claimed pool of 4_000 with locked
	// 400_000 -> eligible 4_000 bps -> pool 1_600.
	d.DistributedThisDay += plan1.Paid()
	d.DustCarry = plan1.Dust
	plan2, err := ComputePage(d, []uint64{400_000})
	require.NoError(t, err)
	assert.Equal(t, uint64(4_000), plan2.EligibleBps)
	assert.Equal(t, uint64(1_600), plan2.PagePool)
	assert.Equal(t, uint64(1_600), plan2.Paid())

	// Creator collects the rest at close.
	d.DistributedThisDay += plan2.Paid()
	assert.Equal(t, uint64(2_400), d.CreatorRemainder())
}

func TestComputePage_DustCarryFoldsIntoNextPage(t *testing.T) {
	t.Parallel()

	snap := defaultSnapshot()
	snap.MinPayout = 1_000
	d := day(10_000, 0, 0, snap)

	// Page 1: locked 600_000 gives a pool of 6_000 split across three
	// investors, two of them under the floor.
	plan1, err := ComputePage(d, []uint64{500_000, 50_000, 50_000})
	require.NoError(t, err)
	assert.Equal(t, uint64(6_000), plan1.EligibleBps)
	assert.Equal(t, uint64(6_000), plan1.PagePool)
	// raw: 5_000, 500, 500 -> the two 500s are suppressed.
	assert.Equal(t, []uint64{5_000, 0, 0}, plan1.Payouts)
	assert.Equal(t, uint64(1_000), plan1.Dust)

	// Page 2 folds the dust carry into its pool.
	d.DistributedThisDay += plan1.Paid()
	d.DustCarry = plan1.Dust
	plan2, err := ComputePage(d, []uint64{400_000})
	require.NoError(t, err)
	// claimed_pool = 10_000 - 5_000 - 1_000 = 4_000; eligible 4_000
	// bps -> floor(4_000 * 0.4) = 1_600; plus 1_000 dust carry.
	assert.Equal(t, uint64(2_600), plan2.PagePool)
	assert.Equal(t, uint64(2_600), plan2.Paid())
}

func TestComputePage_ZeroClaim(t *testing.T) {
	t.Parallel()

	plan, err := ComputePage(day(0, 0, 0, defaultSnapshot()), []uint64{600_000})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), plan.PagePool)
	assert.Equal(t, uint64(0), plan.Paid())
}

func TestComputePage_EqualLockedEqualPayout(t *testing.T) {
	t.Parallel()

	plan, err := ComputePage(day(10_001, 0, 0, defaultSnapshot()), []uint64{333_333, 333_333, 333_334})
	require.NoError(t, err)

	assert.Equal(t, plan.Payouts[0], plan.Payouts[1], "equal locked amounts receive equal payouts")
	// Truncation residue stays in dust, never randomly assigned.
	assert.Equal(t, plan.PagePool, plan.Paid()+plan.Dust)
}

func TestComputePage_PoolNeverExceeded(t *testing.T) {
	t.Parallel()

	// Pseudo-random-ish sweep: payouts plus dust always equal the page
	// pool, and the pool never exceeds the remaining claim.
	lockedSets := [][]uint64{
		{1},
		{1, 1, 1},
		{999_999, 1},
		{123_456, 654_321, 111},
		{1_000_000},
		{7, 13, 17, 19, 23, 29},
	}
	for _, locked := range lockedSets {
		d := day(987_654, 12_345, 678, defaultSnapshot())
		plan, err := ComputePage(d, locked)
		require.NoError(t, err)

		assert.Equal(t, plan.PagePool, plan.Paid()+plan.Dust, "conservation within page")
		assert.LessOrEqual(t, plan.Paid(), plan.PagePool)
		assert.LessOrEqual(t, plan.PagePool, d.ClaimedThisDay-d.DistributedThisDay)
	}
}

func TestComputePage_OverflowingDayStateRejected(t *testing.T) {
	t.Parallel()

	// distributed + dust beyond claimed must never distribute more.
	d := day(100, 90, 20, defaultSnapshot())
	_, err := ComputePage(d, []uint64{500_000})
	require.Error(t, err)
}
