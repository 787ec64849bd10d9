package streamflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func linearStream(start, end, deposited uint64) *Stream {
	return &Stream{
		StartTime:       start,
		EndTime:         end,
		DepositedAmount: deposited,
	}
}

func TestLockedAmount_Linear(t *testing.T) {
	t.Parallel()

	s := linearStream(1_000, 2_000, 1_000_000)

	assert.Equal(t, uint64(1_000_000), s.LockedAmount(0), "fully locked before start")
	assert.Equal(t, uint64(1_000_000), s.LockedAmount(999))
	assert.Equal(t, uint64(1_000_000), s.LockedAmount(1_000), "nothing unlocked at start")
	assert.Equal(t, uint64(500_000), s.LockedAmount(1_500), "half unlocked at midpoint")
	assert.Equal(t, uint64(250_000), s.LockedAmount(1_750))
	assert.Equal(t, uint64(0), s.LockedAmount(2_000), "fully unlocked at end")
	assert.Equal(t, uint64(0), s.LockedAmount(3_000))
}

func TestLockedAmount_MonotonicallyNonIncreasing(t *testing.T) {
	t.Parallel()

	s := linearStream(100, 10_007, 123_457)
	prev := s.LockedAmount(0)
	for now := uint64(0); now <= 11_000; now += 97 {
		locked := s.LockedAmount(now)
		assert.LessOrEqual(t, locked, prev, "locked amount must never increase")
		prev = locked
	}
}

func TestLockedAmount_ZeroDuration(t *testing.T) {
	t.Parallel()

	s := linearStream(1_000, 1_000, 500)
	assert.Equal(t, uint64(500), s.LockedAmount(999))
	assert.Equal(t, uint64(0), s.LockedAmount(1_000), "instant vest unlocks everything at start")
}

func TestLockedAmount_CancelledStream(t *testing.T) {
	t.Parallel()

	s := linearStream(1_000, 2_000, 1_000_000)
	s.Cancelled = true
	assert.Equal(t, uint64(0), s.LockedAmount(1_200))
}

func TestDecodeStream_ShortBuffer(t *testing.T) {
	t.Parallel()

	_, err := DecodeStream([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidStreamAccount)
}
