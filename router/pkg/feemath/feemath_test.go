package feemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulDiv(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		a, b, d uint64
		want    uint64
		wantErr error
	}{
		{name: "simple", a: 10, b: 3, d: 2, want: 15},
		{name: "floors", a: 7, b: 3, d: 2, want: 10},
		{name: "zero numerator", a: 0, b: 5, d: 3, want: 0},
		{name: "divide by zero", a: 1, b: 1, d: 0, wantErr: ErrDivideByZero},
		{name: "wide product", a: math.MaxUint64, b: 10_000, d: 10_000, want: math.MaxUint64},
		{name: "wide product floors", a: math.MaxUint64 - 1, b: 3, d: 7, want: (math.MaxUint64 - 1) / 7 * 3},
		{name: "quotient overflow", a: math.MaxUint64, b: 2, d: 1, wantErr: ErrOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulDiv(tt.a, tt.b, tt.d)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMulDiv_WideProductExact(t *testing.T) {
	t.Parallel()

	// 2^63 * 10000 overflows 64 bits; the 128-bit path must still be
	// exact.
	const a = uint64(1) << 63
	got, err := MulDiv(a, 10_000, 10_000)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	// floor(2^63 * 8000 / 10000) = floor(2^63 * 4 / 5)
	got, err = MulDiv(a, 8_000, 10_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(7378697629483820646), got)
}

func TestBpsOf(t *testing.T) {
	t.Parallel()

	got, err := BpsOf(10_000, 8_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(8_000), got)

	got, err = BpsOf(10_000, 1_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), got)

	got, err = BpsOf(1, 9_999)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got, "sub-unit results floor to zero")
}

func TestLockedFractionBps(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(10_000), LockedFractionBps(1_000_000, 1_000_000))
	assert.Equal(t, uint64(6_000), LockedFractionBps(600_000, 1_000_000))
	assert.Equal(t, uint64(1_000), LockedFractionBps(100_000, 1_000_000))
	assert.Equal(t, uint64(0), LockedFractionBps(0, 1_000_000))
	assert.Equal(t, uint64(0), LockedFractionBps(500, 0), "zero y0 guards to zero")
	assert.Equal(t, uint64(10_000), LockedFractionBps(2_000_000, 1_000_000), "clamped above 100%")
	assert.Equal(t, uint64(10_000), LockedFractionBps(math.MaxUint64, 1), "clamped on overflow")
}

func TestDayIndex(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(0), DayIndex(0))
	assert.Equal(t, int64(0), DayIndex(86_399))
	assert.Equal(t, int64(1), DayIndex(86_400))
	assert.Equal(t, int64(20_000), DayIndex(20_000*86_400+12))
}
