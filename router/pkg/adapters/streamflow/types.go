// Package streamflow adapts the vesting program: it decodes stream
// records and computes the still-locked amount at a timestamp. The
// engine treats a stream as a black-box source of locked(now); the
// amount is monotonically non-increasing in time per record.
package streamflow

import (
	"errors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/cascadelabs/feerouter/router/pkg/feemath"
)

var (
	// ErrInvalidStreamAccount is returned when a stream account fails
	// to decode.
	ErrInvalidStreamAccount = errors.New("invalid stream account data")
)

// Stream is the vesting record layout the router reads.
type Stream struct {
	Magic           uint64
	Version         uint64
	CreatedAt       uint64
	StartTime       uint64
	EndTime         uint64
	DepositedAmount uint64
	WithdrawnAmount uint64
	Recipient       solana.PublicKey
	Sender          solana.PublicKey
	Mint            solana.PublicKey
	EscrowTokens    solana.PublicKey
	Name            [64]byte
	CanCancel       bool
	CanTransfer     bool
	Cancelled       bool
}

// DecodeStream decodes a stream account's data.
func DecodeStream(data []byte) (*Stream, error) {
	var s Stream
	dec := bin.NewBorshDecoder(data)
	if err := dec.Decode(&s); err != nil {
		return nil, ErrInvalidStreamAccount
	}
	return &s, nil
}

// UnlockedAmount returns the amount vested at now, linear between
// StartTime and EndTime.
func (s *Stream) UnlockedAmount(now uint64) uint64 {
	if now < s.StartTime {
		return 0
	}
	if now >= s.EndTime {
		return s.DepositedAmount
	}
	totalDuration := s.EndTime - s.StartTime
	if totalDuration == 0 {
		return s.DepositedAmount
	}
	unlocked, err := feemath.MulDiv(s.DepositedAmount, now-s.StartTime, totalDuration)
	if err != nil {
		return s.DepositedAmount
	}
	return unlocked
}

// LockedAmount returns the amount still locked at now. A cancelled
// stream has nothing locked.
func (s *Stream) LockedAmount(now uint64) uint64 {
	if s.Cancelled {
		return 0
	}
	return s.DepositedAmount - s.UnlockedAmount(now)
}
