// Package policy stores the per-quote-mint distribution policy: the
// investor share cap, the daily cap, the dust floor and the Y0 total
// allocation baseline. The policy is authority-gated; the crank never
// mutates it.
package policy

import (
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/cascadelabs/feerouter/router/pkg/feemath"
)

var (
	// ErrParamOutOfRange is returned when a policy parameter fails
	// validation.
	ErrParamOutOfRange = errors.New("policy parameter out of range")

	// ErrUnauthorized is returned when an update is signed by a key
	// other than the policy authority.
	ErrUnauthorized = errors.New("unauthorized policy update")

	// ErrNotFound is returned when no policy exists for the quote mint.
	ErrNotFound = errors.New("policy not found")

	// ErrAlreadyExists is returned when initializing a policy twice.
	ErrAlreadyExists = errors.New("policy already exists")
)

// Policy is the persistent configuration for one quote mint.
type Policy struct {
	QuoteMint           solana.PublicKey
	Authority           solana.PublicKey
	CreatorAccount      solana.PublicKey
	InvestorShareCapBps uint64
	DailyCap            uint64 // 0 = no cap
	MinPayout           uint64
	Y0                  uint64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Params are the mutable policy parameters.
type Params struct {
	InvestorShareCapBps uint64
	DailyCap            uint64
	MinPayout           uint64
	Y0                  uint64
}

// Validate enforces the parameter ranges: the share cap stays within
// basis points and Y0 is a meaningful divisor.
func (p Params) Validate() error {
	if p.InvestorShareCapBps > feemath.MaxBps {
		return ErrParamOutOfRange
	}
	if p.Y0 == 0 {
		return ErrParamOutOfRange
	}
	return nil
}

// Snapshot is the subset of policy values a distribution day pins at
// opening time. A mid-day policy update must not change an in-flight
// day, so the day state carries its own copy.
type Snapshot struct {
	ShareCapBps uint64
	DailyCap    uint64
	MinPayout   uint64
	Y0          uint64
}

// Snapshot returns the values a newly opened day must pin.
func (p *Policy) Snapshot() Snapshot {
	return Snapshot{
		ShareCapBps: p.InvestorShareCapBps,
		DailyCap:    p.DailyCap,
		MinPayout:   p.MinPayout,
		Y0:          p.Y0,
	}
}
