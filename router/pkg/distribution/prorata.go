package distribution

import (
	"github.com/cascadelabs/feerouter/router/pkg/feemath"
)

// PagePlan is the computed payout schedule for one page, before any
// transfer has been attempted. Raw holds the floored pro-rata share per
// investor; Payouts holds the amount actually owed after the dust floor
// (zero where suppressed). Both align with the page's investor slice.
type PagePlan struct {
	LockedTotal uint64
	EligibleBps uint64
	PagePool    uint64
	Raw         []uint64
	Payouts     []uint64
	// Dust accumulated by the plan itself: suppressed payouts plus the
	// truncation residue of the pool. Transfer failures add to this at
	// execution time.
	Dust uint64
}

// ComputePage computes a page's payouts from the day totals, the pinned
// policy snapshot and the locked amount per investor.
//
// The locked fraction and eligible share are computed per page from the
// page's own locked total against Y0; pages are pure functions of their
// inputs, which is what makes idempotent replay sound.
func ComputePage(day *DayState, locked []uint64) (*PagePlan, error) {
	snap := day.Snapshot

	var lockedTotal uint64
	for _, l := range locked {
		next := lockedTotal + l
		if next < lockedTotal {
			return nil, feemath.ErrOverflow
		}
		lockedTotal = next
	}

	// The portion of the day's claim not yet allocated to investors or
	// parked as dust.
	if day.DistributedThisDay+day.DustCarry > day.ClaimedThisDay {
		return nil, feemath.ErrOverflow
	}
	claimedPool := day.ClaimedThisDay - day.DistributedThisDay - day.DustCarry

	fLockedBps := feemath.LockedFractionBps(lockedTotal, snap.Y0)
	eligibleBps := min(snap.ShareCapBps, fLockedBps)

	pool, err := feemath.BpsOf(claimedPool, eligibleBps)
	if err != nil {
		return nil, err
	}
	pagePool := pool + day.DustCarry

	// Daily cap clamps the pool; whatever it suppresses flows to the
	// creator at close.
	if snap.DailyCap > 0 {
		var headroom uint64
		if snap.DailyCap > day.DistributedThisDay {
			headroom = snap.DailyCap - day.DistributedThisDay
		}
		pagePool = min(pagePool, headroom)
	}

	plan := &PagePlan{
		LockedTotal: lockedTotal,
		EligibleBps: eligibleBps,
		PagePool:    pagePool,
		Raw:         make([]uint64, len(locked)),
		Payouts:     make([]uint64, len(locked)),
	}

	if lockedTotal == 0 || pagePool == 0 {
		plan.Dust = pagePool
		return plan, nil
	}

	var rawSum uint64
	for i, l := range locked {
		if l == 0 {
			continue
		}
		raw, err := feemath.MulDiv(pagePool, l, lockedTotal)
		if err != nil {
			return nil, err
		}
		plan.Raw[i] = raw
		rawSum += raw
		if raw < snap.MinPayout {
			plan.Dust += raw
		} else {
			plan.Payouts[i] = raw
		}
	}

	// Truncation residue of the floor divisions.
	plan.Dust += pagePool - rawSum

	return plan, nil
}

// Paid returns the sum of the plan's non-suppressed payouts.
func (p *PagePlan) Paid() uint64 {
	var sum uint64
	for _, amt := range p.Payouts {
		sum += amt
	}
	return sum
}
