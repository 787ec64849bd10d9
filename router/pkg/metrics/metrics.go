// Package metrics exposes the router's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feerouter_build_info",
			Help: "Build information of the fee router",
		},
		[]string{"version", "commit", "date"},
	)

	CrankTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feerouter_crank_total",
			Help: "Total number of crank calls",
		},
		[]string{"result"},
	)

	CrankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feerouter_crank_duration_seconds",
			Help:    "Duration of crank calls",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
	)

	QuoteFeesClaimed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feerouter_quote_fees_claimed_total",
			Help: "Total quote units claimed from the AMM",
		},
		[]string{"quote_mint"},
	)

	InvestorPayouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feerouter_investor_payouts_total",
			Help: "Total quote units paid to investors",
		},
		[]string{"quote_mint"},
	)

	CreatorPayouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feerouter_creator_payouts_total",
			Help: "Total quote units paid to the creator at close",
		},
		[]string{"quote_mint"},
	)

	DustCarried = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feerouter_dust_carry",
			Help: "Dust currently carried within the open day",
		},
		[]string{"quote_mint"},
	)

	VestingReadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feerouter_vesting_read_failures_total",
			Help: "Vesting reads that failed and counted as zero locked",
		},
		[]string{"quote_mint"},
	)

	TransferFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feerouter_transfer_failures_total",
			Help: "Investor transfers skipped and routed to dust",
		},
		[]string{"quote_mint"},
	)
)
