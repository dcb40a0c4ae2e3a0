package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Prometheus Metrics ─────────────────────────────────────────────────────

// campaignsCreated counts campaigns created, including batch creations.
var campaignsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fundhive",
	Subsystem: "registry",
	Name:      "campaigns_created_total",
	Help:      "Total campaigns created.",
})

// campaignStateChanges counts lifecycle transitions by target state.
var campaignStateChanges = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fundhive",
	Subsystem: "registry",
	Name:      "state_changes_total",
	Help:      "Total campaign state transitions by target state.",
}, []string{"state"})

// donationsReceived counts accepted donations.
var donationsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fundhive",
	Subsystem: "ledger",
	Name:      "donations_total",
	Help:      "Total accepted donations.",
})

// donationVolume sums gross donated currency units.
var donationVolume = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fundhive",
	Subsystem: "ledger",
	Name:      "donation_volume_units",
	Help:      "Gross donated amount in currency units.",
})

// feesCollected sums platform fees transferred to the treasury.
var feesCollected = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fundhive",
	Subsystem: "ledger",
	Name:      "fees_collected_units",
	Help:      "Platform fees collected in currency units.",
})

// withdrawalsSettled counts successful withdrawals.
var withdrawalsSettled = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fundhive",
	Subsystem: "settlement",
	Name:      "withdrawals_total",
	Help:      "Total successful withdrawals.",
})

// refundsClaimed counts successful refund claims.
var refundsClaimed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fundhive",
	Subsystem: "settlement",
	Name:      "refunds_total",
	Help:      "Total successful refund claims.",
})

// matchingPoolBalance tracks the undistributed matching-pool balance.
var matchingPoolBalance = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "fundhive",
	Subsystem: "matching",
	Name:      "pool_balance_units",
	Help:      "Undistributed matching-pool balance in currency units.",
})

// matchingDistributed sums matching funds allocated to campaigns.
var matchingDistributed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fundhive",
	Subsystem: "matching",
	Name:      "distributed_units",
	Help:      "Matching funds allocated to campaigns in currency units.",
})

// milestoneReleases counts milestone payouts.
var milestoneReleases = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fundhive",
	Subsystem: "milestone",
	Name:      "releases_total",
	Help:      "Total milestone fund releases.",
})

// reentrancyRejections counts calls rejected by the execution guard.
var reentrancyRejections = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fundhive",
	Subsystem: "guard",
	Name:      "reentrancy_rejections_total",
	Help:      "Calls rejected because the execution guard was held.",
})

// receiptMintFailures counts best-effort receipt mints that failed.
var receiptMintFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fundhive",
	Subsystem: "ledger",
	Name:      "receipt_mint_failures_total",
	Help:      "Best-effort donation receipt mints that failed.",
})

// eventsEmitted counts domain events by type.
var eventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fundhive",
	Subsystem: "events",
	Name:      "emitted_total",
	Help:      "Domain events appended to the log by type.",
}, []string{"type"})
