// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the auction engine.
type Metrics struct {
	// Auction lifecycle metrics
	AuctionsOpened prometheus.Counter
	AuctionsClosed prometheus.Counter
	ActiveAuctions prometheus.Gauge

	// Bidding metrics
	BidsAccepted prometheus.Counter
	BidsRejected *prometheus.CounterVec

	// Fund custody metrics
	TokensPulled    prometheus.Counter
	TokensBurned    prometheus.Counter
	TokensWithdrawn prometheus.Counter
	EscrowTotal     prometheus.Gauge

	// Collaborator metrics
	SettleLatency   prometheus.Histogram
	SettleFailures  prometheus.Counter
	TokenCallErrors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "erc20bank"
	}

	return &Metrics{
		// Auction lifecycle metrics
		AuctionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auction",
			Name:      "opened_total",
			Help:      "Total number of liquidation auctions opened",
		}),
		AuctionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auction",
			Name:      "closed_total",
			Help:      "Total number of liquidation auctions closed",
		}),
		ActiveAuctions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "auction",
			Name:      "active",
			Help:      "Current number of ACTIVE liquidation auctions",
		}),

		// Bidding metrics
		BidsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auction",
			Name:      "bids_accepted_total",
			Help:      "Total number of accepted bids",
		}),
		BidsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auction",
			Name:      "bids_rejected_total",
			Help:      "Total number of rejected bids by reason",
		}, []string{"reason"}),

		// Fund custody metrics
		TokensPulled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escrow",
			Name:      "tokens_pulled_total",
			Help:      "Total settlement-token units pulled from bidders into custody",
		}),
		TokensBurned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escrow",
			Name:      "tokens_burned_total",
			Help:      "Total settlement-token units burned at close",
		}),
		TokensWithdrawn: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escrow",
			Name:      "tokens_withdrawn_total",
			Help:      "Total settlement-token units withdrawn by accounts",
		}),
		EscrowTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "escrow",
			Name:      "balance_total",
			Help:      "Sum of all custodied escrow balances",
		}),

		// Collaborator metrics
		SettleLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bank",
			Name:      "settle_latency_seconds",
			Help:      "Bank settlement callback latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		SettleFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bank",
			Name:      "settle_failures_total",
			Help:      "Total number of settlement callbacks that did not report success",
		}),
		TokenCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "call_errors_total",
			Help:      "Total number of settlement-token call errors by operation",
		}, []string{"operation"}),
	}
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
