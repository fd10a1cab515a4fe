// Package metrics defines the custom Prometheus metrics of the affiliate API.
// Metrics are registered with the default registry on package init through
// promauto and exposed on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "affiliate"

// ── Ledger metrics ────────────────────────────────────────────────────────────

// RedemptionsTotal counts redemption requests by outcome.
// Label:
//   - result: "accepted", "insufficient_balance", "conflict", "not_found" or "error"
var RedemptionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "redemptions_total",
		Help:      "Total number of redemption requests, by result.",
	},
	[]string{"result"},
)

// PointsRedeemedTotal sums the points moved to pending by accepted redemptions.
var PointsRedeemedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "points_redeemed_total",
		Help:      "Total points moved from available to pending.",
	},
)

// PointsCreditedTotal sums points credited manually through the admin API.
var PointsCreditedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "points_credited_total",
		Help:      "Total points credited through the admin API.",
	},
)

// ── Collaborator metrics ──────────────────────────────────────────────────────

// NotificationsTotal counts payout notifications by delivery status.
// Label:
//   - status: "sent", "skipped" or "failed"
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of payout notifications, by delivery status.",
	},
	[]string{"status"},
)

// AffiliateRewritesTotal counts affiliate link rewrites by status.
var AffiliateRewritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "affiliate_rewrites_total",
		Help:      "Total number of affiliate link rewrite attempts, by status.",
	},
	[]string{"status"},
)

// ProductsCreatedTotal counts stored products.
// Label:
//   - affiliated: "true" or "false"
var ProductsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "products_created_total",
		Help:      "Total number of products created, by affiliation.",
	},
	[]string{"affiliated"},
)

// ── Sale event metrics ────────────────────────────────────────────────────────

// SaleEventsProcessedTotal counts sale postbacks that were applied.
var SaleEventsProcessedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sale_events_processed_total",
		Help:      "Total number of sale events successfully processed.",
	},
)

// SaleEventsErrorsTotal counts sale postbacks that failed.
// Label:
//   - reason: "user_not_found", "invalid" or "error"
var SaleEventsErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sale_events_errors_total",
		Help:      "Total number of sale events that failed processing.",
	},
	[]string{"reason"},
)

// SaleEventsQueueDepth tracks the events waiting in each worker channel.
var SaleEventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sale_events_queue_depth",
		Help:      "Current number of sale events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// SaleEventDuration measures dequeue-to-commit time for one sale event.
// Label:
//   - result: "ok" or "error"
var SaleEventDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sale_event_processing_duration_seconds",
		Help:      "Duration of sale event processing from dequeue to ledger commit.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)
