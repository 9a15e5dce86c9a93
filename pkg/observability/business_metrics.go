package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recharge attempt metrics
	rechargeAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recharge_attempts_total",
		Help: "Total number of recharge attempts",
	}, []string{
		"gateway",     // EV, IRIS
		"flavor",      // EXRCTRFREQ, EXPPBREQ
		"outcome",     // success, declined, transport_error
		"status_code", // provider status code, empty on transport error
	})

	rechargeAmountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recharge_amount_total",
		Help: "Total successfully recharged amount in BDT",
	}, []string{
		"gateway",
		"flavor",
	})

	// Recharge processing duration (submission through bookkeeping)
	rechargeProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "recharge_processing_duration_seconds",
		Help: "Total time to process a recharge attempt (end-to-end)",
		// Buckets: 100ms to 60s (third-party gateways are slow)
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{
		"gateway",
		"outcome",
	})

	// Bookkeeping diagnostics that degraded an otherwise settled attempt
	rechargeDiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recharge_diagnostics_total",
		Help: "Total non-fatal bookkeeping diagnostics by step",
	}, []string{
		"gateway",
		"step", // txn_id, transaction_log, balance_parse, balance_update, trace
	})

	// Offer catalog metrics
	offerCatalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offer_catalog_requests_total",
		Help: "Total offer catalog requests",
	}, []string{
		"outcome", // success, declined, no_response
	})

	offersNormalizedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offers_normalized_total",
		Help: "Total catalog entries by normalization result",
	}, []string{
		"result", // kept, dropped, pack_status
		"class",
	})

	// Balance inquiry metrics
	balanceRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "balance_refresh_total",
		Help: "Total retailer balance refresh attempts",
	}, []string{
		"outcome", // success, declined, transport_error
	})

	// Gateway circuit breaker state (0=closed, 1=open, 2=half-open)
	gatewayCircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gateway_circuit_state",
		Help: "Circuit breaker state per gateway (0=closed, 1=open, 2=half-open)",
	}, []string{
		"gateway",
	})
)

// RecordRechargeAttempt records one finished recharge attempt.
// amount is only added to the revenue counter for successful attempts.
func RecordRechargeAttempt(gateway, flavor, outcome, statusCode string, amount float64, duration float64) {
	rechargeAttemptsTotal.WithLabelValues(gateway, flavor, outcome, statusCode).Inc()
	if outcome == "success" {
		rechargeAmountTotal.WithLabelValues(gateway, flavor).Add(amount)
	}
	rechargeProcessingDuration.WithLabelValues(gateway, outcome).Observe(duration)
}

// RecordRechargeDiagnostic records a non-fatal bookkeeping failure
func RecordRechargeDiagnostic(gateway, step string) {
	rechargeDiagnosticsTotal.WithLabelValues(gateway, step).Inc()
}

// RecordOfferCatalog records a catalog request and its normalization counts
func RecordOfferCatalog(outcome string, kept map[string]int, dropped int, packStatus bool) {
	offerCatalogRequestsTotal.WithLabelValues(outcome).Inc()
	for class, n := range kept {
		offersNormalizedTotal.WithLabelValues("kept", class).Add(float64(n))
	}
	if dropped > 0 {
		offersNormalizedTotal.WithLabelValues("dropped", "").Add(float64(dropped))
	}
	if packStatus {
		offersNormalizedTotal.WithLabelValues("pack_status", "").Inc()
	}
}

// RecordBalanceRefresh records a balance inquiry result
func RecordBalanceRefresh(outcome string) {
	balanceRefreshTotal.WithLabelValues(outcome).Inc()
}

// SetGatewayCircuitState publishes the circuit breaker state for a gateway
func SetGatewayCircuitState(gateway string, state int) {
	gatewayCircuitState.WithLabelValues(gateway).Set(float64(state))
}
