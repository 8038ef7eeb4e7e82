package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ridehail/internal/domain"
)

var unknownStatusTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "provider_status_unknown_total",
		Help: "Raw provider statuses with no canonical mapping, kept for manual reconciliation",
	},
	[]string{"provider", "raw_status"},
)

func init() {
	prometheus.MustRegister(unknownStatusTotal)
}

// NormalizeOrFlag normalizes a raw provider status and, when the value has
// no mapping, emits the diagnostic record (log + counter) required for
// manual reconciliation. The returned status is the fail-closed `failed`.
func NormalizeOrFlag(logger *zap.Logger, provider domain.Provider, raw string) domain.PaymentStatus {
	status, ok := Normalize(provider, raw)
	if !ok {
		unknownStatusTotal.WithLabelValues(string(provider), raw).Inc()
		logger.Error("unmapped provider status, failing closed",
			zap.String("provider", string(provider)),
			zap.String("raw_status", raw),
		)
	}
	return status
}
