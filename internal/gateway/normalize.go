package gateway

import "ridehail/internal/domain"

// statusTables maps each provider's raw status vocabulary to the canonical
// set. The tables are pure data: identical input always yields identical
// output, and nothing here has side effects.
var statusTables = map[domain.Provider]map[string]domain.PaymentStatus{
	domain.ProviderMidtrans: {
		"capture":        domain.PaymentStatusCompleted,
		"settlement":     domain.PaymentStatusCompleted,
		"pending":        domain.PaymentStatusProcessing,
		"authorize":      domain.PaymentStatusProcessing,
		"deny":           domain.PaymentStatusFailed,
		"cancel":         domain.PaymentStatusFailed,
		"expire":         domain.PaymentStatusFailed,
		"failure":        domain.PaymentStatusFailed,
		"refund":         domain.PaymentStatusRefunded,
		"partial_refund": domain.PaymentStatusRefunded,
		"chargeback":     domain.PaymentStatusRefunded,
	},
	domain.ProviderXendit: {
		"PENDING":  domain.PaymentStatusProcessing,
		"PAID":     domain.PaymentStatusCompleted,
		"SETTLED":  domain.PaymentStatusCompleted,
		"EXPIRED":  domain.PaymentStatusFailed,
		"STOPPED":  domain.PaymentStatusFailed,
		"REFUNDED": domain.PaymentStatusRefunded,
	},
}

// Normalize maps a raw provider status to the canonical set. Unknown raw
// values fail closed to failed and return ok=false so the caller can emit a
// diagnostic for manual reconciliation; they never default to completed.
func Normalize(provider domain.Provider, raw string) (status domain.PaymentStatus, ok bool) {
	table, found := statusTables[provider]
	if !found {
		return domain.PaymentStatusFailed, false
	}
	status, found = table[raw]
	if !found {
		return domain.PaymentStatusFailed, false
	}
	return status, true
}
