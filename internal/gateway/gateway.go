package gateway

import (
	"context"
	"encoding/json"

	"ridehail/internal/domain"
)

// CustomerDetails carries the customer fields the gateways require on a
// charge call.
type CustomerDetails struct {
	Name  string
	Email string
	Phone string
}

// Result is the canonical outcome of a successful gateway call.
type Result struct {
	Status      domain.PaymentStatus
	ProviderRef string
	Metadata    json.RawMessage
}

// Adapter translates between the canonical payment model and one external
// gateway's API. Implementations never invent a canonical status for a
// failed call: transport or gateway errors surface as *ProviderError.
type Adapter interface {
	// Process submits the payment to the gateway.
	Process(ctx context.Context, payment *domain.Payment, details CustomerDetails) (*Result, error)

	// Refund asks the gateway to return funds. idemKey is a stable
	// reference derived from the payment id so a provider-side retry is
	// applied at most once.
	Refund(ctx context.Context, payment *domain.Payment, amount int64, idemKey string) (*Result, error)

	// CheckStatus fetches the gateway's live view of the payment. The raw
	// provider status string is returned un-normalized alongside the full
	// response body.
	CheckStatus(ctx context.Context, payment *domain.Payment) (string, json.RawMessage, error)
}

// Registry maps provider names to adapters. It is built once at wiring time
// so services can be tested against fakes.
type Registry map[domain.Provider]Adapter

// Lookup returns the adapter for a provider, or false when the provider is
// unknown.
func (r Registry) Lookup(p domain.Provider) (Adapter, bool) {
	a, ok := r[p]
	return a, ok
}
