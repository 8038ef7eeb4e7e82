package domain

import (
	"encoding/json"
	"time"
)

// PaymentStatus is the canonical provider-independent settlement state.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// IsActive reports whether the payment still occupies the order's
// one-active-payment slot.
func (s PaymentStatus) IsActive() bool {
	return s == PaymentStatusPending || s == PaymentStatusProcessing
}

// PaymentMethod represents how the customer pays.
type PaymentMethod string

const (
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodEWallet      PaymentMethod = "e_wallet"
)

// Valid reports whether the method is one of the closed set.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodBankTransfer, PaymentMethodEWallet:
		return true
	}
	return false
}

// Provider identifies an external payment gateway.
type Provider string

const (
	ProviderMidtrans Provider = "midtrans"
	ProviderXendit   Provider = "xendit"
)

// Valid reports whether the provider is one of the closed set.
func (p Provider) Valid() bool {
	return p == ProviderMidtrans || p == ProviderXendit
}

// Payment represents one settlement attempt against an order.
type Payment struct {
	ID           string
	OrderID      string
	Amount       int64 // minor currency units
	Method       PaymentMethod
	Provider     Provider
	Status       PaymentStatus
	ProviderRef  string // gateway reference, required before refund/status calls
	RefundAmount int64
	RefundReason string
	Metadata     json.RawMessage // raw provider response, kept for audit
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
