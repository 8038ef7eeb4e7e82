package repository

import (
	"context"
	"time"

	"ridehail/internal/domain"
)

// HistoryFilter narrows a payment history query.
type HistoryFilter struct {
	From   time.Time
	To     time.Time
	Status domain.PaymentStatus
	Method domain.PaymentMethod
}

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment, enforcing the one-active-payment
	// invariant in the same statement: if any payment for the order is in
	// pending or processing the insert is rejected with
	// ErrActivePaymentExists.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// UpdateResult writes the outcome of a provider call: canonical status,
	// provider reference and raw metadata.
	UpdateResult(ctx context.Context, payment *domain.Payment) error

	// MarkRefunded performs the conditional completed→refunded transition,
	// recording the refund amount and reason. Returns ErrStaleStatus when
	// the payment is not in completed state.
	MarkRefunded(ctx context.Context, id string, amount int64, reason string, metadata []byte) error

	// History lists payments on orders where the given user is customer or
	// driver. An empty userID lists everything (admin path).
	History(ctx context.Context, userID string, filter HistoryFilter) ([]*domain.Payment, error)
}
