package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

const paymentColumns = `id, order_id, amount, method, provider, status, provider_ref,
	refund_amount, refund_reason, metadata, created_at, updated_at`

// Create persists a new payment. The INSERT ... WHERE NOT EXISTS is only a
// fast-path guard; under READ COMMITTED two racing creates can each miss the
// other's uncommitted row. The partial unique index in schema.sql
// (payments_one_active_per_order) is what actually enforces the invariant,
// so a unique violation here maps to ErrActivePaymentExists too.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, order_id, amount, method, provider, status, created_at, updated_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE NOT EXISTS (
			SELECT 1 FROM payments
			WHERE order_id = $2 AND status IN ($9, $10)
		)
	`

	result, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.Amount,
		payment.Method,
		payment.Provider,
		payment.Status,
		payment.CreatedAt,
		payment.UpdatedAt,
		domain.PaymentStatusPending,
		domain.PaymentStatusProcessing,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return repository.ErrActivePaymentExists
		}
		return err
	}
	return checkAffected(result, repository.ErrActivePaymentExists)
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return payment, nil
}

// UpdateResult writes the outcome of a provider call. It only applies while
// the payment is still pending or processing, so a caller holding a stale
// read cannot overwrite a settled row.
func (r *PaymentRepository) UpdateResult(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, provider_ref = $2, metadata = $3, updated_at = now()
		WHERE id = $4 AND status IN ($5, $6)
	`

	result, err := r.q.ExecContext(ctx, query,
		payment.Status,
		nullString(payment.ProviderRef),
		nullBytes(payment.Metadata),
		payment.ID,
		domain.PaymentStatusPending,
		domain.PaymentStatusProcessing,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, payment.ID); err != nil {
			return err
		}
		return repository.ErrStaleStatus
	}
	return nil
}

// MarkRefunded performs the conditional completed→refunded transition.
func (r *PaymentRepository) MarkRefunded(ctx context.Context, id string, amount int64, reason string, metadata []byte) error {
	query := `
		UPDATE payments
		SET status = $1, refund_amount = $2, refund_reason = $3, metadata = $4, updated_at = now()
		WHERE id = $5 AND status = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.PaymentStatusRefunded,
		amount,
		reason,
		nullBytes(metadata),
		id,
		domain.PaymentStatusCompleted,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrStaleStatus
	}
	return nil
}

// History lists payments on orders where userID is customer or driver. An
// empty userID lists everything.
func (r *PaymentRepository) History(ctx context.Context, userID string, filter repository.HistoryFilter) ([]*domain.Payment, error) {
	query := `
		SELECT p.id, p.order_id, p.amount, p.method, p.provider, p.status, p.provider_ref,
			p.refund_amount, p.refund_reason, p.metadata, p.created_at, p.updated_at
		FROM payments p
		JOIN orders o ON o.id = p.order_id
		WHERE 1 = 1
	`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if userID != "" {
		p := arg(userID)
		query += ` AND (o.customer_id = ` + p + ` OR o.driver_id = ` + p + `)`
	}
	if !filter.From.IsZero() {
		query += ` AND p.created_at >= ` + arg(filter.From)
	}
	if !filter.To.IsZero() {
		query += ` AND p.created_at <= ` + arg(filter.To)
	}
	if filter.Status != "" {
		query += ` AND p.status = ` + arg(filter.Status)
	}
	if filter.Method != "" {
		query += ` AND p.method = ` + arg(filter.Method)
	}
	query += ` ORDER BY p.created_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment
	var providerRef, refundReason sql.NullString
	var refundAmount sql.NullInt64
	var metadata []byte

	err := row.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.Amount,
		&payment.Method,
		&payment.Provider,
		&payment.Status,
		&providerRef,
		&refundAmount,
		&refundReason,
		&metadata,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if providerRef.Valid {
		payment.ProviderRef = providerRef.String
	}
	if refundAmount.Valid {
		payment.RefundAmount = refundAmount.Int64
	}
	if refundReason.Valid {
		payment.RefundReason = refundReason.String
	}
	payment.Metadata = metadata
	return &payment, nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
