package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// errQuerier returns a scripted error from every statement.
type errQuerier struct {
	err error
}

func (q errQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, q.err
}

func (q errQuerier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return nil
}

func (q errQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, q.err
}

func TestPaymentCreate_UniqueViolationMapsToActivePaymentExists(t *testing.T) {
	t.Parallel()

	repo := &PaymentRepository{q: errQuerier{err: &pq.Error{
		Code:       "23505",
		Constraint: "payments_one_active_per_order",
	}}}

	err := repo.Create(context.Background(), &domain.Payment{
		ID:        "pay-1",
		OrderID:   "order-1",
		Amount:    45000,
		Method:    domain.PaymentMethodBankTransfer,
		Provider:  domain.ProviderMidtrans,
		Status:    domain.PaymentStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	if !errors.Is(err, repository.ErrActivePaymentExists) {
		t.Fatalf("expected ErrActivePaymentExists, got %v", err)
	}
}

func TestPaymentCreate_OtherErrorsPassThrough(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("connection reset")
	repo := &PaymentRepository{q: errQuerier{err: dbErr}}

	err := repo.Create(context.Background(), &domain.Payment{ID: "pay-1", OrderID: "order-1"})
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected the raw database error, got %v", err)
	}
}
