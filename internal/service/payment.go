package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ridehail/internal/domain"
	"ridehail/internal/gateway"
	"ridehail/internal/middleware"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
	"ridehail/internal/repository/postgres"
)

const paymentLockTTL = 30 * time.Second

// TxRunner begins database transactions for multi-row commits. Nil is
// accepted in tests, in which case writes go through the plain repositories.
type TxRunner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// PaymentLocker serializes provider calls per payment.
type PaymentLocker interface {
	AcquirePaymentLock(ctx context.Context, paymentID string, ttl time.Duration) (bool, error)
	ReleasePaymentLock(ctx context.Context, paymentID string) error
}

// Ensure the redis store satisfies the locker contract.
var _ PaymentLocker = (*redis.LockStore)(nil)

// PaymentService orchestrates the payment lifecycle across the two
// gateways: it selects the adapter by provider, enforces the cross-entity
// invariants and propagates settlement into the order's payment status.
type PaymentService struct {
	db                  TxRunner
	paymentRepo         repository.PaymentRepository
	orderRepo           repository.OrderRepository
	adapters            gateway.Registry
	locks               PaymentLocker
	notificationService *NotificationService
	logger              *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	db TxRunner,
	paymentRepo repository.PaymentRepository,
	orderRepo repository.OrderRepository,
	adapters gateway.Registry,
	locks PaymentLocker,
	notificationService *NotificationService,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		db:                  db,
		paymentRepo:         paymentRepo,
		orderRepo:           orderRepo,
		adapters:            adapters,
		locks:               locks,
		notificationService: notificationService,
		logger:              logger,
	}
}

// CreatePaymentRequest contains the parameters for creating a payment.
type CreatePaymentRequest struct {
	OrderID  string
	Amount   int64
	Method   domain.PaymentMethod
	Provider domain.Provider
}

// Create creates a new pending payment for an order. The one-active-payment
// guard is enforced by the repository in a single atomic statement, so two
// racing creates cannot both succeed.
func (s *PaymentService) Create(ctx context.Context, actor domain.Actor, req CreatePaymentRequest) (*domain.Payment, error) {
	if req.OrderID == "" {
		return nil, ErrInvalidOrderID
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !req.Method.Valid() {
		return nil, ErrInvalidMethod
	}
	if !req.Provider.Valid() {
		return nil, ErrInvalidProvider
	}

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if actor.Role != domain.RoleAdmin && actor.ID != order.CustomerID {
		return nil, ErrNotOrderCustomer
	}
	if order.PaymentStatus != domain.OrderPaymentPending {
		return nil, ErrOrderAlreadyPaid
	}
	if req.Amount > order.OutstandingFare() {
		return nil, ErrAmountExceedsFare
	}

	now := time.Now()
	payment := &domain.Payment{
		ID:        uuid.New().String(),
		OrderID:   req.OrderID,
		Amount:    req.Amount,
		Method:    req.Method,
		Provider:  req.Provider,
		Status:    domain.PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if err == repository.ErrActivePaymentExists {
			return nil, ErrPaymentInProgress
		}
		return nil, err
	}

	return payment, nil
}

// Get retrieves one payment; only the order's parties and admins may see it.
func (s *PaymentService) Get(ctx context.Context, actor domain.Actor, paymentID string) (*domain.Payment, error) {
	payment, _, err := s.getWithOrder(ctx, actor, paymentID)
	return payment, err
}

func (s *PaymentService) getWithOrder(ctx context.Context, actor domain.Actor, paymentID string) (*domain.Payment, *domain.Order, error) {
	if paymentID == "" {
		return nil, nil, ErrInvalidPaymentID
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, nil, err
	}

	if actor.Role != domain.RoleAdmin && !actor.IsParty(order) {
		return nil, nil, ErrNotOrderParty
	}

	return payment, order, nil
}

// Process settles a pending payment through its provider. Guard failures
// return before any provider traffic. On provider success the payment row
// and, when the charge settled synchronously, the order's paid flag are
// committed in one transaction; on provider failure local state is
// untouched and the caller reconciles through CheckStatus.
func (s *PaymentService) Process(ctx context.Context, actor domain.Actor, paymentID string, details gateway.CustomerDetails) (*domain.Payment, error) {
	payment, order, err := s.getWithOrder(ctx, actor, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status != domain.PaymentStatusPending {
		return nil, ErrPaymentNotPending
	}

	adapter, ok := s.adapters.Lookup(payment.Provider)
	if !ok {
		return nil, ErrInvalidProvider
	}

	release, err := s.lock(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	// The pending guard above ran before the lock was held. A request that
	// waited here while a competing process settled the payment would
	// otherwise act on its stale read and charge the gateway twice, so
	// re-read now that the lock is ours.
	payment, err = s.paymentRepo.GetByID(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.PaymentStatusPending {
		return nil, ErrPaymentNotPending
	}

	result, err := adapter.Process(ctx, payment, details)
	if err != nil {
		s.logProviderError("process", payment, err)
		middleware.RecordPaymentProcessed("provider_error")
		return nil, err
	}

	payment.Status = result.Status
	payment.ProviderRef = result.ProviderRef
	payment.Metadata = result.Metadata

	if err := s.commitProcessResult(ctx, payment, order); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, ErrPaymentNotPending
		}
		return nil, err
	}

	middleware.RecordPaymentProcessed(string(payment.Status))
	if s.notificationService != nil {
		_ = s.notificationService.NotifyPaymentProcessed(ctx, payment, order.CustomerID)
	}

	return payment, nil
}

// commitProcessResult writes the provider outcome. The payment row and the
// order's paid flag land in the same transaction so a settled charge can
// never be visible without its order marked paid.
func (s *PaymentService) commitProcessResult(ctx context.Context, payment *domain.Payment, order *domain.Order) error {
	paymentRepo := s.paymentRepo
	orderRepo := s.orderRepo

	var tx *sql.Tx
	if s.db != nil {
		var err error
		tx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() {
			if tx != nil {
				_ = tx.Rollback()
			}
		}()
		paymentRepo = postgres.NewPaymentRepositoryWithTx(tx)
		orderRepo = postgres.NewOrderRepositoryWithTx(tx)
	}

	if err := paymentRepo.UpdateResult(ctx, payment); err != nil {
		return err
	}
	if payment.Status == domain.PaymentStatusCompleted {
		if err := orderRepo.UpdatePaymentStatus(ctx, order.ID, domain.OrderPaymentPaid); err != nil {
			return err
		}
		order.PaymentStatus = domain.OrderPaymentPaid
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return err
		}
		tx = nil
	}
	return nil
}

// Refund returns funds on a settled payment. All guards run before the
// provider call; the completed→refunded transition is a conditional update
// so two racing refunds cannot both win, and the adapter call carries an
// idempotency reference derived from the payment id so a provider-side
// retry cannot double-refund.
func (s *PaymentService) Refund(ctx context.Context, actor domain.Actor, paymentID string, amount int64, reason string) (*domain.Payment, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(reason) < 10 || len(reason) > 500 {
		return nil, ErrInvalidReason
	}

	payment, order, err := s.getWithOrder(ctx, actor, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status != domain.PaymentStatusCompleted {
		return nil, ErrPaymentNotSettled
	}
	if amount > payment.Amount {
		return nil, ErrRefundExceedsPaid
	}
	if payment.ProviderRef == "" {
		return nil, ErrPaymentNoProviderRef
	}

	adapter, ok := s.adapters.Lookup(payment.Provider)
	if !ok {
		return nil, ErrInvalidProvider
	}

	release, err := s.lock(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	payment.RefundReason = reason
	idemKey := fmt.Sprintf("refund-%s", payment.ID)

	result, err := adapter.Refund(ctx, payment, amount, idemKey)
	if err != nil {
		s.logProviderError("refund", payment, err)
		return nil, err
	}

	if err := s.commitRefund(ctx, payment, order, amount, reason, result.Metadata); err != nil {
		return nil, err
	}

	payment.Status = domain.PaymentStatusRefunded
	payment.RefundAmount = amount
	payment.Metadata = result.Metadata

	middleware.RecordPaymentRefunded()
	if s.notificationService != nil {
		_ = s.notificationService.NotifyPaymentRefunded(ctx, payment, order.CustomerID)
	}

	return payment, nil
}

// commitRefund lands the refunded payment and the order's refunded flag in
// one transaction. The conditional update is the final guard: if anything
// raced past the lock, the commit loses cleanly.
func (s *PaymentService) commitRefund(ctx context.Context, payment *domain.Payment, order *domain.Order, amount int64, reason string, metadata []byte) error {
	paymentRepo := s.paymentRepo
	orderRepo := s.orderRepo

	var tx *sql.Tx
	if s.db != nil {
		var err error
		tx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() {
			if tx != nil {
				_ = tx.Rollback()
			}
		}()
		paymentRepo = postgres.NewPaymentRepositoryWithTx(tx)
		orderRepo = postgres.NewOrderRepositoryWithTx(tx)
	}

	if err := paymentRepo.MarkRefunded(ctx, payment.ID, amount, reason, metadata); err != nil {
		if err == repository.ErrStaleStatus {
			return ErrPaymentNotSettled
		}
		return err
	}
	if err := orderRepo.UpdatePaymentStatus(ctx, order.ID, domain.OrderPaymentRefunded); err != nil {
		return err
	}
	order.PaymentStatus = domain.OrderPaymentRefunded

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return err
		}
		tx = nil
	}
	return nil
}

// StatusResult is the outcome of a live status check.
type StatusResult struct {
	Payment   *domain.Payment
	RawStatus string
}

// CheckStatus asks the gateway for the live settlement state and
// re-normalizes it; the stored status is never trusted as current. Forward
// movement learned from the gateway (processing→completed/failed) is
// persisted here — this is the reconciliation path for responses lost
// between the provider call and the local write.
func (s *PaymentService) CheckStatus(ctx context.Context, actor domain.Actor, paymentID string) (*StatusResult, error) {
	payment, order, err := s.getWithOrder(ctx, actor, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.ProviderRef == "" {
		return nil, ErrPaymentNoProviderRef
	}

	adapter, ok := s.adapters.Lookup(payment.Provider)
	if !ok {
		return nil, ErrInvalidProvider
	}

	rawStatus, metadata, err := adapter.CheckStatus(ctx, payment)
	if err != nil {
		s.logProviderError("status", payment, err)
		return nil, err
	}

	live := gateway.NormalizeOrFlag(s.logger, payment.Provider, rawStatus)

	if payment.Status == domain.PaymentStatusProcessing && !live.IsActive() {
		if err := s.reconcile(ctx, payment, order, live, metadata); err != nil {
			return nil, err
		}
	}

	return &StatusResult{Payment: payment, RawStatus: rawStatus}, nil
}

// reconcile persists a settlement outcome learned from a status check.
func (s *PaymentService) reconcile(ctx context.Context, payment *domain.Payment, order *domain.Order, live domain.PaymentStatus, metadata []byte) error {
	prior := payment.Status
	payment.Status = live
	if len(metadata) > 0 {
		payment.Metadata = metadata
	}

	if err := s.commitProcessResult(ctx, payment, order); err != nil {
		payment.Status = prior
		if errors.Is(err, repository.ErrStaleStatus) {
			// A concurrent request already persisted the settlement;
			// pick up its result instead of failing the check.
			fresh, ferr := s.paymentRepo.GetByID(ctx, payment.ID)
			if ferr != nil {
				return ferr
			}
			*payment = *fresh
			return nil
		}
		return err
	}

	s.logger.Info("payment reconciled from gateway",
		zap.String("payment_id", payment.ID),
		zap.String("status", string(payment.Status)),
	)
	middleware.RecordPaymentProcessed(string(payment.Status))
	return nil
}

// History lists payments visible to the actor, newest first. Admins see
// everything; everyone else sees payments on orders they are party to.
func (s *PaymentService) History(ctx context.Context, actor domain.Actor, filter repository.HistoryFilter) ([]*domain.Payment, error) {
	userID := actor.ID
	if actor.Role == domain.RoleAdmin {
		userID = ""
	}
	return s.paymentRepo.History(ctx, userID, filter)
}

// lock takes the per-payment single-flight lock; the no-op release supports
// lockless test wiring.
func (s *PaymentService) lock(ctx context.Context, paymentID string) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}

	ok, err := s.locks.AcquirePaymentLock(ctx, paymentID, paymentLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPaymentBusy
	}
	return func() {
		_ = s.locks.ReleasePaymentLock(context.WithoutCancel(ctx), paymentID)
	}, nil
}

// logProviderError records the gateway failure with the raw body attached;
// clients only ever see the sanitized envelope.
func (s *PaymentService) logProviderError(op string, payment *domain.Payment, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("payment_id", payment.ID),
		zap.String("provider", string(payment.Provider)),
		zap.Error(err),
	}
	if pe, ok := err.(*gateway.ProviderError); ok && len(pe.RawBody) > 0 {
		fields = append(fields, zap.ByteString("raw_body", pe.RawBody))
	}
	s.logger.Error("provider call failed", fields...)
}
