package tests

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/gateway"
	"ridehail/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK ORDER REPOSITORY
// ──────────────────────────────────────────────

// MockOrderRepository is a mock implementation of OrderRepository. The
// conditional writes (AssignDriver, UpdateStatus, Rate) apply their guards
// under one lock, matching the atomicity of the SQL statements they stand for.
type MockOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order

	// Counters for verification
	CreateCallCount       int32
	AssignDriverCallCount int32
	UpdateStatusCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockOrderRepository creates a new mock order repository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

// AddOrder adds an order to the mock repository.
func (m *MockOrderRepository) AddOrder(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *order
	m.orders[order.ID] = &copy
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *order
	return &copy, nil
}

func (m *MockOrderRepository) ListForActor(ctx context.Context, actor domain.Actor) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if actor.Role != domain.RoleAdmin && !actor.IsParty(o) {
			continue
		}
		copy := *o
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *order
	m.orders[order.ID] = &copy
	return nil
}

func (m *MockOrderRepository) AssignDriver(ctx context.Context, orderID, driverID string) error {
	atomic.AddInt32(&m.AssignDriverCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	if order.Status != domain.OrderStatusPending || order.DriverID != "" {
		return repository.ErrOrderTaken
	}
	order.DriverID = driverID
	order.Status = domain.OrderStatusAccepted
	order.UpdatedAt = time.Now()
	return nil
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	if order.Status != from {
		return repository.ErrStaleStatus
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	return nil
}

func (m *MockOrderRepository) UpdatePaymentStatus(ctx context.Context, id string, status domain.OrderPaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	order.PaymentStatus = status
	order.UpdatedAt = time.Now()
	return nil
}

func (m *MockOrderRepository) Rate(ctx context.Context, id string, rating int, review string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	if order.Status != domain.OrderStatusCompleted {
		return repository.ErrStaleStatus
	}
	if order.Rating != 0 {
		return repository.ErrAlreadyRated
	}
	order.Rating = rating
	order.Review = review
	order.UpdatedAt = time.Now()
	return nil
}

// GetOrder returns the order by ID (for test assertions).
func (m *MockOrderRepository) GetOrder(id string) *domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orders[id]
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository. Create
// applies the one-active-payment guard under the same lock as the insert.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment

	// Orders, when set, plays the role of the orders table History joins
	// against for party scoping.
	Orders *MockOrderRepository

	// Counters
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

// AddPayment adds a payment to the mock repository.
func (m *MockPaymentRepository) AddPayment(payment *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.ID] = payment
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.OrderID == payment.OrderID && p.Status.IsActive() {
			return repository.ErrActivePaymentExists
		}
	}
	copy := *payment
	m.payments[payment.ID] = &copy
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *payment
	return &copy, nil
}

func (m *MockPaymentRepository) UpdateResult(ctx context.Context, payment *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.payments[payment.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if !stored.Status.IsActive() {
		return repository.ErrStaleStatus
	}
	stored.Status = payment.Status
	stored.ProviderRef = payment.ProviderRef
	stored.Metadata = payment.Metadata
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *MockPaymentRepository) MarkRefunded(ctx context.Context, id string, amount int64, reason string, metadata []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment, ok := m.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if payment.Status != domain.PaymentStatusCompleted {
		return repository.ErrStaleStatus
	}
	payment.Status = domain.PaymentStatusRefunded
	payment.RefundAmount = amount
	payment.RefundReason = reason
	payment.Metadata = metadata
	payment.UpdatedAt = time.Now()
	return nil
}

func (m *MockPaymentRepository) History(ctx context.Context, userID string, filter repository.HistoryFilter) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		if userID != "" {
			if m.Orders == nil {
				continue
			}
			order := m.Orders.GetOrder(p.OrderID)
			if order == nil || (order.CustomerID != userID && order.DriverID != userID) {
				continue
			}
		}
		if !filter.From.IsZero() && p.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && p.CreatedAt.After(filter.To) {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Method != "" && p.Method != filter.Method {
			continue
		}
		copy := *p
		result = append(result, &copy)
	}
	return result, nil
}

// GetPayment returns the payment by ID (for test assertions).
func (m *MockPaymentRepository) GetPayment(id string) *domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.payments[id]
}

// CountActiveForOrder counts active payments for an order.
func (m *MockPaymentRepository) CountActiveForOrder(orderID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, p := range m.payments {
		if p.OrderID == orderID && p.Status.IsActive() {
			count++
		}
	}
	return count
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of the payment lock store.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquirePaymentLock(ctx context.Context, paymentID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:payment:" + paymentID
	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleasePaymentLock(ctx context.Context, paymentID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:payment:"+paymentID)
	return nil
}

// IsLocked checks if a payment is locked (for test assertions).
func (m *MockLockStore) IsLocked(paymentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:payment:"+paymentID]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// FAKE GATEWAY ADAPTER
// ──────────────────────────────────────────────

// FakeAdapter is a scripted gateway adapter.
type FakeAdapter struct {
	mu sync.Mutex

	// Scripted outcomes
	ProcessResult *gateway.Result
	RefundResult  *gateway.Result
	RawStatus     string
	StatusBody    json.RawMessage

	// Error injection
	ProcessError error
	RefundError  error
	StatusError  error

	// Counters and captured arguments
	ProcessCallCount int32
	RefundCallCount  int32
	StatusCallCount  int32
	LastIdemKey      string
	LastRefundAmount int64
}

// NewFakeAdapter creates a fake adapter that settles everything.
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{
		ProcessResult: &gateway.Result{
			Status:      domain.PaymentStatusCompleted,
			ProviderRef: "fake-ref",
		},
		RefundResult: &gateway.Result{
			Status:      domain.PaymentStatusRefunded,
			ProviderRef: "fake-ref",
		},
		RawStatus: "settlement",
	}
}

func (f *FakeAdapter) Process(ctx context.Context, payment *domain.Payment, details gateway.CustomerDetails) (*gateway.Result, error) {
	atomic.AddInt32(&f.ProcessCallCount, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ProcessError != nil {
		return nil, f.ProcessError
	}
	result := *f.ProcessResult
	return &result, nil
}

func (f *FakeAdapter) Refund(ctx context.Context, payment *domain.Payment, amount int64, idemKey string) (*gateway.Result, error) {
	atomic.AddInt32(&f.RefundCallCount, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastIdemKey = idemKey
	f.LastRefundAmount = amount
	if f.RefundError != nil {
		return nil, f.RefundError
	}
	result := *f.RefundResult
	return &result, nil
}

func (f *FakeAdapter) CheckStatus(ctx context.Context, payment *domain.Payment) (string, json.RawMessage, error) {
	atomic.AddInt32(&f.StatusCallCount, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StatusError != nil {
		return "", nil, f.StatusError
	}
	return f.RawStatus, f.StatusBody, nil
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
