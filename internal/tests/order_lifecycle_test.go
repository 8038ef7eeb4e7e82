package tests

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// ──────────────────────────────────────────────
// ORDER LIFECYCLE EDGE CASES
// ──────────────────────────────────────────────

func newOrderService(orderRepo *MockOrderRepository) *service.OrderService {
	return service.NewOrderService(orderRepo, service.NewNotificationService(zap.NewNop()), zap.NewNop())
}

func pendingOrder(id, customerID string) *domain.Order {
	return &domain.Order{
		ID:             id,
		CustomerID:     customerID,
		PickupAddress:  "Jl. Sudirman 1",
		DropoffAddress: "Jl. Thamrin 10",
		PickupLat:      -6.2, PickupLng: 106.8,
		DropoffLat: -6.19, DropoffLng: 106.82,
		Distance:      3.4,
		Fare:          45000,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.OrderPaymentPending,
	}
}

func TestOrder_FullLegalLifecycle(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	svc := newOrderService(orderRepo)
	ctx := context.Background()

	customer := domain.Actor{ID: "cust-1", Role: domain.RoleCustomer}
	driver := domain.Actor{ID: "drv-1", Role: domain.RoleDriver}

	order, err := svc.Create(ctx, customer, service.CreateOrderRequest{
		PickupAddress:  "Jl. Sudirman 1",
		DropoffAddress: "Jl. Thamrin 10",
		PickupLat:      -6.2, PickupLng: 106.8,
		DropoffLat: -6.19, DropoffLng: 106.82,
		Distance: 3.4,
		Fare:     45000,
	})
	if err != nil {
		t.Fatalf("create: unexpected error: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending, got %s", order.Status)
	}

	// Driver takes the order.
	order, err = svc.Update(ctx, driver, order.ID, service.UpdateOrderRequest{DriverID: "drv-1"})
	if err != nil {
		t.Fatalf("assign: unexpected error: %v", err)
	}
	if order.Status != domain.OrderStatusAccepted || order.DriverID != "drv-1" {
		t.Fatalf("expected accepted/drv-1, got %s/%s", order.Status, order.DriverID)
	}

	// Driver starts and completes the trip.
	order, err = svc.Advance(ctx, driver, order.ID, domain.OrderStatusInProgress)
	if err != nil {
		t.Fatalf("start: unexpected error: %v", err)
	}
	order, err = svc.Advance(ctx, driver, order.ID, domain.OrderStatusCompleted)
	if err != nil {
		t.Fatalf("complete: unexpected error: %v", err)
	}
	if order.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected completed, got %s", order.Status)
	}
}

func TestOrder_IllegalEdges_Rejected(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		from   domain.OrderStatus
		to     domain.OrderStatus
		driver string
	}{
		{"pending to in_progress", domain.OrderStatusPending, domain.OrderStatusInProgress, ""},
		{"pending to completed", domain.OrderStatusPending, domain.OrderStatusCompleted, ""},
		{"accepted to completed skips in_progress", domain.OrderStatusAccepted, domain.OrderStatusCompleted, "drv-1"},
		{"completed is terminal", domain.OrderStatusCompleted, domain.OrderStatusInProgress, "drv-1"},
		{"cancelled is terminal", domain.OrderStatusCancelled, domain.OrderStatusAccepted, "drv-1"},
		{"in_progress cannot cancel", domain.OrderStatusInProgress, domain.OrderStatusCancelled, "drv-1"},
		{"accepted via status update", domain.OrderStatusPending, domain.OrderStatusAccepted, ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			orderRepo := NewMockOrderRepository()
			svc := newOrderService(orderRepo)

			order := pendingOrder("order-1", "cust-1")
			order.Status = tc.from
			order.DriverID = tc.driver
			orderRepo.AddOrder(order)

			admin := domain.Actor{ID: "adm-1", Role: domain.RoleAdmin}
			_, err := svc.Advance(context.Background(), admin, "order-1", tc.to)
			if !errors.Is(err, service.ErrInvalidTransition) {
				t.Fatalf("expected invalid transition, got %v", err)
			}

			// State is untouched.
			if got := orderRepo.GetOrder("order-1").Status; got != tc.from {
				t.Errorf("order status changed to %s", got)
			}
		})
	}
}

func TestOrder_TransitionRoleGates(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	svc := newOrderService(orderRepo)
	ctx := context.Background()

	order := pendingOrder("order-1", "cust-1")
	order.Status = domain.OrderStatusAccepted
	order.DriverID = "drv-1"
	orderRepo.AddOrder(order)

	// The customer cannot start the trip.
	customer := domain.Actor{ID: "cust-1", Role: domain.RoleCustomer}
	_, err := svc.Advance(ctx, customer, "order-1", domain.OrderStatusInProgress)
	if !errors.Is(err, service.ErrNotOrderDriver) {
		t.Fatalf("expected driver-only error, got %v", err)
	}

	// A different driver cannot start it either.
	otherDriver := domain.Actor{ID: "drv-2", Role: domain.RoleDriver}
	_, err = svc.Advance(ctx, otherDriver, "order-1", domain.OrderStatusInProgress)
	if !errors.Is(err, service.ErrNotOrderDriver) {
		t.Fatalf("expected driver-only error, got %v", err)
	}

	// The assigned driver cannot cancel.
	driver := domain.Actor{ID: "drv-1", Role: domain.RoleDriver}
	_, err = svc.Advance(ctx, driver, "order-1", domain.OrderStatusCancelled)
	if !errors.Is(err, service.ErrNotOrderCustomer) {
		t.Fatalf("expected customer-only error, got %v", err)
	}

	// Admin may take any edge in the table.
	admin := domain.Actor{ID: "adm-1", Role: domain.RoleAdmin}
	if _, err := svc.Advance(ctx, admin, "order-1", domain.OrderStatusInProgress); err != nil {
		t.Fatalf("admin advance: unexpected error: %v", err)
	}
}

func TestOrder_Cancel_OnlyFromPendingOrAccepted(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	svc := newOrderService(orderRepo)
	ctx := context.Background()
	customer := domain.Actor{ID: "cust-1", Role: domain.RoleCustomer}

	order := pendingOrder("order-1", "cust-1")
	orderRepo.AddOrder(order)

	cancelled, err := svc.Cancel(ctx, customer, "order-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	// An in-progress order cannot be cancelled.
	busy := pendingOrder("order-2", "cust-1")
	busy.Status = domain.OrderStatusInProgress
	busy.DriverID = "drv-1"
	orderRepo.AddOrder(busy)

	_, err = svc.Cancel(ctx, customer, "order-2")
	if !errors.Is(err, service.ErrOrderNotCancellable) {
		t.Fatalf("expected not cancellable, got %v", err)
	}

	// Someone else's customer cannot cancel.
	other := pendingOrder("order-3", "cust-2")
	orderRepo.AddOrder(other)

	_, err = svc.Cancel(ctx, customer, "order-3")
	if !errors.Is(err, service.ErrNotOrderCustomer) {
		t.Fatalf("expected customer-only error, got %v", err)
	}
}

func TestOrder_RateOnce(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	svc := newOrderService(orderRepo)
	ctx := context.Background()
	customer := domain.Actor{ID: "cust-1", Role: domain.RoleCustomer}

	order := pendingOrder("order-1", "cust-1")
	order.Status = domain.OrderStatusCompleted
	order.DriverID = "drv-1"
	orderRepo.AddOrder(order)

	rated, err := svc.Rate(ctx, customer, "order-1", 5, "Great driver, smooth ride all the way")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rated.Rating != 5 {
		t.Fatalf("expected rating 5, got %d", rated.Rating)
	}

	// A second rating is rejected and the first survives.
	_, err = svc.Rate(ctx, customer, "order-1", 1, "Changed my mind about this trip")
	if !errors.Is(err, service.ErrOrderAlreadyRated) {
		t.Fatalf("expected already rated, got %v", err)
	}
	if got := orderRepo.GetOrder("order-1").Rating; got != 5 {
		t.Errorf("rating overwritten: got %d", got)
	}
}

func TestOrder_Rate_Validation(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	svc := newOrderService(orderRepo)
	ctx := context.Background()
	customer := domain.Actor{ID: "cust-1", Role: domain.RoleCustomer}

	order := pendingOrder("order-1", "cust-1")
	order.Status = domain.OrderStatusCompleted
	orderRepo.AddOrder(order)

	if _, err := svc.Rate(ctx, customer, "order-1", 0, ""); !errors.Is(err, service.ErrInvalidRating) {
		t.Errorf("rating 0: expected invalid rating, got %v", err)
	}
	if _, err := svc.Rate(ctx, customer, "order-1", 6, ""); !errors.Is(err, service.ErrInvalidRating) {
		t.Errorf("rating 6: expected invalid rating, got %v", err)
	}
	if _, err := svc.Rate(ctx, customer, "order-1", 4, "too short"); !errors.Is(err, service.ErrInvalidReview) {
		t.Errorf("short review: expected invalid review, got %v", err)
	}

	// Rating an order that is not completed.
	active := pendingOrder("order-2", "cust-1")
	active.Status = domain.OrderStatusInProgress
	orderRepo.AddOrder(active)

	if _, err := svc.Rate(ctx, customer, "order-2", 4, ""); !errors.Is(err, service.ErrOrderNotCompleted) {
		t.Errorf("active order: expected not completed, got %v", err)
	}
}

func TestOrder_Create_RepositoryFailurePropagates(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	orderRepo.CreateError = ErrMockTimeout
	svc := newOrderService(orderRepo)

	_, err := svc.Create(context.Background(), domain.Actor{ID: "cust-1", Role: domain.RoleCustomer},
		service.CreateOrderRequest{
			PickupAddress:  "Jl. Sudirman 1",
			DropoffAddress: "Jl. Thamrin 10",
			PickupLat:      -6.2, PickupLng: 106.8,
			DropoffLat: -6.19, DropoffLng: 106.82,
			Distance: 3.4,
			Fare:     45000,
		})
	if !errors.Is(err, ErrMockTimeout) {
		t.Fatalf("expected the repository error, got %v", err)
	}
}

func TestOrder_Create_Validation(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	svc := newOrderService(orderRepo)
	ctx := context.Background()
	customer := domain.Actor{ID: "cust-1", Role: domain.RoleCustomer}

	base := service.CreateOrderRequest{
		PickupAddress:  "Jl. Sudirman 1",
		DropoffAddress: "Jl. Thamrin 10",
		PickupLat:      -6.2, PickupLng: 106.8,
		DropoffLat: -6.19, DropoffLng: 106.82,
		Distance: 3.4,
		Fare:     45000,
	}

	missingAddr := base
	missingAddr.DropoffAddress = ""
	if _, err := svc.Create(ctx, customer, missingAddr); !errors.Is(err, service.ErrInvalidAddress) {
		t.Errorf("missing address: got %v", err)
	}

	badLat := base
	badLat.PickupLat = 91
	if _, err := svc.Create(ctx, customer, badLat); !errors.Is(err, service.ErrInvalidCoordinates) {
		t.Errorf("bad latitude: got %v", err)
	}

	zeroFare := base
	zeroFare.Fare = 0
	if _, err := svc.Create(ctx, customer, zeroFare); !errors.Is(err, service.ErrInvalidFare) {
		t.Errorf("zero fare: got %v", err)
	}

	bigDiscount := base
	bigDiscount.Discount = 50000
	if _, err := svc.Create(ctx, customer, bigDiscount); !errors.Is(err, service.ErrInvalidDiscount) {
		t.Errorf("discount above fare: got %v", err)
	}

	// Drivers cannot create orders.
	driver := domain.Actor{ID: "drv-1", Role: domain.RoleDriver}
	if _, err := svc.Create(ctx, driver, base); !errors.Is(err, service.ErrCustomerOnly) {
		t.Errorf("driver create: got %v", err)
	}
}

func TestOrder_Update_FrozenAfterAcceptance(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	svc := newOrderService(orderRepo)
	ctx := context.Background()
	customer := domain.Actor{ID: "cust-1", Role: domain.RoleCustomer}

	order := pendingOrder("order-1", "cust-1")
	order.Status = domain.OrderStatusAccepted
	order.DriverID = "drv-1"
	orderRepo.AddOrder(order)

	_, err := svc.Update(ctx, customer, "order-1", service.UpdateOrderRequest{
		DropoffAddress: "Jl. Gatot Subroto 5",
	})
	if !errors.Is(err, service.ErrOrderNotEditable) {
		t.Fatalf("expected not editable, got %v", err)
	}

	// A pending order still accepts edits.
	pending := pendingOrder("order-2", "cust-1")
	orderRepo.AddOrder(pending)

	updated, err := svc.Update(ctx, customer, "order-2", service.UpdateOrderRequest{
		DropoffAddress: "Jl. Gatot Subroto 5",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.DropoffAddress != "Jl. Gatot Subroto 5" {
		t.Errorf("dropoff not updated: %s", updated.DropoffAddress)
	}
}

func TestOrder_Get_VisibilityScoping(t *testing.T) {
	t.Parallel()

	orderRepo := NewMockOrderRepository()
	svc := newOrderService(orderRepo)
	ctx := context.Background()

	order := pendingOrder("order-1", "cust-1")
	order.DriverID = "drv-1"
	orderRepo.AddOrder(order)

	// Parties and admins can see the order.
	for _, actor := range []domain.Actor{
		{ID: "cust-1", Role: domain.RoleCustomer},
		{ID: "drv-1", Role: domain.RoleDriver},
		{ID: "adm-1", Role: domain.RoleAdmin},
	} {
		if _, err := svc.Get(ctx, actor, "order-1"); err != nil {
			t.Errorf("%s: unexpected error: %v", actor.Role, err)
		}
	}

	// A stranger cannot.
	stranger := domain.Actor{ID: "cust-2", Role: domain.RoleCustomer}
	if _, err := svc.Get(ctx, stranger, "order-1"); !errors.Is(err, service.ErrNotOrderParty) {
		t.Errorf("stranger: expected access error, got %v", err)
	}
}
