package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// OrderService owns the order lifecycle: creation, driver assignment,
// role-gated status transitions, cancellation and rating. Every guard
// failure is a synchronous error; nothing here contacts a gateway.
type OrderService struct {
	orderRepo           repository.OrderRepository
	notificationService *NotificationService
	logger              *zap.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repository.OrderRepository, notificationService *NotificationService, logger *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo:           orderRepo,
		notificationService: notificationService,
		logger:              logger,
	}
}

// CreateOrderRequest contains the parameters for creating an order.
type CreateOrderRequest struct {
	CustomerID     string // admin may create on behalf of a customer
	PickupAddress  string
	DropoffAddress string
	PickupLat      float64
	PickupLng      float64
	DropoffLat     float64
	DropoffLng     float64
	Distance       float64
	Fare           int64
	Discount       int64
	PromotionID    string
}

// Create creates a new order in pending state.
func (s *OrderService) Create(ctx context.Context, actor domain.Actor, req CreateOrderRequest) (*domain.Order, error) {
	customerID := actor.ID
	switch actor.Role {
	case domain.RoleCustomer:
	case domain.RoleAdmin:
		if req.CustomerID != "" {
			customerID = req.CustomerID
		}
	default:
		return nil, ErrCustomerOnly
	}

	if err := validateCreateOrder(req); err != nil {
		return nil, err
	}

	now := time.Now()
	order := &domain.Order{
		ID:             uuid.New().String(),
		CustomerID:     customerID,
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
		PickupLat:      req.PickupLat,
		PickupLng:      req.PickupLng,
		DropoffLat:     req.DropoffLat,
		DropoffLng:     req.DropoffLng,
		Distance:       req.Distance,
		Fare:           req.Fare,
		Discount:       req.Discount,
		PromotionID:    req.PromotionID,
		Status:         domain.OrderStatusPending,
		PaymentStatus:  domain.OrderPaymentPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyOrderCreated(ctx, order)
	}

	return order, nil
}

func validateCreateOrder(req CreateOrderRequest) error {
	if req.PickupAddress == "" || req.DropoffAddress == "" {
		return ErrInvalidAddress
	}
	if !validLatitude(req.PickupLat) || !validLongitude(req.PickupLng) ||
		!validLatitude(req.DropoffLat) || !validLongitude(req.DropoffLng) {
		return ErrInvalidCoordinates
	}
	if req.Distance <= 0 {
		return ErrInvalidDistance
	}
	if req.Fare <= 0 {
		return ErrInvalidFare
	}
	if req.Discount < 0 || req.Discount > req.Fare {
		return ErrInvalidDiscount
	}
	return nil
}

func validLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func validLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

// List retrieves orders scoped to the actor.
func (s *OrderService) List(ctx context.Context, actor domain.Actor) ([]*domain.Order, error) {
	return s.orderRepo.ListForActor(ctx, actor)
}

// Get retrieves one order; only parties and admins may see it.
func (s *OrderService) Get(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if actor.Role != domain.RoleAdmin && !actor.IsParty(order) {
		return nil, ErrNotOrderParty
	}

	return order, nil
}

// UpdateOrderRequest contains the updatable order fields. A driver setting
// DriverID is the self-assignment path; everything else edits trip details.
type UpdateOrderRequest struct {
	DriverID       string
	PickupAddress  string
	DropoffAddress string
	Discount       *int64
	PromotionID    string
}

// Update applies a general order update. Driver self-assignment runs as a
// compare-and-swap against the store so two racing drivers can never both
// win; the loser gets a conflict, not a partial write.
func (s *OrderService) Update(ctx context.Context, actor domain.Actor, orderID string, req UpdateOrderRequest) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if req.DriverID != "" && actor.Role == domain.RoleDriver {
		return s.assignDriver(ctx, order, actor, req.DriverID)
	}

	if actor.Role != domain.RoleAdmin && !actor.IsParty(order) {
		return nil, ErrNotOrderParty
	}
	// Trip details are frozen once a driver has the order.
	if order.Status != domain.OrderStatusPending {
		return nil, ErrOrderNotEditable
	}

	if req.PickupAddress != "" {
		order.PickupAddress = req.PickupAddress
	}
	if req.DropoffAddress != "" {
		order.DropoffAddress = req.DropoffAddress
	}
	if req.Discount != nil {
		if *req.Discount < 0 || *req.Discount > order.Fare {
			return nil, ErrInvalidDiscount
		}
		order.Discount = *req.Discount
	}
	if req.PromotionID != "" {
		order.PromotionID = req.PromotionID
	}

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// assignDriver is the driver self-assignment path: the driver must be
// claiming the order for themself, and the pending+unassigned check is
// applied atomically by the repository.
func (s *OrderService) assignDriver(ctx context.Context, order *domain.Order, actor domain.Actor, driverID string) (*domain.Order, error) {
	if driverID != actor.ID {
		return nil, ErrSelfAssignOnly
	}
	if order.DriverID != "" {
		return nil, ErrOrderAlreadyTaken
	}
	if order.Status != domain.OrderStatusPending {
		return nil, ErrOrderNotPending
	}

	err := s.orderRepo.AssignDriver(ctx, order.ID, driverID)
	if err != nil {
		if err == repository.ErrOrderTaken {
			s.logger.Info("driver lost assignment race",
				zap.String("order_id", order.ID),
				zap.String("driver_id", driverID),
			)
			return nil, ErrOrderAlreadyTaken
		}
		return nil, err
	}

	fresh, err := s.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		_ = s.notificationService.NotifyDriverAssigned(ctx, fresh)
	}

	return fresh, nil
}

// Advance transitions the order status along one edge of the transition
// table. Drivers must be the order's assigned driver; admins may take any
// edge the table contains; everything else is rejected.
func (s *OrderService) Advance(ctx context.Context, actor domain.Actor, orderID string, target domain.OrderStatus) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if !domain.ValidOrderStatus(target) {
		return nil, ErrInvalidStatus
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	edgeOK, actorOK := domain.TransitionAllowed(order, actor, target)
	if !edgeOK {
		return nil, fmt.Errorf("%w from %s to %s", ErrInvalidTransition, order.Status, target)
	}
	if !actorOK {
		if target == domain.OrderStatusCancelled {
			return nil, ErrNotOrderCustomer
		}
		return nil, ErrNotOrderDriver
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, order.Status, target); err != nil {
		if err == repository.ErrStaleStatus {
			return nil, fmt.Errorf("%w from %s to %s", ErrInvalidTransition, order.Status, target)
		}
		return nil, err
	}
	order.Status = target

	if s.notificationService != nil {
		_ = s.notificationService.NotifyOrderStatusChanged(ctx, order)
	}

	return order, nil
}

// Cancel cancels an order from pending or accepted state.
func (s *OrderService) Cancel(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusPending && order.Status != domain.OrderStatusAccepted {
		return nil, ErrOrderNotCancellable
	}
	if actor.Role != domain.RoleAdmin && actor.ID != order.CustomerID {
		return nil, ErrNotOrderCustomer
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, order.Status, domain.OrderStatusCancelled); err != nil {
		if err == repository.ErrStaleStatus {
			return nil, ErrOrderNotCancellable
		}
		return nil, err
	}
	order.Status = domain.OrderStatusCancelled

	if s.notificationService != nil {
		_ = s.notificationService.NotifyOrderCancelled(ctx, order, actor.ID)
	}

	return order, nil
}

// Rate attaches a rating to a completed order. Re-rating is rejected, never
// overwritten; the completed+unrated check is applied atomically by the
// repository.
func (s *OrderService) Rate(ctx context.Context, actor domain.Actor, orderID string, rating int, review string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	if review != "" && (len(review) < 10 || len(review) > 500) {
		return nil, ErrInvalidReview
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusCompleted {
		return nil, ErrOrderNotCompleted
	}
	if actor.Role != domain.RoleAdmin && actor.ID != order.CustomerID {
		return nil, ErrNotOrderCustomer
	}
	if order.Rating != 0 {
		return nil, ErrOrderAlreadyRated
	}

	if err := s.orderRepo.Rate(ctx, orderID, rating, review); err != nil {
		switch err {
		case repository.ErrAlreadyRated:
			return nil, ErrOrderAlreadyRated
		case repository.ErrStaleStatus:
			return nil, ErrOrderNotCompleted
		}
		return nil, err
	}

	order.Rating = rating
	order.Review = review
	return order, nil
}

// Track returns the order snapshot for tracking; live driver location is
// served by the location service, not this subsystem.
func (s *OrderService) Track(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	return s.Get(ctx, actor, orderID)
}
