package repository

import (
	"context"

	"ridehail/internal/domain"
)

// OrderRepository defines the persistence operations for orders.
type OrderRepository interface {
	// Create persists a new order.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by ID.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// ListForActor retrieves orders visible to the given actor: customers
	// see their own orders, drivers see orders assigned to them, admins see
	// everything.
	ListForActor(ctx context.Context, actor domain.Actor) ([]*domain.Order, error)

	// Update updates an existing order's mutable fields.
	Update(ctx context.Context, order *domain.Order) error

	// AssignDriver atomically sets the driver and moves the order from
	// pending to accepted. The check (status = pending AND driver unset)
	// and the write are one conditional update; a losing racer gets
	// ErrOrderTaken, never a partial assignment.
	AssignDriver(ctx context.Context, orderID, driverID string) error

	// UpdateStatus performs a conditional status transition from→to.
	// Returns ErrStaleStatus if the row is no longer in the from status.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error

	// UpdatePaymentStatus sets the order's settlement state.
	UpdatePaymentStatus(ctx context.Context, id string, status domain.OrderPaymentStatus) error

	// Rate atomically attaches a rating to a completed, unrated order.
	// Returns ErrAlreadyRated if a rating exists, ErrStaleStatus if the
	// order is not completed.
	Rate(ctx context.Context, id string, rating int, review string) error
}
