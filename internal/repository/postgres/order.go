package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// OrderRepository is a PostgreSQL implementation of repository.OrderRepository.
type OrderRepository struct {
	q Querier
}

// NewOrderRepository creates a new PostgreSQL order repository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{q: db}
}

// NewOrderRepositoryWithTx creates an order repository using a transaction.
func NewOrderRepositoryWithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{q: tx}
}

const orderColumns = `id, customer_id, driver_id, pickup_address, dropoff_address,
	pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, distance, fare, discount,
	promotion_id, status, payment_status, rating, review, created_at, updated_at`

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.q.ExecContext(ctx, query,
		order.ID,
		order.CustomerID,
		nullString(order.DriverID),
		order.PickupAddress,
		order.DropoffAddress,
		order.PickupLat,
		order.PickupLng,
		order.DropoffLat,
		order.DropoffLng,
		order.Distance,
		order.Fare,
		order.Discount,
		nullString(order.PromotionID),
		order.Status,
		order.PaymentStatus,
		nullInt(order.Rating),
		nullString(order.Review),
		order.CreatedAt,
		order.UpdatedAt,
	)

	return err
}

// GetByID retrieves an order by ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

// ListForActor retrieves orders visible to the actor.
func (r *OrderRepository) ListForActor(ctx context.Context, actor domain.Actor) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any

	switch actor.Role {
	case domain.RoleCustomer:
		query += ` WHERE customer_id = $1`
		args = append(args, actor.ID)
	case domain.RoleDriver:
		query += ` WHERE driver_id = $1`
		args = append(args, actor.ID)
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// Update updates an existing order's mutable fields.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET pickup_address = $1, dropoff_address = $2, pickup_lat = $3, pickup_lng = $4,
			dropoff_lat = $5, dropoff_lng = $6, distance = $7, fare = $8, discount = $9,
			promotion_id = $10, updated_at = now()
		WHERE id = $11
	`

	result, err := r.q.ExecContext(ctx, query,
		order.PickupAddress,
		order.DropoffAddress,
		order.PickupLat,
		order.PickupLng,
		order.DropoffLat,
		order.DropoffLng,
		order.Distance,
		order.Fare,
		order.Discount,
		nullString(order.PromotionID),
		order.ID,
	)
	if err != nil {
		return err
	}
	return checkAffected(result, repository.ErrNotFound)
}

// AssignDriver atomically assigns a driver to a pending, unassigned order.
// The WHERE clause is the compare-and-swap: the losing racer matches zero
// rows and is told the order is taken.
func (r *OrderRepository) AssignDriver(ctx context.Context, orderID, driverID string) error {
	query := `
		UPDATE orders
		SET driver_id = $1, status = $2, updated_at = now()
		WHERE id = $3 AND status = $4 AND driver_id IS NULL
	`

	result, err := r.q.ExecContext(ctx, query,
		driverID, domain.OrderStatusAccepted, orderID, domain.OrderStatusPending)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return r.classifyMiss(ctx, orderID, repository.ErrOrderTaken)
	}
	return nil
}

// UpdateStatus performs a conditional status transition.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	query := `UPDATE orders SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`

	result, err := r.q.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return r.classifyMiss(ctx, id, repository.ErrStaleStatus)
	}
	return nil
}

// UpdatePaymentStatus sets the order's settlement state.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id string, status domain.OrderPaymentStatus) error {
	query := `UPDATE orders SET payment_status = $1, updated_at = now() WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffected(result, repository.ErrNotFound)
}

// Rate atomically attaches a rating to a completed, unrated order.
func (r *OrderRepository) Rate(ctx context.Context, id string, rating int, review string) error {
	query := `
		UPDATE orders
		SET rating = $1, review = $2, updated_at = now()
		WHERE id = $3 AND status = $4 AND rating IS NULL
	`

	result, err := r.q.ExecContext(ctx, query,
		rating, nullString(review), id, domain.OrderStatusCompleted)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		order, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if order.Rating != 0 {
			return repository.ErrAlreadyRated
		}
		return repository.ErrStaleStatus
	}
	return nil
}

// classifyMiss distinguishes "row gone" from "row in another state" after a
// conditional update matched nothing.
func (r *OrderRepository) classifyMiss(ctx context.Context, id string, conflict error) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return conflict
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var driverID, promotionID, review sql.NullString
	var rating sql.NullInt64

	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&driverID,
		&order.PickupAddress,
		&order.DropoffAddress,
		&order.PickupLat,
		&order.PickupLng,
		&order.DropoffLat,
		&order.DropoffLng,
		&order.Distance,
		&order.Fare,
		&order.Discount,
		&promotionID,
		&order.Status,
		&order.PaymentStatus,
		&rating,
		&review,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		order.DriverID = driverID.String
	}
	if promotionID.Valid {
		order.PromotionID = promotionID.String
	}
	if rating.Valid {
		order.Rating = int(rating.Int64)
	}
	if review.Valid {
		order.Review = review.String
	}
	return &order, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

func checkAffected(result sql.Result, missing error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return missing
	}
	return nil
}
