package domain

import "time"

// OrderStatus represents the current status of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// OrderPaymentStatus represents the settlement state of an order.
type OrderPaymentStatus string

const (
	OrderPaymentPending  OrderPaymentStatus = "pending"
	OrderPaymentPaid     OrderPaymentStatus = "paid"
	OrderPaymentRefunded OrderPaymentStatus = "refunded"
)

// Order represents one ride/delivery request.
type Order struct {
	ID             string
	CustomerID     string
	DriverID       string // empty until a driver accepts
	PickupAddress  string
	DropoffAddress string
	PickupLat      float64
	PickupLng      float64
	DropoffLat     float64
	DropoffLng     float64
	Distance       float64 // kilometers
	Fare           int64   // minor currency units
	Discount       int64
	PromotionID    string
	Status         OrderStatus
	PaymentStatus  OrderPaymentStatus
	Rating         int // 0 = unrated, otherwise 1-5
	Review         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OutstandingFare is the amount a payment for this order may not exceed.
func (o *Order) OutstandingFare() int64 {
	return o.Fare - o.Discount
}
