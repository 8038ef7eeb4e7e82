package service

import "errors"

// Validation errors: malformed input, rejected before any state change.
var (
	ErrInvalidOrderID     = errors.New("invalid order id")
	ErrInvalidCustomerID  = errors.New("invalid customer id")
	ErrInvalidDriverID    = errors.New("invalid driver id")
	ErrInvalidPaymentID   = errors.New("invalid payment id")
	ErrInvalidAddress     = errors.New("pickup and dropoff addresses are required")
	ErrInvalidCoordinates = errors.New("invalid pickup or dropoff coordinates")
	ErrInvalidDistance    = errors.New("distance must be positive")
	ErrInvalidFare        = errors.New("fare must be positive")
	ErrInvalidDiscount    = errors.New("discount must be between zero and the fare")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
	ErrInvalidReview      = errors.New("review must be between 10 and 500 characters")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrAmountExceedsFare  = errors.New("amount exceeds the order's outstanding fare")
	ErrInvalidMethod      = errors.New("invalid payment method")
	ErrInvalidProvider    = errors.New("invalid payment provider")
	ErrInvalidReason      = errors.New("refund reason must be between 10 and 500 characters")
	ErrRefundExceedsPaid  = errors.New("refund amount exceeds payment amount")
)

// Authorization errors: actor lacks role or ownership for the operation.
var (
	ErrNotOrderParty    = errors.New("you do not have access to this order")
	ErrNotOrderCustomer = errors.New("only the order's customer can do this")
	ErrNotOrderDriver   = errors.New("only the order's assigned driver can do this")
	ErrSelfAssignOnly   = errors.New("a driver can only take an order for themself")
	ErrCustomerOnly     = errors.New("only customers can create orders")
)

// Conflict errors: state guards, lost races, duplicate in-flight work.
var (
	ErrOrderAlreadyTaken    = errors.New("order already taken by another driver")
	ErrOrderNotPending      = errors.New("order can no longer be taken")
	ErrOrderNotCancellable  = errors.New("order cannot be cancelled in its current status")
	ErrOrderNotCompleted    = errors.New("order is not completed yet")
	ErrOrderAlreadyRated    = errors.New("order already rated")
	ErrOrderNotEditable     = errors.New("order can no longer be edited")
	ErrOrderAlreadyPaid     = errors.New("order already has payment")
	ErrPaymentInProgress    = errors.New("order already has a payment in progress")
	ErrPaymentNotPending    = errors.New("payment already processed")
	ErrPaymentNotSettled    = errors.New("Only settled payments can be refunded")
	ErrPaymentBusy          = errors.New("payment is being processed by another request")
	ErrPaymentNoProviderRef = errors.New("payment has no provider reference yet")
)

// ErrInvalidTransition is the base error for illegal order status edges;
// callers wrap it with the concrete from/to pair.
var ErrInvalidTransition = errors.New("invalid transition")
