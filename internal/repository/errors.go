package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrOrderTaken is returned when a driver assignment compare-and-swap
	// loses: the order exists but is no longer pending and unassigned.
	ErrOrderTaken = errors.New("order already taken")

	// ErrActivePaymentExists is returned when a payment insert is rejected
	// because the order already has a payment in pending or processing.
	ErrActivePaymentExists = errors.New("order already has an active payment")

	// ErrStaleStatus is returned when a conditional status update finds the
	// row in a different state than expected.
	ErrStaleStatus = errors.New("entity status changed concurrently")

	// ErrAlreadyRated is returned when a rating write finds the order
	// already rated.
	ErrAlreadyRated = errors.New("order already rated")
)
