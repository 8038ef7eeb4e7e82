package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/gateway"
	"ridehail/internal/middleware"
	"ridehail/internal/repository"
	"ridehail/internal/service"
)

// Envelope is the uniform response body for every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// respondOK sends a successful envelope.
func respondOK(c *gin.Context, code int, message string, data any) {
	c.JSON(code, Envelope{Success: true, Message: message, Data: data})
}

// respondError sends a failure envelope with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)

	message := err.Error()
	if code == http.StatusInternalServerError {
		// Internal details stay in the logs.
		message = "internal server error"
	}
	var pe *gateway.ProviderError
	if errors.As(err, &pe) {
		message = "payment provider request failed"
	}

	c.JSON(code, Envelope{Success: false, Message: message, Error: message})
}

// respondBadRequest rejects a malformed request body.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Envelope{Success: false, Message: message, Error: message})
}

// mapErrorToHTTPStatus maps service/repository/gateway errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	var pe *gateway.ProviderError
	if errors.As(err, &pe) {
		return http.StatusBadGateway
	}

	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidOrderID),
		errors.Is(err, service.ErrInvalidCustomerID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidPaymentID),
		errors.Is(err, service.ErrInvalidAddress),
		errors.Is(err, service.ErrInvalidCoordinates),
		errors.Is(err, service.ErrInvalidDistance),
		errors.Is(err, service.ErrInvalidFare),
		errors.Is(err, service.ErrInvalidDiscount),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidReview),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrAmountExceedsFare),
		errors.Is(err, service.ErrInvalidMethod),
		errors.Is(err, service.ErrInvalidProvider),
		errors.Is(err, service.ErrInvalidReason),
		errors.Is(err, service.ErrRefundExceedsPaid):
		return http.StatusBadRequest

	// Authorization errors - Forbidden
	case errors.Is(err, service.ErrNotOrderParty),
		errors.Is(err, service.ErrNotOrderCustomer),
		errors.Is(err, service.ErrNotOrderDriver),
		errors.Is(err, service.ErrSelfAssignOnly),
		errors.Is(err, service.ErrCustomerOnly):
		return http.StatusForbidden

	// Conflict errors: state guards and lost races
	case errors.Is(err, service.ErrOrderAlreadyTaken),
		errors.Is(err, service.ErrOrderNotPending),
		errors.Is(err, service.ErrOrderNotCancellable),
		errors.Is(err, service.ErrOrderNotCompleted),
		errors.Is(err, service.ErrOrderAlreadyRated),
		errors.Is(err, service.ErrOrderNotEditable),
		errors.Is(err, service.ErrOrderAlreadyPaid),
		errors.Is(err, service.ErrPaymentInProgress),
		errors.Is(err, service.ErrPaymentNotPending),
		errors.Is(err, service.ErrPaymentNotSettled),
		errors.Is(err, service.ErrPaymentBusy),
		errors.Is(err, service.ErrPaymentNoProviderRef),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// actorOrAbort pulls the authenticated actor out of the gin context.
func actorOrAbort(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, Envelope{
			Success: false,
			Message: "unauthenticated",
			Error:   "unauthenticated",
		})
		return domain.Actor{}, false
	}
	return actor, true
}
