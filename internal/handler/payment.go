package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/gateway"
	"ridehail/internal/repository"
	"ridehail/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePaymentRequest is the HTTP request body for creating a payment.
type CreatePaymentRequest struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Method   string `json:"method"`
	Provider string `json:"provider"`
}

// ProcessPaymentRequest is the HTTP request body for processing a payment.
type ProcessPaymentRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

// RefundPaymentRequest is the HTTP request body for refunding a payment.
type RefundPaymentRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// PaymentResponse is the HTTP response for payment operations.
type PaymentResponse struct {
	ID           string          `json:"id"`
	OrderID      string          `json:"order_id"`
	Amount       int64           `json:"amount"`
	Method       string          `json:"method"`
	Provider     string          `json:"provider"`
	Status       string          `json:"status"`
	ProviderRef  string          `json:"provider_ref,omitempty"`
	RefundAmount int64           `json:"refund_amount,omitempty"`
	RefundReason string          `json:"refund_reason,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// PaymentStatusResponse is the HTTP response for a live status check.
type PaymentStatusResponse struct {
	Payment   PaymentResponse `json:"payment"`
	RawStatus string          `json:"raw_status"`
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:           p.ID,
		OrderID:      p.OrderID,
		Amount:       p.Amount,
		Method:       string(p.Method),
		Provider:     string(p.Provider),
		Status:       string(p.Status),
		ProviderRef:  p.ProviderRef,
		RefundAmount: p.RefundAmount,
		RefundReason: p.RefundReason,
		Metadata:     p.Metadata,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// CreatePayment handles POST /v1/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	payment, err := h.paymentService.Create(c.Request.Context(), actor, service.CreatePaymentRequest{
		OrderID:  req.OrderID,
		Amount:   req.Amount,
		Method:   domain.PaymentMethod(req.Method),
		Provider: domain.Provider(req.Provider),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "payment created", toPaymentResponse(payment))
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "payment retrieved", toPaymentResponse(payment))
}

// ProcessPayment handles POST /v1/payments/:id/process
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	payment, err := h.paymentService.Process(c.Request.Context(), actor, c.Param("id"), gateway.CustomerDetails{
		Name:  req.CustomerName,
		Email: req.CustomerEmail,
		Phone: req.CustomerPhone,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "payment processed", toPaymentResponse(payment))
}

// RefundPayment handles POST /v1/payments/:id/refund
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	payment, err := h.paymentService.Refund(c.Request.Context(), actor, c.Param("id"), req.Amount, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "payment refunded", toPaymentResponse(payment))
}

// CheckPaymentStatus handles GET /v1/payments/:id/status
func (h *PaymentHandler) CheckPaymentStatus(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	result, err := h.paymentService.CheckStatus(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "payment status retrieved", PaymentStatusResponse{
		Payment:   toPaymentResponse(result.Payment),
		RawStatus: result.RawStatus,
	})
}

// PaymentHistory handles GET /v1/payments/history
func (h *PaymentHandler) PaymentHistory(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	filter, err := parseHistoryFilter(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	payments, err := h.paymentService.History(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}

	respondOK(c, http.StatusOK, "payment history retrieved", out)
}

func parseHistoryFilter(c *gin.Context) (repository.HistoryFilter, error) {
	var filter repository.HistoryFilter

	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return filter, fmt.Errorf("from must be an RFC3339 timestamp")
		}
		filter.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, fmt.Errorf("to must be an RFC3339 timestamp")
		}
		filter.To = t
	}
	filter.Status = domain.PaymentStatus(c.Query("status"))
	filter.Method = domain.PaymentMethod(c.Query("method"))

	return filter, nil
}
