package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"ridehail/internal/config"
	"ridehail/internal/domain"
)

// invoiceDurationSeconds is how long a Xendit invoice stays payable.
const invoiceDurationSeconds = 86400

// XenditAdapter talks to the Xendit gateway. Every payment method goes
// through the same invoice flow: the customer pays the invoice URL and the
// invoice resolves asynchronously.
type XenditAdapter struct {
	api    *apiClient
	logger *zap.Logger
}

// NewXenditAdapter creates a Xendit adapter from gateway config.
func NewXenditAdapter(cfg config.GatewayConfig, logger *zap.Logger) *XenditAdapter {
	return &XenditAdapter{
		api: newAPIClient(string(domain.ProviderXendit), cfg.BaseURL, cfg.ServerKey,
			&http.Client{Timeout: cfg.Timeout}),
		logger: logger,
	}
}

type xenditCustomer struct {
	GivenNames   string `json:"given_names"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobile_number"`
}

type xenditInvoiceRequest struct {
	ExternalID      string         `json:"external_id"`
	Amount          int64          `json:"amount"`
	Description     string         `json:"description"`
	InvoiceDuration int            `json:"invoice_duration"`
	Customer        xenditCustomer `json:"customer"`
}

type xenditInvoiceResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	InvoiceURL string `json:"invoice_url"`
	ExpiryDate string `json:"expiry_date"`
}

// Process creates an invoice for the payment. Invoices always resolve
// asynchronously, so the canonical status is processing.
func (a *XenditAdapter) Process(ctx context.Context, payment *domain.Payment, details CustomerDetails) (*Result, error) {
	req := xenditInvoiceRequest{
		ExternalID:      payment.ID,
		Amount:          payment.Amount,
		Description:     fmt.Sprintf("Payment for order %s", payment.OrderID),
		InvoiceDuration: invoiceDurationSeconds,
		Customer: xenditCustomer{
			GivenNames:   details.Name,
			Email:        details.Email,
			MobileNumber: details.Phone,
		},
	}

	raw, err := a.api.do(ctx, "create-invoice", http.MethodPost, "/v2/invoices", req, nil)
	if err != nil {
		return nil, err
	}

	var invoice xenditInvoiceResponse
	if err := json.Unmarshal(raw, &invoice); err != nil || invoice.ID == "" {
		return nil, &ProviderError{Provider: a.api.provider, Op: "create-invoice", RawBody: raw, Err: err}
	}

	metadata, _ := json.Marshal(map[string]any{
		"invoice_url": invoice.InvoiceURL,
		"expiry_date": invoice.ExpiryDate,
	})

	return &Result{
		Status:      domain.PaymentStatusProcessing,
		ProviderRef: invoice.ID,
		Metadata:    metadata,
	}, nil
}

type xenditRefundRequest struct {
	InvoiceID string `json:"invoice_id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
}

type xenditRefundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Refund returns funds for a paid invoice. The idempotency key rides the
// request header so a gateway-side retry is applied at most once.
func (a *XenditAdapter) Refund(ctx context.Context, payment *domain.Payment, amount int64, idemKey string) (*Result, error) {
	req := xenditRefundRequest{
		InvoiceID: payment.ProviderRef,
		Amount:    amount,
		Reason:    payment.RefundReason,
	}
	headers := map[string]string{"idempotency-key": idemKey}

	raw, err := a.api.do(ctx, "refund", http.MethodPost, "/refunds", req, headers)
	if err != nil {
		return nil, err
	}

	var refund xenditRefundResponse
	if err := json.Unmarshal(raw, &refund); err != nil || refund.ID == "" {
		return nil, &ProviderError{Provider: a.api.provider, Op: "refund", RawBody: raw, Err: err}
	}

	return &Result{
		Status:      domain.PaymentStatusRefunded,
		ProviderRef: refund.ID,
		Metadata:    raw,
	}, nil
}

// CheckStatus fetches the live invoice state.
func (a *XenditAdapter) CheckStatus(ctx context.Context, payment *domain.Payment) (string, json.RawMessage, error) {
	raw, err := a.api.do(ctx, "get-invoice", http.MethodGet, "/v2/invoices/"+payment.ProviderRef, nil, nil)
	if err != nil {
		return "", nil, err
	}

	var invoice xenditInvoiceResponse
	if err := json.Unmarshal(raw, &invoice); err != nil || invoice.Status == "" {
		return "", nil, &ProviderError{Provider: a.api.provider, Op: "get-invoice", RawBody: raw, Err: err}
	}

	return invoice.Status, raw, nil
}
