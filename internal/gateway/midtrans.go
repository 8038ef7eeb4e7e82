package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"ridehail/internal/config"
	"ridehail/internal/domain"
)

// MidtransAdapter talks to the Midtrans gateway. Card payments go through
// the tokenized Snap flow (redirect URL, resolves asynchronously); bank
// transfer and e-wallet go through the direct Core charge flow, which may
// settle synchronously.
type MidtransAdapter struct {
	api    *apiClient
	logger *zap.Logger
}

// NewMidtransAdapter creates a Midtrans adapter from gateway config.
func NewMidtransAdapter(cfg config.GatewayConfig, logger *zap.Logger) *MidtransAdapter {
	return &MidtransAdapter{
		api: newAPIClient(string(domain.ProviderMidtrans), cfg.BaseURL, cfg.ServerKey,
			&http.Client{Timeout: cfg.Timeout}),
		logger: logger,
	}
}

type midtransCustomer struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type midtransTransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type midtransChargeRequest struct {
	PaymentType        string                     `json:"payment_type"`
	TransactionDetails midtransTransactionDetails `json:"transaction_details"`
	CreditCard         *struct {
		Secure bool `json:"secure"`
	} `json:"credit_card,omitempty"`
	CustomerDetails midtransCustomer `json:"customer_details"`
}

type midtransSnapResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

type midtransTransactionResponse struct {
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	PaymentType       string `json:"payment_type"`
	StatusCode        string `json:"status_code"`
	StatusMessage     string `json:"status_message"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
}

// Process submits the payment: Snap for cards, Core charge for the rest.
func (a *MidtransAdapter) Process(ctx context.Context, payment *domain.Payment, details CustomerDetails) (*Result, error) {
	req := midtransChargeRequest{
		PaymentType: "bank_transfer",
		TransactionDetails: midtransTransactionDetails{
			OrderID:     payment.ID,
			GrossAmount: payment.Amount,
		},
		CustomerDetails: midtransCustomer{
			FirstName: details.Name,
			Email:     details.Email,
			Phone:     details.Phone,
		},
	}

	if payment.Method == domain.PaymentMethodCreditCard {
		req.PaymentType = "credit_card"
		req.CreditCard = &struct {
			Secure bool `json:"secure"`
		}{Secure: true}
		return a.processSnap(ctx, payment, req)
	}

	return a.processCharge(ctx, req)
}

// processSnap runs the tokenized/redirect flow. The transaction resolves
// after the customer completes the redirect, so the canonical status is
// always processing here.
func (a *MidtransAdapter) processSnap(ctx context.Context, payment *domain.Payment, req midtransChargeRequest) (*Result, error) {
	raw, err := a.api.do(ctx, "snap-create", http.MethodPost, "/snap/v1/transactions", req, nil)
	if err != nil {
		return nil, err
	}

	var snap midtransSnapResponse
	if err := json.Unmarshal(raw, &snap); err != nil || snap.Token == "" {
		return nil, &ProviderError{Provider: a.api.provider, Op: "snap-create", RawBody: raw, Err: err}
	}

	// Fetch the transaction record so providerRef is the Core transaction
	// id, which later refund/status calls need.
	providerRef := payment.ID
	var txn midtransTransactionResponse
	statusRaw, err := a.api.do(ctx, "status", http.MethodGet, "/v2/"+payment.ID+"/status", nil, nil)
	if err != nil {
		a.logger.Warn("snap transaction lookup failed, falling back to order id as provider ref",
			zap.String("payment_id", payment.ID),
			zap.Error(err),
		)
	} else if json.Unmarshal(statusRaw, &txn) == nil && txn.TransactionID != "" {
		providerRef = txn.TransactionID
	}

	metadata, _ := json.Marshal(map[string]any{
		"token":          snap.Token,
		"redirect_url":   snap.RedirectURL,
		"transaction_id": providerRef,
		"order_id":       payment.ID,
	})

	return &Result{
		Status:      domain.PaymentStatusProcessing,
		ProviderRef: providerRef,
		Metadata:    metadata,
	}, nil
}

// processCharge runs the direct Core charge flow; the response carries the
// transaction status, which may already be settled.
func (a *MidtransAdapter) processCharge(ctx context.Context, req midtransChargeRequest) (*Result, error) {
	raw, err := a.api.do(ctx, "charge", http.MethodPost, "/v2/charge", req, nil)
	if err != nil {
		return nil, err
	}

	var txn midtransTransactionResponse
	if err := json.Unmarshal(raw, &txn); err != nil || txn.TransactionID == "" || txn.TransactionStatus == "" {
		return nil, &ProviderError{Provider: a.api.provider, Op: "charge", RawBody: raw, Err: err}
	}

	return &Result{
		Status:      NormalizeOrFlag(a.logger, domain.ProviderMidtrans, txn.TransactionStatus),
		ProviderRef: txn.TransactionID,
		Metadata:    raw,
	}, nil
}

type midtransRefundRequest struct {
	RefundKey string `json:"refund_key"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
}

type midtransRefundResponse struct {
	RefundKey     string `json:"refund_key"`
	StatusCode    string `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

// Refund returns funds for a settled transaction. refund_key is the
// idempotency reference: Midtrans applies a given key at most once.
func (a *MidtransAdapter) Refund(ctx context.Context, payment *domain.Payment, amount int64, idemKey string) (*Result, error) {
	req := midtransRefundRequest{
		RefundKey: idemKey,
		Amount:    amount,
		Reason:    payment.RefundReason,
	}

	raw, err := a.api.do(ctx, "refund", http.MethodPost, "/v2/"+payment.ProviderRef+"/refund", req, nil)
	if err != nil {
		return nil, err
	}

	var refund midtransRefundResponse
	if err := json.Unmarshal(raw, &refund); err != nil || refund.RefundKey == "" {
		return nil, &ProviderError{Provider: a.api.provider, Op: "refund", RawBody: raw, Err: err}
	}

	return &Result{
		Status:      domain.PaymentStatusRefunded,
		ProviderRef: refund.RefundKey,
		Metadata:    raw,
	}, nil
}

// CheckStatus fetches the gateway's live transaction status.
func (a *MidtransAdapter) CheckStatus(ctx context.Context, payment *domain.Payment) (string, json.RawMessage, error) {
	raw, err := a.api.do(ctx, "status", http.MethodGet, "/v2/"+payment.ProviderRef+"/status", nil, nil)
	if err != nil {
		return "", nil, err
	}

	var txn midtransTransactionResponse
	if err := json.Unmarshal(raw, &txn); err != nil || txn.TransactionStatus == "" {
		return "", nil, &ProviderError{Provider: a.api.provider, Op: "status", RawBody: raw, Err: err}
	}

	return txn.TransactionStatus, raw, nil
}
