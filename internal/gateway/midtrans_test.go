package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"ridehail/internal/config"
	"ridehail/internal/domain"
)

func newMidtransAdapter(t *testing.T, handler http.Handler) *MidtransAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewMidtransAdapter(config.GatewayConfig{
		BaseURL:   srv.URL,
		ServerKey: "sb-server-key",
		Timeout:   2 * time.Second,
	}, zap.NewNop())
}

func midtransPayment(method domain.PaymentMethod) *domain.Payment {
	return &domain.Payment{
		ID:       "pay-1",
		OrderID:  "order-1",
		Amount:   45000,
		Method:   method,
		Provider: domain.ProviderMidtrans,
		Status:   domain.PaymentStatusPending,
	}
}

func TestMidtrans_CardUsesSnapFlow(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/snap/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		var req midtransChargeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.PaymentType != "credit_card" {
			t.Errorf("expected credit_card, got %s", req.PaymentType)
		}
		if req.CreditCard == nil || !req.CreditCard.Secure {
			t.Error("expected 3DS to be requested")
		}
		json.NewEncoder(w).Encode(midtransSnapResponse{
			Token:       "snap-token-1",
			RedirectURL: "https://app.sandbox.midtrans.com/snap/v4/redirection/snap-token-1",
		})
	})
	mux.HandleFunc("/v2/pay-1/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(midtransTransactionResponse{
			TransactionID:     "mid-txn-1",
			TransactionStatus: "pending",
		})
	})

	adapter := newMidtransAdapter(t, mux)
	result, err := adapter.Process(context.Background(), midtransPayment(domain.PaymentMethodCreditCard), CustomerDetails{
		Name: "Budi", Email: "budi@example.com", Phone: "+628111",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The redirect flow never settles synchronously.
	if result.Status != domain.PaymentStatusProcessing {
		t.Errorf("expected processing, got %s", result.Status)
	}
	if result.ProviderRef != "mid-txn-1" {
		t.Errorf("expected mid-txn-1, got %s", result.ProviderRef)
	}

	var metadata map[string]string
	if err := json.Unmarshal(result.Metadata, &metadata); err != nil {
		t.Fatalf("bad metadata: %v", err)
	}
	if metadata["redirect_url"] == "" || metadata["token"] != "snap-token-1" {
		t.Errorf("metadata missing redirect details: %v", metadata)
	}
}

func TestMidtrans_SnapLookupFailure_FallsBackToOrderID(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/snap/v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(midtransSnapResponse{
			Token:       "snap-token-2",
			RedirectURL: "https://app.sandbox.midtrans.com/snap/v4/redirection/snap-token-2",
		})
	})
	mux.HandleFunc("/v2/pay-1/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status_message":"internal error"}`))
	})

	adapter := newMidtransAdapter(t, mux)
	result, err := adapter.Process(context.Background(), midtransPayment(domain.PaymentMethodCreditCard), CustomerDetails{Name: "Budi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The charge itself succeeded; the failed transaction lookup only
	// degrades the provider ref to the order id.
	if result.Status != domain.PaymentStatusProcessing {
		t.Errorf("expected processing, got %s", result.Status)
	}
	if result.ProviderRef != "pay-1" {
		t.Errorf("expected fallback ref pay-1, got %s", result.ProviderRef)
	}
}

func TestMidtrans_DirectChargeMaySettleSynchronously(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/charge", func(w http.ResponseWriter, r *http.Request) {
		var req midtransChargeRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.PaymentType != "bank_transfer" {
			t.Errorf("expected bank_transfer, got %s", req.PaymentType)
		}
		json.NewEncoder(w).Encode(midtransTransactionResponse{
			TransactionID:     "mid-txn-2",
			TransactionStatus: "settlement",
		})
	})

	adapter := newMidtransAdapter(t, mux)
	result, err := adapter.Process(context.Background(), midtransPayment(domain.PaymentMethodBankTransfer), CustomerDetails{Name: "Budi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != domain.PaymentStatusCompleted {
		t.Errorf("expected completed, got %s", result.Status)
	}
	if result.ProviderRef != "mid-txn-2" {
		t.Errorf("expected mid-txn-2, got %s", result.ProviderRef)
	}
}

func TestMidtrans_GatewayError_SurfacesProviderError(t *testing.T) {
	t.Parallel()

	adapter := newMidtransAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status_message":"Access denied"}`))
	}))

	_, err := adapter.Process(context.Background(), midtransPayment(domain.PaymentMethodBankTransfer), CustomerDetails{Name: "Budi"})
	pe, ok := err.(*ProviderError)
	if !ok {
		t.Fatalf("expected *ProviderError, got %T", err)
	}
	if pe.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", pe.StatusCode)
	}
	if len(pe.RawBody) == 0 {
		t.Error("expected raw body to be kept")
	}
}

func TestMidtrans_Refund_SendsIdempotencyKey(t *testing.T) {
	t.Parallel()

	var gotKey string
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/mid-txn-1/refund", func(w http.ResponseWriter, r *http.Request) {
		var req midtransRefundRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotKey = req.RefundKey
		json.NewEncoder(w).Encode(midtransRefundResponse{
			RefundKey:  req.RefundKey,
			StatusCode: "200",
		})
	})

	payment := midtransPayment(domain.PaymentMethodBankTransfer)
	payment.Status = domain.PaymentStatusCompleted
	payment.ProviderRef = "mid-txn-1"
	payment.RefundReason = "Trip cancelled after payment went through"

	adapter := newMidtransAdapter(t, mux)
	result, err := adapter.Refund(context.Background(), payment, 45000, "refund-pay-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotKey != "refund-pay-1" {
		t.Errorf("expected refund_key refund-pay-1, got %s", gotKey)
	}
	if result.Status != domain.PaymentStatusRefunded {
		t.Errorf("expected refunded, got %s", result.Status)
	}
}

func TestMidtrans_CheckStatus_ReturnsRawStatus(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/mid-txn-1/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(midtransTransactionResponse{
			TransactionID:     "mid-txn-1",
			TransactionStatus: "expire",
		})
	})

	payment := midtransPayment(domain.PaymentMethodBankTransfer)
	payment.ProviderRef = "mid-txn-1"

	adapter := newMidtransAdapter(t, mux)
	raw, body, err := adapter.CheckStatus(context.Background(), payment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != "expire" {
		t.Errorf("expected expire, got %s", raw)
	}
	if len(body) == 0 {
		t.Error("expected the full response body")
	}
}
