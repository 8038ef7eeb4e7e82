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

func newXenditAdapter(t *testing.T, handler http.Handler) *XenditAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewXenditAdapter(config.GatewayConfig{
		BaseURL:   srv.URL,
		ServerKey: "xnd-secret-key",
		Timeout:   2 * time.Second,
	}, zap.NewNop())
}

func xenditPayment() *domain.Payment {
	return &domain.Payment{
		ID:       "pay-2",
		OrderID:  "order-2",
		Amount:   80000,
		Method:   domain.PaymentMethodEWallet,
		Provider: domain.ProviderXendit,
		Status:   domain.PaymentStatusPending,
	}
}

func TestXendit_Process_CreatesInvoice(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/invoices", func(w http.ResponseWriter, r *http.Request) {
		var req xenditInvoiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.ExternalID != "pay-2" {
			t.Errorf("expected external_id pay-2, got %s", req.ExternalID)
		}
		if req.Amount != 80000 {
			t.Errorf("expected amount 80000, got %d", req.Amount)
		}
		if req.InvoiceDuration != invoiceDurationSeconds {
			t.Errorf("expected duration %d, got %d", invoiceDurationSeconds, req.InvoiceDuration)
		}
		json.NewEncoder(w).Encode(xenditInvoiceResponse{
			ID:         "inv-1",
			Status:     "PENDING",
			InvoiceURL: "https://checkout.xendit.co/web/inv-1",
			ExpiryDate: "2026-09-01T10:00:00Z",
		})
	})

	adapter := newXenditAdapter(t, mux)
	result, err := adapter.Process(context.Background(), xenditPayment(), CustomerDetails{
		Name: "Sari", Email: "sari@example.com", Phone: "+628222",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Invoices always resolve asynchronously.
	if result.Status != domain.PaymentStatusProcessing {
		t.Errorf("expected processing, got %s", result.Status)
	}
	if result.ProviderRef != "inv-1" {
		t.Errorf("expected inv-1, got %s", result.ProviderRef)
	}

	var metadata map[string]string
	if err := json.Unmarshal(result.Metadata, &metadata); err != nil {
		t.Fatalf("bad metadata: %v", err)
	}
	if metadata["invoice_url"] == "" || metadata["expiry_date"] == "" {
		t.Errorf("metadata missing invoice details: %v", metadata)
	}
}

func TestXendit_Refund_IdempotencyKeyRidesHeader(t *testing.T) {
	t.Parallel()

	var gotHeader string
	mux := http.NewServeMux()
	mux.HandleFunc("/refunds", func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("idempotency-key")
		var req xenditRefundRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.InvoiceID != "inv-1" {
			t.Errorf("expected invoice_id inv-1, got %s", req.InvoiceID)
		}
		json.NewEncoder(w).Encode(xenditRefundResponse{ID: "rfd-1", Status: "SUCCEEDED"})
	})

	payment := xenditPayment()
	payment.Status = domain.PaymentStatusCompleted
	payment.ProviderRef = "inv-1"

	adapter := newXenditAdapter(t, mux)
	result, err := adapter.Refund(context.Background(), payment, 80000, "refund-pay-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotHeader != "refund-pay-2" {
		t.Errorf("expected idempotency-key header refund-pay-2, got %s", gotHeader)
	}
	if result.Status != domain.PaymentStatusRefunded {
		t.Errorf("expected refunded, got %s", result.Status)
	}
}

func TestXendit_CheckStatus_ReturnsRawInvoiceStatus(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/invoices/inv-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(xenditInvoiceResponse{ID: "inv-1", Status: "PAID"})
	})

	payment := xenditPayment()
	payment.ProviderRef = "inv-1"

	adapter := newXenditAdapter(t, mux)
	raw, body, err := adapter.CheckStatus(context.Background(), payment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != "PAID" {
		t.Errorf("expected PAID, got %s", raw)
	}
	if len(body) == 0 {
		t.Error("expected the full response body")
	}
}

func TestXendit_MalformedResponse_SurfacesProviderError(t *testing.T) {
	t.Parallel()

	adapter := newXenditAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected":"shape"}`))
	}))

	_, err := adapter.Process(context.Background(), xenditPayment(), CustomerDetails{Name: "Sari"})
	if _, ok := err.(*ProviderError); !ok {
		t.Fatalf("expected *ProviderError, got %T (%v)", err, err)
	}
}
