package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
)

// apiClient is the HTTP plumbing shared by both gateway adapters: JSON in,
// JSON out, basic auth, per-gateway timeout, non-2xx surfaced as
// *ProviderError with the raw body attached.
type apiClient struct {
	provider string
	baseURL  string
	auth     string
	http     *http.Client
}

func newAPIClient(provider, baseURL, serverKey string, client *http.Client) *apiClient {
	return &apiClient{
		provider: provider,
		baseURL:  baseURL,
		auth:     "Basic " + base64.StdEncoding.EncodeToString([]byte(serverKey+":")),
		http:     client,
	}
}

// do executes one call against the gateway. A nil payload sends no body.
// Extra headers (e.g. idempotency keys) are applied verbatim.
func (c *apiClient) do(ctx context.Context, op, method, path string, payload any, headers map[string]string) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &ProviderError{Provider: c.provider, Op: op, Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &ProviderError{Provider: c.provider, Op: op, Err: err}
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Covers timeouts and cancelled contexts. The request may have
		// reached the gateway; callers reconcile via a status check.
		return nil, &ProviderError{Provider: c.provider, Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: c.provider, Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{Provider: c.provider, Op: op, StatusCode: resp.StatusCode, RawBody: raw}
	}

	return raw, nil
}
