package gateway

import "fmt"

// ProviderError reports a failed gateway call: transport error, timeout,
// non-2xx response or an unparseable body. RawBody keeps the provider's
// error payload for server-side diagnostics; callers must log it and never
// echo it to clients.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int // 0 when the call never completed
	RawBody    []byte
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed: http %d", e.Provider, e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
