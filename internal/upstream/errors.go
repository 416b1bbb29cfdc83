// Package upstream contains the HTTP clients for the external providers the
// service depends on: the Gemini generative-language API (text, chat and image
// description) and the Pexels image-search API.
//
// Clients never log and never include API keys in errors. Provider response
// bodies are kept on CallError for server-side logs only.
package upstream

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Provider identifiers used in errors and logs.
const (
	ProviderGemini = "gemini"
	ProviderPexels = "pexels"
)

// CallError is returned when a provider call fails: a non-2xx response, a
// missing credential, or a transport failure (StatusCode 0).
type CallError struct {
	Provider   string
	StatusCode int
	Message    string
	// RetryDelay is the provider's retry hint, zero when none was sent.
	RetryDelay  time.Duration
	RawResponse []byte
	Err         error
}

func (e *CallError) Error() string {
	if e == nil {
		return "upstream call failed"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}

func (e *CallError) Unwrap() error { return e.Err }

// RateLimited reports whether the provider rejected the call for quota reasons.
func (e *CallError) RateLimited() bool {
	return e != nil && e.StatusCode == http.StatusTooManyRequests
}

// HasRetryHint reports whether the provider told us how long to wait.
func (e *CallError) HasRetryHint() bool {
	return e != nil && e.RetryDelay > 0
}

// FormatError is returned when a 2xx response does not have the expected shape.
type FormatError struct {
	Provider string
	Reason   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unexpected response format from %s: %s", e.Provider, e.Reason)
}

// IsRateLimited reports whether err (or anything it wraps) is a provider 429.
func IsRateLimited(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.RateLimited()
}
