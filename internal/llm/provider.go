// Package llm answers health questions through an ordered chain of model
// providers, ending in a local tier of canned answers that cannot fail.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingAPIKey   = errors.New("api key not configured")
	ErrInvalidResponse = errors.New("invalid response format")
)

// Request carries both the raw question and the prompt built for remote models.
type Request struct {
	Question string
	Prompt   string
}

// Provider is one tier of the fallback chain.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// StatusError is returned when a provider answers with a non-200 status.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether the status is worth another attempt: timeouts,
// rate limits and server errors.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}
