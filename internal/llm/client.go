// Package llm talks to the external generative-AI endpoint. The endpoint
// retains no history; every call carries the full conversation.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/mockmate/mockmate/internal/domain"
)

// ErrEmptyOrBlocked is returned when the endpoint answered 2xx but the
// response carried no usable text, typically because safety filtering
// suppressed the candidate.
var ErrEmptyOrBlocked = errors.New("llm: response was empty or blocked")

// TransportError is a network or HTTP-level failure calling the endpoint.
// StatusCode is 0 when the request never produced an HTTP response.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("llm: request failed with status %d: %v", e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("llm: request failed: %v", e.Err)
	default:
		return fmt.Sprintf("llm: endpoint returned %d: %s", e.StatusCode, e.Body)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client produces the next interviewer utterance for a conversation.
// Implementations are stateless across calls, never retry, and never
// mutate the history.
type Client interface {
	// Converse sends the ordered history and returns the reply text.
	Converse(ctx context.Context, history []domain.Turn) (string, error)

	// Name returns the provider name (e.g. "gemini").
	Name() string
}
