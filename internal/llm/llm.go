// Package llm abstracts the external text-completion capability used by
// the analysis engine.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Client abstracts completion providers for lab-report analysis.
type Client interface {
	AnalyzeReport(ctx context.Context, input AnalyzeInput) (json.RawMessage, error)
}

// Profile carries optional user context that biases the analysis.
// It is never required.
type Profile struct {
	Age        int      `json:"age,omitempty"`
	Gender     string   `json:"gender,omitempty"`
	Conditions []string `json:"conditions,omitempty"`
}

// AnalyzeInput captures the inputs needed for a report analysis call.
type AnalyzeInput struct {
	ReportText string
	ReportType string
	Profile    *Profile
}

// ErrorKind enumerates provider failure categories the orchestrator
// reacts to distinctly.
type ErrorKind int

const (
	// KindRateLimited means the provider reported rate limiting.
	KindRateLimited ErrorKind = iota
	// KindInputTooLarge means the provider reported a context/length limit.
	KindInputTooLarge
	// KindTimeout means the request exceeded the client timeout.
	KindTimeout
	// KindProvider covers all other provider-side failures.
	KindProvider
)

// Error is the closed failure type for completion calls.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// AnalyzeReport returns ErrNotImplemented.
func (PlaceholderClient) AnalyzeReport(ctx context.Context, input AnalyzeInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	return nil, ErrNotImplemented
}
