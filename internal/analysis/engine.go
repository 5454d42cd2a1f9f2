package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"labreport-backend/internal/llm"
)

// DefaultMinInputChars is the floor below which extracted text is not
// worth sending to the model.
const DefaultMinInputChars = 20

// Engine runs the analyze step of the pipeline.
type Engine struct {
	LLM           llm.Client
	MinInputChars int
}

// New constructs an Engine. minInputChars <= 0 selects the default.
func New(client llm.Client, minInputChars int) *Engine {
	if minInputChars <= 0 {
		minInputChars = DefaultMinInputChars
	}
	return &Engine{LLM: client, MinInputChars: minInputChars}
}

// Analyze sends the report text to the LLM, validates the response
// shape, and repairs recoverable gaps. The returned Result always has
// non-nil arrays and a non-empty disclaimer.
func (e *Engine) Analyze(ctx context.Context, text, reportType string, profile *llm.Profile) (Result, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < e.MinInputChars {
		return Result{}, &Error{
			Kind:    KindInsufficientInput,
			Message: "extracted text too short for meaningful analysis",
		}
	}

	raw, err := e.LLM.AnalyzeReport(ctx, llm.AnalyzeInput{
		ReportText: trimmed,
		ReportType: reportType,
		Profile:    profile,
	})
	if err != nil {
		return Result{}, mapLLMError(err)
	}

	var shape any
	if err := json.Unmarshal(raw, &shape); err != nil {
		return Result{}, &Error{Kind: KindMalformedResponse, Message: "analysis response is not valid JSON", Err: err}
	}
	if _, ok := shape.(map[string]any); !ok {
		return Result{}, &Error{Kind: KindMalformedResponse, Message: "analysis response is not a JSON object"}
	}
	if err := validateResultShape(shape); err != nil {
		return Result{}, &Error{Kind: KindMalformedResponse, Message: "analysis response has invalid field types", Err: err}
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, &Error{Kind: KindMalformedResponse, Message: "analysis response could not be decoded", Err: err}
	}

	fillDefaults(&result)
	enforceDisclaimer(&result)
	return result, nil
}

func mapLLMError(err error) error {
	var lerr *llm.Error
	if errors.As(err, &lerr) {
		switch lerr.Kind {
		case llm.KindRateLimited, llm.KindTimeout:
			return &Error{Kind: KindServiceBusy, Message: "analysis service is busy, try again later", Err: err}
		case llm.KindInputTooLarge:
			return &Error{Kind: KindInputTooLarge, Message: "report text exceeds the analysis size limit", Err: err}
		}
	}
	return &Error{Kind: KindProvider, Message: "analysis provider request failed", Err: err}
}
