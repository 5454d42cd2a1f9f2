package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"labreport-backend/internal/llm"
)

type fakeLLM struct {
	raw json.RawMessage
	err error

	gotInput llm.AnalyzeInput
}

func (f *fakeLLM) AnalyzeReport(ctx context.Context, input llm.AnalyzeInput) (json.RawMessage, error) {
	f.gotInput = input
	return f.raw, f.err
}

const sampleText = "Hemoglobin 10.2 g/dL (ref 13.5-17.5) WBC 6.1"

func fullResponse() json.RawMessage {
	return json.RawMessage(`{
		"summary": "Hemoglobin is below the reference range.",
		"keyFindings": [{"test":"Hemoglobin","value":"10.2 g/dL","normalRange":"13.5-17.5 g/dL","status":"low"}],
		"explanations": [{"test":"Hemoglobin","meaning":"Low hemoglobin may indicate anemia."}],
		"lifestyleSuggestions": ["Consider iron-rich foods."],
		"doctorConsultationAdvice": "Discuss these results with your doctor.",
		"disclaimer": "This analysis is for informational purposes only and is not medical advice."
	}`)
}

func analysisKind(t *testing.T, err error) ErrorKind {
	t.Helper()
	var aerr *Error
	if !errors.As(err, &aerr) {
		t.Fatalf("expected *analysis.Error, got %v", err)
	}
	return aerr.Kind
}

func TestAnalyzeSuccess(t *testing.T) {
	client := &fakeLLM{raw: fullResponse()}
	engine := New(client, 0)

	result, err := engine.Analyze(context.Background(), sampleText, "blood_test", &llm.Profile{Age: 30})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.KeyFindings) != 1 || result.KeyFindings[0].Status != StatusLow {
		t.Fatalf("unexpected findings: %+v", result.KeyFindings)
	}
	if client.gotInput.ReportType != "blood_test" {
		t.Fatalf("report type not forwarded: %q", client.gotInput.ReportType)
	}
	if client.gotInput.Profile == nil || client.gotInput.Profile.Age != 30 {
		t.Fatal("profile not forwarded")
	}
}

func TestAnalyzeRejectsShortInput(t *testing.T) {
	engine := New(&fakeLLM{}, 0)
	_, err := engine.Analyze(context.Background(), "   too short   ", "general", nil)
	if analysisKind(t, err) != KindInsufficientInput {
		t.Fatalf("expected KindInsufficientInput, got %v", err)
	}
}

func TestAnalyzeRepairsMissingFields(t *testing.T) {
	client := &fakeLLM{raw: json.RawMessage(`{"keyFindings":[{"test":"TSH","value":"9.1","normalRange":"0.4-4.0","status":"elevated"}]}`)}
	engine := New(client, 0)

	result, err := engine.Analyze(context.Background(), sampleText, "thyroid", nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Summary == "" || !strings.Contains(result.Summary, "consult a healthcare provider") {
		t.Fatalf("expected summary fallback, got %q", result.Summary)
	}
	if result.DoctorConsultationAdvice == "" {
		t.Fatal("expected consultation advice fallback")
	}
	if result.Explanations == nil {
		t.Fatal("expected explanations repaired to an empty slice")
	}
	if got := result.KeyFindings[0].Status; got != StatusHigh {
		t.Fatalf("elevated should map to high, got %q", got)
	}
}

func TestAnalyzeDefaultsLifestyleSuggestions(t *testing.T) {
	client := &fakeLLM{raw: json.RawMessage(`{"summary":"All values are within range."}`)}
	engine := New(client, 0)

	result, err := engine.Analyze(context.Background(), sampleText, "general", nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.LifestyleSuggestions) == 0 {
		t.Fatal("missing lifestyleSuggestions must get the fixed generic tips")
	}
	if len(result.LifestyleSuggestions) != len(defaultLifestyleSuggestions) {
		t.Fatalf("expected %d default tips, got %d", len(defaultLifestyleSuggestions), len(result.LifestyleSuggestions))
	}
	for i, tip := range defaultLifestyleSuggestions {
		if result.LifestyleSuggestions[i] != tip {
			t.Fatalf("tip %d = %q, want %q", i, result.LifestyleSuggestions[i], tip)
		}
	}
}

func TestAnalyzeKeepsProvidedLifestyleSuggestions(t *testing.T) {
	client := &fakeLLM{raw: fullResponse()}
	engine := New(client, 0)

	result, err := engine.Analyze(context.Background(), sampleText, "blood_test", nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.LifestyleSuggestions) != 1 || result.LifestyleSuggestions[0] != "Consider iron-rich foods." {
		t.Fatalf("model suggestions must be kept, got %v", result.LifestyleSuggestions)
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		in   FindingStatus
		want FindingStatus
	}{
		{"low", StatusLow},
		{" High ", StatusHigh},
		{"CRITICAL_HIGH", StatusCriticalHigh},
		{"elevated", StatusHigh},
		{"very high", StatusCriticalHigh},
		{"decreased", StatusLow},
		{"borderline", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := normalizeStatus(tc.in); got != tc.want {
			t.Fatalf("normalizeStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAnalyzeEnforcesDisclaimer(t *testing.T) {
	client := &fakeLLM{raw: json.RawMessage(`{"summary":"All values are within range.","disclaimer":"n/a"}`)}
	engine := New(client, 0)

	result, err := engine.Analyze(context.Background(), sampleText, "general", nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Disclaimer != defaultDisclaimer {
		t.Fatalf("short disclaimer must be overwritten, got %q", result.Disclaimer)
	}
}

func TestAnalyzeKeepsLongDisclaimer(t *testing.T) {
	client := &fakeLLM{raw: fullResponse()}
	engine := New(client, 0)

	result, err := engine.Analyze(context.Background(), sampleText, "blood_test", nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Disclaimer == defaultDisclaimer {
		t.Fatal("adequate model disclaimer should be kept")
	}
}

func TestAnalyzeMalformedResponses(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"invalid json", `{"summary": `},
		{"not an object", `["a","b"]`},
		{"wrong field type", `{"summary": 42}`},
		{"wrong array element type", `{"keyFindings": ["not an object"]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := New(&fakeLLM{raw: json.RawMessage(tc.raw)}, 0)
			_, err := engine.Analyze(context.Background(), sampleText, "general", nil)
			if analysisKind(t, err) != KindMalformedResponse {
				t.Fatalf("expected KindMalformedResponse, got %v", err)
			}
		})
	}
}

func TestAnalyzeMapsProviderErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"rate limited", &llm.Error{Kind: llm.KindRateLimited, Message: "429"}, KindServiceBusy},
		{"timeout", &llm.Error{Kind: llm.KindTimeout, Message: "timeout"}, KindServiceBusy},
		{"too large", &llm.Error{Kind: llm.KindInputTooLarge, Message: "ctx"}, KindInputTooLarge},
		{"provider", &llm.Error{Kind: llm.KindProvider, Message: "500"}, KindProvider},
		{"untyped", errors.New("boom"), KindProvider},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := New(&fakeLLM{err: tc.err}, 0)
			_, err := engine.Analyze(context.Background(), sampleText, "general", nil)
			if analysisKind(t, err) != tc.want {
				t.Fatalf("expected kind %v, got %v", tc.want, err)
			}
		})
	}
}
