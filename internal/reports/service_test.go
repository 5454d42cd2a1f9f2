package reports

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"labreport-backend/internal/analysis"
	"labreport-backend/internal/credits"
	"labreport-backend/internal/extract"
	"labreport-backend/internal/llm"
)

type fakeOCR struct {
	text string
	err  error
}

func (f *fakeOCR) RecognizeText(ctx context.Context, image []byte, mimeType string) (string, error) {
	return f.text, f.err
}

func (f *fakeOCR) Close() error { return nil }

type fakeLLM struct {
	raw   json.RawMessage
	err   error
	calls int
}

func (f *fakeLLM) AnalyzeReport(ctx context.Context, input llm.AnalyzeInput) (json.RawMessage, error) {
	f.calls++
	return f.raw, f.err
}

const bloodText = "Hemoglobin 10.2 g/dL reference 13.5-17.5 WBC 6.1"

func goodLLMResponse() json.RawMessage {
	return json.RawMessage(`{
		"summary": "Hemoglobin is below the reference range.",
		"keyFindings": [{"test":"Hemoglobin","value":"10.2 g/dL","normalRange":"13.5-17.5 g/dL","status":"low"}],
		"explanations": [{"test":"Hemoglobin","meaning":"Low hemoglobin may indicate anemia."}],
		"lifestyleSuggestions": ["Consider iron-rich foods."],
		"doctorConsultationAdvice": "Discuss these results with your doctor.",
		"disclaimer": "This analysis is for informational purposes only and is not medical advice."
	}`)
}

func newTestService(ocrClient *fakeOCR, llmClient *fakeLLM) (*Service, *MemoryRepo, *credits.Ledger) {
	repo := NewMemoryRepo()
	ledger := credits.NewLedger()
	svc := &Service{
		Repo:    repo,
		Credits: ledger,
		Extract: extract.New(ocrClient, extract.DefaultMinTextLen),
		Engine:  analysis.New(llmClient, 0),
	}
	return svc, repo, ledger
}

func imageSubmit(owner string) SubmitInput {
	return SubmitInput{
		OwnerID:  owner,
		FileName: "cbc-results.png",
		MIMEType: "image/png",
		Data:     []byte{0x89, 0x50, 0x4e, 0x47},
	}
}

func TestSubmitCompletedPath(t *testing.T) {
	svc, _, ledger := newTestService(&fakeOCR{text: bloodText}, &fakeLLM{raw: goodLLMResponse()})
	ctx := context.Background()

	result, err := svc.Submit(ctx, imageSubmit("user-1"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	report := result.Report
	if report.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q", report.Status)
	}
	if report.ReportType != "blood_test" {
		t.Fatalf("expected blood_test, got %q", report.ReportType)
	}
	if report.FileKind != "image" {
		t.Fatalf("expected image kind, got %q", report.FileKind)
	}
	if report.Analysis == nil || report.Analysis.Disclaimer == "" {
		t.Fatal("completed report must carry an analysis with a disclaimer")
	}
	if report.ErrorMessage != "" || report.ErrorCode != "" {
		t.Fatal("completed report must not carry error fields")
	}
	if report.CreditsUsed != credits.AnalysisCost {
		t.Fatalf("expected creditsUsed=%d, got %d", credits.AnalysisCost, report.CreditsUsed)
	}

	balance, err := ledger.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get balance: %v", err)
	}
	if balance.Used != credits.AnalysisCost {
		t.Fatalf("expected one credit spent, used=%d", balance.Used)
	}
	if result.CreditsRemaining != balance.Remaining() {
		t.Fatalf("remaining mismatch: %d vs %d", result.CreditsRemaining, balance.Remaining())
	}
}

func TestSubmitRepeatedUploadsAreIndependent(t *testing.T) {
	svc, _, _ := newTestService(&fakeOCR{text: bloodText}, &fakeLLM{raw: goodLLMResponse()})
	ctx := context.Background()

	in := imageSubmit("user-1")
	in.Profile = &llm.Profile{Age: 42, Gender: "female"}

	first, err := svc.Submit(ctx, in)
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	second, err := svc.Submit(ctx, in)
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}

	// No deduplication: identical bytes and profile still yield two records.
	if first.Report.ID == second.Report.ID {
		t.Fatalf("expected independent reports, both got id %s", first.Report.ID)
	}
	if first.Report.Status != StatusCompleted || second.Report.Status != StatusCompleted {
		t.Fatalf("expected both completed, got %q and %q", first.Report.Status, second.Report.Status)
	}
	if first.Report.ReportType != second.Report.ReportType {
		t.Fatalf("report types diverged: %q vs %q", first.Report.ReportType, second.Report.ReportType)
	}
	if first.Report.RawExtractedText != second.Report.RawExtractedText {
		t.Fatal("extracted text diverged for identical bytes")
	}
	if !reflect.DeepEqual(first.Report.Analysis, second.Report.Analysis) {
		t.Fatalf("analyses diverged under a deterministic engine:\n%+v\n%+v", first.Report.Analysis, second.Report.Analysis)
	}

	list, err := svc.List(ctx, "user-1", 10, 0, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected two stored reports, got %d", len(list))
	}
}

func TestSubmitExtractionFailureSpendsNoCredit(t *testing.T) {
	svc, repo, ledger := newTestService(&fakeOCR{err: errors.New("vision unavailable")}, &fakeLLM{})
	ctx := context.Background()

	_, err := svc.Submit(ctx, imageSubmit("user-1"))
	var perr *PipelineError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PipelineError, got %v", err)
	}
	if perr.Code != CodeNoTextExtracted {
		t.Fatalf("expected %s, got %s", CodeNoTextExtracted, perr.Code)
	}

	report, err := repo.GetByID(ctx, "user-1", perr.ReportID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if report.Status != StatusFailed {
		t.Fatalf("expected failed, got %q", report.Status)
	}
	if report.ErrorMessage == "" {
		t.Fatal("failed report must carry an error message")
	}

	balance, _ := ledger.Get(ctx, "user-1")
	if balance.Used != 0 {
		t.Fatalf("failed run must not spend credits, used=%d", balance.Used)
	}
}

func TestSubmitUnsupportedFileType(t *testing.T) {
	svc, _, _ := newTestService(&fakeOCR{}, &fakeLLM{})

	_, err := svc.Submit(context.Background(), SubmitInput{
		OwnerID:  "user-1",
		FileName: "notes.txt",
		MIMEType: "text/plain",
		Data:     []byte("hello"),
	})
	var perr *PipelineError
	if !errors.As(err, &perr) || perr.Code != CodeUnsupportedFileType {
		t.Fatalf("expected %s, got %v", CodeUnsupportedFileType, err)
	}
}

func TestSubmitMalformedAnalysisFails(t *testing.T) {
	svc, repo, ledger := newTestService(&fakeOCR{text: bloodText}, &fakeLLM{raw: json.RawMessage(`{"summary": 42}`)})
	ctx := context.Background()

	_, err := svc.Submit(ctx, imageSubmit("user-1"))
	var perr *PipelineError
	if !errors.As(err, &perr) || perr.Code != CodeMalformedAnalysis {
		t.Fatalf("expected %s, got %v", CodeMalformedAnalysis, err)
	}

	report, err := repo.GetByID(ctx, "user-1", perr.ReportID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if report.Status != StatusFailed {
		t.Fatalf("expected failed, got %q", report.Status)
	}
	if report.Analysis != nil {
		t.Fatal("failed report must not carry an analysis")
	}
	if report.RawExtractedText == "" {
		t.Fatal("extracted text must survive an analysis failure")
	}

	balance, _ := ledger.Get(ctx, "user-1")
	if balance.Used != 0 {
		t.Fatalf("failed run must not spend credits, used=%d", balance.Used)
	}
}

func TestSubmitWithoutFileCreatesNoReport(t *testing.T) {
	svc, repo, _ := newTestService(&fakeOCR{}, &fakeLLM{})

	_, err := svc.Submit(context.Background(), SubmitInput{OwnerID: "user-1", MIMEType: "application/pdf"})
	if !errors.Is(err, ErrNoFile) {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}
	list, _ := repo.ListByOwner(context.Background(), "user-1", 0, 0, "")
	if len(list) != 0 {
		t.Fatalf("no report record may exist, got %d", len(list))
	}
}

func TestSubmitInsufficientCreditsCreatesNoReport(t *testing.T) {
	svc, repo, ledger := newTestService(&fakeOCR{text: bloodText}, &fakeLLM{raw: goodLLMResponse()})
	ctx := context.Background()

	balance, err := ledger.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := ledger.Deduct(ctx, "user-1", balance.Limit); err != nil {
		t.Fatalf("Deduct: %v", err)
	}

	_, err = svc.Submit(ctx, imageSubmit("user-1"))
	if !errors.Is(err, credits.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	list, _ := repo.ListByOwner(ctx, "user-1", 0, 0, "")
	if len(list) != 0 {
		t.Fatalf("no report record may exist, got %d", len(list))
	}
}

func TestReanalyzeRecoversFailedReport(t *testing.T) {
	llmClient := &fakeLLM{err: &llm.Error{Kind: llm.KindRateLimited, Message: "429"}}
	svc, repo, ledger := newTestService(&fakeOCR{text: bloodText}, llmClient)
	ctx := context.Background()

	_, err := svc.Submit(ctx, imageSubmit("user-1"))
	var perr *PipelineError
	if !errors.As(err, &perr) || perr.Code != CodeServiceBusy {
		t.Fatalf("expected %s, got %v", CodeServiceBusy, err)
	}
	failed, err := repo.GetByID(ctx, "user-1", perr.ReportID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	llmClient.err = nil
	llmClient.raw = goodLLMResponse()
	result, err := svc.Reanalyze(ctx, "user-1", perr.ReportID)
	if err != nil {
		t.Fatalf("Reanalyze: %v", err)
	}
	report := result.Report
	if report.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q", report.Status)
	}
	if report.ErrorMessage != "" || report.ErrorCode != "" {
		t.Fatal("reanalyzed report must clear error fields")
	}
	if report.RawExtractedText != failed.RawExtractedText {
		t.Fatal("reanalysis must preserve the original extracted text")
	}
	if !report.CreatedAt.Equal(failed.CreatedAt) {
		t.Fatal("reanalysis must preserve the original creation timestamp")
	}

	balance, _ := ledger.Get(ctx, "user-1")
	if balance.Used != credits.AnalysisCost {
		t.Fatalf("only the successful run spends a credit, used=%d", balance.Used)
	}
}

func TestReanalyzeRequiresExtractedText(t *testing.T) {
	svc, repo, _ := newTestService(&fakeOCR{}, &fakeLLM{})
	ctx := context.Background()

	report := Report{ID: "r-1", OwnerID: "user-1", Status: StatusFailed}
	if err := repo.Create(ctx, report); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := svc.Reanalyze(ctx, "user-1", "r-1")
	if !errors.Is(err, ErrNoExtractedText) {
		t.Fatalf("expected ErrNoExtractedText, got %v", err)
	}
}

func TestReanalyzeUnknownReport(t *testing.T) {
	svc, _, _ := newTestService(&fakeOCR{}, &fakeLLM{})
	_, err := svc.Reanalyze(context.Background(), "user-1", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetAndDeleteAreOwnerScoped(t *testing.T) {
	svc, _, _ := newTestService(&fakeOCR{text: bloodText}, &fakeLLM{raw: goodLLMResponse()})
	ctx := context.Background()

	result, err := svc.Submit(ctx, imageSubmit("user-1"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	id := result.Report.ID

	if _, err := svc.Get(ctx, "user-2", id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-owner get must 404, got %v", err)
	}
	if err := svc.Delete(ctx, "user-2", id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-owner delete must 404, got %v", err)
	}
	if err := svc.Delete(ctx, "user-1", id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "user-1", id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted report must be gone, got %v", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	llmClient := &fakeLLM{raw: goodLLMResponse()}
	svc, _, _ := newTestService(&fakeOCR{text: bloodText}, llmClient)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, imageSubmit("user-1")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	llmClient.raw = json.RawMessage(`not json`)
	if _, err := svc.Submit(ctx, imageSubmit("user-1")); err == nil {
		t.Fatal("expected second submit to fail")
	}

	completed, err := svc.List(ctx, "user-1", 10, 0, StatusCompleted)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(completed) != 1 || completed[0].Status != StatusCompleted {
		t.Fatalf("expected one completed report, got %+v", completed)
	}
	all, err := svc.List(ctx, "user-1", 10, 0, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected two reports, got %d", len(all))
	}
}
