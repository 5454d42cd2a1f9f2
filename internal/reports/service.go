package reports

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"labreport-backend/internal/analysis"
	"labreport-backend/internal/classify"
	"labreport-backend/internal/credits"
	"labreport-backend/internal/extract"
	"labreport-backend/internal/llm"
	"labreport-backend/internal/shared/metrics"
	"labreport-backend/internal/shared/telemetry"
	"labreport-backend/internal/shared/util"
)

// Service orchestrates the report pipeline and owns the report
// lifecycle. The pipeline is synchronous and request-scoped.
type Service struct {
	Repo    Repo
	Credits *credits.Ledger
	Extract *extract.Extractor
	Engine  *analysis.Engine
}

// SubmitInput carries one uploaded file plus optional profile context.
type SubmitInput struct {
	OwnerID  string
	FileName string
	MIMEType string
	Data     []byte
	Profile  *llm.Profile
}

// SubmitResult is the outcome of a successful pipeline run.
type SubmitResult struct {
	Report           Report
	CreditsRemaining int
}

// Submit runs the full pipeline: create report, extract, classify,
// analyze, persist. Credits are pre-checked before any report exists
// and deducted only after success; a failed run never spends a credit.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	if in.OwnerID == "" {
		return SubmitResult{}, errors.New("ownerID is required")
	}
	if len(in.Data) == 0 {
		return SubmitResult{}, ErrNoFile
	}

	allowed, _, err := s.Credits.Check(ctx, in.OwnerID, credits.AnalysisCost)
	if err != nil {
		return SubmitResult{}, err
	}
	if !allowed {
		return SubmitResult{}, credits.ErrInsufficientCredits
	}

	fileName, err := util.SanitizeFileName(in.FileName)
	if err != nil {
		fileName = "report"
	}
	now := time.Now().UTC()
	report := Report{
		ID:         uuid.NewString(),
		OwnerID:    in.OwnerID,
		FileName:   fileName,
		ReportType: string(classify.TypeGeneral),
		Profile:    in.Profile,
		Status:     StatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.Create(ctx, report); err != nil {
		return SubmitResult{}, err
	}
	metrics.IncPipelineStarted()
	telemetry.Info("report.processing", map[string]any{
		"report_id": report.ID,
		"owner_id":  in.OwnerID,
		"file_name": fileName,
	})

	// Once a report exists the run is carried to a terminal state even
	// if the caller goes away, so the record is never left processing.
	run := context.WithoutCancel(ctx)
	started := time.Now()

	text, kind, err := s.Extract.Extract(run, in.Data, in.MIMEType)
	if err != nil {
		code, msg := extractFailure(err)
		return SubmitResult{}, s.fail(run, report, code, msg, started, err)
	}
	report.FileKind = string(kind)
	report.RawExtractedText = text
	report.ReportType = string(classify.Classify(text))
	if err := s.Repo.SetExtraction(run, in.OwnerID, report.ID, text, report.ReportType); err != nil {
		return SubmitResult{}, err
	}

	return s.analyzeAndComplete(run, report, started)
}

// Reanalyze re-runs the analysis stage of a terminal report using the
// stored extracted text. Extraction and classification are not
// repeated; the original creation timestamp is preserved.
func (s *Service) Reanalyze(ctx context.Context, ownerID, reportID string) (SubmitResult, error) {
	report, err := s.Repo.GetByID(ctx, ownerID, reportID)
	if err != nil {
		return SubmitResult{}, err
	}
	if strings.TrimSpace(report.RawExtractedText) == "" {
		return SubmitResult{}, ErrNoExtractedText
	}

	allowed, _, err := s.Credits.Check(ctx, ownerID, credits.AnalysisCost)
	if err != nil {
		return SubmitResult{}, err
	}
	if !allowed {
		return SubmitResult{}, credits.ErrInsufficientCredits
	}

	if err := s.Repo.MarkProcessing(ctx, ownerID, reportID); err != nil {
		return SubmitResult{}, err
	}
	telemetry.Info("report.reanalyze", map[string]any{
		"report_id": reportID,
		"owner_id":  ownerID,
	})

	run := context.WithoutCancel(ctx)
	return s.analyzeAndComplete(run, report, time.Now())
}

// Get returns a report by ID, scoped to the owner.
func (s *Service) Get(ctx context.Context, ownerID, reportID string) (Report, error) {
	if reportID == "" {
		return Report{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, ownerID, reportID)
}

// List returns an owner's reports, newest first.
func (s *Service) List(ctx context.Context, ownerID string, limit, offset int, status string) ([]Report, error) {
	return s.Repo.ListByOwner(ctx, ownerID, limit, offset, status)
}

// Delete removes a report, scoped to the owner.
func (s *Service) Delete(ctx context.Context, ownerID, reportID string) error {
	if reportID == "" {
		return ErrNotFound
	}
	return s.Repo.Delete(ctx, ownerID, reportID)
}

func (s *Service) analyzeAndComplete(ctx context.Context, report Report, started time.Time) (SubmitResult, error) {
	result, err := s.Engine.Analyze(ctx, report.RawExtractedText, report.ReportType, report.Profile)
	if err != nil {
		code, msg := analysisFailure(err)
		return SubmitResult{}, s.fail(ctx, report, code, msg, started, err)
	}

	elapsedMs := time.Since(started).Milliseconds()
	if err := s.Repo.MarkCompleted(ctx, report.OwnerID, report.ID, result, elapsedMs, credits.AnalysisCost); err != nil {
		return SubmitResult{}, err
	}
	metrics.IncPipelineCompleted()
	metrics.ObservePipelineDurationMs(float64(elapsedMs))
	telemetry.Info("report.completed", map[string]any{
		"report_id":     report.ID,
		"owner_id":      report.OwnerID,
		"report_type":   report.ReportType,
		"processing_ms": elapsedMs,
	})

	// Deduction is post-success only. A racing spend by the same owner
	// can make it fail here; the completed report stands either way.
	remaining := 0
	balance, err := s.Credits.Deduct(ctx, report.OwnerID, credits.AnalysisCost)
	if err != nil {
		telemetry.Warn("credits.deduct_failed", map[string]any{
			"report_id": report.ID,
			"owner_id":  report.OwnerID,
			"error":     err.Error(),
		})
	} else {
		remaining = balance.Remaining()
	}

	stored, err := s.Repo.GetByID(ctx, report.OwnerID, report.ID)
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{Report: stored, CreditsRemaining: remaining}, nil
}

func (s *Service) fail(ctx context.Context, report Report, code, message string, started time.Time, cause error) error {
	elapsedMs := time.Since(started).Milliseconds()
	if err := s.Repo.MarkFailed(ctx, report.OwnerID, report.ID, code, message, elapsedMs); err != nil {
		telemetry.Error("report.fail_persist", map[string]any{
			"report_id": report.ID,
			"owner_id":  report.OwnerID,
			"error":     err.Error(),
		})
	}
	metrics.IncPipelineFailed()
	telemetry.Info("report.failed", map[string]any{
		"report_id":     report.ID,
		"owner_id":      report.OwnerID,
		"code":          code,
		"processing_ms": elapsedMs,
	})
	return &PipelineError{Code: code, Message: message, ReportID: report.ID, Err: cause}
}

func extractFailure(err error) (string, string) {
	var eerr *extract.Error
	if errors.As(err, &eerr) {
		switch eerr.Kind {
		case extract.KindUnsupportedType:
			return CodeUnsupportedFileType, eerr.Reason
		case extract.KindNoText:
			return CodeNoTextExtracted, eerr.Reason
		}
	}
	return CodeExtractionFailed, "failed to extract text from the uploaded file"
}

func analysisFailure(err error) (string, string) {
	var aerr *analysis.Error
	if errors.As(err, &aerr) {
		switch aerr.Kind {
		case analysis.KindInsufficientInput:
			return CodeInsufficientInput, aerr.Message
		case analysis.KindMalformedResponse:
			return CodeMalformedAnalysis, aerr.Message
		case analysis.KindServiceBusy:
			return CodeServiceBusy, aerr.Message
		case analysis.KindInputTooLarge:
			return CodeInputTooLarge, aerr.Message
		}
	}
	return CodeAnalysisFailed, "analysis failed"
}
