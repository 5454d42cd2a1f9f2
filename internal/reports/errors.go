package reports

import "errors"

var (
	// ErrNotFound means the report does not exist for this owner.
	ErrNotFound = errors.New("report not found")
	// ErrNoFile means the submission carried no file. No report record
	// is created for this case.
	ErrNoFile = errors.New("no file provided")
	// ErrNoExtractedText blocks reanalysis of a report whose original
	// extraction never produced text.
	ErrNoExtractedText = errors.New("report has no extracted text")
)

// Failure codes persisted on failed reports and returned to callers.
const (
	CodeUnsupportedFileType = "unsupported_file_type"
	CodeExtractionFailed    = "extraction_failed"
	CodeNoTextExtracted     = "no_text_extracted"
	CodeInsufficientInput   = "insufficient_input"
	CodeMalformedAnalysis   = "malformed_analysis_response"
	CodeServiceBusy         = "analysis_service_busy"
	CodeInputTooLarge       = "input_too_large"
	CodeAnalysisFailed      = "analysis_failed"
)

// PipelineError reports a pipeline stage failure that has already been
// recorded on a persisted report.
type PipelineError struct {
	Code     string
	Message  string
	ReportID string
	Err      error
}

func (e *PipelineError) Error() string { return e.Message }

func (e *PipelineError) Unwrap() error { return e.Err }
