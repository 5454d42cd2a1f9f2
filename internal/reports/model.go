package reports

import (
	"time"

	"labreport-backend/internal/analysis"
	"labreport-backend/internal/llm"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ValidStatus reports whether s is a known report status.
func ValidStatus(s string) bool {
	return s == StatusProcessing || s == StatusCompleted || s == StatusFailed
}

// Report represents one analyzed lab-report upload.
type Report struct {
	ID               string           `json:"id"`
	OwnerID          string           `json:"-"`
	FileName         string           `json:"fileName"`
	FileKind         string           `json:"fileKind"`
	ReportType       string           `json:"reportType"`
	RawExtractedText string           `json:"-"`
	Profile          *llm.Profile     `json:"profile,omitempty"`
	Status           string           `json:"status"`
	Analysis         *analysis.Result `json:"analysis,omitempty"`
	ErrorCode        string           `json:"errorCode,omitempty"`
	ErrorMessage     string           `json:"errorMessage,omitempty"`
	ProcessingMs     int64            `json:"processingTimeMs"`
	CreditsUsed      int              `json:"creditsUsed"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}
