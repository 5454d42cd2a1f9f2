package reports

import (
	"context"

	"labreport-backend/internal/analysis"
)

// Repo defines persistence operations for reports. All lookups are
// scoped to the owning user.
type Repo interface {
	Create(ctx context.Context, report Report) error
	GetByID(ctx context.Context, ownerID, reportID string) (Report, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int, status string) ([]Report, error)
	SetExtraction(ctx context.Context, ownerID, reportID, rawText, reportType string) error
	MarkProcessing(ctx context.Context, ownerID, reportID string) error
	MarkCompleted(ctx context.Context, ownerID, reportID string, result analysis.Result, processingMs int64, creditsUsed int) error
	MarkFailed(ctx context.Context, ownerID, reportID, errorCode, errorMessage string, processingMs int64) error
	Delete(ctx context.Context, ownerID, reportID string) error
}
