package reports

import (
	"context"
	"sort"
	"sync"
	"time"

	"labreport-backend/internal/analysis"
)

// MemoryRepo stores reports in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Report
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Report)}
}

// Create stores the report.
func (r *MemoryRepo) Create(ctx context.Context, report Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[report.ID] = report
	return nil
}

// GetByID returns a report by ID, scoped to the owner.
func (r *MemoryRepo) GetByID(ctx context.Context, ownerID, reportID string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.byID[reportID]
	if !ok || report.OwnerID != ownerID {
		return Report{}, ErrNotFound
	}
	return report, nil
}

// ListByOwner returns an owner's reports, newest first, with
// limit/offset and an optional status filter.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int, status string) ([]Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	owned := make([]Report, 0)
	for _, report := range r.byID {
		if report.OwnerID != ownerID {
			continue
		}
		if status != "" && report.Status != status {
			continue
		}
		owned = append(owned, report)
	}
	r.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	if offset >= len(owned) {
		return []Report{}, nil
	}
	end := len(owned)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return owned[offset:end], nil
}

// SetExtraction records the extraction output and classified type.
func (r *MemoryRepo) SetExtraction(ctx context.Context, ownerID, reportID, rawText, reportType string) error {
	return r.update(ctx, ownerID, reportID, func(report *Report) {
		report.RawExtractedText = rawText
		report.ReportType = reportType
	})
}

// MarkProcessing transitions a report back into processing. Stale
// terminal fields are left in place until the next terminal write.
func (r *MemoryRepo) MarkProcessing(ctx context.Context, ownerID, reportID string) error {
	return r.update(ctx, ownerID, reportID, func(report *Report) {
		report.Status = StatusProcessing
	})
}

// MarkCompleted stores the analysis result and clears any prior error.
func (r *MemoryRepo) MarkCompleted(ctx context.Context, ownerID, reportID string, result analysis.Result, processingMs int64, creditsUsed int) error {
	return r.update(ctx, ownerID, reportID, func(report *Report) {
		report.Status = StatusCompleted
		report.Analysis = &result
		report.ErrorCode = ""
		report.ErrorMessage = ""
		report.ProcessingMs = processingMs
		report.CreditsUsed = creditsUsed
	})
}

// MarkFailed records the failure and clears any prior analysis.
func (r *MemoryRepo) MarkFailed(ctx context.Context, ownerID, reportID, errorCode, errorMessage string, processingMs int64) error {
	return r.update(ctx, ownerID, reportID, func(report *Report) {
		report.Status = StatusFailed
		report.Analysis = nil
		report.ErrorCode = errorCode
		report.ErrorMessage = errorMessage
		report.ProcessingMs = processingMs
	})
}

// Delete removes a report, scoped to the owner.
func (r *MemoryRepo) Delete(ctx context.Context, ownerID, reportID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.byID[reportID]
	if !ok || report.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.byID, reportID)
	return nil
}

func (r *MemoryRepo) update(ctx context.Context, ownerID, reportID string, apply func(*Report)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.byID[reportID]
	if !ok || report.OwnerID != ownerID {
		return ErrNotFound
	}
	apply(&report)
	report.UpdatedAt = time.Now().UTC()
	r.byID[reportID] = report
	return nil
}
