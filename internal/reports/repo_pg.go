package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"labreport-backend/internal/analysis"
	"labreport-backend/internal/llm"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new report.
func (r *PGRepo) Create(ctx context.Context, report Report) error {
	const query = `
INSERT INTO reports (
	id, owner_id, file_name, file_kind, report_type, raw_extracted_text,
	profile, status, processing_ms, credits_used, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	profilePayload, err := marshalNullableJSON(report.Profile)
	if err != nil {
		return err
	}
	reportType := report.ReportType
	if reportType == "" {
		reportType = "general"
	}
	_, err = r.DB.ExecContext(ctx, query,
		report.ID,
		report.OwnerID,
		report.FileName,
		report.FileKind,
		reportType,
		report.RawExtractedText,
		profilePayload,
		report.Status,
		report.ProcessingMs,
		report.CreditsUsed,
		report.CreatedAt,
		report.UpdatedAt,
	)
	return err
}

// GetByID returns a report by ID, scoped to the owner.
func (r *PGRepo) GetByID(ctx context.Context, ownerID, reportID string) (Report, error) {
	const query = selectColumns + `
FROM reports
WHERE id = $1 AND owner_id = $2
LIMIT 1`
	row := r.DB.QueryRowContext(ctx, query, reportID, ownerID)
	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	return report, err
}

// ListByOwner returns an owner's reports, newest first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int, status string) ([]Report, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := selectColumns + `
FROM reports
WHERE owner_id = $1`
	args := []any{ownerID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += `
ORDER BY created_at DESC
LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

// SetExtraction records the extraction output and classified type.
func (r *PGRepo) SetExtraction(ctx context.Context, ownerID, reportID, rawText, reportType string) error {
	const query = `
UPDATE reports
SET raw_extracted_text = $1, report_type = $2, updated_at = $3
WHERE id = $4 AND owner_id = $5`
	return r.exec(ctx, query, rawText, reportType, time.Now().UTC(), reportID, ownerID)
}

// MarkProcessing transitions a report back into processing.
func (r *PGRepo) MarkProcessing(ctx context.Context, ownerID, reportID string) error {
	const query = `
UPDATE reports
SET status = $1, updated_at = $2
WHERE id = $3 AND owner_id = $4`
	return r.exec(ctx, query, StatusProcessing, time.Now().UTC(), reportID, ownerID)
}

// MarkCompleted stores the analysis result and clears any prior error.
func (r *PGRepo) MarkCompleted(ctx context.Context, ownerID, reportID string, result analysis.Result, processingMs int64, creditsUsed int) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	const query = `
UPDATE reports
SET status = $1, analysis = $2, error_code = NULL, error_message = NULL,
    processing_ms = $3, credits_used = $4, updated_at = $5
WHERE id = $6 AND owner_id = $7`
	return r.exec(ctx, query, StatusCompleted, payload, processingMs, creditsUsed, time.Now().UTC(), reportID, ownerID)
}

// MarkFailed records the failure and clears any prior analysis.
func (r *PGRepo) MarkFailed(ctx context.Context, ownerID, reportID, errorCode, errorMessage string, processingMs int64) error {
	const query = `
UPDATE reports
SET status = $1, analysis = NULL, error_code = $2, error_message = $3,
    processing_ms = $4, updated_at = $5
WHERE id = $6 AND owner_id = $7`
	return r.exec(ctx, query, StatusFailed, errorCode, errorMessage, processingMs, time.Now().UTC(), reportID, ownerID)
}

// Delete removes a report, scoped to the owner.
func (r *PGRepo) Delete(ctx context.Context, ownerID, reportID string) error {
	const query = `DELETE FROM reports WHERE id = $1 AND owner_id = $2`
	return r.exec(ctx, query, reportID, ownerID)
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

const selectColumns = `
SELECT id, owner_id, file_name, file_kind, report_type, raw_extracted_text,
       profile, status, analysis, error_code, error_message,
       processing_ms, credits_used, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (Report, error) {
	var report Report
	var profile sql.NullString
	var result sql.NullString
	var errorCode sql.NullString
	var errorMessage sql.NullString
	err := row.Scan(
		&report.ID,
		&report.OwnerID,
		&report.FileName,
		&report.FileKind,
		&report.ReportType,
		&report.RawExtractedText,
		&profile,
		&report.Status,
		&result,
		&errorCode,
		&errorMessage,
		&report.ProcessingMs,
		&report.CreditsUsed,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return Report{}, err
	}
	if profile.Valid && profile.String != "" {
		var p llm.Profile
		if err := json.Unmarshal([]byte(profile.String), &p); err != nil {
			return Report{}, err
		}
		report.Profile = &p
	}
	if result.Valid && result.String != "" {
		var a analysis.Result
		if err := json.Unmarshal([]byte(result.String), &a); err != nil {
			return Report{}, err
		}
		report.Analysis = &a
	}
	report.ErrorCode = errorCode.String
	report.ErrorMessage = errorMessage.String
	return report, nil
}

func marshalNullableJSON(profile *llm.Profile) (any, error) {
	if profile == nil {
		return nil, nil
	}
	payload, err := json.Marshal(profile)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
