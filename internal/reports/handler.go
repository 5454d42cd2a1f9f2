package reports

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/credits"
	"labreport-backend/internal/llm"
	"labreport-backend/internal/shared/server/middleware"
	"labreport-backend/internal/shared/server/respond"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handler exposes report endpoints.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches report routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reports/analyze", h.analyze)
	rg.POST("/reports/:id/reanalyze", h.reanalyze)
	rg.GET("/reports", h.list)
	rg.GET("/reports/:id", h.get)
	rg.DELETE("/reports/:id", h.delete)
}

func (h *Handler) analyze(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+4096)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "uploaded file exceeds the size limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "no_file_provided", "a report file is required", nil)
		return
	}
	if fileHeader.Size > h.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "uploaded file exceeds the size limit", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_file", "could not read the uploaded file", nil)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, h.MaxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_file", "could not read the uploaded file", nil)
		return
	}
	if int64(len(data)) > h.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "uploaded file exceeds the size limit", nil)
		return
	}

	profile, err := profileFromForm(c)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_profile", err.Error(), nil)
		return
	}

	result, err := h.Svc.Submit(c.Request.Context(), SubmitInput{
		OwnerID:  ownerID,
		FileName: fileHeader.Filename,
		MIMEType: fileHeader.Header.Get("Content-Type"),
		Data:     data,
		Profile:  profile,
	})
	if err != nil {
		writePipelineError(c, err)
		return
	}
	respond.OK(c, submitPayload(result))
}

func (h *Handler) reanalyze(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	result, err := h.Svc.Reanalyze(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		writePipelineError(c, err)
		return
	}
	respond.OK(c, submitPayload(result))
}

func (h *Handler) list(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	page, err := positiveQueryInt(c, "page", 1)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_pagination", "page must be a positive integer", nil)
		return
	}
	pageSize, err := positiveQueryInt(c, "pageSize", defaultPageSize)
	if err != nil || pageSize > maxPageSize {
		respond.Error(c, http.StatusBadRequest, "invalid_pagination", "pageSize must be between 1 and 100", nil)
		return
	}
	status := c.Query("status")
	if status != "" && !ValidStatus(status) {
		respond.Error(c, http.StatusBadRequest, "invalid_status", "status must be processing, completed or failed", nil)
		return
	}

	list, err := h.Svc.List(c.Request.Context(), ownerID, pageSize, (page-1)*pageSize, status)
	if err != nil {
		writePipelineError(c, err)
		return
	}
	respond.OK(c, gin.H{
		"reports":  list,
		"page":     page,
		"pageSize": pageSize,
	})
}

func (h *Handler) get(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	report, err := h.Svc.Get(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		writePipelineError(c, err)
		return
	}
	respond.OK(c, report)
}

func (h *Handler) delete(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	if err := h.Svc.Delete(c.Request.Context(), ownerID, c.Param("id")); err != nil {
		writePipelineError(c, err)
		return
	}
	respond.OK(c, gin.H{"deleted": true})
}

func submitPayload(result SubmitResult) gin.H {
	return gin.H{
		"reportId":         result.Report.ID,
		"reportType":       result.Report.ReportType,
		"analysis":         result.Report.Analysis,
		"processingTimeMs": result.Report.ProcessingMs,
		"creditsUsed":      result.Report.CreditsUsed,
		"creditsRemaining": result.CreditsRemaining,
	}
}

func profileFromForm(c *gin.Context) (*llm.Profile, error) {
	ageRaw := strings.TrimSpace(c.PostForm("age"))
	gender := strings.TrimSpace(c.PostForm("gender"))
	conditions := conditionsFromForm(c)
	if ageRaw == "" && gender == "" && len(conditions) == 0 {
		return nil, nil
	}

	profile := &llm.Profile{Gender: gender, Conditions: conditions}
	if ageRaw != "" {
		age, err := strconv.Atoi(ageRaw)
		if err != nil || age < 0 || age > 150 {
			return nil, errors.New("age must be an integer between 0 and 150")
		}
		profile.Age = age
	}
	return profile, nil
}

func conditionsFromForm(c *gin.Context) []string {
	var out []string
	for _, raw := range c.PostFormArray("conditions") {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func positiveQueryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return value, nil
}

func writePipelineError(c *gin.Context, err error) {
	var perr *PipelineError
	switch {
	case errors.As(err, &perr):
		respond.Error(c, statusForCode(perr.Code), perr.Code, perr.Message, gin.H{"reportId": perr.ReportID})
	case errors.Is(err, ErrNoFile):
		respond.Error(c, http.StatusBadRequest, "no_file_provided", "a report file is required", nil)
	case errors.Is(err, ErrNoExtractedText):
		respond.Error(c, http.StatusUnprocessableEntity, "no_extracted_text", "report has no extracted text to reanalyze", nil)
	case errors.Is(err, credits.ErrInsufficientCredits):
		respond.Error(c, http.StatusPaymentRequired, "insufficient_credits", "not enough credits for an analysis", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "request_cancelled", "request cancelled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected failure", nil)
	}
}

func statusForCode(code string) int {
	switch code {
	case CodeUnsupportedFileType:
		return http.StatusUnsupportedMediaType
	case CodeNoTextExtracted, CodeInsufficientInput, CodeExtractionFailed:
		return http.StatusUnprocessableEntity
	case CodeServiceBusy:
		return http.StatusServiceUnavailable
	case CodeInputTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadGateway
	}
}
