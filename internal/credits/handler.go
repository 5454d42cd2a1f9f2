package credits

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/shared/server/middleware"
	"labreport-backend/internal/shared/server/respond"
)

// Handler exposes credit endpoints.
type Handler struct {
	Ledger *Ledger
}

// NewHandler constructs a Handler.
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{Ledger: ledger}
}

// RegisterRoutes attaches credit routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/credits", h.getCredits)
}

// RegisterDevRoutes attaches dev-only credit routes.
func (h *Handler) RegisterDevRoutes(rg *gin.RouterGroup) {
	rg.POST("/credits/reset", h.resetCredits)
}

func (h *Handler) getCredits(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	b, err := h.Ledger.Get(c.Request.Context(), ownerID)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	respond.OK(c, creditsPayload(b))
}

func (h *Handler) resetCredits(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	b, err := h.Ledger.Reset(c.Request.Context(), ownerID)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	respond.OK(c, creditsPayload(b))
}

func creditsPayload(b Balance) gin.H {
	return gin.H{
		"plan":      b.Plan,
		"limit":     b.Limit,
		"used":      b.Used,
		"remaining": b.Remaining(),
		"resetsAt":  b.ResetsAt,
	}
}

func writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		respond.Error(c, http.StatusRequestTimeout, "request_cancelled", "request cancelled", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load credits", nil)
}
