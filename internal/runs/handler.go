package runs

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"extraction-backend/internal/shared/server/respond"
	"extraction-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the run service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches run routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/schemas/:id/extract", h.extract)
	rg.GET("/runs/:id", h.get)
}

type extractRequest struct {
	DocumentRefs []string `json:"documentRefs"`
	Pages        string   `json:"pages"`
	Locale       string   `json:"locale"`
}

func (h *Handler) extract(c *gin.Context) {
	schemaID := c.Param("id")
	c.Set("schemaId", schemaID)

	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if len(req.DocumentRefs) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "documentRefs is required", nil)
		return
	}

	run, err := h.Svc.Create(c.Request.Context(), schemaID, req.DocumentRefs, SubmitOptions{
		Pages:  req.Pages,
		Locale: req.Locale,
	})
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	c.Set("runId", run.ID)
	respond.Accepted(c, toDTO(run, nil))
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("runId", id)

	run, err := h.Svc.Get(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
		return
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load run", nil)
		return
	}

	dto := toDTO(run, nil)
	if run.Status == StatusCompleted && run.ResultKey != "" {
		result, err := h.Svc.LoadResult(c.Request.Context(), run)
		if err != nil {
			telemetry.Warn("run.result_load", map[string]any{
				"run_id": run.ID,
				"error":  err.Error(),
			})
		} else {
			dto.Result = result
		}
	}
	respond.OK(c, dto)
}
