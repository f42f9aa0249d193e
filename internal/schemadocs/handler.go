package schemadocs

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"extraction-backend/internal/schema"
	"extraction-backend/internal/shared/server/respond"
)

// maxSchemaBytes bounds the request body for schema registration.
const maxSchemaBytes = 1 << 20

// Handler wires HTTP handlers to the schema service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches schema routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/schemas/:id", h.put)
	rg.GET("/schemas/:id", h.get)
}

type schemaDTO struct {
	Record
	Document schema.Document `json:"document"`
}

func (h *Handler) put(c *gin.Context) {
	id := c.Param("id")
	c.Set("schemaId", id)

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSchemaBytes))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "failed to read request body", nil)
		return
	}
	if len(raw) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "request body is required", nil)
		return
	}

	rec, doc, err := h.Svc.Put(c.Request.Context(), id, raw)
	if err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			respond.Error(c, http.StatusUnprocessableEntity, verr.Code, verr.Error(), gin.H{"path": verr.Path})
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store schema", nil)
		return
	}
	respond.OK(c, schemaDTO{Record: rec, Document: doc})
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("schemaId", id)

	rec, doc, err := h.Svc.Get(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", "schema not found", nil)
		return
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load schema", nil)
		return
	}
	respond.OK(c, schemaDTO{Record: rec, Document: doc})
}
