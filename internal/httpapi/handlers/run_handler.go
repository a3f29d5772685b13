package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ledgerpipe/ledgerpipe/internal/httpapi/response"
	pipeerrors "github.com/ledgerpipe/ledgerpipe/internal/pipeline/errors"
	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
	"github.com/ledgerpipe/ledgerpipe/internal/run"
	"github.com/ledgerpipe/ledgerpipe/internal/store"
)

// RunHandler handles the sales-pipeline Run lifecycle over HTTP.
type RunHandler struct {
	coordinator *run.Coordinator
	db          *store.DB
}

// NewRunHandler creates a new run handler.
func NewRunHandler(coordinator *run.Coordinator, db *store.DB) *RunHandler {
	return &RunHandler{coordinator: coordinator, db: db}
}

// createRunRequest is the JSON body for POST /api/v1/runs.
type createRunRequest struct {
	Channel       string `json:"channel" binding:"required"`
	GSTIN         string `json:"gstin" binding:"required"`
	Month         string `json:"month" binding:"required"`
	InputPath     string `json:"input_path" binding:"required"`
	ReturnsPath   string `json:"returns_path"`
	StrictMapping bool   `json:"strict_mapping"`
	Overwrite     bool   `json:"overwrite"`
}

// CreateRun handles POST /api/v1/runs: triggers one ingest of the
// normalize -> resolve -> tax -> pivot -> batch -> voucher pipeline.
func (h *RunHandler) CreateRun(c *gin.Context) {
	var req createRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request", map[string]string{"error": err.Error()})
		return
	}

	outcome, err := h.coordinator.Run(c.Request.Context(), run.Request{
		Channel:       rows.Channel(req.Channel),
		GSTIN:         req.GSTIN,
		Month:         req.Month,
		InputPath:     req.InputPath,
		ReturnsPath:   req.ReturnsPath,
		StrictMapping: req.StrictMapping,
		Overwrite:     req.Overwrite,
	})
	if err != nil {
		writeRunError(c, err)
		return
	}

	response.Accepted(c, outcome)
}

// GetRun handles GET /api/v1/runs/:id.
func (h *RunHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid run id", nil)
		return
	}

	r, err := h.db.GetRun(c.Request.Context(), id)
	if err == store.ErrNotFound {
		response.NotFound(c, "run not found")
		return
	}
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	artifacts, err := h.db.ListArtifacts(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"run": r, "artifacts": artifacts})
}

func writeRunError(c *gin.Context, err error) {
	perr, ok := err.(*pipeerrors.Error)
	if !ok {
		response.InternalError(c, err.Error())
		return
	}
	if perr.Kind.IsRecoverable() {
		response.ServiceUnavailable(c, perr.Error())
		return
	}
	response.ValidationError(c, perr.Error(), map[string]string{"kind": string(perr.Kind), "stage": perr.Stage})
}
