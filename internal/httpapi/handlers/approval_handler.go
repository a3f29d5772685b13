package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerpipe/ledgerpipe/internal/approval"
	"github.com/ledgerpipe/ledgerpipe/internal/httpapi/response"
	"github.com/ledgerpipe/ledgerpipe/internal/store/models"
)

// ApprovalHandler handles the Approval Queue over HTTP.
type ApprovalHandler struct {
	queue *approval.Queue
}

// NewApprovalHandler creates a new approval handler.
func NewApprovalHandler(queue *approval.Queue) *ApprovalHandler {
	return &ApprovalHandler{queue: queue}
}

// List handles GET /api/v1/approvals?status=pending&type=item.
func (h *ApprovalHandler) List(c *gin.Context) {
	status := models.ApprovalStatus(c.DefaultQuery("status", string(models.ApprovalPending)))

	var typePtr *models.ApprovalType
	if t := c.Query("type"); t != "" {
		at := models.ApprovalType(t)
		typePtr = &at
	}

	requests, err := h.queue.List(c.Request.Context(), status, typePtr)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, requests)
}

type decideRequest struct {
	Approved bool   `json:"approved"`
	Approver string `json:"approver" binding:"required"`
	Override struct {
		FG         string `json:"fg"`
		GSTRate    string `json:"gst_rate"`
		LedgerName string `json:"ledger_name"`
	} `json:"override"`
}

// DecideItem handles POST /api/v1/approvals/item/:id/decide.
func (h *ApprovalHandler) DecideItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid approval id", nil)
		return
	}
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request", map[string]string{"error": err.Error()})
		return
	}

	var override *approval.ItemOverride
	if req.Override.FG != "" || req.Override.GSTRate != "" {
		override = &approval.ItemOverride{FG: req.Override.FG}
		if req.Override.GSTRate != "" {
			rate, err := decimal.NewFromString(req.Override.GSTRate)
			if err != nil {
				response.BadRequest(c, "invalid override gst_rate", map[string]string{"error": err.Error()})
				return
			}
			override.GSTRate = rate
		}
	}

	if err := h.queue.DecideItem(c.Request.Context(), id, req.Approved, req.Approver, override); err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"id": id, "approved": req.Approved})
}

// DecideLedger handles POST /api/v1/approvals/ledger/:id/decide.
func (h *ApprovalHandler) DecideLedger(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid approval id", nil)
		return
	}
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request", map[string]string{"error": err.Error()})
		return
	}

	var override *approval.LedgerOverride
	if req.Override.LedgerName != "" {
		override = &approval.LedgerOverride{LedgerName: req.Override.LedgerName}
	}

	if err := h.queue.DecideLedger(c.Request.Context(), id, req.Approved, req.Approver, override); err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"id": id, "approved": req.Approved})
}
