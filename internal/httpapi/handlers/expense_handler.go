package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ledgerpipe/ledgerpipe/internal/httpapi/response"
	"github.com/ledgerpipe/ledgerpipe/internal/pipeline/rows"
	"github.com/ledgerpipe/ledgerpipe/internal/run"
)

// ExpenseHandler handles the seller-invoice expense pipeline over HTTP.
type ExpenseHandler struct {
	coordinator *run.Coordinator
}

// NewExpenseHandler creates a new expense handler.
func NewExpenseHandler(coordinator *run.Coordinator) *ExpenseHandler {
	return &ExpenseHandler{coordinator: coordinator}
}

type createExpenseRunRequest struct {
	Channel     string `json:"channel" binding:"required"`
	GSTIN       string `json:"gstin" binding:"required"`
	Month       string `json:"month" binding:"required"`
	InvoicePath string `json:"invoice_path" binding:"required"`
}

// CreateExpenseRun handles POST /api/v1/expense-runs: parses one
// seller fee statement (PDF or spreadsheet), classifies and prices its
// line items, and assembles the double-entry expense voucher workbook.
func (h *ExpenseHandler) CreateExpenseRun(c *gin.Context) {
	var req createExpenseRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request", map[string]string{"error": err.Error()})
		return
	}

	outcome, err := h.coordinator.RunExpense(c.Request.Context(), run.ExpenseRequest{
		Channel:     rows.Channel(req.Channel),
		GSTIN:       req.GSTIN,
		Month:       req.Month,
		InvoicePath: req.InvoicePath,
	})
	if err != nil {
		writeRunError(c, err)
		return
	}

	response.Accepted(c, outcome)
}
