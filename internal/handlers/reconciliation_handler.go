package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rwatoken/internal/services"
)

// ReconciliationHandler serves transaction status lookups and the
// operator reconciliation endpoints.
type ReconciliationHandler struct {
	reconciliationService services.ReconciliationServicer
	batchLimit            int
}

// NewReconciliationHandler creates a new ReconciliationHandler. batchLimit
// caps one batch run; zero means services.DefaultReconcileBatch.
func NewReconciliationHandler(reconciliationService services.ReconciliationServicer, batchLimit int) *ReconciliationHandler {
	if batchLimit <= 0 {
		batchLimit = services.DefaultReconcileBatch
	}
	return &ReconciliationHandler{reconciliationService: reconciliationService, batchLimit: batchLimit}
}

// RunRequest optionally overrides the batch size of one run.
type RunRequest struct {
	Limit int `json:"limit" binding:"omitempty,min=1,max=500"`
}

// GetTransactionStatus handles re-querying an issuance by transaction hash.
// @Summary     Transaction status
// @Description Look an issuance transaction up in the store, falling back to the ledger
// @Tags        tokenizations
// @Produce     json
// @Security    BearerAuth
// @Param       hash path string true "Transaction hash"
// @Success     200 {object} services.TransactionStatus "Status"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     502 {object} ErrorResponse "Ledger unavailable"
// @Router      /tokenizations/tx/{hash} [get]
func (h *ReconciliationHandler) GetTransactionStatus(c *gin.Context) {
	hash, err := pathParam(c, "hash")
	if err != nil {
		respondWithError(c, err)
		return
	}

	status, err := h.reconciliationService.Status(c.Request.Context(), hash)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Reconcile handles finishing the bookkeeping of one operation.
// @Summary     Reconcile operation
// @Description Re-run missing bookkeeping for a validated issuance without resubmitting it
// @Tags        ops
// @Produce     json
// @Security    ApiKeyAuth
// @Param       operationId path string true "Operation ID"
// @Success     200 {object} services.ReconcileResult "Reconciliation outcome"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     404 {object} ErrorResponse "Task not found"
// @Failure     409 {object} ErrorResponse "Manual reconciliation required"
// @Router      /ops/reconciliations/{operationId} [post]
func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	opID, err := pathParam(c, "operationId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.reconciliationService.Reconcile(c.Request.Context(), opID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RunPending handles one batch pass over open tasks.
// @Summary     Run reconciliation batch
// @Tags        ops
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body RunRequest false "Batch size"
// @Success     200 {object} services.RunResult "Batch summary"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Router      /ops/reconciliations/run [post]
func (h *ReconciliationHandler) RunPending(c *gin.Context) {
	var req RunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, bindingError(err))
			return
		}
	}
	limit := h.batchLimit
	if req.Limit > 0 {
		limit = req.Limit
	}

	c.JSON(http.StatusOK, h.reconciliationService.ReconcilePending(c.Request.Context(), limit))
}
