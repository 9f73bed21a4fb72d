package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"botwatch/internal/core/domain"
	"botwatch/internal/infra/storage"
	"botwatch/internal/ingest"
	"botwatch/internal/ledger"
)

type transactionHandler struct {
	ledger   *ledger.Service
	pipeline *ingest.Pipeline
}

func newTransactionHandler(led *ledger.Service, pipeline *ingest.Pipeline) *transactionHandler {
	return &transactionHandler{ledger: led, pipeline: pipeline}
}

// Create runs the observed event through the full ingest path synchronously
// so the caller sees duplicates and validation failures immediately.
func (h *transactionHandler) Create(c *gin.Context) {
	var ev domain.TxEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ev.Source = domain.SourceAPI

	ctx := c.Request.Context()
	if err := h.pipeline.Process(ctx, &ev); err != nil {
		httpError(c, err)
		return
	}

	tx, err := h.ledger.Get(ctx, ev.TxID)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (h *transactionHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	txs, err := h.ledger.List(c.Request.Context(), storage.TxFilter{
		Wallet: c.Query("wallet"),
		Status: domain.TxStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (h *transactionHandler) Get(c *gin.Context) {
	tx, err := h.ledger.Get(c.Request.Context(), c.Param("txid"))
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *transactionHandler) UpdateStatus(c *gin.Context) {
	var input struct {
		Status     string `json:"status" binding:"required"`
		FailReason string `json:"fail_reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.ledger.UpdateStatus(c.Request.Context(), c.Param("txid"), domain.TxStatus(input.Status), input.FailReason)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *transactionHandler) Retry(c *gin.Context) {
	tx, err := h.ledger.Retry(c.Request.Context(), c.Param("txid"))
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}
