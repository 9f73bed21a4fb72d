package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"botwatch/internal/botconfig"
	"botwatch/internal/core/txstate"
	"botwatch/internal/infra/storage"
	"botwatch/internal/ledger"
	"botwatch/internal/registry"
)

// httpError maps service errors onto HTTP status codes. Unknown errors
// become a logged 500 with a generic body.
func httpError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrWalletNotFound),
		errors.Is(err, storage.ErrTxNotFound),
		errors.Is(err, storage.ErrConfigNotFound),
		errors.Is(err, storage.ErrNotificationNotFound),
		errors.Is(err, storage.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, storage.ErrDuplicateAddress),
		errors.Is(err, storage.ErrDuplicateTxID):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, registry.ErrInvalidAddress),
		errors.Is(err, registry.ErrInvalidLevel),
		errors.Is(err, txstate.ErrInvalidTransition),
		errors.Is(err, botconfig.ErrNotParentWallet),
		errors.Is(err, botconfig.ErrInvalidBand),
		errors.Is(err, ledger.ErrNotRetryable),
		errors.Is(err, ledger.ErrRetryExhausted),
		errors.Is(err, ledger.ErrMissingTxID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		slog.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
