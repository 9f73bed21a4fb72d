package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"botwatch/internal/botconfig"
	"botwatch/internal/core/domain"
)

type configHandler struct {
	configs *botconfig.Service
}

func newConfigHandler(configs *botconfig.Service) *configHandler {
	return &configHandler{configs: configs}
}

func (h *configHandler) Get(c *gin.Context) {
	cfg, err := h.configs.Get(c.Request.Context(), c.Param("parent"))
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// Put replaces the whole configuration for a parent wallet. Fields absent
// from the body reset to their zero value.
func (h *configHandler) Put(c *gin.Context) {
	var input struct {
		MinAmount     decimal.Decimal `json:"min_amount"`
		MaxAmount     decimal.Decimal `json:"max_amount"`
		BuyThreshold  decimal.Decimal `json:"buy_threshold"`
		SellThreshold decimal.Decimal `json:"sell_threshold"`
		StopLoss      decimal.Decimal `json:"stop_loss"`
		SlippageBps   int             `json:"slippage_bps"`
		Enabled       bool            `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := &domain.BotConfiguration{
		ParentWalletAddress: c.Param("parent"),
		MinAmount:           input.MinAmount,
		MaxAmount:           input.MaxAmount,
		BuyThreshold:        input.BuyThreshold,
		SellThreshold:       input.SellThreshold,
		StopLoss:            input.StopLoss,
		SlippageBps:         input.SlippageBps,
		Enabled:             input.Enabled,
	}
	if err := h.configs.Put(c.Request.Context(), cfg); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}
