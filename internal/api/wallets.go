package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"botwatch/internal/registry"
)

type walletHandler struct {
	registry *registry.Service
}

func newWalletHandler(reg *registry.Service) *walletHandler {
	return &walletHandler{registry: reg}
}

func (h *walletHandler) Create(c *gin.Context) {
	var input struct {
		Address string `json:"address" binding:"required"`
		Label   string `json:"label"`
		Level   int    `json:"level"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wallet, err := h.registry.Register(c.Request.Context(), input.Address, input.Label, input.Level)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wallet)
}

func (h *walletHandler) List(c *gin.Context) {
	wallets, err := h.registry.List(c.Request.Context())
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallets)
}

func (h *walletHandler) Get(c *gin.Context) {
	wallet, err := h.registry.Get(c.Request.Context(), c.Param("address"))
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (h *walletHandler) SetActive(c *gin.Context) {
	var input struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	address := c.Param("address")
	if err := h.registry.SetActive(c.Request.Context(), address, *input.Active); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address, "is_active": *input.Active})
}

func (h *walletHandler) QR(c *gin.Context) {
	size, err := strconv.Atoi(c.DefaultQuery("size", "256"))
	if err != nil || size <= 0 || size > 2048 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid size"})
		return
	}

	png, err := h.registry.QRCode(c.Request.Context(), c.Param("address"), size)
	if err != nil {
		httpError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
