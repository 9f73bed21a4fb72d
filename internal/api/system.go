package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"botwatch/internal/health"
)

type systemHandler struct {
	monitor *health.Monitor
}

func newSystemHandler(monitor *health.Monitor) *systemHandler {
	return &systemHandler{monitor: monitor}
}

// Healthz reports aggregated component health. Critical maps to 503 so load
// balancers take the instance out of rotation.
func (h *systemHandler) Healthz(c *gin.Context) {
	report := h.monitor.CheckHealth(c.Request.Context())

	status := http.StatusOK
	if report.Status == health.StatusCritical {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func (h *systemHandler) BotStatus(c *gin.Context) {
	status, err := h.monitor.Status(c.Request.Context())
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
