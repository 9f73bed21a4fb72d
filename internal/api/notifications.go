package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"botwatch/internal/notify"
)

// streamHeartbeat keeps idle SSE connections alive through proxies.
const streamHeartbeat = 25 * time.Second

type notificationHandler struct {
	notifications *notify.Service
	hub           *notify.Hub
}

func newNotificationHandler(svc *notify.Service, hub *notify.Hub) *notificationHandler {
	return &notificationHandler{notifications: svc, hub: hub}
}

func (h *notificationHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	onlyUnread := c.Query("unread") == "true"

	items, err := h.notifications.List(c.Request.Context(), onlyUnread, limit)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *notificationHandler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	if err := h.notifications.MarkRead(c.Request.Context(), id); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_read": true})
}

func (h *notificationHandler) MarkAllRead(c *gin.Context) {
	marked, err := h.notifications.MarkAllRead(c.Request.Context())
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

// Stream pushes notifications to the client as server-sent events until the
// client disconnects or the hub shuts down.
func (h *notificationHandler) Stream(c *gin.Context) {
	ch, cancel := h.hub.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case n, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("notification", n)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
