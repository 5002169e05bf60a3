package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/navrelay/internal/normalization"
	"github.com/yungbote/navrelay/internal/platform/logger"
	"github.com/yungbote/navrelay/internal/realtime"
	"github.com/yungbote/navrelay/internal/services"
)

type RealtimeHandler struct {
	Log   *logger.Logger
	Hub   *realtime.Hub
	relay *services.RelayService
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub, relay *services.RelayService) *RealtimeHandler {
	return &RealtimeHandler{
		Log:   log.With("component", "RealtimeHandler"),
		Hub:   hub,
		relay: relay,
	}
}

// ServeWS upgrades first and then validates userId, so a bad id is reported
// to the client as a 1008 close rather than an HTTP error.
func (h *RealtimeHandler) ServeWS(c *gin.Context) {
	conn, err := h.Hub.Upgrade(c.Writer, c.Request)
	if err != nil {
		h.Log.Debug("websocket upgrade failed", "error", err)
		return
	}

	userID := c.Query("userId")
	switch {
	case userID == "" && h.relay.MultiTenant():
		h.Hub.Reject(conn, "userId query parameter is required")
		return
	case userID != "" && !normalization.IsSafeID(userID):
		h.Hub.Reject(conn, "invalid userId")
		return
	}

	client := h.Hub.NewClient(conn, h.relay.Tenant(userID), userID)
	h.Log.Info("websocket open", "user_id", client.Tenant, "conn_id", client.ID.String())
	client.Serve()
	h.Log.Info("websocket closed",
		"user_id", client.Tenant,
		"conn_id", client.ID.String(),
		"tenant_sockets", h.Hub.CountTenant(client.Tenant),
	)
}
