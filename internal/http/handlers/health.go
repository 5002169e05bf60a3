package handlers

import (
	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/navrelay/internal/domain/navigation"
	"github.com/yungbote/navrelay/internal/http/response"
)

type HealthHandler struct {
	clk clock.Clock
}

func NewHealthHandler(clk clock.Clock) *HealthHandler {
	if clk == nil {
		clk = clock.New()
	}
	return &HealthHandler{clk: clk}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	response.RespondOK(c, gin.H{"ok": true, "now": navigation.FormatTime(h.clk.Now())})
}
