package handlers

import (
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/navrelay/internal/domain/navigation"
	"github.com/yungbote/navrelay/internal/http/response"
	"github.com/yungbote/navrelay/internal/observability"
)

type MetricsHandler struct {
	clk     clock.Clock
	metrics *observability.Metrics
}

func NewMetricsHandler(clk clock.Clock, metrics *observability.Metrics) *MetricsHandler {
	if clk == nil {
		clk = clock.New()
	}
	return &MetricsHandler{clk: clk, metrics: metrics}
}

// GetMetrics serves the JSON snapshot, or the Prometheus text format with
// ?format=prometheus.
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	if strings.EqualFold(c.Query("format"), "prometheus") {
		h.metrics.WriteHTTP(c.Writer, c.Request)
		return
	}
	snap := h.metrics.Snapshot()
	response.RespondOK(c, gin.H{
		"ok":       true,
		"now":      navigation.FormatTime(h.clk.Now()),
		"uptimeMs": snap.UptimeMs,
		"counters": snap.Counters,
		"gauges":   snap.Gauges,
	})
}
