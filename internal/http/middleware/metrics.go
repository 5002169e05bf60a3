package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/navrelay/internal/observability"
)

// Metrics counts requests by method, matched route and status.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		m.HTTPInflight.Inc()
		defer m.HTTPInflight.Dec()

		c.Next()

		m.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status())
	}
}
