package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/navrelay/internal/platform/ctxutil"
)

func TestAttachTraceContextMintsIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())

	var seen *ctxutil.TraceData
	r.GET("/health", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.NotNil(t, seen)
	require.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	require.NotEmpty(t, rec.Header().Get(HeaderTraceID))
	require.Equal(t, seen.RequestID, rec.Header().Get(HeaderRequestID))
	require.Equal(t, seen.TraceID, rec.Header().Get(HeaderTraceID))
}

func TestAttachTraceContextEchoesIncomingIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	req.Header.Set(HeaderTraceID, "trace-abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, "req-123", rec.Header().Get(HeaderRequestID))
	require.Equal(t, "trace-abc", rec.Header().Get(HeaderTraceID))
}
