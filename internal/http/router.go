package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/navrelay/internal/http/handlers"
	httpMW "github.com/yungbote/navrelay/internal/http/middleware"
	"github.com/yungbote/navrelay/internal/http/response"
	"github.com/yungbote/navrelay/internal/observability"
	"github.com/yungbote/navrelay/internal/platform/apierr"
	"github.com/yungbote/navrelay/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	// TracingService names the otelgin server span; empty disables it.
	TracingService string

	HealthHandler   *httpH.HealthHandler
	MetricsHandler  *httpH.MetricsHandler
	RelayHandler    *httpH.RelayHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingService != "" {
		r.Use(otelgin.Middleware(cfg.TracingService))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", cfg.MetricsHandler.GetMetrics)
	}

	// Relay
	if cfg.RelayHandler != nil {
		r.GET("/state", cfg.RelayHandler.GetState)
		r.POST("/update", cfg.RelayHandler.PostUpdate)
	}

	// Realtime (WebSocket)
	if cfg.RealtimeHandler != nil {
		r.GET("/ws", cfg.RealtimeHandler.ServeWS)
	}

	// OPTIONS without an Origin never reaches the CORS preflight path.
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		response.RespondError(c, apierr.Newf(apierr.CodeNotFound, "no route for %s %s", c.Request.Method, c.Request.URL.Path))
	})

	return r
}
