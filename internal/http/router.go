package http

import (
	nethttp "net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/planadapt-backend/internal/http/handlers"
	httpMW "github.com/yungbote/planadapt-backend/internal/http/middleware"
	"github.com/yungbote/planadapt-backend/internal/observability"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type RouterConfig struct {
	ServiceName string
	Log         *logger.Logger
	Metrics     *observability.Metrics

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler nethttp.Handler

	HealthHandler *httpH.HealthHandler
	JobHandler    *httpH.JobHandler
}

// NewRouter builds the ops surface: health checks, metrics and manual job runs.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	internal := r.Group("/internal")
	{
		if cfg.JobHandler != nil {
			internal.POST("/jobs/:name", cfg.JobHandler.RunJob)
		}
	}
	return r
}
