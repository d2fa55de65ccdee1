package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/rtc-attention/internal/http/handlers"
	httpMW "github.com/yungbote/rtc-attention/internal/http/middleware"
	"github.com/yungbote/rtc-attention/internal/observability"
	"github.com/yungbote/rtc-attention/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	ServiceName     string
	CORSOrigins     []string
	MaxRequestBytes int64

	AttentionHandler *httpH.AttentionHandler
	RoomHandler      *httpH.RoomHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	service := cfg.ServiceName
	if service == "" {
		service = "rtc-attention"
	}

	r := gin.New()
	r.Use(httpMW.Recovery(cfg.Log))
	r.Use(otelgin.Middleware(service))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Live)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	api := r.Group("/api")
	api.Use(httpMW.BodyLimit(cfg.MaxRequestBytes))
	{
		if cfg.HealthHandler != nil {
			api.GET("/test", cfg.HealthHandler.Test)
			api.GET("/health", cfg.HealthHandler.Health)
		}

		// Attention
		if cfg.AttentionHandler != nil {
			api.POST("/detect_attention", cfg.AttentionHandler.DetectAttention)
			api.POST("/calibrate", cfg.AttentionHandler.Calibrate)
			api.GET("/users/:id/history", cfg.AttentionHandler.History)
		}

		// Rooms
		if cfg.RoomHandler != nil {
			api.POST("/room_attention", cfg.RoomHandler.RoomAttention)
			api.GET("/rooms/:id/stream", cfg.RoomHandler.Stream)
		}
	}

	return r
}
