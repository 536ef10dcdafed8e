package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"theranotes-go/internal/api/handlers"
	"theranotes-go/internal/api/middleware"
	"theranotes-go/internal/health"
	"theranotes-go/internal/logger"
	"theranotes-go/internal/observe"
)

// NewEngine returns a gin engine with the middleware shared by every
// service.
func NewEngine(l *logger.Logger, m *observe.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestLogger(l), middleware.Recovery())
	if m != nil {
		r.Use(observe.Middleware(m))
	}
	return r
}

type TranscriberDeps struct {
	Handler   *handlers.TranscriberHandler
	Health    *health.Handler
	ModelSize string
	Workers   int
}

func RegisterTranscriber(r *gin.Engine, d TranscriberDeps) {
	r.GET("/", handlers.Info("Theranotes Transcriber API"))
	d.Health.Register(r)

	api := r.Group("/api")
	api.POST("/transcribe", d.Handler.Transcribe)
	api.GET("/model-info", d.Handler.ModelInfo(d.ModelSize, d.Workers))
}

type NotaryDeps struct {
	Handler *handlers.NotaryHandler
	Health  *health.Handler
}

func RegisterNotary(r *gin.Engine, d NotaryDeps) {
	r.GET("/", handlers.Info("Therapy Session Notary API"))
	d.Health.Register(r)

	api := r.Group("/api")
	api.POST("/extract-session-data", d.Handler.ExtractSessionData)
	api.POST("/format-therapy-note", d.Handler.FormatTherapyNote)
	api.POST("/render-note", d.Handler.RenderNote)
	api.GET("/supported-fields", d.Handler.SupportedFields)
}

type GatewayDeps struct {
	Handler *handlers.GatewayHandler
	Health  *health.Handler
	Metrics http.Handler
}

func RegisterGateway(r *gin.Engine, d GatewayDeps) {
	r.GET("/", handlers.Info("Theranotes API"))
	d.Health.Register(r)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	api := r.Group("/api")
	api.POST("/transcribe", d.Handler.Transcribe)
	api.POST("/extract-session-data", d.Handler.ExtractSessionData)
	api.POST("/generate-therapy-note", d.Handler.GenerateTherapyNote)
}
