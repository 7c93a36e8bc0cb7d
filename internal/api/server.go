package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP engine with all routes configured.
func NewServer(handler *Handler, allowedOrigin string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/"},
	}))
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(allowedOrigin))

	setupRoutes(r, handler)

	return r
}

// corsMiddleware allows credentialed requests from a single origin.
func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" && origin == allowedOrigin {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// setupRoutes registers one route per configured pipeline stage.
func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/", handler.HealthCheck)

	if handler.fetcher != nil {
		r.POST("/judgments/fetch", handler.FetchJudgments)
	}
	if handler.summarizer != nil {
		r.POST("/summaries/generate", handler.GenerateSummaries)
	}
	if handler.store != nil {
		r.POST("/summaries", handler.StoreSummaries)
		r.GET("/articles", handler.ListArticles)
	}
	if handler.composer != nil {
		r.POST("/newsletter/generate", handler.GenerateNewsletter)
	}
	if handler.scheduler != nil {
		r.POST("/newsletter/schedule", handler.ScheduleNewsletter)
	} else {
		slog.Warn("Newsletter scheduling disabled (email provider not configured)")
	}
	if handler.pipeline != nil {
		r.POST("/pipeline/trigger", handler.TriggerPipeline)
	} else {
		slog.Info("Pipeline trigger disabled (WORKFLOW_ID not set)")
	}
}
