package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/docpipe/internal/api/handler"
	"github.com/timmy/docpipe/internal/api/middleware"
	"github.com/timmy/docpipe/internal/config"
	"github.com/timmy/docpipe/internal/pipeline"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(svc *pipeline.Service, cfg *config.ServerConfig) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	documentHandler := handler.NewDocumentHandler(svc)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Upload intake
		v1.POST("/upload", documentHandler.CreateUpload)

		// Pipeline stages, invoked one request at a time by the client
		process := v1.Group("/process")
		{
			process.POST("/ocr", documentHandler.ExtractText)
			process.POST("/classify", documentHandler.Classify)
			process.POST("/summarize", documentHandler.Summarize)
		}

		// Status polling
		v1.GET("/status/:documentId", documentHandler.Status)
	}

	return r
}
