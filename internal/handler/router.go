package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/config"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/middleware"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/service"
)

type Dependencies struct {
	DB        *gorm.DB
	Documents *service.DocumentService
	Queries   *service.QueryService
}

func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())
	if cfg.MaxUploadSize > 0 {
		r.MaxMultipartMemory = min(cfg.MaxUploadSize, 32<<20)
	}

	// Health check endpoints
	r.GET("/health", healthCheck)
	r.GET("/ready", readinessCheck(deps.DB))
	r.GET("/live", livenessCheck)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":      "Knowledge Navigator",
			"version":      "1.0.0",
			"status":       "running",
			"health_check": "/health",
		})
	})

	documentHandler := NewDocumentHandler(deps.Documents)
	queryHandler := NewQueryHandler(deps.Queries)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.UserID())
	{
		documents := v1.Group("/documents")
		{
			documents.GET("", documentHandler.List)
			documents.POST("/upload", documentHandler.Upload)
			documents.GET("/:id", documentHandler.Get)
			documents.GET("/:id/status", documentHandler.Status)
			documents.GET("/:id/chunks", documentHandler.Chunks)
			documents.DELETE("/:id", documentHandler.Delete)
		}

		queries := v1.Group("/queries")
		{
			queries.GET("", queryHandler.List)
			queries.POST("", queryHandler.Create)
			queries.GET("/:id", queryHandler.Get)
		}
	}

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "knowledge-navigator",
	})
}

func readinessCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "not_ready",
					"error":  err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	}
}

func livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
