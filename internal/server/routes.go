package server

import (
	"github.com/gin-gonic/gin"

	"github.com/wishr/metaext/internal/config"
)

// NewRouter wires the middleware chain and the extraction endpoints.
func NewRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(handler.log))
	router.Use(corsMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/extract-metadata", handler.ExtractMetadata)
	}

	return router
}
