package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Skufu/Health-Info-Assistant/internal/log"
	"github.com/Skufu/Health-Info-Assistant/internal/metrics"
)

// NewRouter builds the gin engine with middleware, health and metrics
// endpoints and the chat and video routes.
func NewRouter(logger zerolog.Logger, chatHandler *ChatHandler, videoHandler *VideoHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(log.GinMiddleware(logger))
	r.Use(CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapF(metrics.Handler))

	chatHandler.RegisterRoutes(r)
	videoHandler.RegisterRoutes(r)
	return r
}
