package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github/itish2003/ragchat/logger"
)

// NewRouter registers every route of the chat API.
func NewRouter(c *ChatController, metricsHandler http.Handler, log logger.ILogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(log), CORS())

	router.GET("/health", c.Health)
	router.POST("/chat/", c.Chat)
	router.POST("/upload/", c.Upload)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/documents/count", c.DocumentCount)
		apiV1.POST("/search", c.Search)
	}
	return router
}
