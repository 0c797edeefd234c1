package routes

import (
	"election-results-api/internal/handlers"
	"election-results-api/internal/realtime"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(h *handlers.ElectionHandler, hub *realtime.Hub) *gin.Engine {
	// Create a new GIN Router
	ginRouter := gin.Default()

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204) // This depends on the implementation of the frontend
			return
		}

		c.Next()
	})

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Election Results API is running in Health Check Endpoint",
		})
	})

	api := ginRouter.Group("/api")
	{
		// Election endpoints
		api.GET("/elections", h.GetElections)
		api.POST("/elections", h.CreateElection)
		api.GET("/elections/:id/results", h.GetResults)
		api.POST("/elections/:id/votes", h.CastVote)
		api.POST("/elections/:id/end", h.EndElection)
	}

	// Change-notification stream
	ginRouter.GET("/ws", handlers.WebSocketHandler(hub))

	return ginRouter
}
