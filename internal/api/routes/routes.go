// Package routes defines the HTTP routes for the chat bridge.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/unifiedui/chat-bridge/internal/api/handlers"
	"github.com/unifiedui/chat-bridge/internal/api/middleware"
)

// BasePath prefixes every API route.
const BasePath = "/api/v1/chat-bridge"

// Config holds the dependencies for setting up routes.
type Config struct {
	HealthHandler        *handlers.HealthHandler
	SessionsHandler      *handlers.SessionsHandler
	MessagesHandler      *handlers.MessagesHandler
	AuthorizationHandler *handlers.AuthorizationHandler
	ExplanationHandler   *handlers.ExplanationHandler
	EventsHandler        *handlers.EventsHandler
	AuthMiddleware       *middleware.AuthMiddleware
}

// Setup configures all routes on the Gin engine.
func Setup(r *gin.Engine, cfg *Config) {
	v1 := r.Group(BasePath)
	{
		// Health check routes (no auth required)
		v1.GET("/health", cfg.HealthHandler.Health)
		v1.GET("/ready", cfg.HealthHandler.Ready)
		v1.GET("/live", cfg.HealthHandler.Live)

		protected := v1.Group("")
		protected.Use(cfg.AuthMiddleware.Authenticate())

		protected.GET("/scenarios", cfg.ExplanationHandler.Scenarios)
		protected.POST("/sessions", cfg.SessionsHandler.OpenSession)

		sessions := protected.Group("/sessions/:sessionId")
		{
			sessions.DELETE("", cfg.SessionsHandler.CloseSession)

			explanation := sessions.Group("/explanation")
			{
				explanation.GET("", cfg.ExplanationHandler.Get)
				explanation.PUT("", cfg.ExplanationHandler.Show)
				explanation.DELETE("", cfg.ExplanationHandler.Reset)
				explanation.POST("/toggle", cfg.ExplanationHandler.Toggle)
			}

			sessions.GET("/events", cfg.EventsHandler.Stream)
			sessions.GET("/ws", cfg.EventsHandler.WebSocket)

			sessions.POST("/threads", cfg.SessionsHandler.OpenThread)
			threads := sessions.Group("/threads/:threadId")
			{
				threads.DELETE("", cfg.SessionsHandler.CloseThread)

				threads.GET("/messages", cfg.MessagesHandler.GetMessages)
				threads.POST("/messages", cfg.MessagesHandler.SendMessage)
				threads.GET("/history", cfg.MessagesHandler.GetHistory)
				threads.DELETE("/history", cfg.MessagesHandler.PurgeHistory)

				threads.POST("/authorization", cfg.AuthorizationHandler.Start)
				threads.GET("/authorization", cfg.AuthorizationHandler.Status)
				threads.DELETE("/authorization", cfg.AuthorizationHandler.Cancel)
			}
		}
	}
}

// SetupWithMiddleware sets up routes with common middleware.
func SetupWithMiddleware(r *gin.Engine, cfg *Config, cors middleware.CORSConfig, loggingMw *middleware.LoggingMiddleware, errorMw *middleware.ErrorMiddleware) {
	r.Use(middleware.NewCORSMiddleware(cors))
	r.Use(loggingMw.RequestLogger())
	r.Use(loggingMw.Logger())
	r.Use(errorMw.Recovery())

	r.NoRoute(middleware.NotFound())
	r.NoMethod(middleware.MethodNotAllowed())
	r.HandleMethodNotAllowed = true

	Setup(r, cfg)
}
