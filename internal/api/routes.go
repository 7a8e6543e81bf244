package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/takato23/lookescolar-sub001/internal/handlers"
	"github.com/takato23/lookescolar-sub001/internal/middleware"
)

// SetupRoutes configures all API routes with their middleware
func SetupRoutes(router *gin.Engine, decodeHandler *handlers.DecodeHandler, taggingHandler *handlers.TaggingHandler, tokenHandler *handlers.TokenHandler, rateLimiter *middleware.RateLimiter, jwtSecret, masterToken string) {
	// Create logger
	logger := logrus.New()

	// Global middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ErrorHandler())

	// Public routes
	public := router.Group("/")
	{
		public.GET("/status", handlers.StatusHandler)
		public.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok"})
		})
	}

	// QR workflow, open to scanners, gated per endpoint class
	qr := router.Group("/qr")
	{
		qr.POST("/decode", rateLimiter.Limit(middleware.ClassDecode), decodeHandler.Decode)
		qr.POST("/tag", rateLimiter.Limit(middleware.ClassTag), taggingHandler.TagQR)
	}

	// Token validation for family gallery access
	router.POST("/tokens/validate", rateLimiter.Limit(middleware.ClassValidate), tokenHandler.ValidateToken)

	// Staff surface
	admin := router.Group("/admin")
	admin.Use(middleware.StaffAuth(jwtSecret, masterToken))
	{
		admin.POST("/tag", rateLimiter.Limit(middleware.ClassTag), taggingHandler.TagAdmin)

		tokens := admin.Group("/tokens")
		{
			tokens.POST("", tokenHandler.IssueToken)
			tokens.GET("", tokenHandler.ListTokens)
			tokens.DELETE("/:id", tokenHandler.RevokeToken)
		}
	}

	// Staff session minting requires the master token
	sessions := router.Group("/admin/sessions")
	sessions.Use(middleware.RequireMasterToken(masterToken))
	{
		sessions.POST("", tokenHandler.CreateSession)
	}
}
