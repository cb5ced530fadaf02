package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Modoufinance/healthyimc-sub001/internal/config"
	"github.com/Modoufinance/healthyimc-sub001/internal/domain/models"
	"github.com/Modoufinance/healthyimc-sub001/internal/handler/http/middleware"
)

// currentAdmin returns the identity resolved by the bearer middleware.
// Only valid on routes behind RequireSession.
func currentAdmin(c *gin.Context) *models.PublicAdmin {
	return c.MustGet(middleware.ContextAdminKey).(*models.PublicAdmin)
}

func currentToken(c *gin.Context) string {
	return c.MustGet(middleware.ContextTokenKey).(string)
}

// NewRouter assembles the gin engine: CORS for the SPA, request logging,
// public login route and session-guarded admin routes.
func NewRouter(logger *zap.Logger, cfg *config.Config, handler *AuthHandler, sessions SessionLogic) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", handler.Login)

		protected := auth.Group("", middleware.RequireSession(sessions))
		{
			protected.GET("/verify", handler.VerifySession)
			protected.POST("/logout", handler.Logout)
			protected.POST("/2fa/setup", handler.SetupTwoFactor)
			protected.POST("/2fa/verify", handler.VerifyTwoFactor)
			protected.POST("/2fa/disable", handler.DisableTwoFactor)
		}
	}

	return router
}
