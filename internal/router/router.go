package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/proplens/backend/config"
	"github.com/proplens/backend/internal/api"
	"github.com/proplens/backend/internal/middleware"
	"github.com/proplens/backend/internal/service"
)

// Deps carries everything the route table needs.
type Deps struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Config *config.Config
	Logger *logrus.Logger
}

// New wires the full route table.
func New(deps Deps) *gin.Engine {
	authService := service.NewAuthService(deps.DB, deps.Config.JWT.Secret)
	propertyService := service.NewPropertyService(deps.DB, deps.Logger)
	valuationService := service.NewValuationService(
		deps.Config.Gemini.APIKey,
		deps.Config.Gemini.BaseURL,
		deps.Config.Gemini.Model,
		deps.Config.GeminiTimeout(),
	)
	usageService := service.NewUsageService(deps.DB)
	marketService := service.NewMarketService(deps.DB)

	authHandler := api.NewAuthHandler(authService)
	propertyHandler := api.NewPropertyHandler(propertyService, valuationService, usageService, deps.Logger)
	marketHandler := api.NewMarketHandler(marketService)

	aiLimiter := middleware.NewAIRateLimiter(
		deps.Redis,
		deps.Config.RateLimit.AILimit,
		deps.Config.AIRateWindow(),
		deps.Logger,
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := r.Group("/api")

	auth := apiGroup.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("", middleware.Auth(authService))
		authed.GET("/me", authHandler.Me)
		authed.PUT("/me", authHandler.UpdateMe)
		authed.PUT("/change-password", authHandler.ChangePassword)
	}

	properties := apiGroup.Group("/properties", middleware.Auth(authService))
	{
		properties.GET("", propertyHandler.Search)
		properties.POST("", propertyHandler.Create)
		properties.GET("/nearby/:id", propertyHandler.Nearby)
		properties.GET("/:id", propertyHandler.GetByID)
		properties.PUT("/:id", propertyHandler.Update)
		properties.DELETE("/:id", propertyHandler.Delete)
		properties.GET("/:id/analysis", propertyHandler.Analyses)
		properties.POST("/compare", propertyHandler.Compare)

		properties.GET("/saved/all", propertyHandler.ListSaved)
		properties.POST("/saved/:propertyId", propertyHandler.SaveProperty)
		properties.PUT("/saved/:propertyId", propertyHandler.UpdateSaved)
		properties.DELETE("/saved/:propertyId", propertyHandler.RemoveSaved)

		ai := properties.Group("", aiLimiter.Middleware())
		ai.POST("/analyze-ai", propertyHandler.AnalyzeAI)
		ai.GET("/quick-estimate", propertyHandler.QuickEstimate)
	}

	market := apiGroup.Group("/market")
	{
		market.GET("/trends", marketHandler.Trends)
		market.GET("/investment-picks", marketHandler.InvestmentPicks)
	}

	return r
}
