// Package server assembles the HTTP router from the application services.
package server

import (
	"net/http"
	"time"

	"hbinterface/backend/internal/config"
	"hbinterface/backend/internal/handler"
	"hbinterface/backend/internal/middleware"
	"hbinterface/backend/internal/service"
	"hbinterface/backend/internal/util"
	"hbinterface/backend/pkg/logger"
	"hbinterface/backend/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"gorm.io/gorm"
)

func init() {
	binding.EnableDecoderDisallowUnknownFields = true
}

// Deps are the collaborators the router wires into handlers
type Deps struct {
	Config *config.Config
	Log    *logger.Logger
	DB     *gorm.DB
	Redis  *redis.Client

	Auth    *service.AuthService
	Bots    *service.BotService
	Orders  *service.OrderService
	Market  *service.MarketService
	APIKeys *service.APIKeyService
	Users   *service.UserService
	Hub     *service.WSHub
}

// NewRouter builds the gin engine with middleware and every route
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery(d.Log))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(d.Log))
	router.Use(middleware.CORS(d.Config.CORS.AllowedOrigins))
	router.Use(middleware.RateLimit(d.Redis, d.Config.RateLimit.RequestsPerMinute))
	router.Use(middleware.BodyLimit(util.MaxRequestBodyBytes))

	healthHandler := handler.NewHealthHandler(d.DB, d.Redis)
	authHandler := handler.NewAuthHandler(d.Auth)
	botHandler := handler.NewBotHandler(d.Bots)
	orderHandler := handler.NewOrderHandler(d.Orders)
	marketHandler := handler.NewMarketHandler(d.Market)
	apiKeyHandler := handler.NewAPIKeyHandler(d.APIKeys)
	analyticsHandler := handler.NewAnalyticsHandler(d.Bots)
	userHandler := handler.NewUserHandler(d.Users)

	requireAuth := middleware.AuthMiddleware(d.Auth)
	authLimit := middleware.AuthRateLimit(d.Redis, d.Config.RateLimit.AuthRequestsPerMinute)

	router.GET("/health", healthHandler.Check)
	router.GET("/ws", d.Hub.ServeWS)

	api := router.Group("/api")
	{
		api.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"message": "pong",
				"time":    time.Now().Unix(),
			})
		})

		auth := api.Group("/auth")
		{
			auth.POST("/register", authLimit, authHandler.Register)
			auth.POST("/login", authLimit, authHandler.Login)
			auth.POST("/logout", requireAuth, authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetMe)
		}

		bots := api.Group("/bots")
		bots.Use(requireAuth)
		{
			bots.GET("", botHandler.ListBots)
			bots.POST("", botHandler.CreateBot)
			bots.GET("/:id", botHandler.GetBot)
			bots.PUT("/:id", botHandler.UpdateBot)
			bots.DELETE("/:id", botHandler.DeleteBot)
			bots.POST("/:id/start", botHandler.StartBot)
			bots.POST("/:id/stop", botHandler.StopBot)
		}

		orders := api.Group("/orders")
		orders.Use(requireAuth)
		{
			orders.GET("", orderHandler.ListOrders)
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.DELETE("/:id", orderHandler.CancelOrder)
		}

		market := api.Group("/market")
		market.Use(requireAuth)
		{
			market.GET("/symbols", marketHandler.GetSymbols)
			market.GET("/ticker/:symbol", marketHandler.GetTicker)
			market.GET("/orderbook/:symbol", marketHandler.GetOrderBook)
			market.GET("/trades/:symbol", marketHandler.GetTrades)
		}

		apiKeys := api.Group("/api-keys")
		apiKeys.Use(requireAuth)
		{
			apiKeys.GET("", apiKeyHandler.List)
			apiKeys.POST("", apiKeyHandler.Create)
			apiKeys.POST("/validate", apiKeyHandler.Validate)
			apiKeys.DELETE("/:exchange/:label", apiKeyHandler.Delete)
		}

		analyticsGroup := api.Group("/analytics")
		analyticsGroup.Use(requireAuth)
		{
			analyticsGroup.POST("/risk", analyticsHandler.Risk)
			analyticsGroup.GET("/bots", analyticsHandler.BotSummary)
		}

		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.POST("/password", userHandler.ChangePassword)
		}

		admin := api.Group("/admin")
		admin.Use(requireAuth, middleware.RequireAdmin())
		{
			admin.GET("/users", userHandler.ListUsers)
			admin.GET("/users/:id", userHandler.GetUser)
			admin.PUT("/users/:id/role", userHandler.UpdateRole)
			admin.DELETE("/users/:id", userHandler.DeleteUser)
			admin.POST("/users/:id/reset-password", userHandler.ResetPassword)
		}
	}

	return router
}
