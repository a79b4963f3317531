package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/research_go_server/config"
	"github.com/qs3c/research_go_server/internal/api/handler"
	"github.com/qs3c/research_go_server/internal/api/middleware"
	"github.com/qs3c/research_go_server/internal/pkg/ratelimit"
	"github.com/qs3c/research_go_server/internal/repository"
	"github.com/qs3c/research_go_server/internal/service"
)

// Limiters 各路由组的限流器
type Limiters struct {
	Global  ratelimit.Limiter
	Credits ratelimit.Limiter
	AI      ratelimit.Limiter
}

type Router struct {
	authHandler       *handler.AuthHandler
	userHandler       *handler.UserHandler
	creditHandler     *handler.CreditHandler
	generationHandler *handler.GenerationHandler
	projectHandler    *handler.ProjectHandler
	paymentHandler    *handler.PaymentHandler
	emailHandler      *handler.EmailHandler
	adminHandler      *handler.AdminHandler
	websocketHandler  *handler.WebSocketHandler
	creditService     *service.CreditService
	userRepo          *repository.UserRepository
	limiters          Limiters
	cfg               *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	creditHandler *handler.CreditHandler,
	generationHandler *handler.GenerationHandler,
	projectHandler *handler.ProjectHandler,
	paymentHandler *handler.PaymentHandler,
	emailHandler *handler.EmailHandler,
	adminHandler *handler.AdminHandler,
	websocketHandler *handler.WebSocketHandler,
	creditService *service.CreditService,
	userRepo *repository.UserRepository,
	limiters Limiters,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:       authHandler,
		userHandler:       userHandler,
		creditHandler:     creditHandler,
		generationHandler: generationHandler,
		projectHandler:    projectHandler,
		paymentHandler:    paymentHandler,
		emailHandler:      emailHandler,
		adminHandler:      adminHandler,
		websocketHandler:  websocketHandler,
		creditService:     creditService,
		userRepo:          userRepo,
		limiters:          limiters,
		cfg:               cfg,
	}
}

// limit 未配置限流器时不限流
func limit(l ratelimit.Limiter, key middleware.KeyFunc) gin.HandlerFunc {
	if l == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimit(l, key)
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	// 支付与邮件回调，不走限流和认证
	webhooks := engine.Group("/api/webhooks")
	{
		webhooks.POST("/stripe", r.paymentHandler.StripeWebhook)
		webhooks.POST("/resend", r.paymentHandler.ResendWebhook)
	}

	authMW := middleware.Auth(r.cfg.JWT.Secret)

	// 兼容旧前端的接口
	legacy := engine.Group("/api")
	legacy.Use(limit(r.limiters.Global, middleware.ByIP), authMW)
	{
		legacy.POST("/create-checkout-session", r.paymentHandler.CreateCheckoutSession)
		legacy.POST("/send-email", r.emailHandler.SendEmail)
		legacy.POST("/send-verification", r.emailHandler.SendVerification)
	}

	api := engine.Group("/api/v1")
	api.Use(limit(r.limiters.Global, middleware.ByIP))
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/verify-email", r.authHandler.VerifyEmail)
			auth.GET("/github", r.authHandler.GithubAuth)
			auth.GET("/github/callback", r.authHandler.GithubCallback)
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(authMW)
		{
			authenticated.GET("/user/profile", r.userHandler.GetProfile)
			authenticated.PUT("/user/profile", r.userHandler.UpdateProfile)

			// 余额
			credits := authenticated.Group("/credits")
			credits.Use(limit(r.limiters.Credits, middleware.ByUser))
			{
				credits.POST("/use", r.creditHandler.Use)
				credits.GET("/balance", r.creditHandler.Balance)
				credits.GET("/history", r.creditHandler.History)
			}

			// 生成
			ai := authenticated.Group("/openai")
			ai.Use(limit(r.limiters.AI, middleware.ByUser))
			{
				gated := ai.Group("")
				gated.Use(middleware.CreditGate(r.creditService))
				{
					gated.POST("/generate", r.generationHandler.Generate)
					gated.POST("/continue", r.generationHandler.Continue)
					gated.POST("/enhance", r.generationHandler.Enhance)
					gated.POST("/jobs", r.generationHandler.CreateJob)
				}
				ai.GET("/jobs/:id", r.generationHandler.GetJob)
			}

			// 项目
			projects := authenticated.Group("/projects")
			{
				projects.POST("", r.projectHandler.Create)
				projects.GET("", r.projectHandler.List)
				projects.GET("/:id", r.projectHandler.Get)
				projects.DELETE("/:id", r.projectHandler.Delete)
				projects.PUT("/:id/sections/:type", r.projectHandler.UpdateSection)
				projects.POST("/:id/export", r.projectHandler.Export)
			}
		}

		// 后台
		admin := api.Group("/admin")
		admin.Use(authMW, middleware.AdminOnly(r.userRepo))
		{
			admin.GET("/stats", r.adminHandler.Stats)
			admin.GET("/usage", r.adminHandler.Usage)

			admin.GET("/users", r.adminHandler.ListUsers)
			admin.POST("/users", r.adminHandler.CreateUser)
			admin.PUT("/users/:id", r.adminHandler.UpdateUser)
			admin.DELETE("/users/:id", r.adminHandler.DeleteUser)
			admin.POST("/users/:id/credits", r.adminHandler.AdjustCredits)
			admin.GET("/users/:id/credits", r.adminHandler.CreditHistory)
			admin.POST("/rewards", r.adminHandler.RewardUsers)

			admin.GET("/api-keys", r.adminHandler.ListAPIKeys)
			admin.POST("/api-keys", r.adminHandler.CreateAPIKey)
			admin.PUT("/api-keys/:id", r.adminHandler.UpdateAPIKey)
			admin.DELETE("/api-keys/:id", r.adminHandler.DeleteAPIKey)

			admin.GET("/settings", r.adminHandler.GetSettings)
			admin.PUT("/settings", r.adminHandler.UpdateSettings)
		}
	}

	return engine
}
