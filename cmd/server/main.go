package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/qs3c/research_go_server/config"
	"github.com/qs3c/research_go_server/internal/api"
	"github.com/qs3c/research_go_server/internal/api/handler"
	"github.com/qs3c/research_go_server/internal/database"
	"github.com/qs3c/research_go_server/internal/pkg/ai"
	"github.com/qs3c/research_go_server/internal/pkg/cron"
	"github.com/qs3c/research_go_server/internal/pkg/email"
	"github.com/qs3c/research_go_server/internal/pkg/logger"
	"github.com/qs3c/research_go_server/internal/pkg/oauth"
	"github.com/qs3c/research_go_server/internal/pkg/oss"
	"github.com/qs3c/research_go_server/internal/pkg/pubsub"
	"github.com/qs3c/research_go_server/internal/pkg/queue"
	"github.com/qs3c/research_go_server/internal/pkg/ratelimit"
	"github.com/qs3c/research_go_server/internal/pkg/ws"
	"github.com/qs3c/research_go_server/internal/repository"
	"github.com/qs3c/research_go_server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync()

	// 初始化数据库
	db, err := database.New(&cfg.Database)
	if err != nil {
		zlog.Fatal("failed to connect database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zlog.Fatal("failed to migrate database", zap.Error(err))
	}
	if cfg.Seed.Enabled {
		if err := database.Seed(db); err != nil {
			zlog.Warn("seed failed", zap.Error(err))
		}
	}
	zlog.Info("database connected", zap.String("driver", cfg.Database.Driver))

	// Redis 可选，缺失时异步任务、进度推送和 GitHub 登录不可用，限流退化为进程内
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		zlog.Warn("redis unavailable", zap.Error(err))
		rdb = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// WebSocket Hub
	wsHub := ws.NewHub(zlog)

	var (
		jobQueue  service.JobQueue
		publisher service.ProgressPublisher
		states    *oauth.StateStore
	)
	if rdb != nil {
		jobQueue = queue.NewQueue(rdb, cfg.Queue.GenerationQueue)
		publisher = pubsub.NewPublisher(rdb)
		states = oauth.NewStateStore(rdb, 10*time.Minute)
		go subscribeProgress(ctx, rdb, wsHub, zlog)
	}

	// 存储（可选）
	var storage service.ExportStorage
	if oss.Enabled(&cfg.OSS) {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			zlog.Warn("failed to init oss client", zap.Error(err))
		} else {
			storage = ossClient
		}
	}

	var githubOAuth *oauth.GithubOAuth
	if cfg.OAuth.Github.ClientID != "" {
		githubOAuth = oauth.NewGithubOAuth(cfg.OAuth.Github.ClientID, cfg.OAuth.Github.ClientSecret, cfg.OAuth.Github.RedirectURI)
	}

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	creditRepo := repository.NewCreditRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	jobRepo := repository.NewJobRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	apiKeyRepo := repository.NewAPIKeyRepository(db)
	eventRepo := repository.NewEventRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// 初始化 Service
	creditService := service.NewCreditService(userRepo, creditRepo, cfg, zlog)
	emailService := service.NewEmailService(email.NewSender(&cfg.Email, &cfg.Resend), cfg, zlog)
	authService := service.NewAuthService(userRepo, creditService, emailService, githubOAuth, states, cfg, zlog)
	keyResolver := service.NewKeyResolver(settingRepo, apiKeyRepo, cfg)
	generationService := service.NewGenerationService(creditService, newAIClient(&cfg.AI), keyResolver, projectRepo, publisher, cfg, zlog)
	projectService := service.NewProjectService(projectRepo, storage, zlog)
	jobService := service.NewJobService(jobRepo, projectRepo, jobQueue, zlog)
	paymentService := service.NewPaymentService(creditService, userRepo, eventRepo, settingRepo,
		service.NewStripeCheckout(cfg.Stripe.SecretKey), cfg, zlog)
	webhookService := service.NewWebhookService(userRepo, cfg, zlog)
	adminService := service.NewAdminService(userRepo, projectRepo, apiKeyRepo, settingRepo, statsRepo, creditService, cfg, zlog)

	// 定时任务
	cronService := cron.NewService(creditService, userRepo, cron.DefaultIntervals(), zlog)
	cronService.Start()

	router := api.NewRouter(
		handler.NewAuthHandler(authService, cfg.App.BaseURL),
		handler.NewUserHandler(service.NewUserService(userRepo, zlog)),
		handler.NewCreditHandler(creditService),
		handler.NewGenerationHandler(generationService, creditService, projectService, jobService),
		handler.NewProjectHandler(projectService),
		handler.NewPaymentHandler(paymentService, webhookService),
		handler.NewEmailHandler(emailService, authService),
		handler.NewAdminHandler(adminService),
		handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins),
		creditService,
		userRepo,
		newLimiters(rdb, &cfg.RateLimit),
		cfg,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router.Setup()}

	go func() {
		zlog.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	zlog.Info("received shutdown signal")

	cancel()
	cronService.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown failed", zap.Error(err))
	}
	zlog.Info("server stopped")
}

func newAIClient(cfg *config.AIConfig) ai.Client {
	if cfg.Provider == "gemini" {
		return ai.NewGeminiClient(cfg.GeminiModel)
	}
	return ai.NewOpenAIClient(cfg.BaseURL, time.Duration(cfg.RequestTimeoutSeconds)*time.Second)
}

func newLimiters(rdb *redis.Client, cfg *config.RateLimitConfig) api.Limiters {
	rule := func(prefix string, r config.LimitRule) ratelimit.Limiter {
		return ratelimit.New(rdb, prefix, r.Limit, time.Duration(r.WindowSeconds)*time.Second)
	}
	return api.Limiters{
		Global:  rule("global", cfg.Global),
		Credits: rule("credits", cfg.Credits),
		AI:      rule("ai", cfg.AI),
	}
}

// subscribeProgress 把 worker 发布的进度转发给对应用户的连接
func subscribeProgress(ctx context.Context, rdb *redis.Client, hub *ws.Hub, zlog *zap.Logger) {
	sub := pubsub.NewSubscriber(rdb)
	err := sub.Subscribe(ctx, func(msg *pubsub.ProgressMessage) {
		if err := hub.SendToUser(msg.UserID, &ws.Message{Type: msg.Type, Data: msg}); err != nil {
			zlog.Debug("push progress failed", zap.Int64("user_id", msg.UserID), zap.Error(err))
		}
	})
	if err != nil && ctx.Err() == nil {
		zlog.Error("progress subscription stopped", zap.Error(err))
	}
}
