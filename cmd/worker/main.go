package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/research_go_server/config"
	"github.com/qs3c/research_go_server/internal/database"
	"github.com/qs3c/research_go_server/internal/pkg/ai"
	"github.com/qs3c/research_go_server/internal/pkg/logger"
	"github.com/qs3c/research_go_server/internal/pkg/pubsub"
	"github.com/qs3c/research_go_server/internal/pkg/queue"
	"github.com/qs3c/research_go_server/internal/repository"
	"github.com/qs3c/research_go_server/internal/service"
	"github.com/qs3c/research_go_server/internal/worker"
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

	// worker 依赖队列，Redis 必须可用
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		zlog.Fatal("failed to connect redis", zap.Error(err))
	}

	jobQueue := queue.NewQueue(rdb, cfg.Queue.GenerationQueue)
	publisher := pubsub.NewPublisher(rdb)

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	jobRepo := repository.NewJobRepository(db)

	var client ai.Client
	if cfg.AI.Provider == "gemini" {
		client = ai.NewGeminiClient(cfg.AI.GeminiModel)
	} else {
		client = ai.NewOpenAIClient(cfg.AI.BaseURL, time.Duration(cfg.AI.RequestTimeoutSeconds)*time.Second)
	}

	creditService := service.NewCreditService(userRepo, repository.NewCreditRepository(db), cfg, zlog)
	keyResolver := service.NewKeyResolver(repository.NewSettingRepository(db), repository.NewAPIKeyRepository(db), cfg)
	generationService := service.NewGenerationService(creditService, client, keyResolver, projectRepo, publisher, cfg, zlog)
	projectService := service.NewProjectService(projectRepo, nil, zlog)

	processor := worker.NewProcessor(jobRepo, projectRepo, generationService, projectService, zlog)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		zlog.Info("received shutdown signal")
		cancel()
	}()

	zlog.Info("worker started", zap.Int("max_workers", cfg.Queue.MaxWorkers), zap.String("queue", cfg.Queue.GenerationQueue))
	processor.Run(ctx, jobQueue, cfg.Queue.MaxWorkers)
	zlog.Info("worker shutdown complete")
}
