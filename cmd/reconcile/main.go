package main

import (
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/research_go_server/config"
	"github.com/qs3c/research_go_server/internal/database"
	"github.com/qs3c/research_go_server/internal/pkg/logger"
	"github.com/qs3c/research_go_server/internal/repository"
	"github.com/qs3c/research_go_server/internal/service"
)

var (
	releaseStale = flag.Bool("release-stale", true, "Release expired credit reservations and fail stuck jobs before reconciling")
	staleMinutes = flag.Int("stale-minutes", 30, "Minutes after which a processing job is considered stuck")
	verbose      = flag.Bool("verbose", false, "Print every mismatched account")
)

func main() {
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.New(&cfg.Database)
	if err != nil {
		zlog.Fatal("failed to connect database", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db)
	credits := service.NewCreditService(userRepo, repository.NewCreditRepository(db), cfg, zlog)

	// 1. 释放过期预留，标记卡住的任务
	if *releaseStale {
		released, err := credits.ReleaseExpired(time.Now())
		if err != nil {
			zlog.Fatal("release expired reservations failed", zap.Error(err))
		}
		cutoff := time.Now().Add(-time.Duration(*staleMinutes) * time.Minute)
		failed, err := repository.NewJobRepository(db).FailStale(cutoff, service.CodeCancelled, "انتهت مهلة المهمة")
		if err != nil {
			zlog.Fatal("fail stale jobs failed", zap.Error(err))
		}
		zlog.Info("stale state released", zap.Int("reservations", released), zap.Int64("jobs", failed))
	}

	// 2. 对账：余额应等于流水之和
	mismatches, err := credits.Reconcile()
	if err != nil {
		zlog.Fatal("reconcile failed", zap.Error(err))
	}

	log.Println(strings.Repeat("=", 60))
	log.Printf("Ledger reconcile: %d mismatched accounts", len(mismatches))
	if *verbose {
		for _, m := range mismatches {
			log.Printf("  - user %d: balance=%d ledger=%d diff=%d", m.UserID, m.Credits, m.LedgerSum, m.Credits-m.LedgerSum)
		}
	}
	log.Println(strings.Repeat("=", 60))

	if len(mismatches) > 0 {
		_ = zlog.Sync()
		os.Exit(1)
	}
}
