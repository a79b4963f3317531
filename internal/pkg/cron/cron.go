package cron

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/research_go_server/internal/repository"
)

// LedgerMaintainer 预留释放与对账
type LedgerMaintainer interface {
	ReleaseExpired(now time.Time) (int, error)
	Reconcile() ([]repository.LedgerMismatch, error)
}

// TokenCleaner 清理过期验证令牌
type TokenCleaner interface {
	ClearExpiredVerificationTokens(now time.Time) (int64, error)
}

// Intervals 各任务执行间隔
type Intervals struct {
	Release   time.Duration
	Reconcile time.Duration
	Tokens    time.Duration
}

// DefaultIntervals 每分钟释放，每小时对账，每天清理令牌
func DefaultIntervals() Intervals {
	return Intervals{
		Release:   time.Minute,
		Reconcile: time.Hour,
		Tokens:    24 * time.Hour,
	}
}

type Service struct {
	ledger    LedgerMaintainer
	tokens    TokenCleaner
	intervals Intervals
	logger    *zap.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func NewService(ledger LedgerMaintainer, tokens TokenCleaner, intervals Intervals, logger *zap.Logger) *Service {
	def := DefaultIntervals()
	if intervals.Release <= 0 {
		intervals.Release = def.Release
	}
	if intervals.Reconcile <= 0 {
		intervals.Reconcile = def.Reconcile
	}
	if intervals.Tokens <= 0 {
		intervals.Tokens = def.Tokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ledger:    ledger,
		tokens:    tokens,
		intervals: intervals,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	if s.ledger != nil {
		s.every(s.intervals.Release, s.releaseExpired)
		s.every(s.intervals.Reconcile, s.reconcile)
	}
	if s.tokens != nil {
		s.every(s.intervals.Tokens, s.clearTokens)
	}
	s.logger.Info("cron service started",
		zap.Duration("release", s.intervals.Release),
		zap.Duration("reconcile", s.intervals.Reconcile),
		zap.Duration("tokens", s.intervals.Tokens),
	)
}

// Stop 停止定时任务并等待正在执行的任务结束
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	s.logger.Info("cron service stopped")
}

func (s *Service) every(interval time.Duration, fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

func (s *Service) releaseExpired() {
	n, err := s.ledger.ReleaseExpired(time.Now())
	if err != nil {
		s.logger.Error("release expired reservations failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("released expired reservations", zap.Int("count", n))
	}
}

func (s *Service) reconcile() {
	if _, err := s.RunNow(); err != nil {
		s.logger.Error("ledger reconcile failed", zap.Error(err))
	}
}

func (s *Service) clearTokens() {
	n, err := s.tokens.ClearExpiredVerificationTokens(time.Now())
	if err != nil {
		s.logger.Error("clear verification tokens failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("cleared expired verification tokens", zap.Int64("count", n))
	}
}

// RunNow 立即执行一次对账（用于测试或手动触发）
func (s *Service) RunNow() ([]repository.LedgerMismatch, error) {
	mismatches, err := s.ledger.Reconcile()
	if err != nil {
		return nil, err
	}
	s.logger.Info("ledger reconcile completed", zap.Int("mismatches", len(mismatches)))
	return mismatches, nil
}
