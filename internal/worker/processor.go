package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/model/dto"
	"github.com/qs3c/research_go_server/internal/pkg/queue"
	"github.com/qs3c/research_go_server/internal/repository"
	"github.com/qs3c/research_go_server/internal/service"
)

const defaultPopTimeout = 5 * time.Second

// Generator 章节生成
type Generator interface {
	Generate(ctx context.Context, section, title string, userID int64, previousSections map[string]string, opts service.GenerateOptions) (string, error)
}

// SectionWriter 把生成结果写回项目
type SectionWriter interface {
	UpdateSection(projectID int64, sectionType, content string) (*dto.UpdateSectionResponse, error)
}

// JobSource 任务来源
type JobSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.GenerationMessage, error)
}

// Processor 异步生成任务处理器
type Processor struct {
	jobRepo     *repository.JobRepository
	projectRepo *repository.ProjectRepository
	generator   Generator
	sections    SectionWriter
	logger      *zap.Logger
	popTimeout  time.Duration
}

func NewProcessor(
	jobRepo *repository.JobRepository,
	projectRepo *repository.ProjectRepository,
	generator Generator,
	sections SectionWriter,
	logger *zap.Logger,
) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		jobRepo:     jobRepo,
		projectRepo: projectRepo,
		generator:   generator,
		sections:    sections,
		logger:      logger,
		popTimeout:  defaultPopTimeout,
	}
}

// Process 处理一条任务，已不在排队状态的任务直接跳过
func (p *Processor) Process(ctx context.Context, msg *queue.GenerationMessage) error {
	job, err := p.jobRepo.GetByID(msg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job.Status != model.JobQueued {
		p.logger.Info("skip job not in queue", zap.Int64("job_id", job.ID), zap.String("status", job.Status))
		return nil
	}

	now := time.Now()
	job.Status = model.JobProcessing
	job.StartedAt = &now
	if err := p.jobRepo.Update(job); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	opts := service.GenerateOptions{JobID: job.ID, ProjectID: msg.ProjectID}
	if msg.ProjectID > 0 {
		project, err := p.projectRepo.GetByIDAndUser(msg.ProjectID, msg.UserID)
		if err != nil {
			return p.fail(job, service.CodeUnknownError, service.ErrProjectNotFound.Error(), err)
		}
		opts.ProjectTitle = project.Title
	}

	content, err := p.generator.Generate(ctx, msg.Section, msg.Title, msg.UserID, msg.PreviousSections, opts)
	if err != nil {
		var genErr *service.GenerationError
		if errors.As(err, &genErr) {
			return p.fail(job, genErr.Code, genErr.Message, err)
		}
		return p.fail(job, service.CodeUnknownError, err.Error(), err)
	}

	if msg.ProjectID > 0 && p.sections != nil {
		if _, err := p.sections.UpdateSection(msg.ProjectID, msg.Section, content); err != nil {
			// 内容仍保存在任务里
			p.logger.Warn("save generated section failed",
				zap.Int64("job_id", job.ID),
				zap.Int64("project_id", msg.ProjectID),
				zap.Error(err),
			)
		}
	}

	job.Status = model.JobCompleted
	job.Content = content
	p.finish(job)
	if err := p.jobRepo.Update(job); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	p.logger.Info("job completed",
		zap.Int64("job_id", job.ID),
		zap.String("section", job.Section),
		zap.Int("elapsed_seconds", job.ElapsedSeconds),
	)
	return nil
}

func (p *Processor) fail(job *model.GenerationJob, code, message string, cause error) error {
	job.Status = model.JobFailed
	job.ErrorCode = code
	job.ErrorMessage = message
	p.finish(job)
	if err := p.jobRepo.Update(job); err != nil {
		p.logger.Error("mark job failed", zap.Int64("job_id", job.ID), zap.Error(err))
	}
	return cause
}

func (p *Processor) finish(job *model.GenerationJob) {
	completedAt := time.Now()
	job.CompletedAt = &completedAt
	if job.StartedAt != nil {
		job.ElapsedSeconds = int(completedAt.Sub(*job.StartedAt).Seconds())
	}
}

// Run 启动 workers 个协程消费队列，ctx 取消后等待全部退出
func (p *Processor) Run(ctx context.Context, source JobSource, workers int) {
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, source, workerID)
		}(i)
	}
	wg.Wait()
}

func (p *Processor) loop(ctx context.Context, source JobSource, workerID int) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker shutting down", zap.Int("worker", workerID))
			return
		default:
		}

		msg, err := source.Pop(ctx, p.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("pop job failed", zap.Int("worker", workerID), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if msg == nil {
			continue
		}

		p.logger.Info("processing job", zap.Int("worker", workerID), zap.Int64("job_id", msg.JobID))
		if err := p.Process(ctx, msg); err != nil {
			p.logger.Warn("job failed", zap.Int("worker", workerID), zap.Int64("job_id", msg.JobID), zap.Error(err))
		}
	}
}
