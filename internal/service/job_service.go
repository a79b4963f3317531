package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/model/dto"
	"github.com/qs3c/research_go_server/internal/pkg/queue"
	"github.com/qs3c/research_go_server/internal/repository"
)

var (
	ErrJobNotFound      = errors.New("المهمة غير موجودة")
	ErrQueueUnavailable = errors.New("خدمة المهام غير متاحة حالياً")
)

// JobQueue 任务入队
type JobQueue interface {
	Push(ctx context.Context, msg *queue.GenerationMessage) error
}

type JobService struct {
	jobRepo     *repository.JobRepository
	projectRepo *repository.ProjectRepository
	queue       JobQueue
	logger      *zap.Logger
}

func NewJobService(jobRepo *repository.JobRepository, projectRepo *repository.ProjectRepository, q JobQueue, logger *zap.Logger) *JobService {
	return &JobService{jobRepo: jobRepo, projectRepo: projectRepo, queue: q, logger: logger}
}

// CreateJob 创建任务并推入队列
func (s *JobService) CreateJob(ctx context.Context, userID int64, req *dto.CreateJobRequest) (*dto.CreateJobResponse, error) {
	if s.queue == nil {
		return nil, ErrQueueUnavailable
	}
	if !model.IsValidSectionType(req.Section) {
		return nil, ErrInvalidSectionID
	}
	if req.ProjectID > 0 {
		if _, err := s.projectRepo.GetByIDAndUser(req.ProjectID, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProjectNotFound
			}
			return nil, err
		}
	}

	job := &model.GenerationJob{
		UserID:    userID,
		ProjectID: req.ProjectID,
		Section:   req.Section,
		Title:     req.Title,
		Status:    model.JobQueued,
	}
	if err := s.jobRepo.Create(job); err != nil {
		return nil, err
	}

	err := s.queue.Push(ctx, &queue.GenerationMessage{
		JobID:            job.ID,
		UserID:           userID,
		ProjectID:        req.ProjectID,
		Section:          req.Section,
		Title:            req.Title,
		PreviousSections: req.PreviousSections,
	})
	if err != nil {
		s.logger.Error("push generation job failed", zap.Int64("job_id", job.ID), zap.Error(err))
		now := time.Now()
		job.Status = model.JobFailed
		job.ErrorCode = CodeConnectionError
		job.ErrorMessage = ErrQueueUnavailable.Error()
		job.CompletedAt = &now
		if err := s.jobRepo.Update(job); err != nil {
			s.logger.Error("mark job failed", zap.Int64("job_id", job.ID), zap.Error(err))
		}
		return nil, ErrQueueUnavailable
	}

	return &dto.CreateJobResponse{JobID: job.ID, Status: job.Status}, nil
}

// GetJob 只能查看自己的任务
func (s *JobService) GetJob(userID, jobID int64) (*model.GenerationJob, error) {
	job, err := s.jobRepo.GetByIDAndUser(jobID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}
