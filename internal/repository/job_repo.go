package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/internal/model"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(job *model.GenerationJob) error {
	return r.db.Create(job).Error
}

func (r *JobRepository) GetByID(id int64) (*model.GenerationJob, error) {
	var job model.GenerationJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) GetByIDAndUser(id, userID int64) (*model.GenerationJob, error) {
	var job model.GenerationJob
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) Update(job *model.GenerationJob) error {
	return r.db.Save(job).Error
}

// FailStale 把开始时间早于 before 仍在处理中的任务标记为失败
func (r *JobRepository) FailStale(before time.Time, code, message string) (int64, error) {
	result := r.db.Model(&model.GenerationJob{}).
		Where("status = ? AND started_at < ?", model.JobProcessing, before).
		Updates(map[string]interface{}{
			"status":        model.JobFailed,
			"error_code":    code,
			"error_message": message,
			"completed_at":  time.Now(),
		})
	return result.RowsAffected, result.Error
}
