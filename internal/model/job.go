package model

import (
	"time"
)

// 生成任务状态
const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// GenerationJob 异步生成任务
type GenerationJob struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	UserID         int64      `gorm:"not null;index" json:"user_id"`
	ProjectID      int64      `gorm:"index" json:"project_id,omitempty"`
	Section        string     `gorm:"size:30;not null" json:"section"`
	Title          string     `gorm:"size:255" json:"title"`
	Status         string     `gorm:"size:20;default:queued;index" json:"status"`
	Content        string     `gorm:"type:text" json:"content,omitempty"`
	ErrorCode      string     `gorm:"size:50" json:"error_code,omitempty"`
	ErrorMessage   string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ElapsedSeconds int        `json:"elapsed_seconds,omitempty"`
}

func (GenerationJob) TableName() string {
	return "generation_jobs"
}
