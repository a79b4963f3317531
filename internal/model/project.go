package model

import (
	"time"
)

// 论文章节，顺序即导出顺序
var SectionTypes = []string{
	"title",
	"abstract",
	"introduction",
	"methodology",
	"results",
	"discussion",
	"conclusion",
}

func IsValidSectionType(t string) bool {
	for _, s := range SectionTypes {
		if s == t {
			return true
		}
	}
	return false
}

type Project struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Language  string    `gorm:"size:10;default:ar" json:"language"`
	Progress  int       `gorm:"default:0" json:"progress"`
	Sections  []Section `gorm:"foreignKey:ProjectID" json:"sections,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

func (Project) TableName() string {
	return "projects"
}

type Section struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	ProjectID    int64     `gorm:"not null;uniqueIndex:idx_project_section" json:"project_id"`
	Type         string    `gorm:"size:30;not null;uniqueIndex:idx_project_section" json:"type"`
	Content      string    `gorm:"type:text" json:"content"`
	WordCount    int       `gorm:"default:0" json:"word_count"`
	AIUsageCount int       `gorm:"default:0" json:"ai_usage_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Section) TableName() string {
	return "sections"
}
