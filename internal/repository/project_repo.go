package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/internal/model"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) WithTx(tx *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: tx}
}

func (r *ProjectRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

func (r *ProjectRepository) Create(project *model.Project) error {
	return r.db.Omit("Sections").Create(project).Error
}

func (r *ProjectRepository) CreateSections(sections []*model.Section) error {
	return r.db.Create(&sections).Error
}

func (r *ProjectRepository) ListByUser(userID int64) ([]*model.Project, error) {
	var projects []*model.Project
	err := r.db.Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Find(&projects).Error
	return projects, err
}

// GetByIDAndUser 带章节查询，章节按创建顺序
func (r *ProjectRepository) GetByIDAndUser(id, userID int64) (*model.Project, error) {
	var project model.Project
	err := r.db.Preload("Sections", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Where("id = ? AND user_id = ?", id, userID).First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) GetByID(id int64) (*model.Project, error) {
	var project model.Project
	err := r.db.Where("id = ?", id).First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) GetSection(projectID int64, sectionType string) (*model.Section, error) {
	var section model.Section
	err := r.db.Where("project_id = ? AND type = ?", projectID, sectionType).First(&section).Error
	if err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *ProjectRepository) UpdateSection(projectID int64, sectionType, content string, wordCount int) (int64, error) {
	result := r.db.Model(&model.Section{}).
		Where("project_id = ? AND type = ?", projectID, sectionType).
		Updates(map[string]interface{}{
			"content":    content,
			"word_count": wordCount,
		})
	return result.RowsAffected, result.Error
}

func (r *ProjectRepository) IncrementAIUsage(projectID int64, sectionType string) error {
	return r.db.Model(&model.Section{}).
		Where("project_id = ? AND type = ?", projectID, sectionType).
		Update("ai_usage_count", gorm.Expr("ai_usage_count + 1")).Error
}

// CountSections 返回章节总数与非空章节数
func (r *ProjectRepository) CountSections(projectID int64) (total int64, nonEmpty int64, err error) {
	if err = r.db.Model(&model.Section{}).Where("project_id = ?", projectID).Count(&total).Error; err != nil {
		return
	}
	err = r.db.Model(&model.Section{}).
		Where("project_id = ? AND TRIM(content) <> ''", projectID).
		Count(&nonEmpty).Error
	return
}

func (r *ProjectRepository) UpdateProgress(projectID int64, progress int) error {
	return r.db.Model(&model.Project{}).Where("id = ?", projectID).Update("progress", progress).Error
}

func (r *ProjectRepository) Delete(id int64) error {
	if err := r.db.Where("project_id = ?", id).Delete(&model.Section{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&model.Project{}, id).Error
}

// DeleteByUser 删除用户全部项目及章节
func (r *ProjectRepository) DeleteByUser(userID int64) error {
	sub := r.db.Model(&model.Project{}).Select("id").Where("user_id = ?", userID)
	if err := r.db.Where("project_id IN (?)", sub).Delete(&model.Section{}).Error; err != nil {
		return err
	}
	return r.db.Where("user_id = ?", userID).Delete(&model.Project{}).Error
}
