package service

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/model/dto"
	"github.com/qs3c/research_go_server/internal/repository"
)

var (
	ErrProjectNotFound  = errors.New("المشروع غير موجود")
	ErrInvalidSectionID = errors.New("نوع القسم غير صالح")
)

const exportURLExpireSeconds = 3600

// ExportStorage 导出文件存储
type ExportStorage interface {
	UploadFile(objectKey string, data []byte, contentType, filename string) error
	GetSignedURL(objectKey string, expireSeconds int64) (string, error)
}

var sectionHeadings = map[string]map[string]string{
	"ar": {
		"abstract":     "الملخص",
		"introduction": "المقدمة",
		"methodology":  "المنهجية",
		"results":      "النتائج",
		"discussion":   "المناقشة",
		"conclusion":   "الخاتمة",
	},
	"en": {
		"abstract":     "Abstract",
		"introduction": "Introduction",
		"methodology":  "Methodology",
		"results":      "Results",
		"discussion":   "Discussion",
		"conclusion":   "Conclusion",
	},
}

type ProjectService struct {
	projectRepo *repository.ProjectRepository
	storage     ExportStorage
	logger      *zap.Logger
}

// NewProjectService storage 为 nil 时导出内容直接返回
func NewProjectService(projectRepo *repository.ProjectRepository, storage ExportStorage, logger *zap.Logger) *ProjectService {
	return &ProjectService{projectRepo: projectRepo, storage: storage, logger: logger}
}

// CreateProject 创建项目及全部空章节
func (s *ProjectService) CreateProject(userID int64, title, language string) (*model.Project, error) {
	if language == "" {
		language = "ar"
	}
	project := &model.Project{
		UserID:   userID,
		Title:    strings.TrimSpace(title),
		Language: language,
	}

	err := s.projectRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.projectRepo.WithTx(tx)
		if err := repo.Create(project); err != nil {
			return err
		}
		sections := make([]*model.Section, 0, len(model.SectionTypes))
		for _, t := range model.SectionTypes {
			sections = append(sections, &model.Section{ProjectID: project.ID, Type: t})
		}
		if err := repo.CreateSections(sections); err != nil {
			return err
		}
		project.Sections = make([]model.Section, 0, len(sections))
		for _, sec := range sections {
			project.Sections = append(project.Sections, *sec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) ListProjects(userID int64) ([]*model.Project, error) {
	return s.projectRepo.ListByUser(userID)
}

// GetProject 同时校验归属
func (s *ProjectService) GetProject(projectID, userID int64) (*model.Project, error) {
	project, err := s.projectRepo.GetByIDAndUser(projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

// CountWords 按空白分词
func CountWords(content string) int {
	return len(strings.Fields(strings.TrimSpace(content)))
}

// UpdateSection 保存章节并重新计算进度
func (s *ProjectService) UpdateSection(projectID int64, sectionType, content string) (*dto.UpdateSectionResponse, error) {
	if !model.IsValidSectionType(sectionType) {
		return nil, ErrInvalidSectionID
	}

	resp := &dto.UpdateSectionResponse{WordCount: CountWords(content)}
	err := s.projectRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.projectRepo.WithTx(tx)
		rows, err := repo.UpdateSection(projectID, sectionType, content, resp.WordCount)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrProjectNotFound
		}

		total, nonEmpty, err := repo.CountSections(projectID)
		if err != nil {
			return err
		}
		if total > 0 {
			resp.Progress = int(math.Round(float64(nonEmpty) / float64(total) * 100))
		}
		return repo.UpdateProgress(projectID, resp.Progress)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// DeleteProject 删除章节后删除项目
func (s *ProjectService) DeleteProject(projectID, userID int64) error {
	if _, err := s.GetProject(projectID, userID); err != nil {
		return err
	}
	return s.projectRepo.Transaction(func(tx *gorm.DB) error {
		return s.projectRepo.WithTx(tx).Delete(projectID)
	})
}

// RenderMarkdown 标题加按顺序排列的非空章节
func RenderMarkdown(project *model.Project) string {
	headings, ok := sectionHeadings[project.Language]
	if !ok {
		headings = sectionHeadings["ar"]
	}

	byType := make(map[string]string, len(project.Sections))
	for _, sec := range project.Sections {
		byType[sec.Type] = strings.TrimSpace(sec.Content)
	}

	title := project.Title
	if t := byType["title"]; t != "" {
		title = t
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", title)
	for _, t := range model.SectionTypes {
		if t == "title" || byType[t] == "" {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", headings[t], byType[t])
	}
	return b.String()
}

// ExportProject 导出 Markdown，配置了存储时上传并返回签名地址
func (s *ProjectService) ExportProject(projectID, userID int64) (*dto.ExportResponse, error) {
	project, err := s.GetProject(projectID, userID)
	if err != nil {
		return nil, err
	}

	content := RenderMarkdown(project)
	name := slug.Make(project.Title)
	if name == "" {
		name = fmt.Sprintf("project-%d", project.ID)
	}
	filename := name + ".md"

	if s.storage == nil {
		return &dto.ExportResponse{Filename: filename, Content: content}, nil
	}

	key := fmt.Sprintf("exports/%d/%s-%s.md", userID, name, uuid.NewString())
	if err := s.storage.UploadFile(key, []byte(content), "text/markdown; charset=utf-8", filename); err != nil {
		s.logger.Error("upload export failed", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}
	url, err := s.storage.GetSignedURL(key, exportURLExpireSeconds)
	if err != nil {
		return nil, err
	}
	return &dto.ExportResponse{URL: url, Filename: filename}, nil
}
