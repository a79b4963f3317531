package dto

// CreateProjectRequest 新建项目
type CreateProjectRequest struct {
	Title    string `json:"title" binding:"required,max=255"`
	Language string `json:"language" binding:"omitempty,oneof=ar en"`
}

// UpdateSectionRequest 保存章节
type UpdateSectionRequest struct {
	Content string `json:"content"`
}

// UpdateSectionResponse 保存章节结果
type UpdateSectionResponse struct {
	WordCount int `json:"word_count"`
	Progress  int `json:"progress"`
}

// ExportResponse 导出结果，未配置存储时直接返回内容
type ExportResponse struct {
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename"`
	Content  string `json:"content,omitempty"`
}
