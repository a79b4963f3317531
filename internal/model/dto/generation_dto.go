package dto

// GenerateRequest 章节生成请求
type GenerateRequest struct {
	Section          string            `json:"section" binding:"required"`
	Title            string            `json:"title"`
	PreviousSections map[string]string `json:"previousSections"`
	ProjectID        int64             `json:"projectId"`
}

// ContinueRequest 续写请求
type ContinueRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content" binding:"required"`
	ProjectID int64  `json:"projectId"`
}

// EnhanceRequest 润色请求
type EnhanceRequest struct {
	Content string `json:"content" binding:"required"`
}

// GenerateResponse 生成结果
type GenerateResponse struct {
	Content string `json:"content"`
	Credits int    `json:"credits"`
}

// CreateJobRequest 异步生成请求
type CreateJobRequest struct {
	Section          string            `json:"section" binding:"required"`
	Title            string            `json:"title" binding:"required"`
	PreviousSections map[string]string `json:"previousSections"`
	ProjectID        int64             `json:"projectId"`
}

// CreateJobResponse 异步任务
type CreateJobResponse struct {
	JobID  int64  `json:"job_id"`
	Status string `json:"status"`
}
