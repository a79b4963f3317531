package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/research_go_server/internal/api/middleware"
	"github.com/qs3c/research_go_server/internal/model/dto"
	"github.com/qs3c/research_go_server/internal/pkg/response"
	"github.com/qs3c/research_go_server/internal/service"
)

type GenerationHandler struct {
	generationService *service.GenerationService
	creditService     *service.CreditService
	projectService    *service.ProjectService
	jobService        *service.JobService
}

func NewGenerationHandler(
	generationService *service.GenerationService,
	creditService *service.CreditService,
	projectService *service.ProjectService,
	jobService *service.JobService,
) *GenerationHandler {
	return &GenerationHandler{
		generationService: generationService,
		creditService:     creditService,
		projectService:    projectService,
		jobService:        jobService,
	}
}

// generationError 生成失败时返回错误码供前端展示
func generationError(c *gin.Context, err error) {
	var genErr *service.GenerationError
	if !errors.As(err, &genErr) {
		response.ServerError(c, "")
		return
	}

	data := gin.H{"error_code": genErr.Code}
	switch genErr.Code {
	case service.CodeAuthRequired:
		response.ErrorWithData(c, response.CodeAuthFailed, genErr.Message, data)
	case service.CodeInsufficientCredits:
		response.ErrorWithData(c, response.CodeInsufficientCredits, genErr.Message, data)
	case service.CodeTitleRequired, service.CodeInvalidSection:
		response.ErrorWithData(c, response.CodeParamError, genErr.Message, data)
	default:
		response.ErrorWithData(c, response.CodeGenerationFailed, genErr.Message, data)
	}
}

// options 带项目时校验归属并附带标题
func (h *GenerationHandler) options(c *gin.Context, userID, projectID int64) (service.GenerateOptions, bool) {
	opts := service.GenerateOptions{ProjectID: projectID}
	if projectID == 0 {
		return opts, true
	}
	project, err := h.projectService.GetProject(projectID, userID)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			response.NotFoundError(c, err.Error())
		} else {
			response.ServerError(c, "")
		}
		return opts, false
	}
	opts.ProjectTitle = project.Title
	return opts, true
}

func (h *GenerationHandler) respond(c *gin.Context, userID int64, content string) {
	balance, err := h.creditService.GetBalance(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, dto.GenerateResponse{Content: content, Credits: balance})
}

// Generate 生成章节
// POST /api/v1/openai/generate
func (h *GenerationHandler) Generate(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	opts, ok := h.options(c, userID, req.ProjectID)
	if !ok {
		return
	}

	content, err := h.generationService.Generate(c.Request.Context(), req.Section, req.Title, userID, req.PreviousSections, opts)
	if err != nil {
		generationError(c, err)
		return
	}

	h.respond(c, userID, content)
}

// Continue 续写
// POST /api/v1/openai/continue
func (h *GenerationHandler) Continue(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.ContinueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	opts, ok := h.options(c, userID, req.ProjectID)
	if !ok {
		return
	}

	content, err := h.generationService.ContinueWriting(c.Request.Context(), req.Title, req.Content, userID, opts)
	if err != nil {
		generationError(c, err)
		return
	}

	h.respond(c, userID, content)
}

// Enhance 润色
// POST /api/v1/openai/enhance
func (h *GenerationHandler) Enhance(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.EnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	content, err := h.generationService.Enhance(c.Request.Context(), req.Content, userID)
	if err != nil {
		generationError(c, err)
		return
	}

	h.respond(c, userID, content)
}

// CreateJob 异步生成
// POST /api/v1/openai/jobs
func (h *GenerationHandler) CreateJob(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.jobService.CreateJob(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSectionID):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrProjectNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrQueueUnavailable):
			response.ServerError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, resp)
}

// GetJob 任务状态
// GET /api/v1/openai/jobs/:id
func (h *GenerationHandler) GetJob(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	jobID, ok := paramID(c, "id")
	if !ok {
		response.ParamError(c, "معرف المهمة غير صالح")
		return
	}

	job, err := h.jobService.GetJob(userID, jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, job)
}
