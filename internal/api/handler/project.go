package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/research_go_server/internal/api/middleware"
	"github.com/qs3c/research_go_server/internal/model/dto"
	"github.com/qs3c/research_go_server/internal/pkg/response"
	"github.com/qs3c/research_go_server/internal/service"
)

type ProjectHandler struct {
	projectService *service.ProjectService
}

func NewProjectHandler(projectService *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

func projectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProjectNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrInvalidSectionID):
		response.ParamError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}

// Create 新建项目
// POST /api/v1/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	project, err := h.projectService.CreateProject(userID, req.Title, req.Language)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, project)
}

// List 我的项目
// GET /api/v1/projects
func (h *ProjectHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	projects, err := h.projectService.ListProjects(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, projects)
}

// Get 项目详情
// GET /api/v1/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	projectID, ok := paramID(c, "id")
	if !ok {
		response.ParamError(c, "معرف المشروع غير صالح")
		return
	}

	project, err := h.projectService.GetProject(projectID, userID)
	if err != nil {
		projectError(c, err)
		return
	}

	response.Success(c, project)
}

// Delete 删除项目
// DELETE /api/v1/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	projectID, ok := paramID(c, "id")
	if !ok {
		response.ParamError(c, "معرف المشروع غير صالح")
		return
	}

	if err := h.projectService.DeleteProject(projectID, userID); err != nil {
		projectError(c, err)
		return
	}

	response.SuccessWithMessage(c, "تم حذف المشروع", nil)
}

// UpdateSection 保存章节内容
// PUT /api/v1/projects/:id/sections/:type
func (h *ProjectHandler) UpdateSection(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	projectID, ok := paramID(c, "id")
	if !ok {
		response.ParamError(c, "معرف المشروع غير صالح")
		return
	}

	var req dto.UpdateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if _, err := h.projectService.GetProject(projectID, userID); err != nil {
		projectError(c, err)
		return
	}

	resp, err := h.projectService.UpdateSection(projectID, c.Param("type"), req.Content)
	if err != nil {
		projectError(c, err)
		return
	}

	response.Success(c, resp)
}

// Export 导出 Markdown
// POST /api/v1/projects/:id/export
func (h *ProjectHandler) Export(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	projectID, ok := paramID(c, "id")
	if !ok {
		response.ParamError(c, "معرف المشروع غير صالح")
		return
	}

	resp, err := h.projectService.ExportProject(projectID, userID)
	if err != nil {
		projectError(c, err)
		return
	}

	response.Success(c, resp)
}
