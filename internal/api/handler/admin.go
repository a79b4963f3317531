package handler

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/research_go_server/internal/model/dto"
	"github.com/qs3c/research_go_server/internal/pkg/response"
	"github.com/qs3c/research_go_server/internal/service"
)

type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func adminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrAPIKeyNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrEmailExists):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrCannotDeleteAdmin):
		response.PermissionError(c, err.Error())
	case errors.Is(err, service.ErrInsufficientCredits):
		response.CreditError(c, err.Error())
	case errors.Is(err, service.ErrInvalidAmount):
		response.ParamError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}

// Stats 概览
// GET /api/v1/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.adminService.GetStats()
	if err != nil {
		adminError(c, err)
		return
	}
	response.Success(c, stats)
}

// Usage 按天统计
// GET /api/v1/admin/usage?days=30
func (h *AdminHandler) Usage(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	usage, err := h.adminService.GetUsageStats(days, time.Now())
	if err != nil {
		adminError(c, err)
		return
	}
	response.Success(c, usage)
}

// ListUsers 用户列表
// GET /api/v1/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, pageSize := pageQuery(c)
	users, total, err := h.adminService.ListUsers(page, pageSize)
	if err != nil {
		adminError(c, err)
		return
	}
	response.SuccessPage(c, total, page, pageSize, users)
}

// CreateUser 新建用户
// POST /api/v1/admin/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req dto.AdminCreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	user, err := h.adminService.CreateUser(&req)
	if err != nil {
		adminError(c, err)
		return
	}
	response.Success(c, user)
}

// UpdateUser 修改用户
// PUT /api/v1/admin/users/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		response.ParamError(c, "معرف المستخدم غير صالح")
		return
	}

	var req dto.AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	user, err := h.adminService.UpdateUser(userID, &req)
	if err != nil {
		adminError(c, err)
		return
	}
	response.Success(c, user)
}

// DeleteUser 删除用户
// DELETE /api/v1/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		response.ParamError(c, "معرف المستخدم غير صالح")
		return
	}

	if err := h.adminService.DeleteUser(userID); err != nil {
		adminError(c, err)
		return
	}
	response.SuccessWithMessage(c, "تم حذف المستخدم", nil)
}

// AdjustCredits 调整余额
// POST /api/v1/admin/users/:id/credits
func (h *AdminHandler) AdjustCredits(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		response.ParamError(c, "معرف المستخدم غير صالح")
		return
	}

	var req dto.AdjustCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	balance, err := h.adminService.AdjustUserCredits(userID, req.Amount, req.Description)
	if err != nil {
		adminError(c, err)
		return
	}
	response.Success(c, dto.BalanceResponse{Credits: balance})
}

// RewardUsers 批量奖励
// POST /api/v1/admin/rewards
func (h *AdminHandler) RewardUsers(c *gin.Context) {
	var req dto.RewardUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	count, err := h.adminService.RewardUsers(req.Amount, req.Description, req.NewOnly, time.Now())
	if err != nil {
		adminError(c, err)
		return
	}
	response.SuccessWithMessage(c, fmt.Sprintf("تم منح %d نقاط لـ %d مستخدم", req.Amount, count), dto.RewardUsersResponse{Rewarded: count})
}

// CreditHistory 用户流水
// GET /api/v1/admin/users/:id/credits
func (h *AdminHandler) CreditHistory(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		response.ParamError(c, "معرف المستخدم غير صالح")
		return
	}

	page, pageSize := pageQuery(c)
	txs, total, err := h.adminService.GetUserCreditHistory(userID, page, pageSize)
	if err != nil {
		adminError(c, err)
		return
	}
	response.SuccessPage(c, total, page, pageSize, toTransactionInfo(txs))
}

// ListAPIKeys 密钥列表
// GET /api/v1/admin/api-keys
func (h *AdminHandler) ListAPIKeys(c *gin.Context) {
	keys, err := h.adminService.ListAPIKeys()
	if err != nil {
		adminError(c, err)
		return
	}
	response.Success(c, keys)
}

// CreateAPIKey 新建密钥
// POST /api/v1/admin/api-keys
func (h *AdminHandler) CreateAPIKey(c *gin.Context) {
	var req dto.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	key, err := h.adminService.CreateAPIKey(&req)
	if err != nil {
		adminError(c, err)
		return
	}
	response.Success(c, key)
}

// UpdateAPIKey 修改密钥
// PUT /api/v1/admin/api-keys/:id
func (h *AdminHandler) UpdateAPIKey(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		response.ParamError(c, "معرف المفتاح غير صالح")
		return
	}

	var req dto.UpdateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	key, err := h.adminService.UpdateAPIKey(id, &req)
	if err != nil {
		adminError(c, err)
		return
	}
	response.Success(c, key)
}

// DeleteAPIKey 删除密钥
// DELETE /api/v1/admin/api-keys/:id
func (h *AdminHandler) DeleteAPIKey(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		response.ParamError(c, "معرف المفتاح غير صالح")
		return
	}

	if err := h.adminService.DeleteAPIKey(id); err != nil {
		adminError(c, err)
		return
	}
	response.SuccessWithMessage(c, "تم حذف المفتاح", nil)
}

// GetSettings 读取设置
// GET /api/v1/admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.adminService.GetSettings()
	if err != nil {
		adminError(c, err)
		return
	}
	response.Success(c, settings)
}

// UpdateSettings 修改设置
// PUT /api/v1/admin/settings
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	settings, err := h.adminService.UpdateSettings(&req)
	if err != nil {
		adminError(c, err)
		return
	}
	response.Success(c, settings)
}
