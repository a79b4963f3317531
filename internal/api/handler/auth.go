package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/research_go_server/internal/model/dto"
	"github.com/qs3c/research_go_server/internal/pkg/response"
	"github.com/qs3c/research_go_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	frontendURL string
}

// NewAuthHandler frontendURL 为空时 GitHub 回调直接返回 JSON
func NewAuthHandler(authService *service.AuthService, frontendURL string) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// Register 用户注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailExists):
			response.DuplicateError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "تم إنشاء الحساب، يرجى التحقق من بريدك الإلكتروني", resp)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.AuthError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "تم تسجيل الدخول بنجاح", resp)
}

// VerifyEmail 验证邮箱
// POST /api/v1/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req dto.VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.VerifyEmail(req.Token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidVerifyToken):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "تم تأكيد البريد الإلكتروني", resp)
}

// GithubAuth 跳转到 GitHub 授权页
// GET /api/v1/auth/github
func (h *AuthHandler) GithubAuth(c *gin.Context) {
	authURL, err := h.authService.GetGithubAuthURL(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrOAuthUnavailable) {
			response.Error(c, response.CodeServerError, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// GithubCallback GitHub 授权回调
// GET /api/v1/auth/github/callback
func (h *AuthHandler) GithubCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		response.ParamError(c, "رمز التفويض مفقود")
		return
	}

	resp, err := h.authService.GithubCallback(c.Request.Context(), code, state)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidOAuthState):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrOAuthUnavailable):
			response.ServerError(c, err.Error())
		default:
			response.AuthError(c, "فشل تسجيل الدخول عبر GitHub")
		}
		return
	}

	if h.frontendURL != "" {
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/auth/callback#token="+url.QueryEscape(resp.Token))
		return
	}
	response.Success(c, resp)
}
