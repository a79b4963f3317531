package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/research_go_server/internal/api/middleware"
	"github.com/qs3c/research_go_server/internal/model/dto"
	"github.com/qs3c/research_go_server/internal/pkg/response"
	"github.com/qs3c/research_go_server/internal/service"
)

type EmailHandler struct {
	emailService *service.EmailService
	authService  *service.AuthService
}

func NewEmailHandler(emailService *service.EmailService, authService *service.AuthService) *EmailHandler {
	return &EmailHandler{
		emailService: emailService,
		authService:  authService,
	}
}

// SendEmail 发送邮件
// POST /api/send-email
func (h *EmailHandler) SendEmail(c *gin.Context) {
	var req dto.SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, service.ErrEmailFieldsMissing.Error())
		return
	}

	if err := h.emailService.SendEmail(c.Request.Context(), req.To, req.Subject, req.HTML); err != nil {
		if errors.Is(err, service.ErrEmailFieldsMissing) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "فشل إرسال البريد الإلكتروني")
		return
	}

	response.SuccessWithMessage(c, "تم إرسال البريد الإلكتروني", nil)
}

// SendVerification 重新发送验证邮件
// POST /api/send-verification
func (h *EmailHandler) SendVerification(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	if err := h.authService.SendVerification(c.Request.Context(), userID); err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyVerified):
			response.DuplicateError(c, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			response.AuthError(c, "")
		default:
			response.ServerError(c, "فشل إرسال البريد الإلكتروني")
		}
		return
	}

	response.SuccessWithMessage(c, "تم إرسال رابط التحقق", nil)
}
