package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/qs3c/research_go_server/config"
	"github.com/qs3c/research_go_server/internal/pkg/email"
)

var ErrEmailFieldsMissing = errors.New("يرجى تعبئة المرسل إليه والموضوع والمحتوى")

type EmailService struct {
	sender email.Sender
	cfg    *config.Config
	logger *zap.Logger
}

func NewEmailService(sender email.Sender, cfg *config.Config, logger *zap.Logger) *EmailService {
	return &EmailService{sender: sender, cfg: cfg, logger: logger}
}

// VerificationURL 前端验证页地址
func (s *EmailService) VerificationURL(token string) string {
	base := strings.TrimRight(s.cfg.App.BaseURL, "/")
	return base + "/verify-email?token=" + url.QueryEscape(token)
}

// SendVerification 发送验证邮件
func (s *EmailService) SendVerification(ctx context.Context, to, name, token string) error {
	html, err := email.RenderVerification(name, s.VerificationURL(token))
	if err != nil {
		return err
	}
	if err := s.sender.Send(ctx, email.Message{
		To:      to,
		Subject: email.VerificationSubject,
		HTML:    html,
	}); err != nil {
		s.logger.Warn("send verification email failed", zap.String("to", to), zap.Error(err))
		return err
	}
	return nil
}

// SendEmail 通用发信
func (s *EmailService) SendEmail(ctx context.Context, to, subject, html string) error {
	if strings.TrimSpace(to) == "" || strings.TrimSpace(subject) == "" || strings.TrimSpace(html) == "" {
		return ErrEmailFieldsMissing
	}
	if err := s.sender.Send(ctx, email.Message{To: to, Subject: subject, HTML: html}); err != nil {
		s.logger.Warn("send email failed", zap.String("to", to), zap.Error(err))
		return err
	}
	return nil
}
