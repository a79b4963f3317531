package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/qs3c/research_go_server/config"
	"github.com/qs3c/research_go_server/internal/repository"
)

var (
	ErrResendSignatureMissing = errors.New("missing signature")
	ErrResendSignatureInvalid = errors.New("invalid signature")
	ErrResendPayloadInvalid   = errors.New("invalid payload")
)

// resend 事件类型
const (
	ResendEmailDelivered  = "email.delivered"
	ResendEmailBounced    = "email.bounced"
	ResendEmailComplained = "email.complained"
)

type resendEvent struct {
	Type string `json:"type"`
	Data struct {
		EmailID string          `json:"email_id"`
		To      json.RawMessage `json:"to"`
	} `json:"data"`
}

// recipients data.to 可能是字符串或数组
func (e *resendEvent) recipients() []string {
	if len(e.Data.To) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(e.Data.To, &one); err == nil {
		if one == "" {
			return nil
		}
		return []string{strings.ToLower(one)}
	}
	var many []string
	if err := json.Unmarshal(e.Data.To, &many); err != nil {
		return nil
	}
	out := make([]string, 0, len(many))
	for _, m := range many {
		if m != "" {
			out = append(out, strings.ToLower(m))
		}
	}
	return out
}

type WebhookService struct {
	userRepo *repository.UserRepository
	cfg      *config.Config
	logger   *zap.Logger
}

func NewWebhookService(userRepo *repository.UserRepository, cfg *config.Config, logger *zap.Logger) *WebhookService {
	return &WebhookService{userRepo: userRepo, cfg: cfg, logger: logger}
}

// SignResend 计算 resend 回调签名
func SignResend(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// HandleResendWebhook 退信时取消收件人的验证状态
func (s *WebhookService) HandleResendWebhook(payload []byte, signature string) error {
	if signature == "" {
		return ErrResendSignatureMissing
	}
	expected := SignResend(payload, s.cfg.Resend.WebhookSecret)
	if s.cfg.Resend.WebhookSecret == "" || !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrResendSignatureInvalid
	}

	var event resendEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return ErrResendPayloadInvalid
	}

	switch event.Type {
	case ResendEmailBounced:
		to := event.recipients()
		if len(to) == 0 {
			return nil
		}
		n, err := s.userRepo.MarkUnverifiedByEmail(to)
		if err != nil {
			return err
		}
		s.logger.Info("email bounced", zap.Strings("to", to), zap.Int64("users", n))
	case ResendEmailDelivered:
		s.logger.Info("email delivered", zap.String("email_id", event.Data.EmailID))
	case ResendEmailComplained:
		s.logger.Warn("spam complaint", zap.String("email_id", event.Data.EmailID), zap.Strings("to", event.recipients()))
	}
	return nil
}
