package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/qs3c/research_go_server/config"
)

// Message 一封 HTML 邮件
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender 邮件发送通道
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender 按配置选择 resend 或 smtp
func NewSender(emailCfg *config.EmailConfig, resendCfg *config.ResendConfig) Sender {
	if emailCfg.Provider == "resend" && resendCfg.APIKey != "" {
		return NewResendSender(resendCfg.APIKey, emailCfg.From, emailCfg.ReplyTo)
	}
	return NewSMTPSender(emailCfg)
}

// ResendSender 通过 Resend API 发送
type ResendSender struct {
	client  *resend.Client
	from    string
	replyTo string
}

func NewResendSender(apiKey, from, replyTo string) *ResendSender {
	return &ResendSender{
		client:  resend.NewClient(apiKey),
		from:    from,
		replyTo: replyTo,
	}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		ReplyTo: s.replyTo,
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

// SMTPSender 直连 SMTP 发送
type SMTPSender struct {
	cfg *config.EmailConfig
}

func NewSMTPSender(cfg *config.EmailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	if s.cfg.SMTPHost == "" {
		return fmt.Errorf("smtp: host not configured")
	}

	var b strings.Builder
	writeHeader(&b, "From", s.cfg.From)
	writeHeader(&b, "To", msg.To)
	if s.cfg.ReplyTo != "" {
		writeHeader(&b, "Reply-To", s.cfg.ReplyTo)
	}
	writeHeader(&b, "Subject", msg.Subject)
	writeHeader(&b, "MIME-Version", "1.0")
	writeHeader(&b, "Content-Type", "text/html; charset=UTF-8")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{msg.To}, []byte(b.String()))
}

func writeHeader(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}
