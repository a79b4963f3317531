package dto

import "time"

// UseCreditRequest 扣减额度请求
type UseCreditRequest struct {
	Description string `json:"description"`
}

// BalanceResponse 余额
type BalanceResponse struct {
	Credits int `json:"credits"`
}

// TransactionInfo 流水条目
type TransactionInfo struct {
	ID            int64     `json:"id"`
	Amount        int       `json:"amount"`
	Type          string    `json:"type"`
	Description   string    `json:"description"`
	ReferenceType string    `json:"reference_type,omitempty"`
	ProjectTitle  string    `json:"project_title,omitempty"`
	Section       string    `json:"section,omitempty"`
	UsageType     string    `json:"usage_type,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// CheckoutRequest 创建支付会话
type CheckoutRequest struct {
	PackageID  string `json:"packageId" binding:"required"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

// CheckoutResponse 支付会话
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// SendEmailRequest 发送邮件
type SendEmailRequest struct {
	To      string `json:"to" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	HTML    string `json:"html" binding:"required"`
}
