package dto

import "time"

// StatsResponse 概览
type StatsResponse struct {
	TotalUsers   int64 `json:"totalUsers"`
	ActiveUsers  int64 `json:"activeUsers"`
	TotalCredits int64 `json:"totalCredits"`
	CreditsUsed  int64 `json:"creditsUsed"`
	Revenue      int64 `json:"revenue"`
}

// DailyUsage 按天统计
type DailyUsage struct {
	Date     string `json:"date"`
	Credits  int64  `json:"credits"`
	Revenue  int64  `json:"revenue"`
	APICalls int64  `json:"api_calls"`
}

// AdminCreateUserRequest 后台新建用户
type AdminCreateUserRequest struct {
	Name       string `json:"name" binding:"required,min=2,max=100"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=6,max=64"`
	Credits    int    `json:"credits" binding:"min=0"`
	IsAdmin    bool   `json:"is_admin"`
	IsVerified bool   `json:"is_verified"`
}

// AdminUpdateUserRequest 后台修改用户
type AdminUpdateUserRequest struct {
	Name       *string `json:"name,omitempty" binding:"omitempty,min=2,max=100"`
	Email      *string `json:"email,omitempty" binding:"omitempty,email"`
	IsVerified *bool   `json:"is_verified,omitempty"`
	IsAdmin    *bool   `json:"is_admin,omitempty"`
}

// AdjustCreditsRequest 后台调整余额
type AdjustCreditsRequest struct {
	Amount      int    `json:"amount" binding:"required"`
	Description string `json:"description"`
}

// RewardUsersRequest 批量奖励
type RewardUsersRequest struct {
	Amount      int    `json:"amount" binding:"required,min=1"`
	Description string `json:"description"`
	NewOnly     bool   `json:"new_only"`
}

type RewardUsersResponse struct {
	Rewarded int `json:"rewarded"`
}

// APIKeyInfo 密钥（脱敏）
type APIKeyInfo struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Provider   string     `json:"provider"`
	Key        string     `json:"key"`
	Status     string     `json:"status"`
	UsageCount int64      `json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreateAPIKeyRequest 新建密钥
type CreateAPIKeyRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Provider string `json:"provider" binding:"omitempty,oneof=openai gemini"`
	Key      string `json:"key" binding:"required"`
}

// UpdateAPIKeyRequest 修改密钥
type UpdateAPIKeyRequest struct {
	Name   *string `json:"name,omitempty" binding:"omitempty,max=100"`
	Status *string `json:"status,omitempty" binding:"omitempty,oneof=active revoked"`
}

// UpdateSettingsRequest 修改设置，空字段不修改
type UpdateSettingsRequest struct {
	BasicPackageCredits *int     `json:"basic_package_credits,omitempty" binding:"omitempty,min=1"`
	BasicPackagePrice   *int     `json:"basic_package_price,omitempty" binding:"omitempty,min=1"`
	ProPackageCredits   *int     `json:"pro_package_credits,omitempty" binding:"omitempty,min=1"`
	ProPackagePrice     *int     `json:"pro_package_price,omitempty" binding:"omitempty,min=1"`
	AIModel             *string  `json:"ai_model,omitempty"`
	MaxTokens           *int     `json:"max_tokens,omitempty" binding:"omitempty,min=1"`
	Temperature         *float64 `json:"temperature,omitempty" binding:"omitempty,min=0,max=2"`
	OpenAIAPIKey        *string  `json:"openai_api_key,omitempty"`
}
