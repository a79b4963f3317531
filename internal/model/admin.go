package model

import (
	"time"
)

// ProcessedEvent 已处理的第三方回调事件，用于幂等
type ProcessedEvent struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Provider  string    `gorm:"size:20;not null;uniqueIndex:idx_provider_event" json:"provider"`
	EventID   string    `gorm:"size:255;not null;uniqueIndex:idx_provider_event" json:"event_id"`
	EventType string    `gorm:"size:100" json:"event_type"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProcessedEvent) TableName() string {
	return "processed_events"
}

const (
	APIKeyActive  = "active"
	APIKeyRevoked = "revoked"
)

// APIKey 后台维护的模型服务密钥
type APIKey struct {
	ID         int64      `gorm:"primaryKey" json:"id"`
	Name       string     `gorm:"size:100;not null" json:"name"`
	Provider   string     `gorm:"size:20;default:openai" json:"provider"`
	Key        string     `gorm:"size:255;not null" json:"-"`
	Status     string     `gorm:"size:20;default:active;index" json:"status"`
	UsageCount int64      `gorm:"default:0" json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (APIKey) TableName() string {
	return "api_keys"
}

// MaskedKey 只展示前后几位
func (k *APIKey) MaskedKey() string {
	if len(k.Key) <= 8 {
		return "****"
	}
	return k.Key[:4] + "****" + k.Key[len(k.Key)-4:]
}

// Setting 全局设置，单行；零值字段表示沿用配置文件
type Setting struct {
	ID                  int64     `gorm:"primaryKey" json:"id"`
	BasicPackageCredits int       `json:"basic_package_credits"`
	BasicPackagePrice   int       `json:"basic_package_price"`
	ProPackageCredits   int       `json:"pro_package_credits"`
	ProPackagePrice     int       `json:"pro_package_price"`
	AIModel             string    `gorm:"size:50" json:"ai_model"`
	MaxTokens           int       `json:"max_tokens"`
	Temperature         float64   `json:"temperature"`
	OpenAIAPIKey        string    `gorm:"column:openai_api_key;size:255" json:"-"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// DefaultSetting 空设置行，不覆盖任何配置
func DefaultSetting() *Setting {
	return &Setting{ID: 1}
}

// Merge 用 fallback 补齐未设置的字段，返回副本
func (s Setting) Merge(fallback Setting) *Setting {
	if s.BasicPackageCredits <= 0 {
		s.BasicPackageCredits = fallback.BasicPackageCredits
	}
	if s.BasicPackagePrice <= 0 {
		s.BasicPackagePrice = fallback.BasicPackagePrice
	}
	if s.ProPackageCredits <= 0 {
		s.ProPackageCredits = fallback.ProPackageCredits
	}
	if s.ProPackagePrice <= 0 {
		s.ProPackagePrice = fallback.ProPackagePrice
	}
	if s.AIModel == "" {
		s.AIModel = fallback.AIModel
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = fallback.MaxTokens
	}
	if s.Temperature <= 0 {
		s.Temperature = fallback.Temperature
	}
	return &s
}

// AllModels 迁移与测试共用
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&CreditTransaction{},
		&CreditReservation{},
		&ProcessedEvent{},
		&Project{},
		&Section{},
		&GenerationJob{},
		&APIKey{},
		&Setting{},
	}
}
