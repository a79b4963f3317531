package service

import (
	"context"
	"time"

	"github.com/qs3c/research_go_server/config"
	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/pkg/ai"
	"github.com/qs3c/research_go_server/internal/repository"
)

// KeyResolver 每次调用时解析模型服务密钥，后台修改后下一次调用即生效
type KeyResolver struct {
	settingRepo *repository.SettingRepository
	apiKeyRepo  *repository.APIKeyRepository
	cfg         *config.Config
}

func NewKeyResolver(settingRepo *repository.SettingRepository, apiKeyRepo *repository.APIKeyRepository, cfg *config.Config) *KeyResolver {
	return &KeyResolver{settingRepo: settingRepo, apiKeyRepo: apiKeyRepo, cfg: cfg}
}

func (r *KeyResolver) provider() string {
	if r.cfg.AI.Provider == "gemini" {
		return "gemini"
	}
	return "openai"
}

// Resolve 顺序：设置表 -> 启用中的密钥 -> 配置文件
func (r *KeyResolver) Resolve(ctx context.Context) (string, error) {
	provider := r.provider()

	if provider == "openai" {
		setting, err := r.settingRepo.Get()
		if err != nil {
			return "", err
		}
		if setting.OpenAIAPIKey != "" {
			return setting.OpenAIAPIKey, nil
		}
	}

	key, err := r.apiKeyRepo.FirstActive(provider)
	if err != nil {
		return "", err
	}
	if key != nil {
		if err := r.apiKeyRepo.IncrementUsage(key.ID, time.Now()); err != nil {
			return "", err
		}
		return key.Key, nil
	}

	fallback := r.cfg.AI.APIKey
	if provider == "gemini" {
		fallback = r.cfg.AI.GeminiAPIKey
	}
	if fallback == "" {
		return "", ai.ErrMissingAPIKey
	}
	return fallback, nil
}

// configSettings 配置文件中的默认值
func configSettings(cfg *config.Config) model.Setting {
	basic := cfg.Packages["basic"]
	pro := cfg.Packages["pro"]
	return model.Setting{
		BasicPackageCredits: basic.Credits,
		BasicPackagePrice:   basic.Price,
		ProPackageCredits:   pro.Credits,
		ProPackagePrice:     pro.Price,
		AIModel:             cfg.AI.Model,
		MaxTokens:           cfg.AI.MaxTokens,
		Temperature:         cfg.AI.Temperature,
	}
}

// effectiveSettings 设置表中非零字段覆盖配置文件
func effectiveSettings(repo *repository.SettingRepository, cfg *config.Config) (*model.Setting, error) {
	setting, err := repo.Get()
	if err != nil {
		return nil, err
	}
	return setting.Merge(configSettings(cfg)), nil
}

// ModelSettings 模型参数，设置表优先
func (r *KeyResolver) ModelSettings() (modelName string, temperature float64, maxTokens int) {
	setting, err := effectiveSettings(r.settingRepo, r.cfg)
	if err != nil {
		fallback := configSettings(r.cfg)
		setting = &fallback
	}
	modelName = setting.AIModel
	if r.provider() == "gemini" && r.cfg.AI.GeminiModel != "" {
		modelName = r.cfg.AI.GeminiModel
	}
	return modelName, setting.Temperature, setting.MaxTokens
}
