package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig             `mapstructure:"server"`
	App       AppConfig                `mapstructure:"app"`
	Log       LogConfig                `mapstructure:"log"`
	Database  DatabaseConfig           `mapstructure:"database"`
	Redis     RedisConfig              `mapstructure:"redis"`
	JWT       JWTConfig                `mapstructure:"jwt"`
	OSS       OSSConfig                `mapstructure:"oss"`
	OAuth     OAuthConfig              `mapstructure:"oauth"`
	Email     EmailConfig              `mapstructure:"email"`
	Resend    ResendConfig             `mapstructure:"resend"`
	Stripe    StripeConfig             `mapstructure:"stripe"`
	Packages  map[string]CreditPackage `mapstructure:"packages"`
	AI        AIConfig                 `mapstructure:"ai"`
	Credits   CreditsConfig            `mapstructure:"credits"`
	Queue     QueueConfig              `mapstructure:"queue"`
	RateLimit RateLimitConfig          `mapstructure:"rate_limit"`
	CORS      CORSConfig               `mapstructure:"cors"`
	Seed      SeedConfig               `mapstructure:"seed"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type AppConfig struct {
	BaseURL string `mapstructure:"base_url"` // 前端地址，用于拼接验证链接和支付回跳
}

type LogConfig struct {
	Mode string `mapstructure:"mode"` // debug | release
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql | sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SQLitePath   string `mapstructure:"sqlite_path"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
}

type OAuthConfig struct {
	Github GithubOAuthConfig `mapstructure:"github"`
}

type GithubOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

type EmailConfig struct {
	Provider       string `mapstructure:"provider"` // resend | smtp
	SMTPHost       string `mapstructure:"smtp_host"`
	SMTPPort       int    `mapstructure:"smtp_port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	From           string `mapstructure:"from"`
	ReplyTo        string `mapstructure:"reply_to"`
	SupportAddress string `mapstructure:"support_address"`
}

type ResendConfig struct {
	APIKey        string `mapstructure:"api_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	SuccessURL    string `mapstructure:"success_url"`
	CancelURL     string `mapstructure:"cancel_url"`
}

// CreditPackage 充值套餐
type CreditPackage struct {
	Credits int    `mapstructure:"credits"`
	Price   int    `mapstructure:"price"`
	PriceID string `mapstructure:"price_id"`
}

type AIConfig struct {
	Provider              string  `mapstructure:"provider"` // openai | gemini
	APIKey                string  `mapstructure:"api_key"`
	BaseURL               string  `mapstructure:"base_url"`
	Model                 string  `mapstructure:"model"`
	MaxTokens             int     `mapstructure:"max_tokens"`
	Temperature           float64 `mapstructure:"temperature"`
	MaxRetries            int     `mapstructure:"max_retries"`
	RetryDelayMs          int     `mapstructure:"retry_delay_ms"`
	RequestTimeoutSeconds int     `mapstructure:"request_timeout_seconds"`
	GeminiAPIKey          string  `mapstructure:"gemini_api_key"`
	GeminiModel           string  `mapstructure:"gemini_model"`
}

type CreditsConfig struct {
	Initial               int `mapstructure:"initial"`
	ReservationTTLMinutes int `mapstructure:"reservation_ttl_minutes"`
}

type QueueConfig struct {
	GenerationQueue string `mapstructure:"generation_queue"`
	MaxWorkers      int    `mapstructure:"max_workers"`
}

type RateLimitConfig struct {
	Global  LimitRule `mapstructure:"global"`
	Credits LimitRule `mapstructure:"credits"`
	AI      LimitRule `mapstructure:"ai"`
}

type LimitRule struct {
	Limit         int `mapstructure:"limit"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type SeedConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func Load(configPath string) (*Config, error) {
	// .env 可选，不存在时忽略
	_ = godotenv.Load()

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("jwt.expire_hours", 72)
	v.SetDefault("email.provider", "resend")

	v.SetDefault("packages.basic.credits", 100)
	v.SetDefault("packages.basic.price", 100)
	v.SetDefault("packages.pro.credits", 250)
	v.SetDefault("packages.pro.price", 200)

	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-3.5-turbo")
	v.SetDefault("ai.max_tokens", 2000)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.max_retries", 3)
	v.SetDefault("ai.retry_delay_ms", 1000)
	v.SetDefault("ai.gemini_model", "gemini-1.5-flash")

	v.SetDefault("credits.initial", 13)
	v.SetDefault("credits.reservation_ttl_minutes", 10)

	v.SetDefault("queue.generation_queue", "generation_jobs")
	v.SetDefault("queue.max_workers", 2)

	v.SetDefault("rate_limit.global.limit", 100)
	v.SetDefault("rate_limit.global.window_seconds", 900)
	v.SetDefault("rate_limit.credits.limit", 60)
	v.SetDefault("rate_limit.credits.window_seconds", 60)
	v.SetDefault("rate_limit.ai.limit", 10)
	v.SetDefault("rate_limit.ai.window_seconds", 60)

	v.SetDefault("seed.enabled", true)
}
