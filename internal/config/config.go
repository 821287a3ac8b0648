package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Generation
	OpenAIAPIKey      string
	OpenAIModel       string
	GenerationTimeout time.Duration
	GenerationTemp    float64

	// KV (Upstash互換REST)
	KVRestURL   string
	KVRestToken string
	KVTimeout   time.Duration

	// Identity
	RateLimitSalt string

	// Free tier
	FreeDailyLimit int64
	FreeCacheTTL   time.Duration
	FreeCounterTTL time.Duration

	// Paid tier
	EntitlementTTL time.Duration
	PaidSessionTTL time.Duration

	// Stripe（未設定なら決済エンドポイントのみ無効になる）
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePrice480      string
	StripePrice980      string
	StripePrice1980     string

	// Share
	ShareTTL        time.Duration
	ShareMaxContent int

	// Rate Limit（KV固定窓）
	RateLimitIPWindow   time.Duration
	RateLimitIPLimit    int64
	RateLimitSessWindow time.Duration
	RateLimitSessLimit  int64

	// Server
	ServerPort   string
	MetricsPort  string
	PublicAppURL string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}

	cfg.KVRestURL = os.Getenv("KV_REST_API_URL")
	if cfg.KVRestURL == "" {
		missing = append(missing, "KV_REST_API_URL")
	}

	cfg.KVRestToken = os.Getenv("KV_REST_API_TOKEN")
	if cfg.KVRestToken == "" {
		missing = append(missing, "KV_REST_API_TOKEN")
	}

	cfg.RateLimitSalt = os.Getenv("RATE_LIMIT_SALT")
	if cfg.RateLimitSalt == "" {
		missing = append(missing, "RATE_LIMIT_SALT")
	}

	cfg.PublicAppURL = os.Getenv("PUBLIC_APP_URL")
	if cfg.PublicAppURL == "" {
		missing = append(missing, "PUBLIC_APP_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.OpenAIModel = getEnvString("OPENAI_MODEL", "gpt-4.1-mini")
	cfg.GenerationTimeout = getEnvDuration("GENERATION_TIMEOUT", 120*time.Second)
	cfg.GenerationTemp = getEnvFloat("GENERATION_TEMPERATURE", 0.7)
	cfg.KVTimeout = getEnvDuration("KV_TIMEOUT", 5*time.Second)
	cfg.FreeDailyLimit = getEnvInt64("FREE_DAILY_LIMIT", 2)
	cfg.FreeCacheTTL = getEnvDuration("FREE_CACHE_TTL", 24*time.Hour)
	cfg.FreeCounterTTL = getEnvDuration("FREE_COUNTER_TTL", 26*time.Hour)
	cfg.EntitlementTTL = getEnvDuration("ENTITLEMENT_TTL", 24*time.Hour)
	cfg.PaidSessionTTL = getEnvDuration("PAID_SESSION_TTL", 26*time.Hour)
	cfg.ShareTTL = getEnvDuration("SHARE_TTL", 7*24*time.Hour)
	cfg.ShareMaxContent = getEnvInt("SHARE_MAX_CONTENT", 80000)
	cfg.RateLimitIPWindow = getEnvDuration("RATE_LIMIT_IP_WINDOW", time.Minute)
	cfg.RateLimitIPLimit = getEnvInt64("RATE_LIMIT_IP_LIMIT", 10)
	cfg.RateLimitSessWindow = getEnvDuration("RATE_LIMIT_SESS_WINDOW", time.Minute)
	cfg.RateLimitSessLimit = getEnvInt64("RATE_LIMIT_SESS_LIMIT", 5)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9090")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	// Stripeは任意。未設定のままなら決済エンドポイントが構成エラーを返すだけで、
	// 鑑定本体は動作する
	cfg.StripeSecretKey = os.Getenv("STRIPE_SECRET_KEY")
	cfg.StripeWebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
	cfg.StripePrice480 = os.Getenv("STRIPE_PRICE_480")
	cfg.StripePrice980 = os.Getenv("STRIPE_PRICE_980")
	cfg.StripePrice1980 = os.Getenv("STRIPE_PRICE_1980")

	return cfg, nil
}

// StripePriceIDs はプラン→Price IDの対応表を返す。
func (c *Config) StripePriceIDs() map[string]string {
	return map[string]string{
		"480":  c.StripePrice480,
		"980":  c.StripePrice980,
		"1980": c.StripePrice1980,
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
