package config

import (
	"testing"
	"time"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test-key")
	t.Setenv("KV_REST_API_URL", "https://kv.example.com")
	t.Setenv("KV_REST_API_TOKEN", "kv-token")
	t.Setenv("RATE_LIMIT_SALT", "test-salt-32bytes-long-enough!!!")
	t.Setenv("PUBLIC_APP_URL", "https://baya.example.com")
}

func TestLoad_AllRequiredVarsSet_ReturnsConfig(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.OpenAIAPIKey != "sk-test-key" {
		t.Errorf("OpenAIAPIKey = %q, want %q", cfg.OpenAIAPIKey, "sk-test-key")
	}
	if cfg.KVRestURL != "https://kv.example.com" {
		t.Errorf("KVRestURL = %q, want %q", cfg.KVRestURL, "https://kv.example.com")
	}
	if cfg.KVRestToken != "kv-token" {
		t.Errorf("KVRestToken = %q, want %q", cfg.KVRestToken, "kv-token")
	}
	if cfg.RateLimitSalt != "test-salt-32bytes-long-enough!!!" {
		t.Errorf("RateLimitSalt = %q", cfg.RateLimitSalt)
	}
	if cfg.PublicAppURL != "https://baya.example.com" {
		t.Errorf("PublicAppURL = %q, want %q", cfg.PublicAppURL, "https://baya.example.com")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Generation defaults
	if cfg.OpenAIModel != "gpt-4.1-mini" {
		t.Errorf("OpenAIModel = %q, want %q", cfg.OpenAIModel, "gpt-4.1-mini")
	}
	if cfg.GenerationTimeout != 120*time.Second {
		t.Errorf("GenerationTimeout = %v, want %v", cfg.GenerationTimeout, 120*time.Second)
	}
	if cfg.GenerationTemp != 0.7 {
		t.Errorf("GenerationTemp = %v, want 0.7", cfg.GenerationTemp)
	}

	// KV defaults
	if cfg.KVTimeout != 5*time.Second {
		t.Errorf("KVTimeout = %v, want %v", cfg.KVTimeout, 5*time.Second)
	}

	// Free tier defaults
	if cfg.FreeDailyLimit != 2 {
		t.Errorf("FreeDailyLimit = %d, want 2", cfg.FreeDailyLimit)
	}
	if cfg.FreeCacheTTL != 24*time.Hour {
		t.Errorf("FreeCacheTTL = %v, want %v", cfg.FreeCacheTTL, 24*time.Hour)
	}
	if cfg.FreeCounterTTL != 26*time.Hour {
		t.Errorf("FreeCounterTTL = %v, want %v", cfg.FreeCounterTTL, 26*time.Hour)
	}

	// Paid tier defaults
	if cfg.EntitlementTTL != 24*time.Hour {
		t.Errorf("EntitlementTTL = %v, want %v", cfg.EntitlementTTL, 24*time.Hour)
	}
	if cfg.PaidSessionTTL != 26*time.Hour {
		t.Errorf("PaidSessionTTL = %v, want %v", cfg.PaidSessionTTL, 26*time.Hour)
	}

	// Share defaults
	if cfg.ShareTTL != 7*24*time.Hour {
		t.Errorf("ShareTTL = %v, want %v", cfg.ShareTTL, 7*24*time.Hour)
	}
	if cfg.ShareMaxContent != 80000 {
		t.Errorf("ShareMaxContent = %d, want 80000", cfg.ShareMaxContent)
	}

	// Rate limit defaults
	if cfg.RateLimitIPWindow != time.Minute || cfg.RateLimitIPLimit != 10 {
		t.Errorf("IP window = (%v, %d), want (1m, 10)", cfg.RateLimitIPWindow, cfg.RateLimitIPLimit)
	}
	if cfg.RateLimitSessWindow != time.Minute || cfg.RateLimitSessLimit != 5 {
		t.Errorf("sess window = (%v, %d), want (1m, 5)", cfg.RateLimitSessWindow, cfg.RateLimitSessLimit)
	}

	// Server defaults
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
	if cfg.MetricsPort != "9090" {
		t.Errorf("MetricsPort = %q, want %q", cfg.MetricsPort, "9090")
	}

	// Stripeは未設定なら空のまま（エラーにはならない）
	if cfg.StripeSecretKey != "" || cfg.StripeWebhookSecret != "" {
		t.Error("stripe config should default to empty")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnvVars(t)

	t.Setenv("OPENAI_MODEL", "gpt-4.1")
	t.Setenv("GENERATION_TIMEOUT", "90s")
	t.Setenv("GENERATION_TEMPERATURE", "0.5")
	t.Setenv("FREE_DAILY_LIMIT", "3")
	t.Setenv("FREE_CACHE_TTL", "12h")
	t.Setenv("SHARE_TTL", "48h")
	t.Setenv("SHARE_MAX_CONTENT", "40000")
	t.Setenv("RATE_LIMIT_IP_LIMIT", "20")
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("STRIPE_SECRET_KEY", "sk_live_x")
	t.Setenv("STRIPE_PRICE_980", "price_abc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.OpenAIModel != "gpt-4.1" {
		t.Errorf("OpenAIModel = %q, want %q", cfg.OpenAIModel, "gpt-4.1")
	}
	if cfg.GenerationTimeout != 90*time.Second {
		t.Errorf("GenerationTimeout = %v, want %v", cfg.GenerationTimeout, 90*time.Second)
	}
	if cfg.GenerationTemp != 0.5 {
		t.Errorf("GenerationTemp = %v, want 0.5", cfg.GenerationTemp)
	}
	if cfg.FreeDailyLimit != 3 {
		t.Errorf("FreeDailyLimit = %d, want 3", cfg.FreeDailyLimit)
	}
	if cfg.FreeCacheTTL != 12*time.Hour {
		t.Errorf("FreeCacheTTL = %v, want %v", cfg.FreeCacheTTL, 12*time.Hour)
	}
	if cfg.ShareTTL != 48*time.Hour {
		t.Errorf("ShareTTL = %v, want %v", cfg.ShareTTL, 48*time.Hour)
	}
	if cfg.ShareMaxContent != 40000 {
		t.Errorf("ShareMaxContent = %d, want 40000", cfg.ShareMaxContent)
	}
	if cfg.RateLimitIPLimit != 20 {
		t.Errorf("RateLimitIPLimit = %d, want 20", cfg.RateLimitIPLimit)
	}
	if cfg.ServerPort != "3000" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "3000")
	}
	if cfg.StripeSecretKey != "sk_live_x" {
		t.Errorf("StripeSecretKey = %q", cfg.StripeSecretKey)
	}
	if got := cfg.StripePriceIDs()["980"]; got != "price_abc" {
		t.Errorf("StripePriceIDs()[980] = %q, want price_abc", got)
	}
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	setRequiredEnvVars(t)

	t.Setenv("GENERATION_TIMEOUT", "not-a-duration")
	t.Setenv("GENERATION_TEMPERATURE", "hot")
	t.Setenv("FREE_DAILY_LIMIT", "two")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.GenerationTimeout != 120*time.Second {
		t.Errorf("GenerationTimeout = %v, want default", cfg.GenerationTimeout)
	}
	if cfg.GenerationTemp != 0.7 {
		t.Errorf("GenerationTemp = %v, want default", cfg.GenerationTemp)
	}
	if cfg.FreeDailyLimit != 2 {
		t.Errorf("FreeDailyLimit = %d, want default", cfg.FreeDailyLimit)
	}
}

func TestLoad_MissingOpenAIAPIKey_ReturnsError(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing OPENAI_API_KEY, got nil")
	}
}

func TestLoad_MissingKVRestURL_ReturnsError(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("KV_REST_API_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing KV_REST_API_URL, got nil")
	}
}

func TestLoad_MissingKVRestToken_ReturnsError(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("KV_REST_API_TOKEN", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing KV_REST_API_TOKEN, got nil")
	}
}

func TestLoad_MissingRateLimitSalt_ReturnsError(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("RATE_LIMIT_SALT", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing RATE_LIMIT_SALT, got nil")
	}
}

func TestLoad_MissingPublicAppURL_ReturnsError(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("PUBLIC_APP_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing PUBLIC_APP_URL, got nil")
	}
}
