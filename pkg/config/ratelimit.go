package config

// RateLimitConfig configures the per-IP, per-route-class token buckets (C1).
type RateLimitConfig struct {
	AuthBudget    int // requests/60s for /auth/*
	TokenBudget   int // requests/60s for /oauth/token
	AdminBudget   int // requests/60s for /api/admin/*
	DefaultBudget int // requests/60s for everything else
	WindowSeconds int
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		AuthBudget:    getEnvInt("RATE_LIMIT_AUTH", 10),
		TokenBudget:   getEnvInt("RATE_LIMIT_TOKEN", 20),
		AdminBudget:   getEnvInt("RATE_LIMIT_ADMIN", 100),
		DefaultBudget: getEnvInt("RATE_LIMIT_DEFAULT", 200),
		WindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
	}
}
