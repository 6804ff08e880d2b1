// Package config loads process configuration from the environment. Each
// concern (database, oauth, session, rate limiting, sso) lives in its own
// file with a loadXConfig function, mirroring the teacher repo's
// per-concern config files (config/notifx.go, config/jobx.go).
package config

// Config is the root configuration object, assembled once at startup and
// passed down explicitly — no package-level globals, no ambient state.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	Database  DatabaseConfig
	OAuth     OAuthConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	SSO       SSOConfig
}

// Load reads configuration from the environment, applying defaults for
// anything unset. Minimum viable configuration (per spec §6) is the HS256
// signing secret, the upstream OIDC discovery URL, and the database DSN
// pieces — everything else has a usable default for local development.
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		Database:  loadDatabaseConfig(),
		OAuth:     loadOAuthConfig(),
		Session:   loadSessionConfig(),
		RateLimit: loadRateLimitConfig(),
		SSO:       loadSSOConfig(),
	}
}
