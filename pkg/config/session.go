package config

import "time"

// SessionConfig configures the browser session authenticator (C2).
type SessionConfig struct {
	CookieName      string
	TTL             time.Duration
	CleanupInterval time.Duration
}

func loadSessionConfig() SessionConfig {
	return SessionConfig{
		CookieName:      getEnv("SESSION_COOKIE_NAME", "identity_session"),
		TTL:             getEnvDuration("SESSION_TTL", 12*time.Hour),
		CleanupInterval: getEnvDuration("SESSION_CLEANUP_INTERVAL", 15*time.Minute),
	}
}
