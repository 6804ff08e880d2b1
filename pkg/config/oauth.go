package config

import "time"

// OAuthConfig configures the authorization/token endpoints (C3, C4).
type OAuthConfig struct {
	// Issuer is the value placed in the `iss` claim of ID tokens and the
	// discovery document's `issuer` field. When empty, the discovery
	// document derives its issuer from the incoming request's scheme+host;
	// ID tokens are then signed with an empty `iss`.
	Issuer string

	CodeTTL         time.Duration
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// SigningSecret is the shared HS256 secret used to MAC the ID token.
	SigningSecret string

	// RotateRefreshTokens is loaded from OAUTH_ROTATE_REFRESH_TOKENS but is
	// not read by the token service: oauthsrv rotates the refresh token on
	// every refresh (old token revoked, new one issued in the same
	// transaction) whatever this value is.
	RotateRefreshTokens bool

	// SweepInterval is how often the expired-code/token sweeper runs.
	SweepInterval time.Duration
}

func loadOAuthConfig() OAuthConfig {
	return OAuthConfig{
		Issuer:              getEnv("OAUTH_ISSUER", ""),
		CodeTTL:             getEnvDuration("OAUTH_CODE_TTL", 10*time.Minute),
		AccessTokenTTL:      getEnvDuration("OAUTH_ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL:     getEnvDuration("OAUTH_REFRESH_TOKEN_TTL", 30*24*time.Hour),
		SigningSecret:       getEnv("OAUTH_SIGNING_SECRET", "dev-insecure-secret-change-me"),
		RotateRefreshTokens: getEnvBool("OAUTH_ROTATE_REFRESH_TOKENS", true),
		SweepInterval:       getEnvDuration("OAUTH_SWEEP_INTERVAL", 5*time.Minute),
	}
}
