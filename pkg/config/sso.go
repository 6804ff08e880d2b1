package config

import "time"

// SSOConfig points at the upstream SSO identity provider (§6 collaborator).
// The core never performs first-factor authentication itself; it discovers
// the upstream's OIDC metadata and redirects the browser there.
type SSOConfig struct {
	DiscoveryURL   string
	ClientID       string
	ClientSecret   string
	RedirectURL    string
	ProbeTimeout   time.Duration
	EmailClaim     string
	GroupsClaim    string
	DisplayClaim   string
	DepartmentAttr string
}

func loadSSOConfig() SSOConfig {
	return SSOConfig{
		DiscoveryURL:   getEnv("SSO_DISCOVERY_URL", ""),
		ClientID:       getEnv("SSO_CLIENT_ID", ""),
		ClientSecret:   getEnv("SSO_CLIENT_SECRET", ""),
		RedirectURL:    getEnv("SSO_REDIRECT_URL", ""),
		ProbeTimeout:   getEnvDuration("SSO_PROBE_TIMEOUT", 5*time.Second),
		EmailClaim:     getEnv("SSO_EMAIL_CLAIM", "email"),
		GroupsClaim:    getEnv("SSO_GROUPS_CLAIM", "groups"),
		DisplayClaim:   getEnv("SSO_DISPLAY_CLAIM", "name"),
		DepartmentAttr: getEnv("SSO_DEPARTMENT_CLAIM", "department"),
	}
}
