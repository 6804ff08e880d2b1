// Package audit models the append-only AuditLog and LoginHistory trails.
package audit

import (
	"time"

	"github.com/Abraxas-365/identity-core/pkg/kernel"
)

// LoginType distinguishes how a session came to exist.
type LoginType string

const (
	LoginTypeSSO            LoginType = "sso"
	LoginTypeDev            LoginType = "dev"
	LoginTypeOAuthAuthorize LoginType = "oauth_authorize"
)

// AuditLog is one privileged admin mutation. Written in the same
// transaction as the mutation it describes.
type AuditLog struct {
	ID         string
	UserID     *kernel.UserID
	Action     string
	EntityType string
	EntityID   string
	OldValues  map[string]interface{}
	NewValues  map[string]interface{}
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
}

// LoginHistory is one append-only record of an authentication decision,
// successful or not.
type LoginHistory struct {
	ID            string
	UserID        *kernel.UserID
	LoginType     LoginType
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	CreatedAt     time.Time
}

// AuditFilter narrows an audit log listing. Zero values are "no filter".
type AuditFilter struct {
	Action     string
	EntityType string
	UserID     *kernel.UserID
}

// LoginFilter narrows a login-history listing.
type LoginFilter struct {
	UserID    *kernel.UserID
	LoginType LoginType
	Success   *bool
}
