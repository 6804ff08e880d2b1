// Package user models the people who sign in through the upstream SSO.
package user

import (
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("USER")

var (
	CodeNotFound      = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "User not found")
	CodeEmailTaken    = ErrRegistry.Register("EMAIL_TAKEN", errx.TypeConflict, http.StatusConflict, "Email already registered")
	CodeInactive      = ErrRegistry.Register("INACTIVE", errx.TypeAuthorization, http.StatusForbidden, "User account is disabled")
	CodeInvalidUpdate = ErrRegistry.Register("INVALID_UPDATE", errx.TypeValidation, http.StatusBadRequest, "Invalid user update")
)

func ErrNotFound() *errx.Error      { return ErrRegistry.New(CodeNotFound) }
func ErrEmailTaken() *errx.Error    { return ErrRegistry.New(CodeEmailTaken) }
func ErrInactive() *errx.Error      { return ErrRegistry.New(CodeInactive) }
func ErrInvalidUpdate() *errx.Error { return ErrRegistry.New(CodeInvalidUpdate) }

// User is a person provisioned from the upstream identity provider on first
// successful SSO login. The core never collects a password for it.
type User struct {
	ID             kernel.UserID
	Email          string
	DisplayName    string
	GivenName      string
	FamilyName     string
	MiddleName     string
	Department     string
	JobTitle       string
	UpstreamGroups []string
	IsActive       bool
	IsAdmin        bool
	IsSuperAdmin   bool
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NormalizeEmail lowercases and trims an email for uniqueness comparisons.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CanSignIn reports whether this account may be used to authenticate.
func (u *User) CanSignIn() bool {
	return u != nil && u.IsActive
}

// HasAdminAccess reports whether the user may use the admin surface.
func (u *User) HasAdminAccess() bool {
	return u != nil && (u.IsAdmin || u.IsSuperAdmin)
}

// InGroup reports whether name appears in the upstream group claim.
func (u *User) InGroup(name string) bool {
	for _, g := range u.UpstreamGroups {
		if g == name {
			return true
		}
	}
	return false
}

// TouchLogin stamps the last-login timestamp.
func (u *User) TouchLogin(at time.Time) {
	u.LastLoginAt = &at
}
