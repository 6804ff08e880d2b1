// Package client models registered OAuth2 relying parties (Applications).
package client

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"golang.org/x/crypto/bcrypt"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("CLIENT")

var (
	CodeNotFound     = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Application not found")
	CodeSlugTaken    = ErrRegistry.Register("SLUG_TAKEN", errx.TypeConflict, http.StatusConflict, "Application with this slug already exists")
	CodeInactive     = ErrRegistry.Register("INACTIVE", errx.TypeAuthorization, http.StatusForbidden, "Application is disabled")
	CodeBadRedirect  = ErrRegistry.Register("BAD_REDIRECT_URI", errx.TypeValidation, http.StatusBadRequest, "redirect_uri does not match any registered URI")
	CodeBadSecret    = ErrRegistry.Register("BAD_SECRET", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid client credentials")
)

func ErrNotFound() *errx.Error    { return ErrRegistry.New(CodeNotFound) }
func ErrSlugTaken() *errx.Error   { return ErrRegistry.New(CodeSlugTaken) }
func ErrInactive() *errx.Error    { return ErrRegistry.New(CodeInactive) }
func ErrBadRedirect() *errx.Error { return ErrRegistry.New(CodeBadRedirect) }
func ErrBadSecret() *errx.Error   { return ErrRegistry.New(CodeBadSecret) }

// Application is a registered OAuth2 relying party.
type Application struct {
	ID                kernel.ApplicationID
	Name              string
	Slug              string
	ClientID          string
	ClientSecretHash  string
	RedirectURIs      []string
	IsActive          bool
	IsPublic          bool
	AllowedDepartments []string
	Description       string
	BaseURL           string
	IconURL           string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AcceptsRedirect reports whether uri is registered for this application.
// Matching is exact, per RFC 6749's recommendation against partial matches.
func (a *Application) AcceptsRedirect(uri string) bool {
	for _, r := range a.RedirectURIs {
		if r == uri {
			return true
		}
	}
	return false
}

// DepartmentAllowed reports whether department passes this application's
// departmental gate. An empty allow-list means no restriction.
func (a *Application) DepartmentAllowed(department string) bool {
	if len(a.AllowedDepartments) == 0 {
		return true
	}
	for _, d := range a.AllowedDepartments {
		if strings.EqualFold(d, department) {
			return true
		}
	}
	return false
}

// GenerateClientID returns a new opaque, URL-safe public client identifier.
func GenerateClientID() (string, error) {
	return randomToken(18)
}

// GenerateClientSecret returns a new high-entropy plaintext secret. It is
// shown to the caller exactly once; only its hash is ever persisted.
func GenerateClientSecret() (string, error) {
	return randomToken(32)
}

// HashSecret hashes a plaintext client secret with a memory-hard function.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", errx.Wrap(err, "failed to hash client secret", errx.TypeInternal)
	}
	return string(hash), nil
}

// VerifySecret compares a plaintext secret against its stored hash in
// constant time (bcrypt.CompareHashAndPassword already provides this).
func VerifySecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", errx.Wrap(err, "failed to generate random token", errx.TypeInternal)
	}
	return strings.TrimRight(base64Encoding.EncodeToString(buf), "="), nil
}

var base64Encoding = base64.RawURLEncoding
