// Package session models the server-minted, opaque session credential
// used to resolve HTTP requests to an authenticated User.
package session

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
)

var ErrRegistry = errx.NewRegistry("SESSION")

var (
	CodeNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeAuthorization, http.StatusUnauthorized, "Session not found or expired")
)

func ErrNotFound() *errx.Error { return ErrRegistry.New(CodeNotFound) }

// UserSession is a live sign-in, identified by an opaque bearer token.
// Creation is the SSO callback handler's responsibility; this package only
// stores and resolves sessions once minted.
type UserSession struct {
	ID           string
	UserID       kernel.UserID
	SessionToken string
	IPAddress    string
	UserAgent    string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	LastActivity time.Time
}

func (s *UserSession) IsExpired(now time.Time) bool { return now.After(s.ExpiresAt) }

func (s *UserSession) Touch(at time.Time) { s.LastActivity = at }
