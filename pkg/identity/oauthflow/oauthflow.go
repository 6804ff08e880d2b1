// Package oauthflow implements the authorization code grant, PKCE, token
// issuance/rotation, and ID token minting for the OAuth2/OIDC surface.
package oauthflow

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

var ErrRegistry = errx.NewRegistry("OAUTH")

var (
	CodeInvalidClient    = ErrRegistry.Register("INVALID_CLIENT", errx.TypeAuthorization, http.StatusUnauthorized, "invalid_client")
	CodeInvalidRedirect  = ErrRegistry.Register("INVALID_REDIRECT", errx.TypeValidation, http.StatusBadRequest, "invalid redirect_uri")
	CodeInvalidGrant     = ErrRegistry.Register("INVALID_GRANT", errx.TypeValidation, http.StatusBadRequest, "invalid_grant")
	CodeInvalidRequest   = ErrRegistry.Register("INVALID_REQUEST", errx.TypeValidation, http.StatusBadRequest, "invalid_request")
	CodeUnsupportedGrant = ErrRegistry.Register("UNSUPPORTED_GRANT_TYPE", errx.TypeValidation, http.StatusBadRequest, "unsupported_grant_type")
	CodeAccessDenied     = ErrRegistry.Register("ACCESS_DENIED", errx.TypeAuthorization, http.StatusForbidden, "access_denied")
	CodeServerError      = ErrRegistry.Register("SERVER_ERROR", errx.TypeInternal, http.StatusInternalServerError, "server_error")
)

func ErrInvalidClient() *errx.Error    { return ErrRegistry.New(CodeInvalidClient) }
func ErrInvalidRedirect() *errx.Error  { return ErrRegistry.New(CodeInvalidRedirect) }
func ErrInvalidGrant() *errx.Error     { return ErrRegistry.New(CodeInvalidGrant) }
func ErrInvalidRequest() *errx.Error   { return ErrRegistry.New(CodeInvalidRequest) }
func ErrUnsupportedGrant() *errx.Error { return ErrRegistry.New(CodeUnsupportedGrant) }
func ErrAccessDenied() *errx.Error     { return ErrRegistry.New(CodeAccessDenied) }
func ErrServerError() *errx.Error      { return ErrRegistry.New(CodeServerError) }

// AuthorizationCode is a short-lived, single-use artifact minted by the
// authorize endpoint and redeemed exactly once by the token endpoint.
type AuthorizationCode struct {
	Code                string
	UserID              kernel.UserID
	ApplicationID       kernel.ApplicationID
	RedirectURI         string
	Scope               []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod ChallengeMethod
	ExpiresAt           time.Time
	ConsumedAt          *time.Time
	CreatedAt           time.Time
}

func (c *AuthorizationCode) IsExpired(now time.Time) bool { return now.After(c.ExpiresAt) }
func (c *AuthorizationCode) IsConsumed() bool             { return c.ConsumedAt != nil }
func (c *AuthorizationCode) IsRedeemable(now time.Time) bool {
	return !c.IsExpired(now) && !c.IsConsumed()
}

// TokenKind distinguishes access from refresh tokens; both share a table
// and a struct because they share every invariant except lifetime.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Token is an opaque, high-entropy, DB-resident bearer credential. ID
// tokens are not stored here — they are minted fresh on each exchange as
// signed JWTs (see idtoken.go).
type Token struct {
	Token         string
	Kind          TokenKind
	UserID        kernel.UserID
	ApplicationID kernel.ApplicationID
	Scope         []string
	FamilyID      string
	ExpiresAt     time.Time
	RevokedAt     *time.Time
	CreatedAt     time.Time
}

func (t *Token) IsExpired(now time.Time) bool { return now.After(t.ExpiresAt) }
func (t *Token) IsRevoked() bool              { return t.RevokedAt != nil }
func (t *Token) IsValid(now time.Time) bool   { return !t.IsExpired(now) && !t.IsRevoked() }

// ParseScope splits a space-delimited scope string per RFC 6749 §3.3.
func ParseScope(scope string) []string {
	if strings.TrimSpace(scope) == "" {
		return nil
	}
	return strings.Fields(scope)
}

// JoinScope renders a scope set back to its space-delimited wire form.
func JoinScope(scopes []string) string {
	return strings.Join(scopes, " ")
}
