// Package oauthsrv orchestrates the authorization code grant, token
// exchange and rotation, userinfo lookup, and revocation.
package oauthsrv

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/identity/client"
	"github.com/Abraxas-365/identity-core/pkg/identity/oauthflow"
	"github.com/Abraxas-365/identity-core/pkg/identity/user"
	"github.com/google/uuid"
)

type Service struct {
	codes    oauthflow.CodeRepository
	tokens   oauthflow.TokenRepository
	apps     client.Repository
	users    user.Repository
	idSigner *oauthflow.IDTokenSigner

	codeTTL    time.Duration
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(
	codes oauthflow.CodeRepository,
	tokens oauthflow.TokenRepository,
	apps client.Repository,
	users user.Repository,
	idSigner *oauthflow.IDTokenSigner,
	codeTTL, accessTTL, refreshTTL time.Duration,
) *Service {
	return &Service{
		codes:      codes,
		tokens:     tokens,
		apps:       apps,
		users:      users,
		idSigner:   idSigner,
		codeTTL:    codeTTL,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AuthorizeRequest carries the authorization endpoint's query parameters
// plus the already-resolved session user (nil if anonymous).
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	User                *user.User
}

// AuthorizeDecision tells the handler what to do next: redirect to Redirect
// (success or error envelope already encoded in the query string), or send
// the caller to login because RequiresLogin is set.
type AuthorizeDecision struct {
	Redirect      string
	RequiresLogin bool
}

// Authorize runs the authorization endpoint's algorithm. Of the request
// failures, only a redirect_uri that matches none of the client's
// registered URIs is returned as an error (client.ErrBadRedirect); every
// other failure, an unknown or inactive client included, is carried back
// as a redirect URL in the decision. Storage failures are returned as
// errors.
func (s *Service) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeDecision, error) {
	if req.ResponseType != "code" {
		return &AuthorizeDecision{Redirect: errorRedirect(req.RedirectURI, "unsupported_response_type", req.State)}, nil
	}

	method := req.CodeChallengeMethod
	if req.CodeChallenge != "" && method == "" {
		method = string(oauthflow.ChallengeMethodPlain)
	}
	if method != "" && method != string(oauthflow.ChallengeMethodS256) && method != string(oauthflow.ChallengeMethodPlain) {
		return &AuthorizeDecision{Redirect: errorRedirect(req.RedirectURI, "invalid_request", req.State)}, nil
	}

	app, err := s.apps.FindByClientID(ctx, req.ClientID)
	if err != nil || !app.IsActive {
		return &AuthorizeDecision{Redirect: errorRedirect(req.RedirectURI, "invalid_client", req.State)}, nil
	}

	if !app.AcceptsRedirect(req.RedirectURI) {
		return nil, client.ErrBadRedirect()
	}

	if req.User == nil {
		return &AuthorizeDecision{RequiresLogin: true}, nil
	}

	scopes := oauthflow.ParseScope(req.Scope)
	if len(scopes) == 0 {
		scopes = []string{"openid"}
	}

	code, err := oauthflow.GenerateOpaqueToken(32)
	if err != nil {
		return nil, errx.Wrap(err, "failed to generate authorization code", errx.TypeInternal)
	}

	now := time.Now()
	ac := oauthflow.AuthorizationCode{
		Code:                code,
		UserID:              req.User.ID,
		ApplicationID:       app.ID,
		RedirectURI:         req.RedirectURI,
		Scope:               scopes,
		State:               req.State,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: oauthflow.ChallengeMethod(method),
		ExpiresAt:           now.Add(s.codeTTL),
		CreatedAt:           now,
	}
	if err := s.codes.Save(ctx, ac); err != nil {
		return nil, err
	}

	return &AuthorizeDecision{Redirect: successRedirect(req.RedirectURI, code, req.State)}, nil
}

// TokenRequest mirrors the form-encoded body of the token endpoint across
// both grant types it supports.
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	ClientID     string
	ClientSecret string
	CodeVerifier string
	RefreshToken string
	Scope        string
}

type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	ExpiresIn    int
}

func (s *Service) Exchange(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	switch req.GrantType {
	case "authorization_code":
		return s.exchangeCode(ctx, req)
	case "refresh_token":
		return s.exchangeRefresh(ctx, req)
	default:
		return nil, oauthflow.ErrUnsupportedGrant()
	}
}

// exchangeCode redeems the code under a row lock and runs every check that
// can invalidate the attempt — client/redirect binding, then PKCE or client
// secret — inside that same lock via RedeemWithCheck's callback, so a
// failing check never marks the code consumed (spec S2: a bad verifier must
// be retriable, not a one-shot burn of the code).
func (s *Service) exchangeCode(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	var app *client.Application

	ac, err := s.codes.RedeemWithCheck(ctx, req.Code, func(ac *oauthflow.AuthorizationCode) error {
		a, err := s.apps.FindByClientID(ctx, req.ClientID)
		if err != nil {
			return oauthflow.ErrInvalidGrant()
		}
		if a.ID != ac.ApplicationID || ac.RedirectURI != req.RedirectURI {
			return oauthflow.ErrInvalidGrant()
		}

		if ac.CodeChallenge != "" {
			if req.CodeVerifier == "" || !oauthflow.VerifyPKCE(req.CodeVerifier, ac.CodeChallenge, ac.CodeChallengeMethod) {
				return oauthflow.ErrInvalidGrant()
			}
		} else {
			if req.ClientSecret == "" || !client.VerifySecret(a.ClientSecretHash, req.ClientSecret) {
				return oauthflow.ErrInvalidClient()
			}
		}

		app = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindByID(ctx, ac.UserID)
	if err != nil {
		return nil, oauthflow.ErrInvalidGrant()
	}

	return s.mintPair(ctx, u, app, ac.Scope, uuid.NewString(), true)
}

func (s *Service) exchangeRefresh(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	rt, err := s.tokens.FindByToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if rt.Kind != oauthflow.TokenKindRefresh {
		return nil, oauthflow.ErrInvalidGrant()
	}
	if rt.IsRevoked() {
		// Reuse of an already-rotated or already-revoked refresh token is
		// treated as token theft: burn the whole family, not just this one.
		_ = s.tokens.RevokeFamily(ctx, rt.FamilyID)
		return nil, oauthflow.ErrInvalidGrant()
	}
	if rt.IsExpired(now) {
		return nil, oauthflow.ErrInvalidGrant()
	}

	app, err := s.apps.FindByID(ctx, rt.ApplicationID)
	if err != nil || app.ClientID != req.ClientID {
		return nil, oauthflow.ErrInvalidGrant()
	}
	if !app.IsPublic {
		if req.ClientSecret == "" || !client.VerifySecret(app.ClientSecretHash, req.ClientSecret) {
			return nil, oauthflow.ErrInvalidClient()
		}
	}

	u, err := s.users.FindByID(ctx, rt.UserID)
	if err != nil {
		return nil, oauthflow.ErrInvalidGrant()
	}

	wantsID := containsScope(rt.Scope, "openid") && containsScope(oauthflow.ParseScope(req.Scope), "openid")

	accessTok, err := oauthflow.GenerateOpaqueToken(32)
	if err != nil {
		return nil, errx.Wrap(err, "failed to generate access token", errx.TypeInternal)
	}
	refreshTok, err := oauthflow.GenerateOpaqueToken(32)
	if err != nil {
		return nil, errx.Wrap(err, "failed to generate refresh token", errx.TypeInternal)
	}

	newAccess := oauthflow.Token{
		Token: accessTok, Kind: oauthflow.TokenKindAccess,
		UserID: rt.UserID, ApplicationID: rt.ApplicationID, Scope: rt.Scope,
		FamilyID: rt.FamilyID, ExpiresAt: now.Add(s.accessTTL), CreatedAt: now,
	}
	newRefresh := oauthflow.Token{
		Token: refreshTok, Kind: oauthflow.TokenKindRefresh,
		UserID: rt.UserID, ApplicationID: rt.ApplicationID, Scope: rt.Scope,
		FamilyID: rt.FamilyID, ExpiresAt: now.Add(s.refreshTTL), CreatedAt: now,
	}

	if err := s.tokens.RevokeAndRotate(ctx, rt.Token, newRefresh); err != nil {
		return nil, err
	}
	if err := s.tokens.Save(ctx, newAccess); err != nil {
		return nil, err
	}

	resp := &TokenResponse{
		AccessToken:  newAccess.Token,
		RefreshToken: newRefresh.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}
	if wantsID {
		idTok, err := s.idSigner.Mint(u.ID, app.ClientID, buildIDClaims(u, rt.Scope))
		if err != nil {
			return nil, errx.Wrap(err, "failed to mint id token", errx.TypeInternal)
		}
		resp.IDToken = idTok
	}
	return resp, nil
}

// mintPair issues a fresh access/refresh token pair plus (when requested)
// an ID token, and persists both opaque tokens.
func (s *Service) mintPair(ctx context.Context, u *user.User, app *client.Application, scope []string, familyID string, withID bool) (*TokenResponse, error) {
	now := time.Now()
	accessTok, err := oauthflow.GenerateOpaqueToken(32)
	if err != nil {
		return nil, errx.Wrap(err, "failed to generate access token", errx.TypeInternal)
	}
	refreshTok, err := oauthflow.GenerateOpaqueToken(32)
	if err != nil {
		return nil, errx.Wrap(err, "failed to generate refresh token", errx.TypeInternal)
	}

	access := oauthflow.Token{
		Token: accessTok, Kind: oauthflow.TokenKindAccess,
		UserID: u.ID, ApplicationID: app.ID, Scope: scope,
		FamilyID: familyID, ExpiresAt: now.Add(s.accessTTL), CreatedAt: now,
	}
	refresh := oauthflow.Token{
		Token: refreshTok, Kind: oauthflow.TokenKindRefresh,
		UserID: u.ID, ApplicationID: app.ID, Scope: scope,
		FamilyID: familyID, ExpiresAt: now.Add(s.refreshTTL), CreatedAt: now,
	}

	if err := s.tokens.Save(ctx, access); err != nil {
		return nil, err
	}
	if err := s.tokens.Save(ctx, refresh); err != nil {
		return nil, err
	}

	resp := &TokenResponse{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}

	if withID && containsScope(scope, "openid") {
		idTok, err := s.idSigner.Mint(u.ID, app.ClientID, buildIDClaims(u, scope))
		if err != nil {
			return nil, errx.Wrap(err, "failed to mint id token", errx.TypeInternal)
		}
		resp.IDToken = idTok
	}
	return resp, nil
}

// UserInfo is the claim set handed back by GET /oauth/userinfo.
type UserInfo struct {
	Sub               string
	Email             string
	Name              string
	PreferredUsername string
	Groups            []string
}

func (s *Service) GetUserInfo(ctx context.Context, bearerToken string) (*UserInfo, error) {
	tok, err := s.tokens.FindByToken(ctx, bearerToken)
	if err != nil {
		return nil, oauthflow.ErrAccessDenied()
	}
	if tok.Kind != oauthflow.TokenKindAccess || !tok.IsValid(time.Now()) {
		return nil, oauthflow.ErrAccessDenied()
	}

	u, err := s.users.FindByID(ctx, tok.UserID)
	if err != nil {
		return nil, oauthflow.ErrAccessDenied()
	}

	return &UserInfo{
		Sub:               u.ID.String(),
		Email:             u.Email,
		Name:              u.DisplayName,
		PreferredUsername: preferredUsername(u.Email),
		Groups:            u.UpstreamGroups,
	}, nil
}

// RevokeRequest mirrors RFC 7009's revocation endpoint inputs.
type RevokeRequest struct {
	Token         string
	TokenTypeHint string
	ClientID      string
	ClientSecret  string
}

// Revoke authenticates the client and, if the token belongs to it, marks it
// revoked. It never returns an error for an unknown or foreign token — the
// caller always gets a bare 200, per RFC 7009 §2.2.
func (s *Service) Revoke(ctx context.Context, req RevokeRequest) error {
	app, err := s.apps.FindByClientID(ctx, req.ClientID)
	if err != nil || !app.IsActive {
		return oauthflow.ErrInvalidClient()
	}
	if !app.IsPublic {
		if req.ClientSecret == "" || !client.VerifySecret(app.ClientSecretHash, req.ClientSecret) {
			return oauthflow.ErrInvalidClient()
		}
	}

	tok, err := s.tokens.FindByToken(ctx, req.Token)
	if err != nil {
		return nil
	}
	if tok.ApplicationID != app.ID {
		return nil
	}
	return s.tokens.Revoke(ctx, req.Token)
}

// Sweep deletes expired authorization codes and tokens. It is run
// periodically by a background housekeeping goroutine, never inline with a
// request.
func (s *Service) Sweep(ctx context.Context) (codesDeleted, tokensDeleted int64, err error) {
	codesDeleted, err = s.codes.DeleteExpired(ctx)
	if err != nil {
		return 0, 0, err
	}
	tokensDeleted, err = s.tokens.DeleteExpired(ctx)
	if err != nil {
		return codesDeleted, 0, err
	}
	return codesDeleted, tokensDeleted, nil
}

func buildIDClaims(u *user.User, scopes []string) oauthflow.IDTokenClaims {
	claims := oauthflow.IDTokenClaims{Email: u.Email, Name: u.DisplayName}
	if containsScope(scopes, "profile") {
		claims.GivenName = u.GivenName
		claims.FamilyName = u.FamilyName
		claims.Department = u.Department
	}
	return claims
}

func containsScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}

func preferredUsername(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

func errorRedirect(redirectURI, errCode, state string) string {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return redirectURI
	}
	q := u.Query()
	q.Set("error", errCode)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func successRedirect(redirectURI, code, state string) string {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return redirectURI
	}
	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
