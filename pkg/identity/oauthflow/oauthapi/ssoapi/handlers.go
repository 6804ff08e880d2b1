// Package ssoapi implements the core's role as an OIDC relying party: it
// redirects the browser to the upstream identity provider, verifies the
// returned ID token, and provisions/signs in the local user.
package ssoapi

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/identity/session/sessionsrv"
	"github.com/Abraxas-365/identity-core/pkg/identity/user/usersrv"
	"github.com/Abraxas-365/identity-core/pkg/logx"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
)

var ErrRegistry = errx.NewRegistry("SSO")

// Config is the static configuration needed to talk to the upstream IdP.
type Config struct {
	DiscoveryURL   string
	ClientID       string
	ClientSecret   string
	RedirectURL    string
	ProbeTimeout   time.Duration
	EmailClaim     string
	GroupsClaim    string
	DisplayClaim   string
	DepartmentAttr string

	SessionCookieName string
	SessionTTL        time.Duration
	DefaultReturnTo   string
}

// Handlers implements the SSO login/callback round trip. provider and
// oauth2Config are populated lazily by Connect, since the upstream
// discovery document may not be reachable at process start.
type Handlers struct {
	cfg      Config
	sessions *sessionsrv.Service
	users    *usersrv.Service

	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauthCfg oauth2.Config
}

func NewHandlers(cfg Config, sessions *sessionsrv.Service, users *usersrv.Service) *Handlers {
	return &Handlers{cfg: cfg, sessions: sessions, users: users}
}

// Connect performs OIDC discovery against the upstream provider. It must
// succeed before RegisterRoutes' handlers can serve traffic; callers run
// it once at startup with a bounded timeout (cfg.ProbeTimeout).
func (h *Handlers) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.ProbeTimeout)
	defer cancel()

	provider, err := oidc.NewProvider(ctx, h.cfg.DiscoveryURL)
	if err != nil {
		return errx.Wrap(err, "failed to discover upstream SSO provider", errx.TypeExternal)
	}

	h.provider = provider
	h.verifier = provider.Verifier(&oidc.Config{ClientID: h.cfg.ClientID})
	h.oauthCfg = oauth2.Config{
		ClientID:     h.cfg.ClientID,
		ClientSecret: h.cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  h.cfg.RedirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email", "groups"},
	}
	return nil
}

// RegisterRoutes mounts the SSO login/callback pair.
func (h *Handlers) RegisterRoutes(app fiber.Router) {
	app.Get("/auth/sso/login", h.Login)
	app.Get("/auth/sso/callback", h.Callback)
}

// Login redirects the browser to the upstream authorization endpoint. The
// redirect_to query parameter (the authorize-endpoint URL the user came
// from) is carried through the state parameter so Callback can replay it.
func (h *Handlers) Login(c *fiber.Ctx) error {
	returnTo := c.Query("redirect_to", h.cfg.DefaultReturnTo)
	state := encodeState(returnTo)
	return c.Redirect(h.oauthCfg.AuthCodeURL(state), fiber.StatusFound)
}

// Callback exchanges the authorization code with the upstream provider,
// verifies the ID token, provisions/refreshes the local user, mints a
// session, and redirects back to the state-carried return_to URL. The
// upstream exchange and the steps after it run under one cfg.ProbeTimeout
// deadline.
func (h *Handlers) Callback(c *fiber.Ctx) error {
	if errCode := c.Query("error"); errCode != "" {
		return errx.New("upstream SSO denied the request: "+errCode, errx.TypeAuthorization)
	}

	code := c.Query("code")
	if code == "" {
		return errx.New("missing authorization code", errx.TypeValidation)
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.cfg.ProbeTimeout)
	defer cancel()
	token, err := h.oauthCfg.Exchange(ctx, code)
	if err != nil {
		return errx.Wrap(err, "failed to exchange code with upstream SSO", errx.TypeExternal)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return errx.New("upstream token response carried no id_token", errx.TypeExternal)
	}

	idToken, err := h.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return errx.Wrap(err, "failed to verify upstream id_token", errx.TypeAuthorization)
	}

	var rawClaims map[string]interface{}
	if err := idToken.Claims(&rawClaims); err != nil {
		return errx.Wrap(err, "failed to decode upstream claims", errx.TypeExternal)
	}

	claims := usersrv.UpstreamClaims{
		Email:       stringClaim(rawClaims, h.cfg.EmailClaim),
		DisplayName: stringClaim(rawClaims, h.cfg.DisplayClaim),
		GivenName:   stringClaim(rawClaims, "given_name"),
		FamilyName:  stringClaim(rawClaims, "family_name"),
		Department:  stringClaim(rawClaims, h.cfg.DepartmentAttr),
		Groups:      stringsClaim(rawClaims, h.cfg.GroupsClaim),
	}

	u, err := h.users.ProvisionFromSSO(ctx, claims)
	if err != nil {
		return err
	}
	if !u.CanSignIn() {
		logx.WithFields(map[string]interface{}{"user_id": u.ID.String()}).Warn("sso login for disabled account")
		return errx.New("account is disabled", errx.TypeAuthorization)
	}

	sess, err := h.sessions.Start(ctx, u.ID, c.IP(), string(c.Context().UserAgent()))
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.SessionCookieName,
		Value:    sess.SessionToken,
		Expires:  sess.ExpiresAt,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})

	return c.Redirect(decodeState(c.Query("state"), h.cfg.DefaultReturnTo), fiber.StatusFound)
}

// encodeState wraps returnTo as the OAuth2 state parameter. A dedicated
// prefix keeps this forward-compatible with an opaque anti-CSRF nonce
// without changing the wire shape of state for existing sessions.
func encodeState(returnTo string) string {
	return "returnTo=" + url.QueryEscape(returnTo)
}

func decodeState(state, fallback string) string {
	if !strings.HasPrefix(state, "returnTo=") {
		return fallback
	}
	v, err := url.QueryUnescape(strings.TrimPrefix(state, "returnTo="))
	if err != nil || v == "" {
		return fallback
	}
	return v
}

func stringClaim(claims map[string]interface{}, key string) string {
	if key == "" {
		return ""
	}
	v, _ := claims[key].(string)
	return v
}

func stringsClaim(claims map[string]interface{}, key string) []string {
	if key == "" {
		return nil
	}
	raw, ok := claims[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
