package oauthapi

import (
	"net/url"

	"github.com/Abraxas-365/identity-core/pkg/identity/oauthflow/oauthsrv"
	"github.com/Abraxas-365/identity-core/pkg/identity/session/sessionsrv"
	"github.com/gofiber/fiber/v2"
)

// Authorize handles GET /oauth/authorize (C3). An anonymous caller is
// bounced to LoginURL with redirect_to set to the original request so the
// SSO callback can replay it once a session exists.
func (h *Handlers) Authorize(c *fiber.Ctx) error {
	req := oauthsrv.AuthorizeRequest{
		ResponseType:        c.Query("response_type"),
		ClientID:            c.Query("client_id"),
		RedirectURI:         c.Query("redirect_uri"),
		Scope:               c.Query("scope"),
		State:               c.Query("state"),
		CodeChallenge:       c.Query("code_challenge"),
		CodeChallengeMethod: c.Query("code_challenge_method"),
	}

	if ac, ok := sessionsrv.GetAuthContext(c); ok {
		u, err := h.users.GetByID(c.Context(), ac.UserID)
		if err == nil {
			req.User = u
		}
	}

	decision, err := h.svc.Authorize(c.Context(), req)
	if err != nil {
		return writeOAuthError(c, err)
	}

	if decision.RequiresLogin {
		returnTo := url.URL{Path: "/oauth/authorize", RawQuery: c.Context().QueryArgs().String()}
		return c.Redirect(h.LoginURL+"?redirect_to="+url.QueryEscape(returnTo.String()), fiber.StatusFound)
	}

	return c.Redirect(decision.Redirect, fiber.StatusFound)
}
