package oauthapi

import (
	"github.com/Abraxas-365/identity-core/pkg/identity/oauthflow/oauthsrv"
	"github.com/gofiber/fiber/v2"
)

type tokenResponseBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Token handles POST /oauth/token (C4). Per RFC 6749 §3.2 the request is
// always application/x-www-form-urlencoded, never JSON.
func (h *Handlers) Token(c *fiber.Ctx) error {
	req := oauthsrv.TokenRequest{
		GrantType:    c.FormValue("grant_type"),
		Code:         c.FormValue("code"),
		RedirectURI:  c.FormValue("redirect_uri"),
		ClientID:     c.FormValue("client_id"),
		ClientSecret: c.FormValue("client_secret"),
		CodeVerifier: c.FormValue("code_verifier"),
		RefreshToken: c.FormValue("refresh_token"),
		Scope:        c.FormValue("scope"),
	}

	resp, err := h.svc.Exchange(c.Context(), req)
	if err != nil {
		return writeOAuthError(c, err)
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set("Pragma", "no-cache")
	return c.JSON(tokenResponseBody{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		IDToken:      resp.IDToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
	})
}
