package oauthapi

import (
	"github.com/Abraxas-365/identity-core/pkg/identity/oauthflow/oauthsrv"
	"github.com/gofiber/fiber/v2"
)

// Revoke handles POST /oauth/revoke (C5). Per RFC 7009 §2.2 a client
// authentication failure is the only case reported back as an error; an
// unknown or foreign token is always a bare 200.
func (h *Handlers) Revoke(c *fiber.Ctx) error {
	req := oauthsrv.RevokeRequest{
		Token:         c.FormValue("token"),
		TokenTypeHint: c.FormValue("token_type_hint"),
		ClientID:      c.FormValue("client_id"),
		ClientSecret:  c.FormValue("client_secret"),
	}

	if err := h.svc.Revoke(c.Context(), req); err != nil {
		return writeOAuthError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
