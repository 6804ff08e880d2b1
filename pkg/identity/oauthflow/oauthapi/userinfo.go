package oauthapi

import (
	"strings"

	"github.com/Abraxas-365/identity-core/pkg/identity/oauthflow"
	"github.com/gofiber/fiber/v2"
)

type userInfoBody struct {
	Sub               string   `json:"sub"`
	Email             string   `json:"email,omitempty"`
	Name              string   `json:"name,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	Groups            []string `json:"groups,omitempty"`
}

// UserInfo handles GET /oauth/userinfo (C5). The bearer token is pulled
// from the Authorization header only; RFC 6750's query-string and form
// carriers are not supported.
func (h *Handlers) UserInfo(c *fiber.Ctx) error {
	auth := c.Get("Authorization")
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return writeOAuthError(c, oauthflow.ErrAccessDenied())
	}

	info, err := h.svc.GetUserInfo(c.Context(), parts[1])
	if err != nil {
		return writeOAuthError(c, err)
	}

	return c.JSON(userInfoBody{
		Sub:               info.Sub,
		Email:             info.Email,
		Name:              info.Name,
		PreferredUsername: info.PreferredUsername,
		Groups:            info.Groups,
	})
}
