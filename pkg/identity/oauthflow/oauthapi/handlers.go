package oauthapi

import (
	"github.com/Abraxas-365/identity-core/pkg/identity/oauthflow/oauthsrv"
	"github.com/Abraxas-365/identity-core/pkg/identity/user/usersrv"
	"github.com/gofiber/fiber/v2"
)

// Handlers wires the OAuth2/OIDC HTTP surface onto oauthsrv.Service.
type Handlers struct {
	svc   *oauthsrv.Service
	users *usersrv.Service

	// Issuer is the fixed issuer to advertise; empty derives it per-request.
	Issuer string

	// LoginURL is where Authorize redirects an anonymous caller, with
	// ?redirect_to=<original authorize URL> appended.
	LoginURL string
}

func NewHandlers(svc *oauthsrv.Service, users *usersrv.Service, issuer, loginURL string) *Handlers {
	return &Handlers{svc: svc, users: users, Issuer: issuer, LoginURL: loginURL}
}

// RegisterRoutes mounts the OAuth2/OIDC surface on app.
func (h *Handlers) RegisterRoutes(app fiber.Router) {
	app.Get("/.well-known/openid-configuration", h.Discovery)
	app.Get("/oauth/authorize", h.Authorize)
	app.Post("/oauth/token", h.Token)
	app.Get("/oauth/userinfo", h.UserInfo)
	app.Post("/oauth/revoke", h.Revoke)
}
