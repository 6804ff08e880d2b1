// Package oauthapi exposes the OAuth2/OIDC surface (discovery, authorize,
// token, userinfo, revoke) as Fiber handlers over oauthsrv.Service.
package oauthapi

import (
	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/gofiber/fiber/v2"
)

// oauthErrorBody is RFC 6749's error envelope, used by every OAuth endpoint
// instead of the generic errx JSON shape the admin surface uses.
type oauthErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	State            string `json:"state,omitempty"`
}

// writeOAuthError renders err as a direct JSON response in RFC 6749 shape,
// for failures that occur before the client/redirect pair is trusted enough
// to redirect to (§4.3 step 1's "before trust" branch).
func writeOAuthError(c *fiber.Ctx, err error) error {
	code, status, desc := classify(err)
	return c.Status(status).JSON(oauthErrorBody{Error: code, ErrorDescription: desc})
}

func classify(err error) (code string, status int, desc string) {
	var e *errx.Error
	if errx.As(err, &e) {
		return e.Message, e.HTTPStatus, ""
	}
	return "server_error", fiber.StatusInternalServerError, err.Error()
}
