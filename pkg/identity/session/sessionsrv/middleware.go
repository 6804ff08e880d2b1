package sessionsrv

import (
	"strings"

	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// Middleware resolves the session authenticator (C2) on every request. It
// never rejects a request outright: an unresolved session simply means no
// *kernel.AuthContext is attached to c.Locals, and downstream handlers that
// require a user (RequireUser/RequireAdmin) are the ones that reject.
type Middleware struct {
	sessions   *Service
	cookieName string
}

func NewMiddleware(sessions *Service, cookieName string) *Middleware {
	return &Middleware{sessions: sessions, cookieName: cookieName}
}

// Resolve reads the session credential from the Authorization header or the
// session cookie (cookie first, matching the order the SSO callback sets
// it), resolves it to a user, and stores the result in c.Locals. Anonymous
// requests proceed with no auth context rather than being rejected here.
func (m *Middleware) Resolve() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(m.cookieName)
		if token == "" {
			if auth := c.Get("Authorization"); auth != "" {
				parts := strings.SplitN(auth, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
					token = parts[1]
				}
			}
		}

		u, err := m.sessions.Resolve(c.Context(), token)
		if err != nil {
			return err
		}
		if u == nil {
			return c.Next()
		}

		c.Locals(string(kernel.AuthContextKey), &kernel.AuthContext{
			UserID:       u.ID,
			Email:        u.Email,
			Name:         u.DisplayName,
			Department:   u.Department,
			Groups:       u.UpstreamGroups,
			IsAdminUser:  u.IsAdmin,
			IsSuperAdmin: u.IsSuperAdmin,
		})
		c.Locals("session_token", token)
		return c.Next()
	}
}

// RequireUser rejects anonymous requests with 401. Mount after Resolve() on
// any route that needs an authenticated, non-admin user.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ac, ok := GetAuthContext(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}
		_ = ac
		return c.Next()
	}
}

// RequireAdmin rejects non-admin requests with 403.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ac, ok := GetAuthContext(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}
		if !ac.IsAdmin() {
			return fiber.NewError(fiber.StatusForbidden, "admin access required")
		}
		return c.Next()
	}
}

// GetAuthContext reads the resolved *kernel.AuthContext off c.Locals.
func GetAuthContext(c *fiber.Ctx) (*kernel.AuthContext, bool) {
	ac, ok := c.Locals(string(kernel.AuthContextKey)).(*kernel.AuthContext)
	if !ok || ac == nil || !ac.IsValid() {
		return nil, false
	}
	return ac, true
}
