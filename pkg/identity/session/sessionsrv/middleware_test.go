package sessionsrv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abraxas-365/identity-core/pkg/identity/user"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, *Service, *fakeUserRepo) {
	t.Helper()
	svc, _, users := newService()
	app := fiber.New()
	mw := NewMiddleware(svc, "session")
	app.Use(mw.Resolve())
	return app, svc, users
}

func TestMiddleware_ResolveAttachesAuthContext(t *testing.T) {
	app, svc, users := newTestApp(t)
	u := user.User{ID: kernel.NewUserID("u1"), Email: "u1@example.com", DisplayName: "User One", IsActive: true}
	users.add(u)
	sess, err := svc.Start(context.Background(), u.ID, "127.0.0.1", "test-agent")
	require.NoError(t, err)

	var observedEmail string
	app.Get("/whoami", func(c *fiber.Ctx) error {
		ac, ok := GetAuthContext(c)
		if ok {
			observedEmail = ac.Email
		}
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: sess.SessionToken})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "u1@example.com", observedEmail)
}

func TestMiddleware_AnonymousRequestProceeds(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.Get("/whoami", func(c *fiber.Ctx) error {
		_, ok := GetAuthContext(c)
		assert.False(t, ok)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/whoami", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAdmin_RejectsNonAdmin(t *testing.T) {
	app, svc, users := newTestApp(t)
	u := user.User{ID: kernel.NewUserID("u1"), Email: "u1@example.com", IsActive: true, IsAdmin: false}
	users.add(u)
	sess, err := svc.Start(context.Background(), u.ID, "127.0.0.1", "test-agent")
	require.NoError(t, err)

	app.Get("/admin", RequireAdmin(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: sess.SessionToken})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireAdmin_AllowsAdmin(t *testing.T) {
	app, svc, users := newTestApp(t)
	u := user.User{ID: kernel.NewUserID("u1"), Email: "u1@example.com", IsActive: true, IsAdmin: true}
	users.add(u)
	sess, err := svc.Start(context.Background(), u.ID, "127.0.0.1", "test-agent")
	require.NoError(t, err)

	app.Get("/admin", RequireAdmin(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: sess.SessionToken})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireUser_RejectsAnonymous(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.Get("/mine", RequireUser(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/mine", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
