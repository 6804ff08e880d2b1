package ssoapi

import (
	"context"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/identity/session"
	"github.com/Abraxas-365/identity-core/pkg/identity/session/sessionsrv"
	"github.com/Abraxas-365/identity-core/pkg/identity/user"
	"github.com/Abraxas-365/identity-core/pkg/identity/user/usersrv"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeState_RoundTrips(t *testing.T) {
	state := encodeState("/oauth/authorize?client_id=abc")
	assert.Equal(t, "/oauth/authorize?client_id=abc", decodeState(state, "/fallback"))
}

func TestDecodeState_MalformedFallsBackToDefault(t *testing.T) {
	assert.Equal(t, "/fallback", decodeState("not-our-format", "/fallback"))
	assert.Equal(t, "/fallback", decodeState("", "/fallback"))
}

// ---- minimal fakes for wiring sessionsrv/usersrv into Handlers ----

type fakeUserRepo struct{ byID map[kernel.UserID]user.User }

func newFakeUserRepo() *fakeUserRepo { return &fakeUserRepo{byID: make(map[kernel.UserID]user.User)} }
func (f *fakeUserRepo) Save(ctx context.Context, u user.User) error { f.byID[u.ID] = u; return nil }
func (f *fakeUserRepo) FindByID(ctx context.Context, id kernel.UserID) (*user.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, user.ErrNotFound()
	}
	return &u, nil
}
func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return nil, user.ErrNotFound()
}
func (f *fakeUserRepo) List(ctx context.Context, filter user.ListFilter, page kernel.PaginationOptions) (kernel.Paginated[user.User], error) {
	return kernel.Paginated[user.User]{}, nil
}
func (f *fakeUserRepo) Delete(ctx context.Context, id kernel.UserID) error { return nil }

type fakeSessionRepo struct{ byToken map[string]session.UserSession }

func newFakeSessionRepo() *fakeSessionRepo { return &fakeSessionRepo{byToken: make(map[string]session.UserSession)} }
func (f *fakeSessionRepo) Save(ctx context.Context, s session.UserSession) error {
	f.byToken[s.SessionToken] = s
	return nil
}
func (f *fakeSessionRepo) FindByToken(ctx context.Context, token string) (*session.UserSession, error) {
	s, ok := f.byToken[token]
	if !ok {
		return nil, session.ErrNotFound()
	}
	return &s, nil
}
func (f *fakeSessionRepo) Touch(ctx context.Context, token string) error { return nil }
func (f *fakeSessionRepo) Revoke(ctx context.Context, token string) error {
	delete(f.byToken, token)
	return nil
}
func (f *fakeSessionRepo) RevokeAllForUser(ctx context.Context, userID kernel.UserID) error { return nil }
func (f *fakeSessionRepo) DeleteExpired(ctx context.Context) (int64, error)                 { return 0, nil }

func newTestHandlers() *Handlers {
	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	svc := sessionsrv.NewService(sessions, users, time.Hour)
	usvc := usersrv.NewService(users)
	return NewHandlers(Config{DefaultReturnTo: "/home"}, svc, usvc)
}

func TestLogin_RedirectsToAuthorizationEndpointCarryingState(t *testing.T) {
	h := newTestHandlers()
	app := fiber.New()
	h.RegisterRoutes(app)

	req := httptest.NewRequest("GET", "/auth/sso/login?redirect_to=/oauth/authorize%3Fclient_id%3Dabc", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/oauth/authorize?client_id=abc", decodeState(loc.Query().Get("state"), ""))
}

func TestCallback_UpstreamErrorIsRejected(t *testing.T) {
	h := newTestHandlers()
	app := fiber.New()
	h.RegisterRoutes(app)

	req := httptest.NewRequest("GET", "/auth/sso/callback?error=access_denied", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.NotEqual(t, fiber.StatusFound, resp.StatusCode)
}

func TestCallback_MissingCodeIsRejected(t *testing.T) {
	h := newTestHandlers()
	app := fiber.New()
	h.RegisterRoutes(app)

	req := httptest.NewRequest("GET", "/auth/sso/callback", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.NotEqual(t, fiber.StatusFound, resp.StatusCode)
}
