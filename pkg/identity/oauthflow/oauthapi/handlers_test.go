package oauthapi

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/identity/client"
	"github.com/Abraxas-365/identity-core/pkg/identity/oauthflow"
	"github.com/Abraxas-365/identity-core/pkg/identity/oauthflow/oauthsrv"
	"github.com/Abraxas-365/identity-core/pkg/identity/user"
	"github.com/Abraxas-365/identity-core/pkg/identity/user/usersrv"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- minimal in-memory repos satisfying the ports oauthsrv/usersrv need ----

type memCodeRepo struct{ byCode map[string]oauthflow.AuthorizationCode }

func newMemCodeRepo() *memCodeRepo { return &memCodeRepo{byCode: make(map[string]oauthflow.AuthorizationCode)} }
func (r *memCodeRepo) Save(ctx context.Context, c oauthflow.AuthorizationCode) error {
	r.byCode[c.Code] = c
	return nil
}
func (r *memCodeRepo) RedeemWithCheck(ctx context.Context, code string, check func(*oauthflow.AuthorizationCode) error) (*oauthflow.AuthorizationCode, error) {
	ac, ok := r.byCode[code]
	if !ok || !ac.IsRedeemable(time.Now()) {
		return nil, oauthflow.ErrInvalidGrant()
	}
	checked := ac
	if err := check(&checked); err != nil {
		return nil, err
	}
	now := time.Now()
	ac.ConsumedAt = &now
	r.byCode[code] = ac
	returned := checked
	returned.ConsumedAt = nil
	return &returned, nil
}
func (r *memCodeRepo) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

type memTokenRepo struct{ byToken map[string]oauthflow.Token }

func newMemTokenRepo() *memTokenRepo { return &memTokenRepo{byToken: make(map[string]oauthflow.Token)} }
func (r *memTokenRepo) Save(ctx context.Context, t oauthflow.Token) error {
	r.byToken[t.Token] = t
	return nil
}
func (r *memTokenRepo) FindByToken(ctx context.Context, token string) (*oauthflow.Token, error) {
	t, ok := r.byToken[token]
	if !ok {
		return nil, oauthflow.ErrInvalidGrant()
	}
	return &t, nil
}
func (r *memTokenRepo) RevokeAndRotate(ctx context.Context, oldToken string, newToken oauthflow.Token) error {
	old, ok := r.byToken[oldToken]
	if !ok {
		return oauthflow.ErrInvalidGrant()
	}
	now := time.Now()
	old.RevokedAt = &now
	r.byToken[oldToken] = old
	r.byToken[newToken.Token] = newToken
	return nil
}
func (r *memTokenRepo) Revoke(ctx context.Context, token string) error {
	t, ok := r.byToken[token]
	if !ok {
		return nil
	}
	now := time.Now()
	t.RevokedAt = &now
	r.byToken[token] = t
	return nil
}
func (r *memTokenRepo) RevokeFamily(ctx context.Context, familyID string) error { return nil }
func (r *memTokenRepo) DeleteExpired(ctx context.Context) (int64, error)        { return 0, nil }

type memAppRepo struct {
	byClientID map[string]client.Application
	byID       map[kernel.ApplicationID]client.Application
}

func newMemAppRepo() *memAppRepo {
	return &memAppRepo{byClientID: make(map[string]client.Application), byID: make(map[kernel.ApplicationID]client.Application)}
}
func (r *memAppRepo) add(a client.Application) { r.byClientID[a.ClientID] = a; r.byID[a.ID] = a }
func (r *memAppRepo) Save(ctx context.Context, a client.Application) error {
	r.add(a)
	return nil
}
func (r *memAppRepo) FindByID(ctx context.Context, id kernel.ApplicationID) (*client.Application, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, client.ErrNotFound()
	}
	return &a, nil
}
func (r *memAppRepo) FindByClientID(ctx context.Context, clientID string) (*client.Application, error) {
	a, ok := r.byClientID[clientID]
	if !ok {
		return nil, client.ErrNotFound()
	}
	return &a, nil
}
func (r *memAppRepo) FindBySlug(ctx context.Context, slug string) (*client.Application, error) {
	return nil, client.ErrNotFound()
}
func (r *memAppRepo) ListActive(ctx context.Context) ([]*client.Application, error) { return nil, nil }
func (r *memAppRepo) ListAll(ctx context.Context) ([]*client.Application, error)    { return nil, nil }
func (r *memAppRepo) Delete(ctx context.Context, id kernel.ApplicationID) error     { return nil }

type memUserRepo struct{ byID map[kernel.UserID]user.User }

func newMemUserRepo() *memUserRepo { return &memUserRepo{byID: make(map[kernel.UserID]user.User)} }
func (r *memUserRepo) add(u user.User) { r.byID[u.ID] = u }
func (r *memUserRepo) Save(ctx context.Context, u user.User) error { r.add(u); return nil }
func (r *memUserRepo) FindByID(ctx context.Context, id kernel.UserID) (*user.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, user.ErrNotFound()
	}
	return &u, nil
}
func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return nil, user.ErrNotFound()
}
func (r *memUserRepo) List(ctx context.Context, filter user.ListFilter, page kernel.PaginationOptions) (kernel.Paginated[user.User], error) {
	return kernel.Paginated[user.User]{}, nil
}
func (r *memUserRepo) Delete(ctx context.Context, id kernel.UserID) error { return nil }

func newTestHandlers(t *testing.T) (*Handlers, *memAppRepo, *memUserRepo, *memCodeRepo) {
	t.Helper()
	codes := newMemCodeRepo()
	tokens := newMemTokenRepo()
	apps := newMemAppRepo()
	users := newMemUserRepo()
	signer := oauthflow.NewIDTokenSigner("test-secret", "https://idp.example.com", time.Hour)
	svc := oauthsrv.NewService(codes, tokens, apps, users, signer, 10*time.Minute, time.Hour, 30*24*time.Hour)
	usvc := usersrv.NewService(users)
	return NewHandlers(svc, usvc, "https://idp.example.com", "/login"), apps, users, codes
}

func testApp(h *Handlers) *fiber.App {
	app := fiber.New()
	h.RegisterRoutes(app)
	return app
}

func TestDiscovery_ServesWellKnownDocument(t *testing.T) {
	h, _, _, _ := newTestHandlers(t)
	app := testApp(h)

	req := httptest.NewRequest("GET", "/.well-known/openid-configuration", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthorize_AnonymousRedirectsToLogin(t *testing.T) {
	h, apps, _, _ := newTestHandlers(t)
	apps.add(client.Application{
		ID: kernel.NewApplicationID("app-1"), ClientID: "client-abc",
		RedirectURIs: []string{"https://c/cb"}, IsActive: true,
	})
	app := testApp(h)

	req := httptest.NewRequest("GET", "/oauth/authorize?response_type=code&client_id=client-abc&redirect_uri=https://c/cb", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/login?redirect_to="))
}

func TestAuthorize_UnknownClientRedirectsWithError(t *testing.T) {
	h, _, _, _ := newTestHandlers(t)
	app := testApp(h)

	req := httptest.NewRequest("GET", "/oauth/authorize?response_type=code&client_id=ghost&redirect_uri=https://c/cb&state=xyz", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "invalid_client", loc.Query().Get("error"))
}

func TestTokenAndUserInfoAndRevoke_FullRoundTrip(t *testing.T) {
	h, apps, users, codes := newTestHandlers(t)
	hash, err := client.HashSecret("s3cret")
	require.NoError(t, err)
	appFixture := client.Application{
		ID: kernel.NewApplicationID("app-1"), ClientID: "client-abc",
		ClientSecretHash: hash, RedirectURIs: []string{"https://c/cb"}, IsActive: true,
	}
	apps.add(appFixture)
	u := user.User{ID: kernel.NewUserID("u1"), Email: "u1@example.com", DisplayName: "User One", IsActive: true}
	users.add(u)

	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])
	require.NoError(t, codes.Save(context.Background(), oauthflow.AuthorizationCode{
		Code: "fixed-code", UserID: u.ID, ApplicationID: appFixture.ID,
		RedirectURI: "https://c/cb", Scope: []string{"openid", "profile"},
		CodeChallenge: challenge, CodeChallengeMethod: oauthflow.ChallengeMethodS256,
		ExpiresAt: time.Now().Add(time.Minute),
	}))

	app := testApp(h)

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {"fixed-code"},
		"redirect_uri":  {"https://c/cb"},
		"client_id":     {"client-abc"},
		"code_verifier": {verifier},
	}
	req := httptest.NewRequest("POST", "/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"access_token"`)

	var accessToken string
	for _, kv := range strings.Split(strings.Trim(string(body), "{}"), ",") {
		if strings.Contains(kv, `"access_token"`) {
			parts := strings.SplitN(kv, ":", 2)
			accessToken = strings.Trim(strings.TrimSpace(parts[1]), `"`)
		}
	}
	require.NotEmpty(t, accessToken)

	uiReq := httptest.NewRequest("GET", "/oauth/userinfo", nil)
	uiReq.Header.Set("Authorization", "Bearer "+accessToken)
	uiResp, err := app.Test(uiReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, uiResp.StatusCode)

	revokeForm := url.Values{"token": {accessToken}, "client_id": {"client-abc"}, "client_secret": {"s3cret"}}
	revReq := httptest.NewRequest("POST", "/oauth/revoke", strings.NewReader(revokeForm.Encode()))
	revReq.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	revResp, err := app.Test(revReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, revResp.StatusCode)

	uiReq2 := httptest.NewRequest("GET", "/oauth/userinfo", nil)
	uiReq2.Header.Set("Authorization", "Bearer "+accessToken)
	uiResp2, err := app.Test(uiReq2)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, uiResp2.StatusCode)
}

func TestUserInfo_MissingBearerIsForbidden(t *testing.T) {
	h, _, _, _ := newTestHandlers(t)
	app := testApp(h)

	req := httptest.NewRequest("GET", "/oauth/userinfo", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
