package sessionsrv

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/identity/session"
	"github.com/Abraxas-365/identity-core/pkg/identity/user"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessionRepo struct {
	byToken map[string]session.UserSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{byToken: make(map[string]session.UserSession)}
}

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

func (f *fakeSessionRepo) Touch(ctx context.Context, token string) error {
	s, ok := f.byToken[token]
	if !ok {
		return nil
	}
	s.LastActivity = time.Now()
	f.byToken[token] = s
	return nil
}

func (f *fakeSessionRepo) Revoke(ctx context.Context, token string) error {
	delete(f.byToken, token)
	return nil
}

func (f *fakeSessionRepo) RevokeAllForUser(ctx context.Context, userID kernel.UserID) error {
	for k, s := range f.byToken {
		if s.UserID == userID {
			delete(f.byToken, k)
		}
	}
	return nil
}

func (f *fakeSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	var n int64
	now := time.Now()
	for k, s := range f.byToken {
		if s.IsExpired(now) {
			delete(f.byToken, k)
			n++
		}
	}
	return n, nil
}

type fakeUserRepo struct {
	byID map[kernel.UserID]user.User
}

func newFakeUserRepo() *fakeUserRepo { return &fakeUserRepo{byID: make(map[kernel.UserID]user.User)} }

func (f *fakeUserRepo) add(u user.User) { f.byID[u.ID] = u }

func (f *fakeUserRepo) Save(ctx context.Context, u user.User) error { f.add(u); return nil }
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

func newService() (*Service, *fakeSessionRepo, *fakeUserRepo) {
	sessions := newFakeSessionRepo()
	users := newFakeUserRepo()
	return NewService(sessions, users, time.Hour), sessions, users
}

func TestStartThenResolve(t *testing.T) {
	svc, _, users := newService()
	u := user.User{ID: kernel.NewUserID("u1"), Email: "u1@example.com", IsActive: true}
	users.add(u)

	sess, err := svc.Start(context.Background(), u.ID, "127.0.0.1", "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, sess.SessionToken)

	resolved, err := svc.Resolve(context.Background(), sess.SessionToken)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, u.Email, resolved.Email)
}

func TestResolve_EmptyTokenIsAnonymous(t *testing.T) {
	svc, _, _ := newService()
	resolved, err := svc.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestResolve_UnknownTokenIsAnonymous(t *testing.T) {
	svc, _, _ := newService()
	resolved, err := svc.Resolve(context.Background(), "never-issued")
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestResolve_ExpiredSessionIsAnonymous(t *testing.T) {
	svc, sessions, users := newService()
	u := user.User{ID: kernel.NewUserID("u1"), Email: "u1@example.com", IsActive: true}
	users.add(u)

	require.NoError(t, sessions.Save(context.Background(), session.UserSession{
		ID: "s1", UserID: u.ID, SessionToken: "expired-token",
		ExpiresAt: time.Now().Add(-time.Minute), CreatedAt: time.Now().Add(-time.Hour),
	}))

	resolved, err := svc.Resolve(context.Background(), "expired-token")
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestResolve_DeactivatedUserIsAnonymous(t *testing.T) {
	svc, sessions, users := newService()
	u := user.User{ID: kernel.NewUserID("u1"), Email: "u1@example.com", IsActive: false}
	users.add(u)

	require.NoError(t, sessions.Save(context.Background(), session.UserSession{
		ID: "s1", UserID: u.ID, SessionToken: "tok",
		ExpiresAt: time.Now().Add(time.Hour), CreatedAt: time.Now(),
	}))

	resolved, err := svc.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestRevoke_RemovesSession(t *testing.T) {
	svc, _, users := newService()
	u := user.User{ID: kernel.NewUserID("u1"), Email: "u1@example.com", IsActive: true}
	users.add(u)

	sess, err := svc.Start(context.Background(), u.ID, "127.0.0.1", "test-agent")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), sess.SessionToken))

	resolved, err := svc.Resolve(context.Background(), sess.SessionToken)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestDeleteExpired_OnlyRemovesExpired(t *testing.T) {
	svc, sessions, users := newService()
	u := user.User{ID: kernel.NewUserID("u1"), Email: "u1@example.com", IsActive: true}
	users.add(u)

	require.NoError(t, sessions.Save(context.Background(), session.UserSession{
		ID: "s1", UserID: u.ID, SessionToken: "expired",
		ExpiresAt: time.Now().Add(-time.Minute), CreatedAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, sessions.Save(context.Background(), session.UserSession{
		ID: "s2", UserID: u.ID, SessionToken: "active",
		ExpiresAt: time.Now().Add(time.Hour), CreatedAt: time.Now(),
	}))

	n, err := svc.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, ok := sessions.byToken["active"]
	assert.True(t, ok)
}
