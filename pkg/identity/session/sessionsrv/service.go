// Package sessionsrv mints and resolves the opaque browser session credential
// consumed by the Fiber middleware that implements the session authenticator.
package sessionsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/identity/oauthflow"
	"github.com/Abraxas-365/identity-core/pkg/identity/session"
	"github.com/Abraxas-365/identity-core/pkg/identity/user"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/google/uuid"
)

type Service struct {
	sessions session.Repository
	users    user.Repository
	ttl      time.Duration
}

func NewService(sessions session.Repository, users user.Repository, ttl time.Duration) *Service {
	return &Service{sessions: sessions, users: users, ttl: ttl}
}

// Start mints a new session for userID. This is the only path by which a
// session credential comes into existence — called by the SSO callback
// handler after it has upserted the local User row.
func (s *Service) Start(ctx context.Context, userID kernel.UserID, ipAddress, userAgent string) (*session.UserSession, error) {
	token, err := oauthflow.GenerateOpaqueToken(32)
	if err != nil {
		return nil, errx.Wrap(err, "failed to generate session token", errx.TypeInternal)
	}

	now := time.Now()
	sess := session.UserSession{
		ID:           uuid.NewString(),
		UserID:       userID,
		SessionToken: token,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		ExpiresAt:    now.Add(s.ttl),
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Resolve looks up token and returns the User it belongs to, or nil if the
// credential is absent, unknown, or expired — "anonymous", never an error,
// since the caller (middleware) must treat both the same way.
func (s *Service) Resolve(ctx context.Context, token string) (*user.User, error) {
	if token == "" {
		return nil, nil
	}

	sess, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		var ux *errx.Error
		if errx.As(err, &ux) && (ux.Type == errx.TypeNotFound || ux.Type == errx.TypeAuthorization) {
			return nil, nil
		}
		return nil, err
	}
	if sess.IsExpired(time.Now()) {
		return nil, nil
	}

	u, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		return nil, nil
	}
	if !u.CanSignIn() {
		return nil, nil
	}

	_ = s.sessions.Touch(ctx, token)
	return u, nil
}

func (s *Service) Revoke(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

func (s *Service) RevokeAllForUser(ctx context.Context, userID kernel.UserID) error {
	return s.sessions.RevokeAllForUser(ctx, userID)
}

func (s *Service) DeleteExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}
