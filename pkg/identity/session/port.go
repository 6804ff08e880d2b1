package session

import (
	"context"

	"github.com/Abraxas-365/identity-core/pkg/kernel"
)

// Repository persists UserSession rows.
type Repository interface {
	Save(ctx context.Context, s UserSession) error
	FindByToken(ctx context.Context, token string) (*UserSession, error)
	Touch(ctx context.Context, token string) error
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID kernel.UserID) error
	DeleteExpired(ctx context.Context) (int64, error)
}
