package oauthflow

import (
	"context"
)

// CodeRepository persists authorization codes. Redeem must take a row-level
// lock on the target row before checking/mutating consumed_at so that the
// single-use invariant holds under concurrent redemption attempts.
type CodeRepository interface {
	Save(ctx context.Context, code AuthorizationCode) error
	// RedeemWithCheck atomically loads the code by its value under a row
	// lock, verifies it is redeemable, and invokes check against it. The
	// code is marked consumed only if check returns nil; a check failure
	// leaves it exactly as it was, still redeemable until it expires. This
	// is what lets a bad PKCE verifier fail without burning the code (spec
	// scenario S2: preserve-on-failure, not consume-on-attempt), while the
	// row lock held for the duration of check still makes two concurrent
	// *successful* redemptions of the same code resolve to one winner.
	RedeemWithCheck(ctx context.Context, code string, check func(*AuthorizationCode) error) (*AuthorizationCode, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// TokenRepository persists access/refresh tokens.
type TokenRepository interface {
	Save(ctx context.Context, token Token) error
	FindByToken(ctx context.Context, token string) (*Token, error)
	// RevokeAndRotate atomically revokes oldToken and inserts newToken in
	// the same family, used by refresh-token rotation.
	RevokeAndRotate(ctx context.Context, oldToken string, newToken Token) error
	Revoke(ctx context.Context, token string) error
	RevokeFamily(ctx context.Context, familyID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
