// Package oauthinfra implements oauthflow's repositories against PostgreSQL.
package oauthinfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/identity/oauthflow"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresCodeRepository implements oauthflow.CodeRepository.
type PostgresCodeRepository struct {
	db *sqlx.DB
}

func NewPostgresCodeRepository(db *sqlx.DB) oauthflow.CodeRepository {
	return &PostgresCodeRepository{db: db}
}

func (r *PostgresCodeRepository) Save(ctx context.Context, code oauthflow.AuthorizationCode) error {
	query := `
		INSERT INTO oauth_codes (
			code, user_id, application_id, redirect_uri, scope, state,
			code_challenge, code_challenge_method, expires_at, consumed_at, created_at
		) VALUES (
			:code, :user_id, :application_id, :redirect_uri, :scope, :state,
			:code_challenge, :code_challenge_method, :expires_at, :consumed_at, :created_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, toCodePersistence(code))
	if err != nil {
		return errx.Wrap(err, "failed to save authorization code", errx.TypeInternal)
	}
	return nil
}

// RedeemWithCheck locks the target row with SELECT ... FOR UPDATE, checks
// it is redeemable, runs check against it, and marks it consumed only if
// check passes — all inside one transaction. The row lock held for the
// duration of check is what makes the single-use invariant hold under
// concurrent retries of the same code (a second caller blocks until the
// first commits or rolls back); a failing check rolls the transaction back
// and leaves consumed_at untouched, so a wrong PKCE verifier never burns
// the code for a subsequent correct attempt.
func (r *PostgresCodeRepository) RedeemWithCheck(ctx context.Context, code string, check func(*oauthflow.AuthorizationCode) error) (*oauthflow.AuthorizationCode, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errx.Wrap(err, "failed to begin redeem transaction", errx.TypeInternal)
	}
	defer tx.Rollback()

	var p codePersistence
	query := `SELECT * FROM oauth_codes WHERE code = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &p, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, oauthflow.ErrInvalidGrant()
		}
		return nil, errx.Wrap(err, "failed to load authorization code", errx.TypeInternal)
	}

	ac := toCodeDomain(p)
	if !ac.IsRedeemable(time.Now()) {
		return nil, oauthflow.ErrInvalidGrant()
	}

	if err := check(&ac); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE oauth_codes SET consumed_at = $2 WHERE code = $1`, code, time.Now()); err != nil {
		return nil, errx.Wrap(err, "failed to mark authorization code consumed", errx.TypeInternal)
	}

	if err := tx.Commit(); err != nil {
		return nil, errx.Wrap(err, "failed to commit redeem transaction", errx.TypeInternal)
	}
	return &ac, nil
}

func (r *PostgresCodeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM oauth_codes WHERE expires_at < $1`, time.Now())
	if err != nil {
		return 0, errx.Wrap(err, "failed to delete expired authorization codes", errx.TypeInternal)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	return n, nil
}

type codePersistence struct {
	Code                string         `db:"code"`
	UserID              string         `db:"user_id"`
	ApplicationID       string         `db:"application_id"`
	RedirectURI         string         `db:"redirect_uri"`
	Scope               pq.StringArray `db:"scope"`
	State               sql.NullString `db:"state"`
	CodeChallenge       sql.NullString `db:"code_challenge"`
	CodeChallengeMethod sql.NullString `db:"code_challenge_method"`
	ExpiresAt           time.Time      `db:"expires_at"`
	ConsumedAt          *time.Time     `db:"consumed_at"`
	CreatedAt           time.Time      `db:"created_at"`
}

func toCodePersistence(c oauthflow.AuthorizationCode) codePersistence {
	return codePersistence{
		Code:                c.Code,
		UserID:              c.UserID.String(),
		ApplicationID:       c.ApplicationID.String(),
		RedirectURI:         c.RedirectURI,
		Scope:               pq.StringArray(c.Scope),
		State:               sql.NullString{String: c.State, Valid: c.State != ""},
		CodeChallenge:       sql.NullString{String: c.CodeChallenge, Valid: c.CodeChallenge != ""},
		CodeChallengeMethod: sql.NullString{String: string(c.CodeChallengeMethod), Valid: c.CodeChallengeMethod != ""},
		ExpiresAt:           c.ExpiresAt,
		ConsumedAt:          c.ConsumedAt,
		CreatedAt:           c.CreatedAt,
	}
}

func toCodeDomain(p codePersistence) oauthflow.AuthorizationCode {
	return oauthflow.AuthorizationCode{
		Code:                p.Code,
		UserID:              kernel.NewUserID(p.UserID),
		ApplicationID:       kernel.NewApplicationID(p.ApplicationID),
		RedirectURI:         p.RedirectURI,
		Scope:               []string(p.Scope),
		State:               p.State.String,
		CodeChallenge:       p.CodeChallenge.String,
		CodeChallengeMethod: oauthflow.ChallengeMethod(p.CodeChallengeMethod.String),
		ExpiresAt:           p.ExpiresAt,
		ConsumedAt:          p.ConsumedAt,
		CreatedAt:           p.CreatedAt,
	}
}

// PostgresTokenRepository implements oauthflow.TokenRepository.
type PostgresTokenRepository struct {
	db *sqlx.DB
}

func NewPostgresTokenRepository(db *sqlx.DB) oauthflow.TokenRepository {
	return &PostgresTokenRepository{db: db}
}

func (r *PostgresTokenRepository) Save(ctx context.Context, token oauthflow.Token) error {
	query := `
		INSERT INTO oauth_tokens (
			token, kind, user_id, application_id, scope, family_id,
			expires_at, revoked_at, created_at
		) VALUES (
			:token, :kind, :user_id, :application_id, :scope, :family_id,
			:expires_at, :revoked_at, :created_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, toTokenPersistence(token))
	if err != nil {
		return errx.Wrap(err, "failed to save token", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresTokenRepository) FindByToken(ctx context.Context, token string) (*oauthflow.Token, error) {
	var p tokenPersistence
	query := `SELECT * FROM oauth_tokens WHERE token = $1`
	if err := r.db.GetContext(ctx, &p, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, oauthflow.ErrInvalidGrant()
		}
		return nil, errx.Wrap(err, "failed to find token", errx.TypeInternal)
	}
	t := toTokenDomain(p)
	return &t, nil
}

// RevokeAndRotate locks the refresh token being exchanged, revokes it, and
// inserts its replacement in the same family inside a single transaction.
// A prior commit losing the race means the caller observes the row already
// revoked and must treat it as replay, not silently succeed.
func (r *PostgresTokenRepository) RevokeAndRotate(ctx context.Context, oldToken string, newToken oauthflow.Token) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errx.Wrap(err, "failed to begin rotate transaction", errx.TypeInternal)
	}
	defer tx.Rollback()

	var p tokenPersistence
	query := `SELECT * FROM oauth_tokens WHERE token = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &p, query, oldToken); err != nil {
		if err == sql.ErrNoRows {
			return oauthflow.ErrInvalidGrant()
		}
		return errx.Wrap(err, "failed to load token for rotation", errx.TypeInternal)
	}

	old := toTokenDomain(p)
	if old.IsRevoked() {
		return oauthflow.ErrInvalidGrant()
	}

	if _, err := tx.ExecContext(ctx, `UPDATE oauth_tokens SET revoked_at = $2 WHERE token = $1`, oldToken, time.Now()); err != nil {
		return errx.Wrap(err, "failed to revoke rotated token", errx.TypeInternal)
	}

	insertQuery := `
		INSERT INTO oauth_tokens (
			token, kind, user_id, application_id, scope, family_id,
			expires_at, revoked_at, created_at
		) VALUES (
			:token, :kind, :user_id, :application_id, :scope, :family_id,
			:expires_at, :revoked_at, :created_at
		)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, toTokenPersistence(newToken)); err != nil {
		return errx.Wrap(err, "failed to insert rotated token", errx.TypeInternal)
	}

	return tx.Commit()
}

func (r *PostgresTokenRepository) Revoke(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE oauth_tokens SET revoked_at = $2 WHERE token = $1 AND revoked_at IS NULL`, token, time.Now())
	if err != nil {
		return errx.Wrap(err, "failed to revoke token", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresTokenRepository) RevokeFamily(ctx context.Context, familyID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE oauth_tokens SET revoked_at = $2 WHERE family_id = $1 AND revoked_at IS NULL`, familyID, time.Now())
	if err != nil {
		return errx.Wrap(err, "failed to revoke token family", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE expires_at < $1`, time.Now())
	if err != nil {
		return 0, errx.Wrap(err, "failed to delete expired tokens", errx.TypeInternal)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	return n, nil
}

type tokenPersistence struct {
	Token         string         `db:"token"`
	Kind          string         `db:"kind"`
	UserID        string         `db:"user_id"`
	ApplicationID string         `db:"application_id"`
	Scope         pq.StringArray `db:"scope"`
	FamilyID      string         `db:"family_id"`
	ExpiresAt     time.Time      `db:"expires_at"`
	RevokedAt     *time.Time     `db:"revoked_at"`
	CreatedAt     time.Time      `db:"created_at"`
}

func toTokenPersistence(t oauthflow.Token) tokenPersistence {
	return tokenPersistence{
		Token:         t.Token,
		Kind:          string(t.Kind),
		UserID:        t.UserID.String(),
		ApplicationID: t.ApplicationID.String(),
		Scope:         pq.StringArray(t.Scope),
		FamilyID:      t.FamilyID,
		ExpiresAt:     t.ExpiresAt,
		RevokedAt:     t.RevokedAt,
		CreatedAt:     t.CreatedAt,
	}
}

func toTokenDomain(p tokenPersistence) oauthflow.Token {
	return oauthflow.Token{
		Token:         p.Token,
		Kind:          oauthflow.TokenKind(p.Kind),
		UserID:        kernel.NewUserID(p.UserID),
		ApplicationID: kernel.NewApplicationID(p.ApplicationID),
		Scope:         []string(p.Scope),
		FamilyID:      p.FamilyID,
		ExpiresAt:     p.ExpiresAt,
		RevokedAt:     p.RevokedAt,
		CreatedAt:     p.CreatedAt,
	}
}
