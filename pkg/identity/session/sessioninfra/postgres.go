// Package sessioninfra implements session.Repository against PostgreSQL.
package sessioninfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/identity/session"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// PostgresSessionRepository implements session.Repository.
type PostgresSessionRepository struct {
	db *sqlx.DB
}

func NewPostgresSessionRepository(db *sqlx.DB) session.Repository {
	return &PostgresSessionRepository{db: db}
}

func (r *PostgresSessionRepository) Save(ctx context.Context, s session.UserSession) error {
	query := `
		INSERT INTO user_sessions (
			id, user_id, session_token, ip_address, user_agent, expires_at, created_at, last_activity
		) VALUES (
			:id, :user_id, :session_token, :ip_address, :user_agent, :expires_at, :created_at, :last_activity
		)`
	_, err := r.db.NamedExecContext(ctx, query, toPersistence(s))
	if err != nil {
		return errx.Wrap(err, "failed to save session", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresSessionRepository) FindByToken(ctx context.Context, token string) (*session.UserSession, error) {
	var p sessionPersistence
	query := `SELECT * FROM user_sessions WHERE session_token = $1`
	if err := r.db.GetContext(ctx, &p, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, session.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find session", errx.TypeInternal)
	}
	s := toDomain(p)
	return &s, nil
}

func (r *PostgresSessionRepository) Touch(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE user_sessions SET last_activity = $2 WHERE session_token = $1`, token, time.Now())
	if err != nil {
		return errx.Wrap(err, "failed to touch session", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresSessionRepository) Revoke(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE session_token = $1`, token)
	if err != nil {
		return errx.Wrap(err, "failed to revoke session", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresSessionRepository) RevokeAllForUser(ctx context.Context, userID kernel.UserID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = $1`, userID.String())
	if err != nil {
		return errx.Wrap(err, "failed to revoke user sessions", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE expires_at < $1`, time.Now())
	if err != nil {
		return 0, errx.Wrap(err, "failed to delete expired sessions", errx.TypeInternal)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	return n, nil
}

type sessionPersistence struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	SessionToken string    `db:"session_token"`
	IPAddress    string    `db:"ip_address"`
	UserAgent    string    `db:"user_agent"`
	ExpiresAt    time.Time `db:"expires_at"`
	CreatedAt    time.Time `db:"created_at"`
	LastActivity time.Time `db:"last_activity"`
}

func toPersistence(s session.UserSession) sessionPersistence {
	return sessionPersistence{
		ID:           s.ID,
		UserID:       s.UserID.String(),
		SessionToken: s.SessionToken,
		IPAddress:    s.IPAddress,
		UserAgent:    s.UserAgent,
		ExpiresAt:    s.ExpiresAt,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
}

func toDomain(p sessionPersistence) session.UserSession {
	return session.UserSession{
		ID:           p.ID,
		UserID:       kernel.NewUserID(p.UserID),
		SessionToken: p.SessionToken,
		IPAddress:    p.IPAddress,
		UserAgent:    p.UserAgent,
		ExpiresAt:    p.ExpiresAt,
		CreatedAt:    p.CreatedAt,
		LastActivity: p.LastActivity,
	}
}
