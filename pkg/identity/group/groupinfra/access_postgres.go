package groupinfra

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/identity/group"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

type PostgresAccessRepository struct {
	db *sqlx.DB
}

func NewPostgresAccessRepository(db *sqlx.DB) group.AccessRepository {
	return &PostgresAccessRepository{db: db}
}

// Grant is idempotent: re-granting an existing (application, principal)
// pair is a no-op, because the insert is skipped when a row for that pair
// already exists. The unique index alone cannot catch the repeat, since one
// of user_id/group_id is always NULL and NULLs never collide in it.
func (r *PostgresAccessRepository) Grant(ctx context.Context, grant group.ApplicationAccess) error {
	if (grant.UserID == nil) == (grant.GroupID == nil) {
		return group.ErrInvalidGrant()
	}

	var userID, groupID interface{}
	if grant.UserID != nil {
		userID = grant.UserID.String()
	}
	if grant.GroupID != nil {
		groupID = grant.GroupID.String()
	}

	query := `
		INSERT INTO application_access (id, application_id, user_id, group_id, created_at)
		SELECT $1::text, $2::text, $3::text, $4::text, $5::timestamptz
		WHERE NOT EXISTS (
			SELECT 1 FROM application_access
			WHERE application_id = $2::text
			  AND user_id IS NOT DISTINCT FROM $3::text
			  AND group_id IS NOT DISTINCT FROM $4::text
		)`
	var err error
	if tx, ok := kernel.TxFromContext(ctx); ok {
		_, err = tx.ExecContext(ctx, query, grant.ID, grant.ApplicationID.String(), userID, groupID, grant.CreatedAt)
	} else {
		_, err = r.db.ExecContext(ctx, query, grant.ID, grant.ApplicationID.String(), userID, groupID, grant.CreatedAt)
	}
	if err != nil {
		return errx.Wrap(err, "failed to grant application access", errx.TypeInternal)
	}
	return nil
}

// Revoke is idempotent: revoking an absent grant is a no-op. Exactly one of
// userID/groupID must be non-nil.
func (r *PostgresAccessRepository) Revoke(ctx context.Context, applicationID kernel.ApplicationID, userID *kernel.UserID, groupID *kernel.GroupID) error {
	var query string
	var args []interface{}

	switch {
	case userID != nil:
		query = `DELETE FROM application_access WHERE application_id = $1 AND user_id = $2`
		args = []interface{}{applicationID.String(), userID.String()}
	case groupID != nil:
		query = `DELETE FROM application_access WHERE application_id = $1 AND group_id = $2`
		args = []interface{}{applicationID.String(), groupID.String()}
	default:
		return group.ErrInvalidGrant()
	}

	var err error
	if tx, ok := kernel.TxFromContext(ctx); ok {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return errx.Wrap(err, "failed to revoke application access", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresAccessRepository) HasUserGrant(ctx context.Context, applicationID kernel.ApplicationID, userID kernel.UserID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM application_access WHERE application_id = $1 AND user_id = $2)`
	err := r.db.GetContext(ctx, &exists, query, applicationID.String(), userID.String())
	if err != nil {
		return false, errx.Wrap(err, "failed to check direct access grant", errx.TypeInternal)
	}
	return exists, nil
}

func (r *PostgresAccessRepository) HasGroupGrant(ctx context.Context, applicationID kernel.ApplicationID, groupIDs []kernel.GroupID) (bool, error) {
	if len(groupIDs) == 0 {
		return false, nil
	}

	placeholders := make([]string, len(groupIDs))
	args := make([]interface{}, 0, len(groupIDs)+1)
	args = append(args, applicationID.String())
	for i, id := range groupIDs {
		placeholders[i] = "$" + strconv.Itoa(i+2)
		args = append(args, id.String())
	}

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM application_access WHERE application_id = $1 AND group_id IN (` +
		strings.Join(placeholders, ",") + `))`
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, errx.Wrap(err, "failed to check group access grant", errx.TypeInternal)
	}
	return exists, nil
}

func (r *PostgresAccessRepository) ListForApplication(ctx context.Context, applicationID kernel.ApplicationID) ([]group.ApplicationAccess, error) {
	var rows []accessPersistence
	query := `SELECT * FROM application_access WHERE application_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &rows, query, applicationID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list application access grants", errx.TypeInternal)
	}

	out := make([]group.ApplicationAccess, len(rows))
	for i, p := range rows {
		out[i] = toAccessDomain(p)
	}
	return out, nil
}

type accessPersistence struct {
	ID            string    `db:"id"`
	ApplicationID string    `db:"application_id"`
	UserID        *string   `db:"user_id"`
	GroupID       *string   `db:"group_id"`
	CreatedAt     time.Time `db:"created_at"`
}

func toAccessDomain(p accessPersistence) group.ApplicationAccess {
	a := group.ApplicationAccess{
		ID:            p.ID,
		ApplicationID: kernel.NewApplicationID(p.ApplicationID),
		CreatedAt:     p.CreatedAt,
	}
	if p.UserID != nil {
		uid := kernel.NewUserID(*p.UserID)
		a.UserID = &uid
	}
	if p.GroupID != nil {
		gid := kernel.NewGroupID(*p.GroupID)
		a.GroupID = &gid
	}
	return a
}
