// Package groupinfra implements group.GroupRepository and
// group.AccessRepository against PostgreSQL.
package groupinfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/identity/group"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type PostgresGroupRepository struct {
	db *sqlx.DB
}

func NewPostgresGroupRepository(db *sqlx.DB) group.GroupRepository {
	return &PostgresGroupRepository{db: db}
}

func (r *PostgresGroupRepository) Save(ctx context.Context, g group.UserGroup) error {
	exists, err := r.groupExists(ctx, g.ID)
	if err != nil {
		return errx.Wrap(err, "failed to check group existence", errx.TypeInternal)
	}
	if exists {
		return r.update(ctx, g)
	}
	return r.create(ctx, g)
}

func (r *PostgresGroupRepository) create(ctx context.Context, g group.UserGroup) error {
	query := `
		INSERT INTO user_groups (id, name, color, description, created_at, updated_at)
		VALUES (:id, :name, :color, :description, :created_at, :updated_at)`

	var err error
	if tx, ok := kernel.TxFromContext(ctx); ok {
		_, err = tx.NamedExecContext(ctx, query, toPersistence(g))
	} else {
		_, err = r.db.NamedExecContext(ctx, query, toPersistence(g))
	}
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return group.ErrNameTaken()
		}
		return errx.Wrap(err, "failed to create group", errx.TypeInternal).WithDetail("group_id", g.ID.String())
	}
	return nil
}

func (r *PostgresGroupRepository) update(ctx context.Context, g group.UserGroup) error {
	query := `
		UPDATE user_groups SET name = :name, color = :color, description = :description, updated_at = :updated_at
		WHERE id = :id`

	var result sql.Result
	var err error
	if tx, ok := kernel.TxFromContext(ctx); ok {
		result, err = tx.NamedExecContext(ctx, query, toPersistence(g))
	} else {
		result, err = r.db.NamedExecContext(ctx, query, toPersistence(g))
	}
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return group.ErrNameTaken()
		}
		return errx.Wrap(err, "failed to update group", errx.TypeInternal)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on update", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return group.ErrNotFound()
	}
	return nil
}

func (r *PostgresGroupRepository) FindByID(ctx context.Context, id kernel.GroupID) (*group.UserGroup, error) {
	var p groupPersistence
	err := r.db.GetContext(ctx, &p, `SELECT * FROM user_groups WHERE id = $1`, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, group.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find group by id", errx.TypeInternal)
	}
	g := toDomain(p)
	return &g, nil
}

func (r *PostgresGroupRepository) FindByName(ctx context.Context, name string) (*group.UserGroup, error) {
	var p groupPersistence
	err := r.db.GetContext(ctx, &p, `SELECT * FROM user_groups WHERE name = $1`, name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, group.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find group by name", errx.TypeInternal)
	}
	g := toDomain(p)
	return &g, nil
}

func (r *PostgresGroupRepository) ListAll(ctx context.Context) ([]*group.UserGroup, error) {
	var rows []groupPersistence
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM user_groups ORDER BY name ASC`); err != nil {
		return nil, errx.Wrap(err, "failed to list groups", errx.TypeInternal)
	}
	out := make([]*group.UserGroup, len(rows))
	for i, p := range rows {
		g := toDomain(p)
		out[i] = &g
	}
	return out, nil
}

func (r *PostgresGroupRepository) Delete(ctx context.Context, id kernel.GroupID) error {
	var result sql.Result
	var err error
	if tx, ok := kernel.TxFromContext(ctx); ok {
		result, err = tx.ExecContext(ctx, `DELETE FROM user_groups WHERE id = $1`, id.String())
	} else {
		result, err = r.db.ExecContext(ctx, `DELETE FROM user_groups WHERE id = $1`, id.String())
	}
	if err != nil {
		return errx.Wrap(err, "failed to delete group", errx.TypeInternal)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on delete", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return group.ErrNotFound()
	}
	return nil
}

// AddMember is idempotent: re-adding an existing member is a no-op.
func (r *PostgresGroupRepository) AddMember(ctx context.Context, groupID kernel.GroupID, userID kernel.UserID) error {
	query := `
		INSERT INTO user_group_members (group_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (group_id, user_id) DO NOTHING`
	var err error
	if tx, ok := kernel.TxFromContext(ctx); ok {
		_, err = tx.ExecContext(ctx, query, groupID.String(), userID.String())
	} else {
		_, err = r.db.ExecContext(ctx, query, groupID.String(), userID.String())
	}
	if err != nil {
		return errx.Wrap(err, "failed to add group member", errx.TypeInternal)
	}
	return nil
}

// RemoveMember is idempotent: removing an absent member is a no-op.
func (r *PostgresGroupRepository) RemoveMember(ctx context.Context, groupID kernel.GroupID, userID kernel.UserID) error {
	query := `DELETE FROM user_group_members WHERE group_id = $1 AND user_id = $2`
	var err error
	if tx, ok := kernel.TxFromContext(ctx); ok {
		_, err = tx.ExecContext(ctx, query, groupID.String(), userID.String())
	} else {
		_, err = r.db.ExecContext(ctx, query, groupID.String(), userID.String())
	}
	if err != nil {
		return errx.Wrap(err, "failed to remove group member", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresGroupRepository) Members(ctx context.Context, groupID kernel.GroupID) ([]kernel.UserID, error) {
	var ids []string
	query := `SELECT user_id FROM user_group_members WHERE group_id = $1`
	if err := r.db.SelectContext(ctx, &ids, query, groupID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list group members", errx.TypeInternal)
	}
	out := make([]kernel.UserID, len(ids))
	for i, id := range ids {
		out[i] = kernel.NewUserID(id)
	}
	return out, nil
}

func (r *PostgresGroupRepository) GroupsForUser(ctx context.Context, userID kernel.UserID) ([]kernel.GroupID, error) {
	var ids []string
	query := `SELECT group_id FROM user_group_members WHERE user_id = $1`
	if err := r.db.SelectContext(ctx, &ids, query, userID.String()); err != nil {
		return nil, errx.Wrap(err, "failed to list groups for user", errx.TypeInternal)
	}
	out := make([]kernel.GroupID, len(ids))
	for i, id := range ids {
		out[i] = kernel.NewGroupID(id)
	}
	return out, nil
}

func (r *PostgresGroupRepository) groupExists(ctx context.Context, id kernel.GroupID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM user_groups WHERE id = $1)`, id.String())
	if err != nil {
		return false, errx.Wrap(err, "failed to check group existence", errx.TypeInternal)
	}
	return exists, nil
}

type groupPersistence struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Color       string    `db:"color"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func toPersistence(g group.UserGroup) groupPersistence {
	return groupPersistence{
		ID:          g.ID.String(),
		Name:        g.Name,
		Color:       g.Color,
		Description: g.Description,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func toDomain(p groupPersistence) group.UserGroup {
	return group.UserGroup{
		ID:          kernel.NewGroupID(p.ID),
		Name:        p.Name,
		Color:       p.Color,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
