// Package userinfra implements user.Repository against PostgreSQL.
package userinfra

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/identity/user"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresUserRepository is the PostgreSQL implementation of user.Repository.
type PostgresUserRepository struct {
	db *sqlx.DB
}

func NewPostgresUserRepository(db *sqlx.DB) user.Repository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Save(ctx context.Context, u user.User) error {
	exists, err := r.userExists(ctx, u.ID)
	if err != nil {
		return errx.Wrap(err, "failed to check user existence", errx.TypeInternal)
	}
	if exists {
		return r.update(ctx, u)
	}
	return r.create(ctx, u)
}

func (r *PostgresUserRepository) create(ctx context.Context, u user.User) error {
	query := `
		INSERT INTO users (
			id, email, display_name, given_name, family_name, middle_name,
			department, job_title, upstream_groups, is_active, is_admin,
			is_super_admin, last_login_at, created_at, updated_at
		) VALUES (
			:id, :email, :display_name, :given_name, :family_name, :middle_name,
			:department, :job_title, :upstream_groups, :is_active, :is_admin,
			:is_super_admin, :last_login_at, :created_at, :updated_at
		)`

	var err error
	if tx, ok := kernel.TxFromContext(ctx); ok {
		_, err = tx.NamedExecContext(ctx, query, toPersistence(u))
	} else {
		_, err = r.db.NamedExecContext(ctx, query, toPersistence(u))
	}
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return user.ErrEmailTaken()
		}
		return errx.Wrap(err, "failed to create user", errx.TypeInternal).
			WithDetail("user_id", u.ID.String())
	}
	return nil
}

func (r *PostgresUserRepository) update(ctx context.Context, u user.User) error {
	query := `
		UPDATE users SET
			email = :email,
			display_name = :display_name,
			given_name = :given_name,
			family_name = :family_name,
			middle_name = :middle_name,
			department = :department,
			job_title = :job_title,
			upstream_groups = :upstream_groups,
			is_active = :is_active,
			is_admin = :is_admin,
			is_super_admin = :is_super_admin,
			last_login_at = :last_login_at,
			updated_at = :updated_at
		WHERE id = :id`

	var result sql.Result
	var err error
	if tx, ok := kernel.TxFromContext(ctx); ok {
		result, err = tx.NamedExecContext(ctx, query, toPersistence(u))
	} else {
		result, err = r.db.NamedExecContext(ctx, query, toPersistence(u))
	}
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return user.ErrEmailTaken()
		}
		return errx.Wrap(err, "failed to update user", errx.TypeInternal).
			WithDetail("user_id", u.ID.String())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on update", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return user.ErrNotFound()
	}
	return nil
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id kernel.UserID) (*user.User, error) {
	var p userPersistence
	query := `SELECT * FROM users WHERE id = $1`
	err := r.db.GetContext(ctx, &p, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, user.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user by id", errx.TypeInternal)
	}
	u := toDomain(p)
	return &u, nil
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var p userPersistence
	query := `SELECT * FROM users WHERE email = $1`
	err := r.db.GetContext(ctx, &p, query, user.NormalizeEmail(email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, user.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find user by email", errx.TypeInternal)
	}
	u := toDomain(p)
	return &u, nil
}

func (r *PostgresUserRepository) List(ctx context.Context, filter user.ListFilter, page kernel.PaginationOptions) (kernel.Paginated[user.User], error) {
	var where []string
	var args []interface{}

	if filter.Department != "" {
		args = append(args, filter.Department)
		where = append(where, fmt.Sprintf("department = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		where = append(where, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(display_name) LIKE $%d)", len(args), len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM users " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return kernel.Paginated[user.User]{}, errx.Wrap(err, "failed to count users", errx.TypeInternal)
	}

	pageSize := page.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	pageNum := page.Page
	if pageNum <= 0 {
		pageNum = 1
	}
	offset := (pageNum - 1) * pageSize

	args = append(args, pageSize, offset)
	listQuery := fmt.Sprintf(
		"SELECT * FROM users %s ORDER BY display_name ASC LIMIT $%d OFFSET $%d",
		whereClause, len(args)-1, len(args),
	)

	var rows []userPersistence
	if err := r.db.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return kernel.Paginated[user.User]{}, errx.Wrap(err, "failed to list users", errx.TypeInternal)
	}

	items := make([]user.User, len(rows))
	for i, p := range rows {
		items[i] = toDomain(p)
	}

	return kernel.NewPaginated(items, pageNum, pageSize, total), nil
}

func (r *PostgresUserRepository) Delete(ctx context.Context, id kernel.UserID) error {
	query := `DELETE FROM users WHERE id = $1`
	var result sql.Result
	var err error
	if tx, ok := kernel.TxFromContext(ctx); ok {
		result, err = tx.ExecContext(ctx, query, id.String())
	} else {
		result, err = r.db.ExecContext(ctx, query, id.String())
	}
	if err != nil {
		return errx.Wrap(err, "failed to delete user", errx.TypeInternal)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on delete", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return user.ErrNotFound()
	}
	return nil
}

func (r *PostgresUserRepository) userExists(ctx context.Context, id kernel.UserID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`
	err := r.db.GetContext(ctx, &exists, query, id.String())
	if err != nil {
		return false, errx.Wrap(err, "failed to check user existence", errx.TypeInternal)
	}
	return exists, nil
}

type userPersistence struct {
	ID             string         `db:"id"`
	Email          string         `db:"email"`
	DisplayName    string         `db:"display_name"`
	GivenName      sql.NullString `db:"given_name"`
	FamilyName     sql.NullString `db:"family_name"`
	MiddleName     sql.NullString `db:"middle_name"`
	Department     sql.NullString `db:"department"`
	JobTitle       sql.NullString `db:"job_title"`
	UpstreamGroups pq.StringArray `db:"upstream_groups"`
	IsActive       bool           `db:"is_active"`
	IsAdmin        bool           `db:"is_admin"`
	IsSuperAdmin   bool           `db:"is_super_admin"`
	LastLoginAt    *time.Time     `db:"last_login_at"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func toPersistence(u user.User) userPersistence {
	return userPersistence{
		ID:             u.ID.String(),
		Email:          user.NormalizeEmail(u.Email),
		DisplayName:    u.DisplayName,
		GivenName:      sql.NullString{String: u.GivenName, Valid: u.GivenName != ""},
		FamilyName:     sql.NullString{String: u.FamilyName, Valid: u.FamilyName != ""},
		MiddleName:     sql.NullString{String: u.MiddleName, Valid: u.MiddleName != ""},
		Department:     sql.NullString{String: u.Department, Valid: u.Department != ""},
		JobTitle:       sql.NullString{String: u.JobTitle, Valid: u.JobTitle != ""},
		UpstreamGroups: pq.StringArray(u.UpstreamGroups),
		IsActive:       u.IsActive,
		IsAdmin:        u.IsAdmin,
		IsSuperAdmin:   u.IsSuperAdmin,
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func toDomain(p userPersistence) user.User {
	return user.User{
		ID:             kernel.NewUserID(p.ID),
		Email:          p.Email,
		DisplayName:    p.DisplayName,
		GivenName:      p.GivenName.String,
		FamilyName:     p.FamilyName.String,
		MiddleName:     p.MiddleName.String,
		Department:     p.Department.String,
		JobTitle:       p.JobTitle.String,
		UpstreamGroups: []string(p.UpstreamGroups),
		IsActive:       p.IsActive,
		IsAdmin:        p.IsAdmin,
		IsSuperAdmin:   p.IsSuperAdmin,
		LastLoginAt:    p.LastLoginAt,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
