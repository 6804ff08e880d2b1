// Package clientinfra implements client.Repository against PostgreSQL.
package clientinfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/identity/client"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type PostgresApplicationRepository struct {
	db *sqlx.DB
}

func NewPostgresApplicationRepository(db *sqlx.DB) client.Repository {
	return &PostgresApplicationRepository{db: db}
}

func (r *PostgresApplicationRepository) Save(ctx context.Context, a client.Application) error {
	exists, err := r.applicationExists(ctx, a.ID)
	if err != nil {
		return errx.Wrap(err, "failed to check application existence", errx.TypeInternal)
	}
	if exists {
		return r.update(ctx, a)
	}
	return r.create(ctx, a)
}

func (r *PostgresApplicationRepository) create(ctx context.Context, a client.Application) error {
	query := `
		INSERT INTO applications (
			id, name, slug, client_id, client_secret_hash, redirect_uris,
			is_active, is_public, allowed_departments, description,
			base_url, icon_url, created_at, updated_at
		) VALUES (
			:id, :name, :slug, :client_id, :client_secret_hash, :redirect_uris,
			:is_active, :is_public, :allowed_departments, :description,
			:base_url, :icon_url, :created_at, :updated_at
		)`

	var err error
	if tx, ok := kernel.TxFromContext(ctx); ok {
		_, err = tx.NamedExecContext(ctx, query, toPersistence(a))
	} else {
		_, err = r.db.NamedExecContext(ctx, query, toPersistence(a))
	}
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return client.ErrSlugTaken()
		}
		return errx.Wrap(err, "failed to create application", errx.TypeInternal).
			WithDetail("application_id", a.ID.String())
	}
	return nil
}

func (r *PostgresApplicationRepository) update(ctx context.Context, a client.Application) error {
	query := `
		UPDATE applications SET
			name = :name,
			slug = :slug,
			client_secret_hash = :client_secret_hash,
			redirect_uris = :redirect_uris,
			is_active = :is_active,
			is_public = :is_public,
			allowed_departments = :allowed_departments,
			description = :description,
			base_url = :base_url,
			icon_url = :icon_url,
			updated_at = :updated_at
		WHERE id = :id`

	var result sql.Result
	var err error
	if tx, ok := kernel.TxFromContext(ctx); ok {
		result, err = tx.NamedExecContext(ctx, query, toPersistence(a))
	} else {
		result, err = r.db.NamedExecContext(ctx, query, toPersistence(a))
	}
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return client.ErrSlugTaken()
		}
		return errx.Wrap(err, "failed to update application", errx.TypeInternal).
			WithDetail("application_id", a.ID.String())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on update", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return client.ErrNotFound()
	}
	return nil
}

func (r *PostgresApplicationRepository) FindByID(ctx context.Context, id kernel.ApplicationID) (*client.Application, error) {
	var p applicationPersistence
	query := `SELECT * FROM applications WHERE id = $1`
	err := r.db.GetContext(ctx, &p, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, client.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find application by id", errx.TypeInternal)
	}
	a := toDomain(p)
	return &a, nil
}

func (r *PostgresApplicationRepository) FindByClientID(ctx context.Context, clientID string) (*client.Application, error) {
	var p applicationPersistence
	query := `SELECT * FROM applications WHERE client_id = $1`
	err := r.db.GetContext(ctx, &p, query, clientID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, client.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find application by client id", errx.TypeInternal)
	}
	a := toDomain(p)
	return &a, nil
}

func (r *PostgresApplicationRepository) FindBySlug(ctx context.Context, slug string) (*client.Application, error) {
	var p applicationPersistence
	query := `SELECT * FROM applications WHERE slug = $1`
	err := r.db.GetContext(ctx, &p, query, slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, client.ErrNotFound()
		}
		return nil, errx.Wrap(err, "failed to find application by slug", errx.TypeInternal)
	}
	a := toDomain(p)
	return &a, nil
}

func (r *PostgresApplicationRepository) ListActive(ctx context.Context) ([]*client.Application, error) {
	var rows []applicationPersistence
	query := `SELECT * FROM applications WHERE is_active = true ORDER BY name ASC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errx.Wrap(err, "failed to list active applications", errx.TypeInternal)
	}
	return toDomainSlice(rows), nil
}

func (r *PostgresApplicationRepository) ListAll(ctx context.Context) ([]*client.Application, error) {
	var rows []applicationPersistence
	query := `SELECT * FROM applications ORDER BY name ASC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errx.Wrap(err, "failed to list applications", errx.TypeInternal)
	}
	return toDomainSlice(rows), nil
}

func (r *PostgresApplicationRepository) Delete(ctx context.Context, id kernel.ApplicationID) error {
	query := `DELETE FROM applications WHERE id = $1`
	var result sql.Result
	var err error
	if tx, ok := kernel.TxFromContext(ctx); ok {
		result, err = tx.ExecContext(ctx, query, id.String())
	} else {
		result, err = r.db.ExecContext(ctx, query, id.String())
	}
	if err != nil {
		return errx.Wrap(err, "failed to delete application", errx.TypeInternal)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on delete", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return client.ErrNotFound()
	}
	return nil
}

func (r *PostgresApplicationRepository) applicationExists(ctx context.Context, id kernel.ApplicationID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM applications WHERE id = $1)`
	err := r.db.GetContext(ctx, &exists, query, id.String())
	if err != nil {
		return false, errx.Wrap(err, "failed to check application existence", errx.TypeInternal)
	}
	return exists, nil
}

type applicationPersistence struct {
	ID                 string         `db:"id"`
	Name               string         `db:"name"`
	Slug               string         `db:"slug"`
	ClientID           string         `db:"client_id"`
	ClientSecretHash   string         `db:"client_secret_hash"`
	RedirectURIs       pq.StringArray `db:"redirect_uris"`
	IsActive           bool           `db:"is_active"`
	IsPublic           bool           `db:"is_public"`
	AllowedDepartments pq.StringArray `db:"allowed_departments"`
	Description        sql.NullString `db:"description"`
	BaseURL            sql.NullString `db:"base_url"`
	IconURL            sql.NullString `db:"icon_url"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func toPersistence(a client.Application) applicationPersistence {
	return applicationPersistence{
		ID:                 a.ID.String(),
		Name:               a.Name,
		Slug:               a.Slug,
		ClientID:           a.ClientID,
		ClientSecretHash:   a.ClientSecretHash,
		RedirectURIs:       pq.StringArray(a.RedirectURIs),
		IsActive:           a.IsActive,
		IsPublic:           a.IsPublic,
		AllowedDepartments: pq.StringArray(a.AllowedDepartments),
		Description:        sql.NullString{String: a.Description, Valid: a.Description != ""},
		BaseURL:            sql.NullString{String: a.BaseURL, Valid: a.BaseURL != ""},
		IconURL:            sql.NullString{String: a.IconURL, Valid: a.IconURL != ""},
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

func toDomain(p applicationPersistence) client.Application {
	return client.Application{
		ID:                 kernel.NewApplicationID(p.ID),
		Name:               p.Name,
		Slug:               p.Slug,
		ClientID:           p.ClientID,
		ClientSecretHash:   p.ClientSecretHash,
		RedirectURIs:       []string(p.RedirectURIs),
		IsActive:           p.IsActive,
		IsPublic:           p.IsPublic,
		AllowedDepartments: []string(p.AllowedDepartments),
		Description:        p.Description.String,
		BaseURL:            p.BaseURL.String,
		IconURL:            p.IconURL.String,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func toDomainSlice(rows []applicationPersistence) []*client.Application {
	out := make([]*client.Application, len(rows))
	for i, p := range rows {
		a := toDomain(p)
		out[i] = &a
	}
	return out
}
