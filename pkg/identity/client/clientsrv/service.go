// Package clientsrv implements application (OAuth client) registration and
// lifecycle management for the admin surface.
package clientsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/identity/client"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/google/uuid"
)

type Service struct {
	repo client.Repository
}

func NewService(repo client.Repository) *Service {
	return &Service{repo: repo}
}

type CreateRequest struct {
	Name               string
	Slug               string
	RedirectURIs       []string
	IsPublic           bool
	AllowedDepartments []string
	Description        string
	BaseURL            string
	IconURL            string
}

// WithSecret pairs an Application with the plaintext secret generated for
// it. The plaintext only ever exists in memory on the create/regenerate path.
type WithSecret struct {
	Application  client.Application
	ClientSecret string
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*WithSecret, error) {
	if existing, _ := s.repo.FindBySlug(ctx, req.Slug); existing != nil {
		return nil, client.ErrSlugTaken()
	}

	clientID, err := client.GenerateClientID()
	if err != nil {
		return nil, err
	}
	secret, err := client.GenerateClientSecret()
	if err != nil {
		return nil, err
	}
	hash, err := client.HashSecret(secret)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	app := client.Application{
		ID:                 kernel.NewApplicationID(uuid.NewString()),
		Name:               req.Name,
		Slug:               req.Slug,
		ClientID:           clientID,
		ClientSecretHash:   hash,
		RedirectURIs:       req.RedirectURIs,
		IsActive:           true,
		IsPublic:           req.IsPublic,
		AllowedDepartments: req.AllowedDepartments,
		Description:        req.Description,
		BaseURL:            req.BaseURL,
		IconURL:            req.IconURL,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Save(ctx, app); err != nil {
		return nil, err
	}

	return &WithSecret{Application: app, ClientSecret: secret}, nil
}

type UpdateRequest struct {
	Name               *string
	RedirectURIs       []string
	IsActive           *bool
	IsPublic           *bool
	AllowedDepartments []string
	Description        *string
	BaseURL            *string
	IconURL            *string
}

func (s *Service) Update(ctx context.Context, id kernel.ApplicationID, req UpdateRequest) (*client.Application, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		app.Name = *req.Name
	}
	if req.RedirectURIs != nil {
		app.RedirectURIs = req.RedirectURIs
	}
	if req.IsActive != nil {
		app.IsActive = *req.IsActive
	}
	if req.IsPublic != nil {
		app.IsPublic = *req.IsPublic
	}
	if req.AllowedDepartments != nil {
		app.AllowedDepartments = req.AllowedDepartments
	}
	if req.Description != nil {
		app.Description = *req.Description
	}
	if req.BaseURL != nil {
		app.BaseURL = *req.BaseURL
	}
	if req.IconURL != nil {
		app.IconURL = *req.IconURL
	}
	app.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, *app); err != nil {
		return nil, err
	}
	return app, nil
}

// Delete disables the application, or removes it outright when permanent is
// set. A permanent delete removes the row only; the application's codes,
// tokens and access grants go with it through the ON DELETE CASCADE
// foreign keys in the schema.
func (s *Service) Delete(ctx context.Context, id kernel.ApplicationID, permanent bool) error {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if permanent {
		return s.repo.Delete(ctx, id)
	}

	app.IsActive = false
	app.UpdatedAt = time.Now().UTC()
	return s.repo.Save(ctx, *app)
}

func (s *Service) RegenerateSecret(ctx context.Context, id kernel.ApplicationID) (*WithSecret, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	secret, err := client.GenerateClientSecret()
	if err != nil {
		return nil, err
	}
	hash, err := client.HashSecret(secret)
	if err != nil {
		return nil, err
	}

	app.ClientSecretHash = hash
	app.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, *app); err != nil {
		return nil, err
	}
	return &WithSecret{Application: *app, ClientSecret: secret}, nil
}

func (s *Service) GetByID(ctx context.Context, id kernel.ApplicationID) (*client.Application, error) {
	return s.repo.FindByID(ctx, id)
}

// ListVisibleTo returns active applications whose departmental gate admits
// department, sorted by name. This is the list-only half of the
// access-decision engine's departmental test.
func (s *Service) ListVisibleTo(ctx context.Context, department string) ([]*client.Application, error) {
	all, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, errx.Wrap(err, "failed to list applications", errx.TypeInternal)
	}

	var visible []*client.Application
	for _, app := range all {
		if app.DepartmentAllowed(department) {
			visible = append(visible, app)
		}
	}
	return visible, nil
}

// ListAll returns every registered application, active or not, for the
// admin listing surface.
func (s *Service) ListAll(ctx context.Context) ([]*client.Application, error) {
	return s.repo.ListAll(ctx)
}

// AuthenticateClient verifies a client_id/client_secret pair for confidential
// clients used in the token endpoint's client-authentication step.
func (s *Service) AuthenticateClient(ctx context.Context, clientID, clientSecret string) (*client.Application, error) {
	app, err := s.repo.FindByClientID(ctx, clientID)
	if err != nil {
		return nil, client.ErrBadSecret()
	}
	if !app.IsActive {
		return nil, client.ErrInactive()
	}
	if !app.IsPublic && !client.VerifySecret(app.ClientSecretHash, clientSecret) {
		return nil, client.ErrBadSecret()
	}
	return app, nil
}
