// Package usersrv implements user lifecycle operations: first-login
// provisioning from SSO claims and admin-surface mutation.
package usersrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/identity/user"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/google/uuid"
)

type Service struct {
	repo user.Repository
}

func NewService(repo user.Repository) *Service {
	return &Service{repo: repo}
}

// UpstreamClaims is what the SSO collaborator hands back after a login.
type UpstreamClaims struct {
	Email       string
	DisplayName string
	GivenName   string
	FamilyName  string
	MiddleName  string
	Department  string
	JobTitle    string
	Groups      []string
}

// ProvisionFromSSO finds or creates the local user record for an upstream
// identity, refreshing mutable profile fields and the last-login stamp on
// every call. This is the only path by which a User row is created.
func (s *Service) ProvisionFromSSO(ctx context.Context, claims UpstreamClaims) (*user.User, error) {
	email := user.NormalizeEmail(claims.Email)
	if email == "" {
		return nil, user.ErrInvalidUpdate().WithDetail("reason", "sso claims carried no email")
	}

	now := time.Now().UTC()

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		var ux *errx.Error
		if !errx.As(err, &ux) || ux.Type != errx.TypeNotFound {
			return nil, err
		}
		existing = nil
	}

	if existing == nil {
		u := user.User{
			ID:             kernel.NewUserID(uuid.NewString()),
			Email:          email,
			DisplayName:    claims.DisplayName,
			GivenName:      claims.GivenName,
			FamilyName:     claims.FamilyName,
			MiddleName:     claims.MiddleName,
			Department:     claims.Department,
			JobTitle:       claims.JobTitle,
			UpstreamGroups: claims.Groups,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		u.TouchLogin(now)
		if err := s.repo.Save(ctx, u); err != nil {
			return nil, err
		}
		return &u, nil
	}

	existing.DisplayName = claims.DisplayName
	existing.GivenName = claims.GivenName
	existing.FamilyName = claims.FamilyName
	existing.MiddleName = claims.MiddleName
	existing.Department = claims.Department
	existing.JobTitle = claims.JobTitle
	existing.UpstreamGroups = claims.Groups
	existing.TouchLogin(now)
	existing.UpdatedAt = now

	if err := s.repo.Save(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) GetByID(ctx context.Context, id kernel.UserID) (*user.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter user.ListFilter, page kernel.PaginationOptions) (kernel.Paginated[user.User], error) {
	return s.repo.List(ctx, filter, page)
}

// UpdateRequest carries only the fields an admin may change.
type UpdateRequest struct {
	DisplayName *string
	Department  *string
	JobTitle    *string
	IsActive    *bool
	IsAdmin     *bool
}

func (s *Service) Update(ctx context.Context, id kernel.UserID, req UpdateRequest) (*user.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		u.DisplayName = *req.DisplayName
	}
	if req.Department != nil {
		u.Department = *req.Department
	}
	if req.JobTitle != nil {
		u.JobTitle = *req.JobTitle
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if req.IsAdmin != nil {
		u.IsAdmin = *req.IsAdmin
	}
	u.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, *u); err != nil {
		return nil, err
	}
	return u, nil
}

// BulkAction applies the same toggle to many users at once, skipping (not
// failing) entries that don't exist — an admin scrubbing a stale selection
// shouldn't lose the rest of the batch.
func (s *Service) BulkAction(ctx context.Context, ids []kernel.UserID, isActive bool) (affected int, err error) {
	for _, id := range ids {
		u, err := s.repo.FindByID(ctx, id)
		if err != nil {
			continue
		}
		u.IsActive = isActive
		u.UpdatedAt = time.Now().UTC()
		if err := s.repo.Save(ctx, *u); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}
