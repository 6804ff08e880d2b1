// Package groupsrv implements group CRUD, membership management, and the
// three-axis access-decision test: active, department gate, principal gate.
package groupsrv

import (
	"context"
	"sort"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/identity/client"
	"github.com/Abraxas-365/identity-core/pkg/identity/group"
	"github.com/Abraxas-365/identity-core/pkg/identity/user"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/google/uuid"
)

type Service struct {
	groups group.GroupRepository
	access group.AccessRepository
	apps   client.Repository
}

func NewService(groups group.GroupRepository, access group.AccessRepository, apps client.Repository) *Service {
	return &Service{groups: groups, access: access, apps: apps}
}

// CanAccess is the access-decision engine's conjunction of the three tests
// described for application visibility: active, department, principal.
func (s *Service) CanAccess(ctx context.Context, u *user.User, app *client.Application) (bool, error) {
	if !app.IsActive {
		return false, nil
	}
	if !app.DepartmentAllowed(u.Department) {
		return false, nil
	}
	return s.passesPrincipalGate(ctx, u, app)
}

func (s *Service) passesPrincipalGate(ctx context.Context, u *user.User, app *client.Application) (bool, error) {
	if app.IsPublic || u.IsAdmin {
		return true, nil
	}

	hasDirect, err := s.access.HasUserGrant(ctx, app.ID, u.ID)
	if err != nil {
		return false, err
	}
	if hasDirect {
		return true, nil
	}

	groupIDs, err := s.groups.GroupsForUser(ctx, u.ID)
	if err != nil {
		return false, err
	}
	return s.access.HasGroupGrant(ctx, app.ID, groupIDs)
}

// ListAccessible returns, sorted by name, every active application that
// passes all three access tests for u.
func (s *Service) ListAccessible(ctx context.Context, u *user.User) ([]*client.Application, error) {
	all, err := s.apps.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var accessible []*client.Application
	for _, app := range all {
		ok, err := s.CanAccess(ctx, u, app)
		if err != nil {
			return nil, err
		}
		if ok {
			accessible = append(accessible, app)
		}
	}

	sort.Slice(accessible, func(i, j int) bool { return accessible[i].Name < accessible[j].Name })
	return accessible, nil
}

// ---- Group CRUD and membership ----

func (s *Service) CreateGroup(ctx context.Context, name, color, description string) (*group.UserGroup, error) {
	if existing, _ := s.groups.FindByName(ctx, name); existing != nil {
		return nil, group.ErrNameTaken()
	}

	now := time.Now().UTC()
	g := group.UserGroup{
		ID:          kernel.NewGroupID(uuid.NewString()),
		Name:        name,
		Color:       color,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.groups.Save(ctx, g); err != nil {
		return nil, err
	}
	return &g, nil
}

type GroupUpdateRequest struct {
	Name        *string
	Color       *string
	Description *string
}

func (s *Service) UpdateGroup(ctx context.Context, id kernel.GroupID, req GroupUpdateRequest) (*group.UserGroup, error) {
	g, err := s.groups.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		g.Name = *req.Name
	}
	if req.Color != nil {
		g.Color = *req.Color
	}
	if req.Description != nil {
		g.Description = *req.Description
	}
	g.UpdatedAt = time.Now().UTC()

	if err := s.groups.Save(ctx, *g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) DeleteGroup(ctx context.Context, id kernel.GroupID) error {
	return s.groups.Delete(ctx, id)
}

func (s *Service) ListGroups(ctx context.Context) ([]*group.UserGroup, error) {
	return s.groups.ListAll(ctx)
}

func (s *Service) AddMember(ctx context.Context, groupID kernel.GroupID, userID kernel.UserID) error {
	return s.groups.AddMember(ctx, groupID, userID)
}

func (s *Service) RemoveMember(ctx context.Context, groupID kernel.GroupID, userID kernel.UserID) error {
	return s.groups.RemoveMember(ctx, groupID, userID)
}

// BulkSetMembership replaces nothing; it additively grants membership for
// every listed user, skipping ones already in the group (idempotent).
func (s *Service) BulkSetMembership(ctx context.Context, groupID kernel.GroupID, userIDs []kernel.UserID) (affected int, err error) {
	for _, uid := range userIDs {
		if err := s.groups.AddMember(ctx, groupID, uid); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}

func (s *Service) Members(ctx context.Context, groupID kernel.GroupID) ([]kernel.UserID, error) {
	return s.groups.Members(ctx, groupID)
}

// ---- Access grants ----

func (s *Service) GrantUserAccess(ctx context.Context, appID kernel.ApplicationID, userID kernel.UserID) error {
	return s.access.Grant(ctx, group.NewUserGrant(uuid.NewString(), appID, userID))
}

func (s *Service) GrantGroupAccess(ctx context.Context, appID kernel.ApplicationID, groupID kernel.GroupID) error {
	return s.access.Grant(ctx, group.NewGroupGrant(uuid.NewString(), appID, groupID))
}

func (s *Service) RevokeUserAccess(ctx context.Context, appID kernel.ApplicationID, userID kernel.UserID) error {
	return s.access.Revoke(ctx, appID, &userID, nil)
}

func (s *Service) RevokeGroupAccess(ctx context.Context, appID kernel.ApplicationID, groupID kernel.GroupID) error {
	return s.access.Revoke(ctx, appID, nil, &groupID)
}

func (s *Service) ListGrants(ctx context.Context, appID kernel.ApplicationID) ([]group.ApplicationAccess, error) {
	return s.access.ListForApplication(ctx, appID)
}
