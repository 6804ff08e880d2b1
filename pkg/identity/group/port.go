package group

import (
	"context"

	"github.com/Abraxas-365/identity-core/pkg/kernel"
)

// GroupRepository persists UserGroup aggregates and their membership.
type GroupRepository interface {
	Save(ctx context.Context, g UserGroup) error
	FindByID(ctx context.Context, id kernel.GroupID) (*UserGroup, error)
	FindByName(ctx context.Context, name string) (*UserGroup, error)
	ListAll(ctx context.Context) ([]*UserGroup, error)
	Delete(ctx context.Context, id kernel.GroupID) error

	AddMember(ctx context.Context, groupID kernel.GroupID, userID kernel.UserID) error
	RemoveMember(ctx context.Context, groupID kernel.GroupID, userID kernel.UserID) error
	Members(ctx context.Context, groupID kernel.GroupID) ([]kernel.UserID, error)
	GroupsForUser(ctx context.Context, userID kernel.UserID) ([]kernel.GroupID, error)
}

// AccessRepository persists ApplicationAccess grants.
type AccessRepository interface {
	Grant(ctx context.Context, grant ApplicationAccess) error
	Revoke(ctx context.Context, applicationID kernel.ApplicationID, userID *kernel.UserID, groupID *kernel.GroupID) error
	HasUserGrant(ctx context.Context, applicationID kernel.ApplicationID, userID kernel.UserID) (bool, error)
	HasGroupGrant(ctx context.Context, applicationID kernel.ApplicationID, groupIDs []kernel.GroupID) (bool, error)
	ListForApplication(ctx context.Context, applicationID kernel.ApplicationID) ([]ApplicationAccess, error)
}
