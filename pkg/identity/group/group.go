// Package group implements the access-decision engine: named user groups,
// application grants, and the three-axis "may user U use application A?"
// test.
package group

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("GROUP")

var (
	CodeNotFound      = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Group not found")
	CodeNameTaken     = ErrRegistry.Register("NAME_TAKEN", errx.TypeConflict, http.StatusConflict, "Group with this name already exists")
	CodeInvalidGrant  = ErrRegistry.Register("INVALID_GRANT", errx.TypeValidation, http.StatusBadRequest, "Grant must target exactly one of user or group")
)

func ErrNotFound() *errx.Error     { return ErrRegistry.New(CodeNotFound) }
func ErrNameTaken() *errx.Error    { return ErrRegistry.New(CodeNameTaken) }
func ErrInvalidGrant() *errx.Error { return ErrRegistry.New(CodeInvalidGrant) }

// UserGroup is a named set of users, used solely to fan out application
// access grants to many people at once.
type UserGroup struct {
	ID          kernel.GroupID
	Name        string
	Color       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApplicationAccess is a grant row: exactly one of UserID/GroupID is set.
type ApplicationAccess struct {
	ID            string
	ApplicationID kernel.ApplicationID
	UserID        *kernel.UserID
	GroupID       *kernel.GroupID
	CreatedAt     time.Time
}

// NewUserGrant builds a direct user grant.
func NewUserGrant(id string, appID kernel.ApplicationID, userID kernel.UserID) ApplicationAccess {
	return ApplicationAccess{ID: id, ApplicationID: appID, UserID: &userID, CreatedAt: time.Now().UTC()}
}

// NewGroupGrant builds a group grant.
func NewGroupGrant(id string, appID kernel.ApplicationID, groupID kernel.GroupID) ApplicationAccess {
	return ApplicationAccess{ID: id, ApplicationID: appID, GroupID: &groupID, CreatedAt: time.Now().UTC()}
}
