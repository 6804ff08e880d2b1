package groupsrv

import (
	"context"
	"testing"

	"github.com/Abraxas-365/identity-core/pkg/identity/client"
	"github.com/Abraxas-365/identity-core/pkg/identity/group"
	"github.com/Abraxas-365/identity-core/pkg/identity/user"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- in-memory fakes ----

type fakeGroupRepo struct {
	groups  map[kernel.GroupID]group.UserGroup
	members map[kernel.GroupID]map[kernel.UserID]bool
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{
		groups:  make(map[kernel.GroupID]group.UserGroup),
		members: make(map[kernel.GroupID]map[kernel.UserID]bool),
	}
}

func (f *fakeGroupRepo) Save(ctx context.Context, g group.UserGroup) error {
	f.groups[g.ID] = g
	return nil
}
func (f *fakeGroupRepo) FindByID(ctx context.Context, id kernel.GroupID) (*group.UserGroup, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, group.ErrNotFound()
	}
	return &g, nil
}
func (f *fakeGroupRepo) FindByName(ctx context.Context, name string) (*group.UserGroup, error) {
	for _, g := range f.groups {
		if g.Name == name {
			return &g, nil
		}
	}
	return nil, group.ErrNotFound()
}
func (f *fakeGroupRepo) ListAll(ctx context.Context) ([]*group.UserGroup, error) {
	var out []*group.UserGroup
	for _, g := range f.groups {
		g := g
		out = append(out, &g)
	}
	return out, nil
}
func (f *fakeGroupRepo) Delete(ctx context.Context, id kernel.GroupID) error {
	delete(f.groups, id)
	return nil
}
func (f *fakeGroupRepo) AddMember(ctx context.Context, groupID kernel.GroupID, userID kernel.UserID) error {
	if f.members[groupID] == nil {
		f.members[groupID] = make(map[kernel.UserID]bool)
	}
	f.members[groupID][userID] = true
	return nil
}
func (f *fakeGroupRepo) RemoveMember(ctx context.Context, groupID kernel.GroupID, userID kernel.UserID) error {
	delete(f.members[groupID], userID)
	return nil
}
func (f *fakeGroupRepo) Members(ctx context.Context, groupID kernel.GroupID) ([]kernel.UserID, error) {
	var out []kernel.UserID
	for uid := range f.members[groupID] {
		out = append(out, uid)
	}
	return out, nil
}
func (f *fakeGroupRepo) GroupsForUser(ctx context.Context, userID kernel.UserID) ([]kernel.GroupID, error) {
	var out []kernel.GroupID
	for gid, members := range f.members {
		if members[userID] {
			out = append(out, gid)
		}
	}
	return out, nil
}

type fakeAccessRepo struct {
	userGrants  map[string]bool // appID|userID
	groupGrants map[string]bool // appID|groupID
}

func newFakeAccessRepo() *fakeAccessRepo {
	return &fakeAccessRepo{userGrants: make(map[string]bool), groupGrants: make(map[string]bool)}
}

func (f *fakeAccessRepo) Grant(ctx context.Context, g group.ApplicationAccess) error {
	if g.UserID != nil {
		f.userGrants[g.ApplicationID.String()+"|"+g.UserID.String()] = true
	}
	if g.GroupID != nil {
		f.groupGrants[g.ApplicationID.String()+"|"+g.GroupID.String()] = true
	}
	return nil
}
func (f *fakeAccessRepo) Revoke(ctx context.Context, appID kernel.ApplicationID, userID *kernel.UserID, groupID *kernel.GroupID) error {
	if userID != nil {
		delete(f.userGrants, appID.String()+"|"+userID.String())
	}
	if groupID != nil {
		delete(f.groupGrants, appID.String()+"|"+groupID.String())
	}
	return nil
}
func (f *fakeAccessRepo) HasUserGrant(ctx context.Context, appID kernel.ApplicationID, userID kernel.UserID) (bool, error) {
	return f.userGrants[appID.String()+"|"+userID.String()], nil
}
func (f *fakeAccessRepo) HasGroupGrant(ctx context.Context, appID kernel.ApplicationID, groupIDs []kernel.GroupID) (bool, error) {
	for _, gid := range groupIDs {
		if f.groupGrants[appID.String()+"|"+gid.String()] {
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeAccessRepo) ListForApplication(ctx context.Context, appID kernel.ApplicationID) ([]group.ApplicationAccess, error) {
	return nil, nil
}

type fakeAppRepo struct {
	apps map[kernel.ApplicationID]client.Application
}

func (f *fakeAppRepo) Save(ctx context.Context, a client.Application) error { f.apps[a.ID] = a; return nil }
func (f *fakeAppRepo) FindByID(ctx context.Context, id kernel.ApplicationID) (*client.Application, error) {
	a, ok := f.apps[id]
	if !ok {
		return nil, client.ErrNotFound()
	}
	return &a, nil
}
func (f *fakeAppRepo) FindByClientID(ctx context.Context, clientID string) (*client.Application, error) {
	return nil, client.ErrNotFound()
}
func (f *fakeAppRepo) FindBySlug(ctx context.Context, slug string) (*client.Application, error) {
	return nil, client.ErrNotFound()
}
func (f *fakeAppRepo) ListActive(ctx context.Context) ([]*client.Application, error) {
	var out []*client.Application
	for _, a := range f.apps {
		a := a
		if a.IsActive {
			out = append(out, &a)
		}
	}
	return out, nil
}
func (f *fakeAppRepo) ListAll(ctx context.Context) ([]*client.Application, error) { return f.ListActive(ctx) }
func (f *fakeAppRepo) Delete(ctx context.Context, id kernel.ApplicationID) error  { delete(f.apps, id); return nil }

func newService() (*Service, *fakeGroupRepo, *fakeAccessRepo, *fakeAppRepo) {
	groups := newFakeGroupRepo()
	access := newFakeAccessRepo()
	apps := &fakeAppRepo{apps: make(map[kernel.ApplicationID]client.Application)}
	return NewService(groups, access, apps), groups, access, apps
}

func testApp(active, public bool, departments []string) client.Application {
	return client.Application{
		ID:                 kernel.NewApplicationID("app-1"),
		Name:               "Test App",
		IsActive:           active,
		IsPublic:           public,
		AllowedDepartments: departments,
	}
}

func TestCanAccess_InactiveApplicationAlwaysDenied(t *testing.T) {
	svc, _, _, _ := newService()
	app := testApp(false, true, nil)
	u := &user.User{ID: kernel.NewUserID("u1")}

	ok, err := svc.CanAccess(context.Background(), u, &app)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanAccess_DepartmentGateBlocksNonMember(t *testing.T) {
	svc, _, _, _ := newService()
	app := testApp(true, true, []string{"Finance"})
	u := &user.User{ID: kernel.NewUserID("u1"), Department: "Engineering"}

	ok, err := svc.CanAccess(context.Background(), u, &app)
	require.NoError(t, err)
	assert.False(t, ok, "public flag does not bypass the departmental gate")
}

func TestCanAccess_PublicApplicationAdmitsAnyDepartmentMember(t *testing.T) {
	svc, _, _, _ := newService()
	app := testApp(true, true, []string{"Finance"})
	u := &user.User{ID: kernel.NewUserID("u1"), Department: "Finance"}

	ok, err := svc.CanAccess(context.Background(), u, &app)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanAccess_AdminBypassesPrincipalGate(t *testing.T) {
	svc, _, _, _ := newService()
	app := testApp(true, false, nil)
	u := &user.User{ID: kernel.NewUserID("u1"), IsAdmin: true}

	ok, err := svc.CanAccess(context.Background(), u, &app)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanAccess_DirectGrantAdmits(t *testing.T) {
	svc, _, access, _ := newService()
	app := testApp(true, false, nil)
	u := &user.User{ID: kernel.NewUserID("u1")}

	ok, _ := svc.CanAccess(context.Background(), u, &app)
	assert.False(t, ok, "no grant yet")

	require.NoError(t, access.Grant(context.Background(), group.NewUserGrant("g1", app.ID, u.ID)))

	ok, err := svc.CanAccess(context.Background(), u, &app)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanAccess_GroupGrantAdmitsMember(t *testing.T) {
	svc, groups, access, _ := newService()
	app := testApp(true, false, nil)
	u := &user.User{ID: kernel.NewUserID("u1")}
	gid := kernel.NewGroupID("group-1")

	require.NoError(t, groups.AddMember(context.Background(), gid, u.ID))
	require.NoError(t, access.Grant(context.Background(), group.NewGroupGrant("a1", app.ID, gid)))

	ok, err := svc.CanAccess(context.Background(), u, &app)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanAccess_NoGrantDeniesOrdinaryUser(t *testing.T) {
	svc, _, _, _ := newService()
	app := testApp(true, false, nil)
	u := &user.User{ID: kernel.NewUserID("u1")}

	ok, err := svc.CanAccess(context.Background(), u, &app)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListAccessible_SortsByName(t *testing.T) {
	svc, _, _, apps := newService()
	u := &user.User{ID: kernel.NewUserID("u1")}

	appB := testApp(true, true, nil)
	appB.ID, appB.Name = kernel.NewApplicationID("b"), "Bravo"
	appA := testApp(true, true, nil)
	appA.ID, appA.Name = kernel.NewApplicationID("a"), "Alpha"
	apps.apps[appB.ID] = appB
	apps.apps[appA.ID] = appA

	list, err := svc.ListAccessible(context.Background(), u)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alpha", list[0].Name)
	assert.Equal(t, "Bravo", list[1].Name)
}

func TestGrantUserAccess_IsIdempotent(t *testing.T) {
	svc, _, access, _ := newService()
	appID := kernel.NewApplicationID("app-1")
	uid := kernel.NewUserID("u1")

	require.NoError(t, svc.GrantUserAccess(context.Background(), appID, uid))
	require.NoError(t, svc.GrantUserAccess(context.Background(), appID, uid))

	has, err := access.HasUserGrant(context.Background(), appID, uid)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestRevokeUserAccess_AbsentGrantIsNoOp(t *testing.T) {
	svc, _, _, _ := newService()
	err := svc.RevokeUserAccess(context.Background(), kernel.NewApplicationID("app-1"), kernel.NewUserID("ghost"))
	assert.NoError(t, err)
}
