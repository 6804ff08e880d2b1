package usersrv

import (
	"context"
	"testing"

	"github.com/Abraxas-365/identity-core/pkg/identity/user"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	byID    map[kernel.UserID]user.User
	byEmail map[string]kernel.UserID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[kernel.UserID]user.User), byEmail: make(map[string]kernel.UserID)}
}

func (f *fakeRepo) Save(ctx context.Context, u user.User) error {
	f.byID[u.ID] = u
	f.byEmail[user.NormalizeEmail(u.Email)] = u.ID
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id kernel.UserID) (*user.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, user.ErrNotFound()
	}
	return &u, nil
}

func (f *fakeRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	id, ok := f.byEmail[user.NormalizeEmail(email)]
	if !ok {
		return nil, user.ErrNotFound()
	}
	return f.FindByID(ctx, id)
}

func (f *fakeRepo) List(ctx context.Context, filter user.ListFilter, page kernel.PaginationOptions) (kernel.Paginated[user.User], error) {
	var items []user.User
	for _, u := range f.byID {
		items = append(items, u)
	}
	return kernel.NewPaginated(items, 1, len(items), len(items)), nil
}

func (f *fakeRepo) Delete(ctx context.Context, id kernel.UserID) error {
	delete(f.byID, id)
	return nil
}

func TestProvisionFromSSO_CreatesOnFirstLogin(t *testing.T) {
	svc := NewService(newFakeRepo())

	u, err := svc.ProvisionFromSSO(context.Background(), UpstreamClaims{
		Email:       "Ada.Lovelace@example.com",
		DisplayName: "Ada Lovelace",
		Department:  "Engineering",
	})

	require.NoError(t, err)
	assert.Equal(t, "ada.lovelace@example.com", u.Email)
	assert.True(t, u.IsActive)
	assert.NotNil(t, u.LastLoginAt)
}

func TestProvisionFromSSO_UpdatesOnSubsequentLogin(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	first, err := svc.ProvisionFromSSO(ctx, UpstreamClaims{Email: "grace@example.com", Department: "Engineering"})
	require.NoError(t, err)

	second, err := svc.ProvisionFromSSO(ctx, UpstreamClaims{Email: "grace@example.com", Department: "Platform"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "same upstream identity resolves to the same local user")
	assert.Equal(t, "Platform", second.Department)
}

func TestProvisionFromSSO_RejectsEmptyEmail(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.ProvisionFromSSO(context.Background(), UpstreamClaims{Email: "  "})
	assert.Error(t, err)
}

func TestUpdate_AppliesOnlyProvidedFields(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	u, err := svc.ProvisionFromSSO(ctx, UpstreamClaims{Email: "amy@example.com", DisplayName: "Amy"})
	require.NoError(t, err)

	newDept := "Finance"
	updated, err := svc.Update(ctx, u.ID, UpdateRequest{Department: &newDept})
	require.NoError(t, err)

	assert.Equal(t, "Finance", updated.Department)
	assert.Equal(t, "Amy", updated.DisplayName, "untouched fields are preserved")
}

func TestBulkAction_SkipsMissingUsers(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	u, err := svc.ProvisionFromSSO(ctx, UpstreamClaims{Email: "bob@example.com"})
	require.NoError(t, err)

	affected, err := svc.BulkAction(ctx, []kernel.UserID{u.ID, kernel.NewUserID("missing")}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)
}
