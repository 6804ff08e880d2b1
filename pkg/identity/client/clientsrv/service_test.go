package clientsrv

import (
	"context"
	"testing"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/identity/client"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	byID   map[kernel.ApplicationID]client.Application
	bySlug map[string]kernel.ApplicationID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[kernel.ApplicationID]client.Application), bySlug: make(map[string]kernel.ApplicationID)}
}

func (f *fakeRepo) Save(ctx context.Context, a client.Application) error {
	f.byID[a.ID] = a
	f.bySlug[a.Slug] = a.ID
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id kernel.ApplicationID) (*client.Application, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, client.ErrNotFound()
	}
	return &a, nil
}

func (f *fakeRepo) FindByClientID(ctx context.Context, clientID string) (*client.Application, error) {
	for _, a := range f.byID {
		if a.ClientID == clientID {
			return &a, nil
		}
	}
	return nil, client.ErrNotFound()
}

func (f *fakeRepo) FindBySlug(ctx context.Context, slug string) (*client.Application, error) {
	id, ok := f.bySlug[slug]
	if !ok {
		return nil, client.ErrNotFound()
	}
	return f.FindByID(ctx, id)
}

func (f *fakeRepo) ListActive(ctx context.Context) ([]*client.Application, error) {
	var out []*client.Application
	for _, a := range f.byID {
		a := a
		if a.IsActive {
			out = append(out, &a)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListAll(ctx context.Context) ([]*client.Application, error) {
	var out []*client.Application
	for _, a := range f.byID {
		a := a
		out = append(out, &a)
	}
	return out, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id kernel.ApplicationID) error {
	delete(f.byID, id)
	return nil
}

func TestCreate_GeneratesSecretOnce(t *testing.T) {
	svc := NewService(newFakeRepo())

	result, err := svc.Create(context.Background(), CreateRequest{
		Name:         "Timesheet Portal",
		Slug:         "timesheet",
		RedirectURIs: []string{"https://timesheet.internal/callback"},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.ClientSecret)
	assert.NotEqual(t, result.ClientSecret, result.Application.ClientSecretHash)
	assert.True(t, client.VerifySecret(result.Application.ClientSecretHash, result.ClientSecret))
}

func TestCreate_RejectsDuplicateSlug(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{Name: "A", Slug: "dup"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateRequest{Name: "B", Slug: "dup"})
	require.Error(t, err)
	assert.Equal(t, client.CodeSlugTaken.Code, err.(*errx.Error).Code)
}

func TestRegenerateSecret_InvalidatesOldSecret(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRequest{Name: "A", Slug: "a"})
	require.NoError(t, err)

	regenerated, err := svc.RegenerateSecret(ctx, created.Application.ID)
	require.NoError(t, err)

	assert.NotEqual(t, created.ClientSecret, regenerated.ClientSecret)
	assert.False(t, client.VerifySecret(regenerated.Application.ClientSecretHash, created.ClientSecret))
}

func TestListVisibleTo_FiltersByDepartment(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{Name: "Open", Slug: "open"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{Name: "Restricted", Slug: "restricted", AllowedDepartments: []string{"Finance"}})
	require.NoError(t, err)

	visible, err := svc.ListVisibleTo(ctx, "Engineering")
	require.NoError(t, err)

	var names []string
	for _, a := range visible {
		names = append(names, a.Name)
	}
	assert.Contains(t, names, "Open")
	assert.NotContains(t, names, "Restricted")
}

func TestAuthenticateClient_RejectsWrongSecret(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRequest{Name: "A", Slug: "a"})
	require.NoError(t, err)

	_, err = svc.AuthenticateClient(ctx, created.Application.ClientID, "wrong-secret")
	require.Error(t, err)
	assert.Equal(t, client.CodeBadSecret.Code, err.(*errx.Error).Code)
}

func TestAuthenticateClient_PublicClientsSkipSecretCheck(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRequest{Name: "SPA", Slug: "spa", IsPublic: true})
	require.NoError(t, err)

	app, err := svc.AuthenticateClient(ctx, created.Application.ClientID, "")
	require.NoError(t, err)
	assert.True(t, app.IsPublic)
}
