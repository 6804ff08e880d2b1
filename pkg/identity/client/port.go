package client

import (
	"context"

	"github.com/Abraxas-365/identity-core/pkg/kernel"
)

// Repository persists Application aggregates.
type Repository interface {
	Save(ctx context.Context, a Application) error
	FindByID(ctx context.Context, id kernel.ApplicationID) (*Application, error)
	FindByClientID(ctx context.Context, clientID string) (*Application, error)
	FindBySlug(ctx context.Context, slug string) (*Application, error)
	ListActive(ctx context.Context) ([]*Application, error)
	ListAll(ctx context.Context) ([]*Application, error)
	Delete(ctx context.Context, id kernel.ApplicationID) error
}
