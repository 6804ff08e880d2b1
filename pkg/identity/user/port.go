package user

import (
	"context"

	"github.com/Abraxas-365/identity-core/pkg/kernel"
)

// ListFilter narrows admin user listings.
type ListFilter struct {
	Department string
	IsActive   *bool
	Search     string // matches email or display name, case-insensitive
}

// Repository persists User aggregates.
type Repository interface {
	Save(ctx context.Context, u User) error
	FindByID(ctx context.Context, id kernel.UserID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, filter ListFilter, page kernel.PaginationOptions) (kernel.Paginated[User], error)
	Delete(ctx context.Context, id kernel.UserID) error
}
