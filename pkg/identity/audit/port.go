package audit

import (
	"context"

	"github.com/Abraxas-365/identity-core/pkg/kernel"
)

// Repository persists AuditLog rows. Record must participate in an ambient
// transaction attached via kernel.WithTx when one is present, so that the
// audit row commits or rolls back atomically with the mutation it
// describes.
type Repository interface {
	Record(ctx context.Context, entry AuditLog) error
	List(ctx context.Context, filter AuditFilter, page kernel.PaginationOptions) (kernel.Paginated[AuditLog], error)
}

// LoginRepository persists LoginHistory rows. Writes are always best-effort
// from the caller's perspective — see auditsrv.Service.RecordLogin.
type LoginRepository interface {
	Record(ctx context.Context, entry LoginHistory) error
	List(ctx context.Context, filter LoginFilter, page kernel.PaginationOptions) (kernel.Paginated[LoginHistory], error)
}
