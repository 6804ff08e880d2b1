// Package auditsrv provides the write paths admin mutations and login
// attempts use to append to the audit trail.
package auditsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/identity/audit"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/Abraxas-365/identity-core/pkg/logx"
	"github.com/google/uuid"
)

type Service struct {
	audits audit.Repository
	logins audit.LoginRepository
}

func NewService(audits audit.Repository, logins audit.LoginRepository) *Service {
	return &Service{audits: audits, logins: logins}
}

// MutationInput is what a caller supplies to describe an admin action; ID,
// and CreatedAt are filled in here.
type MutationInput struct {
	ActorID    *kernel.UserID
	Action     string
	EntityType string
	EntityID   string
	OldValues  map[string]interface{}
	NewValues  map[string]interface{}
	IPAddress  string
	UserAgent  string
}

// RecordMutation writes an AuditLog row. Callers that need the write to
// share a transaction with the mutation it describes should run this
// inside a kernel.TxRunner block so the ambient tx on ctx is picked up by
// the repository.
func (s *Service) RecordMutation(ctx context.Context, in MutationInput) error {
	return s.audits.Record(ctx, audit.AuditLog{
		ID:         uuid.NewString(),
		UserID:     in.ActorID,
		Action:     in.Action,
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		OldValues:  in.OldValues,
		NewValues:  in.NewValues,
		IPAddress:  in.IPAddress,
		UserAgent:  in.UserAgent,
		CreatedAt:  time.Now(),
	})
}

func (s *Service) ListAudit(ctx context.Context, filter audit.AuditFilter, page kernel.PaginationOptions) (kernel.Paginated[audit.AuditLog], error) {
	return s.audits.List(ctx, filter, page)
}

// LoginInput describes one authentication decision, successful or not.
type LoginInput struct {
	UserID        *kernel.UserID
	LoginType     audit.LoginType
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
}

// RecordLogin is best-effort: a failure here must never fail the login it
// is describing. It logs the write failure to stderr and returns nothing
// for the caller to handle.
func (s *Service) RecordLogin(ctx context.Context, in LoginInput) {
	err := s.logins.Record(ctx, audit.LoginHistory{
		ID:            uuid.NewString(),
		UserID:        in.UserID,
		LoginType:     in.LoginType,
		IPAddress:     in.IPAddress,
		UserAgent:     in.UserAgent,
		Success:       in.Success,
		FailureReason: in.FailureReason,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		logx.WithError(err).Error("failed to write login history row")
	}
}

func (s *Service) ListLogins(ctx context.Context, filter audit.LoginFilter, page kernel.PaginationOptions) (kernel.Paginated[audit.LoginHistory], error) {
	return s.logins.List(ctx, filter, page)
}
