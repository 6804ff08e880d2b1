package auditinfra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/identity/audit"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// PostgresLoginRepository implements audit.LoginRepository.
type PostgresLoginRepository struct {
	db *sqlx.DB
}

func NewPostgresLoginRepository(db *sqlx.DB) audit.LoginRepository {
	return &PostgresLoginRepository{db: db}
}

func (r *PostgresLoginRepository) Record(ctx context.Context, entry audit.LoginHistory) error {
	query := `
		INSERT INTO login_history (
			id, user_id, login_type, ip_address, user_agent, success, failure_reason, created_at
		) VALUES (
			:id, :user_id, :login_type, :ip_address, :user_agent, :success, :failure_reason, :created_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, toLoginPersistence(entry))
	if err != nil {
		return errx.Wrap(err, "failed to record login history", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresLoginRepository) List(ctx context.Context, filter audit.LoginFilter, page kernel.PaginationOptions) (kernel.Paginated[audit.LoginHistory], error) {
	var where []string
	var args []interface{}

	if filter.UserID != nil {
		args = append(args, filter.UserID.String())
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.LoginType != "" {
		args = append(args, string(filter.LoginType))
		where = append(where, fmt.Sprintf("login_type = $%d", len(args)))
	}
	if filter.Success != nil {
		args = append(args, *filter.Success)
		where = append(where, fmt.Sprintf("success = $%d", len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM login_history "+whereClause, args...); err != nil {
		return kernel.Paginated[audit.LoginHistory]{}, errx.Wrap(err, "failed to count login history", errx.TypeInternal)
	}

	pageSize, pageNum := normalizePage(page)
	offset := (pageNum - 1) * pageSize
	args = append(args, pageSize, offset)

	query := fmt.Sprintf(
		"SELECT * FROM login_history %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		whereClause, len(args)-1, len(args),
	)

	var rows []loginPersistence
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return kernel.Paginated[audit.LoginHistory]{}, errx.Wrap(err, "failed to list login history", errx.TypeInternal)
	}

	items := make([]audit.LoginHistory, len(rows))
	for i, p := range rows {
		items[i] = toLoginDomain(p)
	}
	return kernel.NewPaginated(items, pageNum, pageSize, total), nil
}

type loginPersistence struct {
	ID            string    `db:"id"`
	UserID        *string   `db:"user_id"`
	LoginType     string    `db:"login_type"`
	IPAddress     string    `db:"ip_address"`
	UserAgent     string    `db:"user_agent"`
	Success       bool      `db:"success"`
	FailureReason string    `db:"failure_reason"`
	CreatedAt     time.Time `db:"created_at"`
}

func toLoginPersistence(l audit.LoginHistory) loginPersistence {
	var userID *string
	if l.UserID != nil {
		s := l.UserID.String()
		userID = &s
	}
	return loginPersistence{
		ID:            l.ID,
		UserID:        userID,
		LoginType:     string(l.LoginType),
		IPAddress:     l.IPAddress,
		UserAgent:     l.UserAgent,
		Success:       l.Success,
		FailureReason: l.FailureReason,
		CreatedAt:     l.CreatedAt,
	}
}

func toLoginDomain(p loginPersistence) audit.LoginHistory {
	var userID *kernel.UserID
	if p.UserID != nil {
		id := kernel.NewUserID(*p.UserID)
		userID = &id
	}
	return audit.LoginHistory{
		ID:            p.ID,
		UserID:        userID,
		LoginType:     audit.LoginType(p.LoginType),
		IPAddress:     p.IPAddress,
		UserAgent:     p.UserAgent,
		Success:       p.Success,
		FailureReason: p.FailureReason,
		CreatedAt:     p.CreatedAt,
	}
}
