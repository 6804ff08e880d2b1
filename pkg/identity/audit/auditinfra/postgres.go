// Package auditinfra implements audit's repositories against PostgreSQL.
package auditinfra

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/identity/audit"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// PostgresAuditRepository implements audit.Repository.
type PostgresAuditRepository struct {
	db *sqlx.DB
}

func NewPostgresAuditRepository(db *sqlx.DB) audit.Repository {
	return &PostgresAuditRepository{db: db}
}

func (r *PostgresAuditRepository) Record(ctx context.Context, entry audit.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, user_id, action, entity_type, entity_id, old_values, new_values,
			ip_address, user_agent, created_at
		) VALUES (
			:id, :user_id, :action, :entity_type, :entity_id, :old_values, :new_values,
			:ip_address, :user_agent, :created_at
		)`

	p, err := toAuditPersistence(entry)
	if err != nil {
		return errx.Wrap(err, "failed to encode audit log", errx.TypeInternal)
	}

	if tx, ok := kernel.TxFromContext(ctx); ok {
		_, err = tx.NamedExecContext(ctx, query, p)
	} else {
		_, err = r.db.NamedExecContext(ctx, query, p)
	}
	if err != nil {
		return errx.Wrap(err, "failed to record audit log", errx.TypeInternal)
	}
	return nil
}

func (r *PostgresAuditRepository) List(ctx context.Context, filter audit.AuditFilter, page kernel.PaginationOptions) (kernel.Paginated[audit.AuditLog], error) {
	var where []string
	var args []interface{}

	if filter.Action != "" {
		args = append(args, filter.Action)
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		where = append(where, fmt.Sprintf("entity_type = $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, filter.UserID.String())
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM audit_logs "+whereClause, args...); err != nil {
		return kernel.Paginated[audit.AuditLog]{}, errx.Wrap(err, "failed to count audit logs", errx.TypeInternal)
	}

	pageSize, pageNum := normalizePage(page)
	offset := (pageNum - 1) * pageSize
	args = append(args, pageSize, offset)

	query := fmt.Sprintf(
		"SELECT * FROM audit_logs %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		whereClause, len(args)-1, len(args),
	)

	var rows []auditPersistence
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return kernel.Paginated[audit.AuditLog]{}, errx.Wrap(err, "failed to list audit logs", errx.TypeInternal)
	}

	items := make([]audit.AuditLog, len(rows))
	for i, p := range rows {
		items[i] = toAuditDomain(p)
	}
	return kernel.NewPaginated(items, pageNum, pageSize, total), nil
}

type auditPersistence struct {
	ID         string    `db:"id"`
	UserID     *string   `db:"user_id"`
	Action     string    `db:"action"`
	EntityType string    `db:"entity_type"`
	EntityID   string    `db:"entity_id"`
	OldValues  []byte    `db:"old_values"`
	NewValues  []byte    `db:"new_values"`
	IPAddress  string    `db:"ip_address"`
	UserAgent  string    `db:"user_agent"`
	CreatedAt  time.Time `db:"created_at"`
}

func toAuditPersistence(a audit.AuditLog) (auditPersistence, error) {
	var userID *string
	if a.UserID != nil {
		s := a.UserID.String()
		userID = &s
	}
	oldValues, err := json.Marshal(a.OldValues)
	if err != nil {
		return auditPersistence{}, err
	}
	newValues, err := json.Marshal(a.NewValues)
	if err != nil {
		return auditPersistence{}, err
	}
	return auditPersistence{
		ID:         a.ID,
		UserID:     userID,
		Action:     a.Action,
		EntityType: a.EntityType,
		EntityID:   a.EntityID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  a.IPAddress,
		UserAgent:  a.UserAgent,
		CreatedAt:  a.CreatedAt,
	}, nil
}

func toAuditDomain(p auditPersistence) audit.AuditLog {
	var userID *kernel.UserID
	if p.UserID != nil {
		id := kernel.NewUserID(*p.UserID)
		userID = &id
	}
	var oldValues, newValues map[string]interface{}
	_ = json.Unmarshal(p.OldValues, &oldValues)
	_ = json.Unmarshal(p.NewValues, &newValues)

	return audit.AuditLog{
		ID:         p.ID,
		UserID:     userID,
		Action:     p.Action,
		EntityType: p.EntityType,
		EntityID:   p.EntityID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  p.IPAddress,
		UserAgent:  p.UserAgent,
		CreatedAt:  p.CreatedAt,
	}
}

func normalizePage(page kernel.PaginationOptions) (size, num int) {
	size = page.PageSize
	if size <= 0 {
		size = 20
	}
	num = page.Page
	if num <= 0 {
		num = 1
	}
	return size, num
}
