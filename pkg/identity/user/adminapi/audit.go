package adminapi

import (
	"github.com/Abraxas-365/identity-core/pkg/identity/audit"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

type auditLogBody struct {
	ID         string                 `json:"id"`
	UserID     *string                `json:"user_id,omitempty"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	OldValues  map[string]interface{} `json:"old_values,omitempty"`
	NewValues  map[string]interface{} `json:"new_values,omitempty"`
	CreatedAt  string                 `json:"created_at"`
}

func toAuditBody(a audit.AuditLog) auditLogBody {
	body := auditLogBody{
		ID:         a.ID,
		Action:     a.Action,
		EntityType: a.EntityType,
		EntityID:   a.EntityID,
		OldValues:  a.OldValues,
		NewValues:  a.NewValues,
		CreatedAt:  a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if a.UserID != nil {
		s := a.UserID.String()
		body.UserID = &s
	}
	return body
}

func (h *Handlers) ListAuditLogs(c *fiber.Ctx) error {
	var userID *kernel.UserID
	if v := c.Query("user_id"); v != "" {
		id := kernel.NewUserID(v)
		userID = &id
	}

	result, err := h.audits.ListAudit(c.Context(), audit.AuditFilter{
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		UserID:     userID,
	}, pageFromQuery(c))
	if err != nil {
		return err
	}

	items := make([]auditLogBody, 0, len(result.Items))
	for _, a := range result.Items {
		items = append(items, toAuditBody(a))
	}
	return c.JSON(fiber.Map{"items": items, "pagination": result.Page})
}

type loginHistoryBody struct {
	ID            string  `json:"id"`
	UserID        *string `json:"user_id,omitempty"`
	LoginType     string  `json:"login_type"`
	Success       bool    `json:"success"`
	FailureReason string  `json:"failure_reason,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func (h *Handlers) ListLoginHistory(c *fiber.Ctx) error {
	var userID *kernel.UserID
	if v := c.Query("user_id"); v != "" {
		id := kernel.NewUserID(v)
		userID = &id
	}
	var success *bool
	if v := c.Query("success"); v != "" {
		b := v == "true"
		success = &b
	}

	result, err := h.audits.ListLogins(c.Context(), audit.LoginFilter{
		UserID:    userID,
		LoginType: audit.LoginType(c.Query("login_type")),
		Success:   success,
	}, pageFromQuery(c))
	if err != nil {
		return err
	}

	items := make([]loginHistoryBody, 0, len(result.Items))
	for _, l := range result.Items {
		body := loginHistoryBody{
			ID:            l.ID,
			LoginType:     string(l.LoginType),
			Success:       l.Success,
			FailureReason: l.FailureReason,
			CreatedAt:     l.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if l.UserID != nil {
			s := l.UserID.String()
			body.UserID = &s
		}
		items = append(items, body)
	}
	return c.JSON(fiber.Map{"items": items, "pagination": result.Page})
}
