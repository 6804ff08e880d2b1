// Package adminapi exposes the admin surface: user management, group
// CRUD and membership, application access grants, and audit/login-history
// listing. Every route here must be mounted behind sessionsrv.RequireAdmin().
package adminapi

import (
	"context"

	"github.com/Abraxas-365/identity-core/pkg/identity/audit/auditsrv"
	"github.com/Abraxas-365/identity-core/pkg/identity/client/clientsrv"
	"github.com/Abraxas-365/identity-core/pkg/identity/group/groupsrv"
	"github.com/Abraxas-365/identity-core/pkg/identity/session/sessionsrv"
	"github.com/Abraxas-365/identity-core/pkg/identity/user"
	"github.com/Abraxas-365/identity-core/pkg/identity/user/usersrv"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	users   *usersrv.Service
	groups  *groupsrv.Service
	clients *clientsrv.Service
	audits  *auditsrv.Service
	tx      kernel.Transactor
}

func NewHandlers(users *usersrv.Service, groups *groupsrv.Service, clients *clientsrv.Service, audits *auditsrv.Service, tx kernel.Transactor) *Handlers {
	return &Handlers{users: users, groups: groups, clients: clients, audits: audits, tx: tx}
}

func (h *Handlers) RegisterRoutes(app fiber.Router) {
	g := app.Group("/api/admin")

	g.Get("/users", h.ListUsers)
	g.Get("/users/:id", h.GetUser)
	g.Put("/users/:id", h.UpdateUser)
	g.Post("/users/bulk-action", h.BulkUserAction)

	g.Get("/groups", h.ListGroups)
	g.Post("/groups", h.CreateGroup)
	g.Put("/groups/:id", h.UpdateGroup)
	g.Delete("/groups/:id", h.DeleteGroup)
	g.Get("/groups/:id/members", h.GroupMembers)
	g.Post("/groups/:id/members", h.AddMember)
	g.Delete("/groups/:id/members/:userID", h.RemoveMember)
	g.Post("/groups/:id/members/bulk", h.BulkMembership)

	g.Get("/applications/:id/access", h.ListAccess)
	g.Post("/applications/:id/access/grant", h.GrantAccess)
	g.Post("/applications/:id/access/revoke", h.RevokeAccess)

	g.Get("/audit-logs", h.ListAuditLogs)
	g.Get("/login-history", h.ListLoginHistory)
	g.Get("/stats", h.Stats)
}

// audit writes the AuditLog row for a mutation. Callers run it inside the
// same h.tx.RunInTx block as the mutation it describes, so ctx carries the
// mutation's ambient transaction and the two commit or roll back together.
func (h *Handlers) audit(ctx context.Context, c *fiber.Ctx, action, entityType, entityID string, before, after map[string]interface{}) error {
	ac, _ := sessionsrv.GetAuthContext(c)
	var actor *kernel.UserID
	if ac != nil {
		actor = &ac.UserID
	}
	return h.audits.RecordMutation(ctx, auditsrv.MutationInput{
		ActorID:    actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		OldValues:  before,
		NewValues:  after,
		IPAddress:  c.IP(),
		UserAgent:  string(c.Context().UserAgent()),
	})
}

func pageFromQuery(c *fiber.Ctx) kernel.PaginationOptions {
	return kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 25),
	}
}

// ---- Users ----

type userBody struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Department  string   `json:"department"`
	JobTitle    string   `json:"job_title"`
	Groups      []string `json:"groups,omitempty"`
	IsActive    bool     `json:"is_active"`
	IsAdmin     bool     `json:"is_admin"`
}

func toUserBody(u *user.User) userBody {
	return userBody{
		ID:          u.ID.String(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Department:  u.Department,
		JobTitle:    u.JobTitle,
		Groups:      u.UpstreamGroups,
		IsActive:    u.IsActive,
		IsAdmin:     u.IsAdmin,
	}
}

func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	var isActive *bool
	if v := c.Query("is_active"); v != "" {
		b := v == "true"
		isActive = &b
	}

	result, err := h.users.List(c.Context(), user.ListFilter{
		Department: c.Query("department"),
		IsActive:   isActive,
		Search:     c.Query("search"),
	}, pageFromQuery(c))
	if err != nil {
		return err
	}

	items := make([]userBody, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, toUserBody(&result.Items[i]))
	}
	return c.JSON(fiber.Map{"items": items, "pagination": result.Page})
}

func (h *Handlers) GetUser(c *fiber.Ctx) error {
	u, err := h.users.GetByID(c.Context(), kernel.NewUserID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(toUserBody(u))
}

type updateUserBody struct {
	DisplayName *string `json:"display_name"`
	Department  *string `json:"department"`
	JobTitle    *string `json:"job_title"`
	IsActive    *bool   `json:"is_active"`
	IsAdmin     *bool   `json:"is_admin"`
}

func (h *Handlers) UpdateUser(c *fiber.Ctx) error {
	var req updateUserBody
	if err := c.BodyParser(&req); err != nil {
		return user.ErrInvalidUpdate().WithDetail("reason", "malformed request body")
	}

	id := kernel.NewUserID(c.Params("id"))

	var u *user.User
	err := h.tx.RunInTx(c.Context(), func(ctx context.Context) error {
		before, err := h.users.GetByID(ctx, id)
		if err != nil {
			return err
		}

		u, err = h.users.Update(ctx, id, usersrv.UpdateRequest{
			DisplayName: req.DisplayName,
			Department:  req.Department,
			JobTitle:    req.JobTitle,
			IsActive:    req.IsActive,
			IsAdmin:     req.IsAdmin,
		})
		if err != nil {
			return err
		}

		return h.audit(ctx, c, "user.update", "user", id.String(),
			map[string]interface{}{"is_active": before.IsActive, "is_admin": before.IsAdmin},
			map[string]interface{}{"is_active": u.IsActive, "is_admin": u.IsAdmin})
	})
	if err != nil {
		return err
	}

	return c.JSON(toUserBody(u))
}

type bulkUserActionBody struct {
	UserIDs  []string `json:"user_ids"`
	IsActive bool     `json:"is_active"`
}

func (h *Handlers) BulkUserAction(c *fiber.Ctx) error {
	var req bulkUserActionBody
	if err := c.BodyParser(&req); err != nil {
		return user.ErrInvalidUpdate().WithDetail("reason", "malformed request body")
	}

	ids := make([]kernel.UserID, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		ids = append(ids, kernel.NewUserID(id))
	}

	var affected int
	err := h.tx.RunInTx(c.Context(), func(ctx context.Context) error {
		var err error
		affected, err = h.users.BulkAction(ctx, ids, req.IsActive)
		if err != nil {
			return err
		}
		return h.audit(ctx, c, "user.bulk_action", "user", "", nil, map[string]interface{}{"count": affected, "is_active": req.IsActive})
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"affected": affected})
}
