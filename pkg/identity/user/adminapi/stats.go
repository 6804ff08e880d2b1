package adminapi

import (
	"github.com/Abraxas-365/identity-core/pkg/identity/audit"
	"github.com/Abraxas-365/identity-core/pkg/identity/user"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

type statsBody struct {
	TotalUsers        int `json:"total_users"`
	ActiveUsers       int `json:"active_users"`
	TotalApplications int `json:"total_applications"`
	TotalGroups       int `json:"total_groups"`
	RecentLogins      int `json:"recent_logins"`
}

// Stats aggregates counts for the admin dashboard. It reuses the existing
// listing paths rather than adding single-purpose COUNT repository methods:
// user and login-history counts come from Paginated.Page.Total at page size
// 1, application and group counts from the length of the full lists.
func (h *Handlers) Stats(c *fiber.Ctx) error {
	ctx := c.Context()
	one := kernel.PaginationOptions{Page: 1, PageSize: 1}

	trueVal := true
	totalUsers, err := h.users.List(ctx, user.ListFilter{}, one)
	if err != nil {
		return err
	}
	activeUsers, err := h.users.List(ctx, user.ListFilter{IsActive: &trueVal}, one)
	if err != nil {
		return err
	}

	apps, err := h.clients.ListAll(ctx)
	if err != nil {
		return err
	}

	groups, err := h.groups.ListGroups(ctx)
	if err != nil {
		return err
	}

	logins, err := h.audits.ListLogins(ctx, audit.LoginFilter{}, one)
	if err != nil {
		return err
	}

	return c.JSON(statsBody{
		TotalUsers:        totalUsers.Page.Total,
		ActiveUsers:       activeUsers.Page.Total,
		TotalApplications: len(apps),
		TotalGroups:       len(groups),
		RecentLogins:      logins.Page.Total,
	})
}
