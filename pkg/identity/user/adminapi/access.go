package adminapi

import (
	"context"

	"github.com/Abraxas-365/identity-core/pkg/identity/group"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

type accessGrantBody struct {
	ID      string  `json:"id"`
	UserID  *string `json:"user_id,omitempty"`
	GroupID *string `json:"group_id,omitempty"`
}

func (h *Handlers) ListAccess(c *fiber.Ctx) error {
	grants, err := h.groups.ListGrants(c.Context(), kernel.NewApplicationID(c.Params("id")))
	if err != nil {
		return err
	}

	out := make([]accessGrantBody, 0, len(grants))
	for _, g := range grants {
		body := accessGrantBody{ID: g.ID}
		if g.UserID != nil {
			s := g.UserID.String()
			body.UserID = &s
		}
		if g.GroupID != nil {
			s := g.GroupID.String()
			body.GroupID = &s
		}
		out = append(out, body)
	}
	return c.JSON(out)
}

type accessRequestBody struct {
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id"`
}

// GrantAccess grants either a user or a group access to the application,
// per group.ApplicationAccess's "exactly one of" invariant.
func (h *Handlers) GrantAccess(c *fiber.Ctx) error {
	var req accessRequestBody
	if err := c.BodyParser(&req); err != nil {
		return group.ErrInvalidGrant().WithDetail("reason", "malformed request body")
	}

	appID := kernel.NewApplicationID(c.Params("id"))
	err := h.tx.RunInTx(c.Context(), func(ctx context.Context) error {
		switch {
		case req.UserID != "" && req.GroupID == "":
			if err := h.groups.GrantUserAccess(ctx, appID, kernel.NewUserID(req.UserID)); err != nil {
				return err
			}
		case req.GroupID != "" && req.UserID == "":
			if err := h.groups.GrantGroupAccess(ctx, appID, kernel.NewGroupID(req.GroupID)); err != nil {
				return err
			}
		default:
			return group.ErrInvalidGrant()
		}

		return h.audit(ctx, c, "access.grant", "application", appID.String(), nil, map[string]interface{}{
			"user_id": req.UserID, "group_id": req.GroupID,
		})
	})
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) RevokeAccess(c *fiber.Ctx) error {
	var req accessRequestBody
	if err := c.BodyParser(&req); err != nil {
		return group.ErrInvalidGrant().WithDetail("reason", "malformed request body")
	}

	appID := kernel.NewApplicationID(c.Params("id"))
	err := h.tx.RunInTx(c.Context(), func(ctx context.Context) error {
		switch {
		case req.UserID != "" && req.GroupID == "":
			if err := h.groups.RevokeUserAccess(ctx, appID, kernel.NewUserID(req.UserID)); err != nil {
				return err
			}
		case req.GroupID != "" && req.UserID == "":
			if err := h.groups.RevokeGroupAccess(ctx, appID, kernel.NewGroupID(req.GroupID)); err != nil {
				return err
			}
		default:
			return group.ErrInvalidGrant()
		}

		return h.audit(ctx, c, "access.revoke", "application", appID.String(), nil, map[string]interface{}{
			"user_id": req.UserID, "group_id": req.GroupID,
		})
	})
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
