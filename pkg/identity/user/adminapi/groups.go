package adminapi

import (
	"context"

	"github.com/Abraxas-365/identity-core/pkg/identity/group"
	"github.com/Abraxas-365/identity-core/pkg/identity/group/groupsrv"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

type groupBody struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

func toGroupBody(g *group.UserGroup) groupBody {
	return groupBody{ID: g.ID.String(), Name: g.Name, Color: g.Color, Description: g.Description}
}

func (h *Handlers) ListGroups(c *fiber.Ctx) error {
	groups, err := h.groups.ListGroups(c.Context())
	if err != nil {
		return err
	}
	out := make([]groupBody, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroupBody(g))
	}
	return c.JSON(out)
}

type createGroupBody struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

func (h *Handlers) CreateGroup(c *fiber.Ctx) error {
	var req createGroupBody
	if err := c.BodyParser(&req); err != nil {
		return group.ErrInvalidGrant().WithDetail("reason", "malformed request body")
	}

	var g *group.UserGroup
	err := h.tx.RunInTx(c.Context(), func(ctx context.Context) error {
		var err error
		g, err = h.groups.CreateGroup(ctx, req.Name, req.Color, req.Description)
		if err != nil {
			return err
		}
		return h.audit(ctx, c, "group.create", "group", g.ID.String(), nil, map[string]interface{}{"name": g.Name})
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toGroupBody(g))
}

type updateGroupBody struct {
	Name        *string `json:"name"`
	Color       *string `json:"color"`
	Description *string `json:"description"`
}

func (h *Handlers) UpdateGroup(c *fiber.Ctx) error {
	var req updateGroupBody
	if err := c.BodyParser(&req); err != nil {
		return group.ErrInvalidGrant().WithDetail("reason", "malformed request body")
	}

	id := kernel.NewGroupID(c.Params("id"))
	var g *group.UserGroup
	err := h.tx.RunInTx(c.Context(), func(ctx context.Context) error {
		var err error
		g, err = h.groups.UpdateGroup(ctx, id, groupsrv.GroupUpdateRequest{
			Name:        req.Name,
			Color:       req.Color,
			Description: req.Description,
		})
		if err != nil {
			return err
		}
		return h.audit(ctx, c, "group.update", "group", id.String(), nil, map[string]interface{}{"name": g.Name})
	})
	if err != nil {
		return err
	}

	return c.JSON(toGroupBody(g))
}

func (h *Handlers) DeleteGroup(c *fiber.Ctx) error {
	id := kernel.NewGroupID(c.Params("id"))
	err := h.tx.RunInTx(c.Context(), func(ctx context.Context) error {
		if err := h.groups.DeleteGroup(ctx, id); err != nil {
			return err
		}
		return h.audit(ctx, c, "group.delete", "group", id.String(), nil, nil)
	})
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) GroupMembers(c *fiber.Ctx) error {
	ids, err := h.groups.Members(c.Context(), kernel.NewGroupID(c.Params("id")))
	if err != nil {
		return err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return c.JSON(out)
}

type memberBody struct {
	UserID string `json:"user_id"`
}

func (h *Handlers) AddMember(c *fiber.Ctx) error {
	var req memberBody
	if err := c.BodyParser(&req); err != nil {
		return group.ErrInvalidGrant().WithDetail("reason", "malformed request body")
	}

	groupID := kernel.NewGroupID(c.Params("id"))
	err := h.tx.RunInTx(c.Context(), func(ctx context.Context) error {
		if err := h.groups.AddMember(ctx, groupID, kernel.NewUserID(req.UserID)); err != nil {
			return err
		}
		return h.audit(ctx, c, "group.add_member", "group", groupID.String(), nil, map[string]interface{}{"user_id": req.UserID})
	})
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) RemoveMember(c *fiber.Ctx) error {
	groupID := kernel.NewGroupID(c.Params("id"))
	userID := kernel.NewUserID(c.Params("userID"))
	err := h.tx.RunInTx(c.Context(), func(ctx context.Context) error {
		if err := h.groups.RemoveMember(ctx, groupID, userID); err != nil {
			return err
		}
		return h.audit(ctx, c, "group.remove_member", "group", groupID.String(), nil, map[string]interface{}{"user_id": userID.String()})
	})
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type bulkMembershipBody struct {
	UserIDs []string `json:"user_ids"`
}

func (h *Handlers) BulkMembership(c *fiber.Ctx) error {
	var req bulkMembershipBody
	if err := c.BodyParser(&req); err != nil {
		return group.ErrInvalidGrant().WithDetail("reason", "malformed request body")
	}

	groupID := kernel.NewGroupID(c.Params("id"))
	ids := make([]kernel.UserID, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		ids = append(ids, kernel.NewUserID(id))
	}

	var affected int
	err := h.tx.RunInTx(c.Context(), func(ctx context.Context) error {
		var err error
		affected, err = h.groups.BulkSetMembership(ctx, groupID, ids)
		if err != nil {
			return err
		}
		return h.audit(ctx, c, "group.bulk_membership", "group", groupID.String(), nil, map[string]interface{}{"count": affected})
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"affected": affected})
}
