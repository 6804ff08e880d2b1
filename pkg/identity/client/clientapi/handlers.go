// Package clientapi exposes admin CRUD over registered OAuth applications.
package clientapi

import (
	"context"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/Abraxas-365/identity-core/pkg/identity/audit/auditsrv"
	"github.com/Abraxas-365/identity-core/pkg/identity/client"
	"github.com/Abraxas-365/identity-core/pkg/identity/client/clientsrv"
	"github.com/Abraxas-365/identity-core/pkg/identity/session/sessionsrv"
	"github.com/Abraxas-365/identity-core/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	svc    *clientsrv.Service
	audits *auditsrv.Service
	tx     kernel.Transactor
}

func NewHandlers(svc *clientsrv.Service, audits *auditsrv.Service, tx kernel.Transactor) *Handlers {
	return &Handlers{svc: svc, audits: audits, tx: tx}
}

// RegisterRoutes mounts the application admin surface. Callers mount this
// group behind sessionsrv.RequireAdmin().
func (h *Handlers) RegisterRoutes(app fiber.Router) {
	g := app.Group("/api/applications")
	g.Get("/", h.List)
	g.Post("/", h.Create)
	g.Get("/:id", h.Get)
	g.Put("/:id", h.Update)
	g.Delete("/:id", h.Delete)
	g.Post("/:id/regenerate-secret", h.RegenerateSecret)
}

type applicationBody struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Slug               string   `json:"slug"`
	ClientID           string   `json:"client_id"`
	ClientSecret       string   `json:"client_secret,omitempty"`
	RedirectURIs       []string `json:"redirect_uris"`
	IsActive           bool     `json:"is_active"`
	IsPublic           bool     `json:"is_public"`
	AllowedDepartments []string `json:"allowed_departments,omitempty"`
	Description        string   `json:"description,omitempty"`
	BaseURL            string   `json:"base_url,omitempty"`
	IconURL            string   `json:"icon_url,omitempty"`
}

func toBody(a *client.Application) applicationBody {
	return applicationBody{
		ID:                 a.ID.String(),
		Name:               a.Name,
		Slug:               a.Slug,
		ClientID:           a.ClientID,
		RedirectURIs:       a.RedirectURIs,
		IsActive:           a.IsActive,
		IsPublic:           a.IsPublic,
		AllowedDepartments: a.AllowedDepartments,
		Description:        a.Description,
		BaseURL:            a.BaseURL,
		IconURL:            a.IconURL,
	}
}

type createBody struct {
	Name               string   `json:"name"`
	Slug               string   `json:"slug"`
	RedirectURIs       []string `json:"redirect_uris"`
	IsPublic           bool     `json:"is_public"`
	AllowedDepartments []string `json:"allowed_departments"`
	Description        string   `json:"description"`
	BaseURL            string   `json:"base_url"`
	IconURL            string   `json:"icon_url"`
}

func (h *Handlers) Create(c *fiber.Ctx) error {
	var req createBody
	if err := c.BodyParser(&req); err != nil {
		return errx.New("malformed request body", errx.TypeValidation)
	}

	ac, _ := sessionsrv.GetAuthContext(c)
	ip, userAgent := c.IP(), string(c.Context().UserAgent())
	var result *clientsrv.WithSecret
	err := h.tx.RunInTx(c.Context(), func(ctx context.Context) error {
		var err error
		result, err = h.svc.Create(ctx, clientsrv.CreateRequest{
			Name:               req.Name,
			Slug:               req.Slug,
			RedirectURIs:       req.RedirectURIs,
			IsPublic:           req.IsPublic,
			AllowedDepartments: req.AllowedDepartments,
			Description:        req.Description,
			BaseURL:            req.BaseURL,
			IconURL:            req.IconURL,
		})
		if err != nil {
			return err
		}
		return h.audit(ctx, ac, ip, userAgent, "application.create", result.Application.ID.String(), nil, map[string]interface{}{"name": result.Application.Name})
	})
	if err != nil {
		return err
	}

	body := toBody(&result.Application)
	body.ClientSecret = result.ClientSecret
	return c.Status(fiber.StatusCreated).JSON(body)
}

func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.svc.ListAll(c.Context())
	if err != nil {
		return err
	}
	out := make([]applicationBody, 0, len(list))
	for _, a := range list {
		out = append(out, toBody(a))
	}
	return c.JSON(out)
}

func (h *Handlers) Get(c *fiber.Ctx) error {
	app, err := h.svc.GetByID(c.Context(), kernel.NewApplicationID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(toBody(app))
}

type updateBody struct {
	Name               *string  `json:"name"`
	RedirectURIs       []string `json:"redirect_uris"`
	IsActive           *bool    `json:"is_active"`
	IsPublic           *bool    `json:"is_public"`
	AllowedDepartments []string `json:"allowed_departments"`
	Description        *string  `json:"description"`
	BaseURL            *string  `json:"base_url"`
	IconURL            *string  `json:"icon_url"`
}

func (h *Handlers) Update(c *fiber.Ctx) error {
	var req updateBody
	if err := c.BodyParser(&req); err != nil {
		return errx.New("malformed request body", errx.TypeValidation)
	}

	id := kernel.NewApplicationID(c.Params("id"))
	ac, _ := sessionsrv.GetAuthContext(c)
	ip, userAgent := c.IP(), string(c.Context().UserAgent())

	var app *client.Application
	err := h.tx.RunInTx(c.Context(), func(ctx context.Context) error {
		before, err := h.svc.GetByID(ctx, id)
		if err != nil {
			return err
		}

		app, err = h.svc.Update(ctx, id, clientsrv.UpdateRequest{
			Name:               req.Name,
			RedirectURIs:       req.RedirectURIs,
			IsActive:           req.IsActive,
			IsPublic:           req.IsPublic,
			AllowedDepartments: req.AllowedDepartments,
			Description:        req.Description,
			BaseURL:            req.BaseURL,
			IconURL:            req.IconURL,
		})
		if err != nil {
			return err
		}

		return h.audit(ctx, ac, ip, userAgent, "application.update", id.String(),
			map[string]interface{}{"name": before.Name, "is_active": before.IsActive},
			map[string]interface{}{"name": app.Name, "is_active": app.IsActive})
	})
	if err != nil {
		return err
	}

	return c.JSON(toBody(app))
}

func (h *Handlers) Delete(c *fiber.Ctx) error {
	id := kernel.NewApplicationID(c.Params("id"))
	permanent := c.QueryBool("permanent", false)
	ac, _ := sessionsrv.GetAuthContext(c)
	ip, userAgent := c.IP(), string(c.Context().UserAgent())

	err := h.tx.RunInTx(c.Context(), func(ctx context.Context) error {
		if err := h.svc.Delete(ctx, id, permanent); err != nil {
			return err
		}
		return h.audit(ctx, ac, ip, userAgent, "application.delete", id.String(), nil, map[string]interface{}{"permanent": permanent})
	})
	if err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) RegenerateSecret(c *fiber.Ctx) error {
	id := kernel.NewApplicationID(c.Params("id"))
	ac, _ := sessionsrv.GetAuthContext(c)
	ip, userAgent := c.IP(), string(c.Context().UserAgent())

	var result *clientsrv.WithSecret
	err := h.tx.RunInTx(c.Context(), func(ctx context.Context) error {
		var err error
		result, err = h.svc.RegenerateSecret(ctx, id)
		if err != nil {
			return err
		}
		return h.audit(ctx, ac, ip, userAgent, "application.regenerate_secret", id.String(), nil, nil)
	})
	if err != nil {
		return err
	}

	body := toBody(&result.Application)
	body.ClientSecret = result.ClientSecret
	return c.JSON(body)
}

func (h *Handlers) audit(ctx context.Context, ac *kernel.AuthContext, ip, userAgent, action, entityID string, before, after map[string]interface{}) error {
	var actor *kernel.UserID
	if ac != nil {
		actor = &ac.UserID
	}
	return h.audits.RecordMutation(ctx, auditsrv.MutationInput{
		ActorID:    actor,
		Action:     action,
		EntityType: "application",
		EntityID:   entityID,
		OldValues:  before,
		NewValues:  after,
		IPAddress:  ip,
		UserAgent:  userAgent,
	})
}
