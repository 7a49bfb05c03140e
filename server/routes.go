package main

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/meikuraledutech/flow"
)

type createRequest struct {
	Title string `json:"title"`
}

type titleRequest struct {
	Title string `json:"title" validate:"required"`
}

type addNodeRequest struct {
	Name string `json:"name"`
}

type nodePatchRequest struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	Position    *flow.Position `json:"position"`
}

type renameRequest struct {
	ID string `json:"id" validate:"required"`
}

type addEdgeRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

type edgePatchRequest struct {
	Condition *string `json:"condition"`
	Target    *string `json:"target" validate:"omitempty,min=1"`
}

// structValidator plugs go-playground/validator into fiber's binder.
type structValidator struct {
	validate *validator.Validate
}

func (v *structValidator) Validate(out any) error {
	return v.validate.Struct(out)
}

func newApp(svc *flow.Service, logger *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		StructValidator: &structValidator{validate: validator.New()},
	})
	app.Use(recover.New())

	h := &handlers{svc: svc, logger: logger}

	// ── Workflows ─────────────────────────────────────────────────────
	app.Get("/workflows", h.listWorkflows)
	app.Post("/workflows", h.createWorkflow)
	app.Post("/workflows/import", h.importWorkflow)
	app.Get("/workflows/last", h.lastWorkflow)
	app.Get("/workflows/:id", h.getWorkflow)
	app.Patch("/workflows/:id", h.renameWorkflow)
	app.Delete("/workflows/:id", h.deleteWorkflow)
	app.Get("/workflows/:id/export", h.exportWorkflow)
	app.Get("/workflows/:id/preview", h.previewWorkflow)

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/workflows/:id/nodes", h.addNode)
	app.Patch("/workflows/:id/nodes/:node", h.updateNode)
	app.Delete("/workflows/:id/nodes/:node", h.removeNode)
	app.Put("/workflows/:id/nodes/:node/id", h.renameNode)
	app.Post("/workflows/:id/nodes/:node/start", h.setStart)

	// ── Edges ─────────────────────────────────────────────────────────
	app.Post("/workflows/:id/edges", h.addEdge)
	app.Patch("/workflows/:id/edges/:edge", h.updateEdge)
	app.Delete("/workflows/:id/edges/:edge", h.removeEdge)

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema/validate", h.validateSchema)

	return app
}

type handlers struct {
	svc    *flow.Service
	logger *slog.Logger
}

func (h *handlers) listWorkflows(c fiber.Ctx) error {
	list, err := h.svc.List(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(list)
}

func (h *handlers) createWorkflow(c fiber.Ctx) error {
	var req createRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, err)
		}
	}
	w, err := h.svc.Create(c.Context(), req.Title, flow.BlankGraph())
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(w)
}

func (h *handlers) importWorkflow(c fiber.Ctx) error {
	w, err := h.svc.Import(c.Context(), c.Body())
	if err != nil {
		return h.fail(c, err)
	}
	h.logger.Info("workflow imported", slog.String("workflow", w.ID), slog.Int("nodes", len(w.Schema.Nodes)))
	return c.Status(fiber.StatusCreated).JSON(w)
}

func (h *handlers) lastWorkflow(c fiber.Ctx) error {
	w, err := h.svc.LastActive(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	if w == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no workflow"})
	}
	return c.JSON(w)
}

func (h *handlers) getWorkflow(c fiber.Ctx) error {
	w, err := h.svc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if w == nil {
		return h.fail(c, flow.ErrWorkflowNotFound)
	}
	return c.JSON(w)
}

func (h *handlers) renameWorkflow(c fiber.Ctx) error {
	var req titleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, err)
	}
	w, err := h.svc.Update(c.Context(), c.Params("id"), func(w *flow.StoredWorkflow) error {
		w.Title = req.Title
		return nil
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(w)
}

func (h *handlers) deleteWorkflow(c fiber.Ctx) error {
	if err := h.svc.Delete(c.Context(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) exportWorkflow(c fiber.Ctx) error {
	w, err := h.svc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if w == nil {
		return h.fail(c, flow.ErrWorkflowNotFound)
	}
	data, err := flow.MarshalSchema(flow.ToSchema(w.Schema))
	if err != nil {
		return h.fail(c, err)
	}
	c.Attachment(flow.ExportFilename(w.Title))
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

func (h *handlers) previewWorkflow(c fiber.Ctx) error {
	w, err := h.svc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if w == nil {
		return h.fail(c, flow.ErrWorkflowNotFound)
	}
	issues := w.Schema.Lint()
	if issues == nil {
		issues = []flow.Issue{}
	}
	return c.JSON(fiber.Map{"schema": flow.ToSchema(w.Schema), "issues": issues})
}

func (h *handlers) addNode(c fiber.Ctx) error {
	var req addNodeRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, err)
		}
	}
	var node flow.Node
	_, err := h.svc.UpdateGraph(c.Context(), c.Params("id"), func(g *flow.Graph) error {
		node = g.AddNode(req.Name)
		return nil
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(node)
}

func (h *handlers) updateNode(c fiber.Ctx) error {
	var req nodePatchRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, err)
	}
	nodeID := c.Params("node")
	w, err := h.svc.UpdateGraph(c.Context(), c.Params("id"), func(g *flow.Graph) error {
		if err := g.UpdateNode(nodeID, flow.NodePatch{Name: req.Name, Description: req.Description}); err != nil {
			return err
		}
		if req.Position != nil {
			return g.MoveNode(nodeID, *req.Position)
		}
		return nil
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(w.Schema)
}

func (h *handlers) removeNode(c fiber.Ctx) error {
	nodeID := c.Params("node")
	_, err := h.svc.UpdateGraph(c.Context(), c.Params("id"), func(g *flow.Graph) error {
		return g.RemoveNode(nodeID)
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) renameNode(c fiber.Ctx) error {
	var req renameRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, err)
	}
	nodeID := c.Params("node")
	w, err := h.svc.UpdateGraph(c.Context(), c.Params("id"), func(g *flow.Graph) error {
		return g.RenameNode(nodeID, req.ID)
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(w.Schema)
}

func (h *handlers) setStart(c fiber.Ctx) error {
	nodeID := c.Params("node")
	w, err := h.svc.UpdateGraph(c.Context(), c.Params("id"), func(g *flow.Graph) error {
		return g.SetStart(nodeID)
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(w.Schema)
}

func (h *handlers) addEdge(c fiber.Ctx) error {
	var req addEdgeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, err)
	}
	var edge flow.Edge
	_, err := h.svc.UpdateGraph(c.Context(), c.Params("id"), func(g *flow.Graph) error {
		var err error
		edge, err = g.AddEdge(req.Source, req.Target)
		return err
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(edge)
}

func (h *handlers) updateEdge(c fiber.Ctx) error {
	var req edgePatchRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, err)
	}
	edgeID := c.Params("edge")
	w, err := h.svc.UpdateGraph(c.Context(), c.Params("id"), func(g *flow.Graph) error {
		if req.Target != nil {
			if err := g.UpdateEdgeTarget(edgeID, *req.Target); err != nil {
				return err
			}
		}
		if req.Condition != nil {
			return g.UpdateEdgeCondition(edgeID, *req.Condition)
		}
		return nil
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(w.Schema)
}

func (h *handlers) removeEdge(c fiber.Ctx) error {
	edgeID := c.Params("edge")
	_, err := h.svc.UpdateGraph(c.Context(), c.Params("id"), func(g *flow.Graph) error {
		return g.RemoveEdge(edgeID)
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) validateSchema(c fiber.Ctx) error {
	schema, err := flow.ParseSchema(c.Body())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(schema)
}

func badRequest(c fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body: " + err.Error()})
}

// fail maps domain errors to status codes. Anything unrecognised is a 500
// and gets logged.
func (h *handlers) fail(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, flow.ErrWorkflowNotFound),
		errors.Is(err, flow.ErrNodeNotFound),
		errors.Is(err, flow.ErrEdgeNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, flow.ErrDuplicateNodeID),
		errors.Is(err, flow.ErrDuplicateEdge):
		status = fiber.StatusConflict
	case errors.Is(err, flow.ErrMalformedJSON):
		status = fiber.StatusBadRequest
	case errors.Is(err, flow.ErrInvalidSchema),
		errors.Is(err, flow.ErrInvalidWorkflow),
		errors.Is(err, flow.ErrEmptyNodeID),
		errors.Is(err, flow.ErrSelfLoop):
		status = fiber.StatusUnprocessableEntity
	}
	if status == fiber.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
