package handlers

import (
	"showcase/internal/logger"
	"showcase/internal/middleware"
	"showcase/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProjectHandler handles HTTP requests for projects.
type ProjectHandler struct {
	service *services.ProjectService
	log     *logger.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(service *services.ProjectService, log *logger.Logger) *ProjectHandler {
	return &ProjectHandler{
		service: service,
		log:     log,
	}
}

// RegisterRoutes registers the project routes with the Fiber app.
func (h *ProjectHandler) RegisterRoutes(router fiber.Router, guards Guards) {
	projectRoutes := router.Group("/projects")
	projectRoutes.Get("/", guards.Optional, h.HandleListProjects)
	projectRoutes.Post("/", guards.Required, h.HandleCreateProject)
	projectRoutes.Get("/:id", h.HandleGetProject)
	projectRoutes.Put("/:id", guards.Required, h.HandleUpdateProject)
	projectRoutes.Delete("/:id", guards.Required, h.HandleDeleteProject)
}

// HandleListProjects lists the caller's projects, or the public catalog for
// anonymous callers. ?q= filters by name.
func (h *ProjectHandler) HandleListProjects(c *fiber.Ctx) error {
	projects, err := h.service.ListProjects(c.UserContext(), middleware.CurrentIdentity(c), c.Query("q"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(projects)
}

// HandleGetProject retrieves a single project by its ID.
func (h *ProjectHandler) HandleGetProject(c *fiber.Ctx) error {
	project, err := h.service.GetProject(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(project)
}

// HandleCreateProject creates a project from a multipart form with an
// optional image file.
func (h *ProjectHandler) HandleCreateProject(c *fiber.Ctx) error {
	var req ProjectRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	image, release, err := formUpload(c, "image")
	if err != nil {
		return badRequest(c, err.Error())
	}
	defer release()

	project, err := h.service.CreateProject(c.UserContext(), middleware.CurrentIdentity(c), req.Input(), image)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

// HandleUpdateProject applies a partial update, optionally replacing the image.
func (h *ProjectHandler) HandleUpdateProject(c *fiber.Ctx) error {
	var req ProjectRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	image, release, err := formUpload(c, "image")
	if err != nil {
		return badRequest(c, err.Error())
	}
	defer release()

	project, err := h.service.UpdateProject(c.UserContext(), middleware.CurrentIdentity(c), c.Params("id"), req.Update(), image)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(project)
}

// HandleDeleteProject deletes a project owned by the caller.
func (h *ProjectHandler) HandleDeleteProject(c *fiber.Ctx) error {
	if err := h.service.DeleteProject(c.UserContext(), middleware.CurrentIdentity(c), c.Params("id")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
