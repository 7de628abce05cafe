package handlers

import (
	"showcase/internal/logger"
	"showcase/internal/middleware"
	"showcase/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles HTTP requests for user profiles.
type UserHandler struct {
	service *services.UserService
	auth    *AuthHandler
	log     *logger.Logger
}

// NewUserHandler creates a new UserHandler. auth is used to drop the session
// cookie of a deleted account.
func NewUserHandler(service *services.UserService, auth *AuthHandler, log *logger.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		auth:    auth,
		log:     log,
	}
}

// RegisterRoutes registers the user routes with the Fiber app.
func (h *UserHandler) RegisterRoutes(router fiber.Router, guards Guards) {
	userRoutes := router.Group("/users", guards.Required)
	userRoutes.Get("/:id", h.HandleGetUser)
	userRoutes.Put("/:id", h.HandleUpdateUser)
	userRoutes.Delete("/:id", h.HandleDeleteUser)
}

// HandleGetUser returns the public profile of a user.
func (h *UserHandler) HandleGetUser(c *fiber.Ctx) error {
	profile, err := h.service.GetProfile(c.UserContext(), middleware.CurrentIdentity(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(profile)
}

// HandleUpdateUser edits name and email of the caller's own account.
func (h *UserHandler) HandleUpdateUser(c *fiber.Ctx) error {
	var req ProfileRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	profile, err := h.service.UpdateProfile(c.UserContext(), middleware.CurrentIdentity(c), c.Params("id"), services.ProfileInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(profile)
}

// HandleDeleteUser removes the caller's account and its projects.
func (h *UserHandler) HandleDeleteUser(c *fiber.Ctx) error {
	if err := h.service.DeleteAccount(c.UserContext(), middleware.CurrentIdentity(c), c.Params("id")); err != nil {
		return respondError(c, h.log, err)
	}
	h.auth.clearSessionCookie(c)
	return c.SendStatus(fiber.StatusNoContent)
}
