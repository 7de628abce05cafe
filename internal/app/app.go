// Package app assembles the fiber application: middleware, services and routes.
package app

import (
	"time"

	"showcase/internal/config"
	"showcase/internal/handlers"
	"showcase/internal/logger"
	"showcase/internal/middleware"
	"showcase/internal/repositories"
	"showcase/internal/services"
	"showcase/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// multipartOverhead is allowed on top of the upload limit for form fields
// and part headers.
const multipartOverhead = 1 << 20

// New wires repositories, services and handlers over db and store and
// returns the ready fiber app. publisher may be nil.
func New(cfg *config.Config, db *gorm.DB, store storage.Store, publisher services.EventPublisher, log *logger.Logger) *fiber.App {
	userRepo := repositories.NewGORMUserRepository(db)
	projectRepo := repositories.NewGORMProjectRepository(db)

	authService := services.NewAuthService(userRepo, store, cfg.Auth, log.With("component", "auth"))
	userService := services.NewUserService(userRepo, projectRepo, store, log.With("component", "users"))
	projectService := services.NewProjectService(projectRepo, store, publisher, log.With("component", "projects"))

	authHandler := handlers.NewAuthHandler(authService, cfg.Auth, log)
	userHandler := handlers.NewUserHandler(userService, authHandler, log)
	projectHandler := handlers.NewProjectHandler(projectService, log)

	app := fiber.New(fiber.Config{
		AppName:      "showcase",
		BodyLimit:    int(cfg.Storage.MaxUploadBytes) + multipartOverhead,
		ErrorHandler: handlers.ErrorHandler(log),
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: cfg.CORSOrigins != "*",
	}))
	app.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if cfg.Storage.Backend == config.StorageLocal {
		app.Static(cfg.Storage.PublicPath, cfg.Storage.LocalDir, fiber.Static{
			MaxAge: 86400,
		})
	}

	// --- API Routes ---
	guards := handlers.Guards{
		Optional: middleware.SessionOptional(authService, cfg.Auth.CookieName),
		Required: middleware.AuthRequired(authService, cfg.Auth.CookieName),
	}
	authHandler.RegisterRoutes(app, guards)
	projectHandler.RegisterRoutes(app, guards)
	userHandler.RegisterRoutes(app, guards)

	return app
}
