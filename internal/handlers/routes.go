package handlers

import "github.com/gofiber/fiber/v2"

// Guards are the session middlewares routes are mounted behind.
type Guards struct {
	// Optional resolves the caller when a token is present.
	Optional fiber.Handler
	// Required rejects anonymous callers with 401.
	Required fiber.Handler
}
