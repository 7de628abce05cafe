package middleware

import (
	"strings"

	"showcase/internal/models"

	"github.com/gofiber/fiber/v2"
)

const identityKey = "identity"

// SessionResolver turns a session token into the identity it carries.
type SessionResolver interface {
	ResolveSession(token string) (models.Identity, bool)
}

// TokenFromRequest returns the session token of a request. An
// "Authorization: Bearer <token>" header wins over the session cookie.
func TokenFromRequest(c *fiber.Ctx, cookieName string) string {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		scheme, token, ok := strings.Cut(authHeader, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookieName == "" {
		return ""
	}
	return c.Cookies(cookieName)
}

// SessionOptional resolves the caller when a valid token is present and
// lets anonymous requests through untouched.
func SessionOptional(auth SessionResolver, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if identity, ok := auth.ResolveSession(TokenFromRequest(c, cookieName)); ok {
			c.Locals(identityKey, &identity)
		}
		return c.Next()
	}
}

// AuthRequired is a Fiber middleware that rejects requests without a valid
// session token.
func AuthRequired(auth SessionResolver, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := TokenFromRequest(c, cookieName)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication required",
			})
		}
		identity, ok := auth.ResolveSession(token)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		// Store the caller in Fiber context for subsequent handlers
		c.Locals(identityKey, &identity)
		return c.Next()
	}
}

// CurrentIdentity returns the caller resolved by SessionOptional or
// AuthRequired, or nil for an anonymous request.
func CurrentIdentity(c *fiber.Ctx) *models.Identity {
	identity, _ := c.Locals(identityKey).(*models.Identity)
	return identity
}
