package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nomad-pass/nomad_pass/internal/auth"
	"github.com/nomad-pass/nomad_pass/internal/registry"
)

// Auth returns a middleware that validates bearer tokens and attaches the
// caller's verified capability set. Roles come from the registry role store
// on every request, so a revoked role takes effect immediately.
func Auth(authSvc *auth.Service, reg *registry.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])

		address, err := authSvc.Verify(token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		actor, err := reg.ActorFor(c.UserContext(), address)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, "role lookup failed")
		}

		c.Locals(registry.ActorLocal, actor)
		return c.Next()
	}
}
