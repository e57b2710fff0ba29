package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learntrack/internal/auth"
)

// RequireRole returns a middleware that lets the request through only when
// the authenticated principal has one of roles.  It must run after
// Authenticate, which stores the role under the "role" key.  Any other
// caller gets 403 with message as the error text.
func RequireRole(message string, roles ...auth.Role) echo.MiddlewareFunc {
	allowed := make(map[auth.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ctxRole).(auth.Role)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": message})
			}
			return next(c)
		}
	}
}
