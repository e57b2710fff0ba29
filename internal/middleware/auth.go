package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learntrack/internal/auth"
)

// Authenticate resolves the access token from the request, verifies it with
// the identity provider and stores the principal and its data handle in the
// context.  Handlers read them with PrincipalFrom and StoreFrom.
//
//	401 {"error":"Missing Authorization token"}  no carrier at all
//	401 {"error":"Invalid or expired token"}     empty or rejected token
//	500 {"error":"Authentication check failed"}  provider unreachable
func Authenticate(b *auth.Builder, m *Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, present := auth.Resolve(c.Request())
			req, err := b.Build(c.Request().Context(), token, present)
			switch {
			case errors.Is(err, auth.ErrMissingToken):
				m.AuthFailure("missing")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Missing Authorization token"})
			case errors.Is(err, auth.ErrInvalidOrExpiredToken):
				m.AuthFailure("invalid")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired token"})
			case err != nil:
				m.AuthFailure("provider")
				c.Logger().Errorf("auth: %v", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Authentication check failed"})
			}

			c.Set(ctxPrincipal, req.Principal)
			c.Set(ctxToken, req.Token)
			c.Set(ctxStore, req.Store)
			c.Set(ctxUserID, req.Principal.ID)
			c.Set(ctxRole, req.Principal.Role)
			return next(c)
		}
	}
}
