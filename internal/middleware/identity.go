package middleware

// identity.go holds the context keys set by Authenticate and the accessors
// handlers use to read them back.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learntrack/internal/auth"
	"github.com/iliyamo/learntrack/internal/repository"
)

const (
	ctxPrincipal = "principal"
	ctxToken     = "token"
	ctxStore     = "store"
	ctxUserID    = "user_id"
	ctxRole      = "role"
)

// PrincipalFrom returns the principal stored by Authenticate, or nil.
func PrincipalFrom(c echo.Context) *auth.Principal {
	p, _ := c.Get(ctxPrincipal).(*auth.Principal)
	return p
}

// StoreFrom returns the principal-bound data handle, or nil.
func StoreFrom(c echo.Context) *repository.Scoped {
	s, _ := c.Get(ctxStore).(*repository.Scoped)
	return s
}

// TokenFrom returns the verified access token.
func TokenFrom(c echo.Context) string {
	t, _ := c.Get(ctxToken).(string)
	return t
}

// userID identifies the caller for rate-limit keys.  Anonymous requests
// share the "anon" bucket dimension.
func userID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
