package handler // handler defines the http handlers of the API

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learntrack/internal/auth"
	"github.com/iliyamo/learntrack/internal/repository"
	"github.com/iliyamo/learntrack/web"
)

// respondError maps a domain error onto the JSON envelope.  notFound and
// forbidden are the route specific messages; generic is used for anything
// unexpected, which is also logged.
func respondError(c echo.Context, err error, notFound, forbidden, generic string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": notFound})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": forbidden})
	case errors.Is(err, repository.ErrAlreadyEnrolled):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "You are already enrolled in this course"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": generic})
	case errors.Is(err, auth.ErrMissingToken):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Missing Authorization token"})
	case errors.Is(err, auth.ErrInvalidOrExpiredToken):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired token"})
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": generic})
}

// badRequest is the common 400 envelope.
func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// errorPages maps a status to its static page under web/public/errors.
var errorPages = map[int]string{
	http.StatusUnauthorized:        "errors/401.html",
	http.StatusForbidden:           "errors/403.html",
	http.StatusNotFound:            "errors/404.html",
	http.StatusInternalServerError: "errors/500.html",
}

// HTTPErrorHandler answers /api/* with a JSON envelope and every other path
// with the matching static error page.  Statuses without a page fall back to
// the 500 page.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		} else {
			msg = http.StatusText(code)
		}
	}
	if code >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api/") || c.Request().URL.Path == "/api" {
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, echo.Map{"error": msg})
		return
	}

	page, ok := errorPages[code]
	if !ok {
		page = errorPages[http.StatusInternalServerError]
	}
	body, rerr := web.Public.ReadFile("public/" + page)
	if rerr != nil {
		_ = c.String(code, msg)
		return
	}
	_ = c.HTMLBlob(code, body)
}
