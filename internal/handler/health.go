package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health is the liveness check used by load balancers.  It returns a plain
// text "ok" with status 200.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// APIHealth answers GET /api/health with the service name and the server
// time.
func APIHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"ok":      true,
		"service": "learntrack-api",
		"time":    time.Now().UTC().Format(time.RFC3339Nano),
	})
}
