package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learntrack/internal/handler"
)

// RegisterAuth registers the credential endpoints under /api.  None of them
// needs a session; the ones that accept credentials or start a payment go
// through the rate limiter.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/api")

	g.POST("/signup", a.SignUp, limit)
	g.POST("/signin", a.SignIn, limit)
	g.GET("/redirect", a.Redirect) // bridge page that stores the session in the browser

	// instructor registration fee
	g.POST("/create-instructor-payment", a.CreateInstructorPayment, limit)
	g.POST("/verify-instructor-payment", a.VerifyInstructorPayment, limit)
}
