package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learntrack/internal/handler"
)

// RegisterEnrollments registers the learner's enrollment endpoints.
func RegisterEnrollments(e *echo.Echo, h *handler.EnrollmentHandler, authn echo.MiddlewareFunc) {
	g := e.Group("/api/enrollments", authn)

	g.GET("/mine", h.Mine)
	g.GET("/my-courses", h.Mine) // alias kept for older dashboards
	g.POST("/enroll", h.Enroll)
	g.POST("/:courseId", h.EnrollPath)
}

// RegisterPayments registers the paid-course checkout.
func RegisterPayments(e *echo.Echo, h *handler.PaymentHandler, authn echo.MiddlewareFunc) {
	g := e.Group("/api/payments", authn)

	g.POST("/create-checkout-session", h.CreateCheckoutSession)
	g.POST("/verify", h.Verify)
	g.GET("/check-enrollment/:courseId", h.CheckEnrollment)
}

// RegisterProfiles registers the caller's own profile.
func RegisterProfiles(e *echo.Echo, h *handler.ProfileHandler, authn echo.MiddlewareFunc) {
	g := e.Group("/api/profiles", authn)

	g.GET("/me", h.Me)
	g.PATCH("/me", h.UpdateMe)
}
