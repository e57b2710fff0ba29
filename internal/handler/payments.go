package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learntrack/internal/config"
	"github.com/iliyamo/learntrack/internal/middleware"
	"github.com/iliyamo/learntrack/internal/payment"
	"github.com/iliyamo/learntrack/internal/queue"
	"github.com/iliyamo/learntrack/internal/repository"
	"github.com/iliyamo/learntrack/internal/service"
)

// PaymentHandler sells paid courses through the hosted checkout.
type PaymentHandler struct {
	Repos       *repository.Repos
	Payments    payment.Processor
	PaymentCfg  config.PaymentConfig
	FrontendURL string
	Events      service.EventPublisher
}

func NewPaymentHandler(repos *repository.Repos, pp payment.Processor, pc config.PaymentConfig, frontendURL string, ev service.EventPublisher) *PaymentHandler {
	if repos == nil {
		panic("nil repositories passed to NewPaymentHandler")
	}
	return &PaymentHandler{Repos: repos, Payments: pp, PaymentCfg: pc, FrontendURL: frontendURL, Events: ev}
}

func paymentsNotConfigured(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Payment system not configured. Please contact administrator."})
}

// CreateCheckoutSession handles POST /api/payments/create-checkout-session.
func (h *PaymentHandler) CreateCheckoutSession(c echo.Context) error {
	var body struct {
		CourseID string `json:"courseId"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.CourseID == "" {
		return badRequest(c, "courseId is required")
	}
	if h.Payments == nil {
		return paymentsNotConfigured(c)
	}
	ctx := c.Request().Context()
	p := middleware.PrincipalFrom(c)

	course, err := h.Repos.Courses.GetByID(ctx, body.CourseID)
	if err != nil {
		return respondError(c, err, "Course not found", "Not authorized", "Failed to create payment session")
	}
	if course.IsFree() {
		return badRequest(c, "This course is free, no payment required")
	}
	existing, err := middleware.StoreFrom(c).Enrollment(ctx, course.ID)
	switch {
	case err == nil && existing.Purchased:
		return badRequest(c, "Already enrolled in this course")
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return respondError(c, err, "Course not found", "Not authorized", "Failed to create payment session")
	}

	success := url.Values{}
	success.Set("course_id", course.ID)
	cancel := url.Values{}
	cancel.Set("id", course.ID)
	sess, err := h.Payments.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		Items: []payment.LineItem{{
			Name:        course.Title,
			Description: course.Description,
			Currency:    h.PaymentCfg.CourseCurrency,
			UnitAmount:  course.PriceCents,
			Quantity:    1,
		}},
		SuccessURL:        h.FrontendURL + "/payment-success.html?session_id={CHECKOUT_SESSION_ID}&" + success.Encode(),
		CancelURL:         h.FrontendURL + "/courseDetail.html?" + cancel.Encode(),
		CustomerEmail:     p.Email,
		ClientReferenceID: p.ID,
		Metadata:          map[string]string{"course_id": course.ID, "user_id": p.ID},
	})
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			return paymentsNotConfigured(c)
		}
		c.Logger().Errorf("checkout session for %s: %v", course.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create payment session"})
	}
	return c.JSON(http.StatusOK, echo.Map{"sessionId": sess.ID, "url": sess.URL})
}

// Verify handles POST /api/payments/verify.  The session must be paid,
// must have been created for this caller and this course, and must have
// charged the course's current price.
func (h *PaymentHandler) Verify(c echo.Context) error {
	var body struct {
		SessionID string `json:"sessionId"`
		CourseID  string `json:"courseId"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.SessionID == "" || body.CourseID == "" {
		return badRequest(c, "sessionId and courseId are required")
	}
	if h.Payments == nil {
		return paymentsNotConfigured(c)
	}
	ctx := c.Request().Context()
	p := middleware.PrincipalFrom(c)

	sess, err := h.Payments.RetrieveSession(ctx, body.SessionID)
	switch {
	case errors.Is(err, payment.ErrSessionNotFound):
		return badRequest(c, "Payment session not found")
	case errors.Is(err, payment.ErrNotConfigured):
		return paymentsNotConfigured(c)
	case err != nil:
		c.Logger().Errorf("verify payment %s: %v", body.SessionID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to verify payment"})
	}
	if !sess.Paid() {
		return badRequest(c, "Payment not completed")
	}
	if sess.Metadata["user_id"] != p.ID || sess.Metadata["course_id"] != body.CourseID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Session mismatch"})
	}
	course, err := h.Repos.Courses.GetByID(ctx, body.CourseID)
	if err != nil {
		return respondError(c, err, "Course not found", "Not authorized", "Failed to verify payment")
	}
	if sess.AmountTotal != course.PriceCents {
		return badRequest(c, "Payment amount mismatch")
	}

	e, err := middleware.StoreFrom(c).RecordPurchase(ctx, body.CourseID, sess.ID, sess.AmountTotal)
	if err != nil {
		return respondError(c, err, "Course not found", "Not authorized", "Failed to verify payment")
	}
	service.EnrollmentCreated(h.Events, queue.EnrollmentCreatedEvent{
		EnrollmentID:     e.ID,
		UserID:           p.ID,
		CourseID:         body.CourseID,
		CourseTitle:      course.Title,
		Purchased:        true,
		AmountCents:      sess.AmountTotal,
		PaymentSessionID: sess.ID,
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"message":    "Payment verified and enrollment created",
		"enrollment": e,
	})
}

// CheckEnrollment handles GET /api/payments/check-enrollment/:courseId.
func (h *PaymentHandler) CheckEnrollment(c echo.Context) error {
	e, err := middleware.StoreFrom(c).Enrollment(c.Request().Context(), c.Param("courseId"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"enrolled": false, "purchased": false, "enrollment": nil})
		}
		return respondError(c, err, "Enrollment not found", "Not authorized", "Failed to check enrollment")
	}
	return c.JSON(http.StatusOK, echo.Map{"enrolled": true, "purchased": e.Purchased, "enrollment": e})
}
