package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/learntrack/internal/auth"
	"github.com/iliyamo/learntrack/internal/config"
	"github.com/iliyamo/learntrack/internal/identity"
	"github.com/iliyamo/learntrack/internal/middleware"
	"github.com/iliyamo/learntrack/internal/payment"
	"github.com/iliyamo/learntrack/internal/queue"
	"github.com/iliyamo/learntrack/internal/service"
)

// AuthHandler serves sign-up, sign-in, the session bridge and the
// instructor registration payment.
type AuthHandler struct {
	Provider    identity.Provider
	Builder     *auth.Builder
	Payments    payment.Processor
	PaymentCfg  config.PaymentConfig
	FrontendURL string
	Events      service.EventPublisher
	Metrics     *middleware.Metrics
}

func NewAuthHandler(p identity.Provider, b *auth.Builder, pp payment.Processor, pc config.PaymentConfig, frontendURL string, ev service.EventPublisher, m *middleware.Metrics) *AuthHandler {
	if p == nil || b == nil {
		panic("nil dependency passed to NewAuthHandler")
	}
	return &AuthHandler{Provider: p, Builder: b, Payments: pp, PaymentCfg: pc, FrontendURL: frontendURL, Events: ev, Metrics: m}
}

// SignUp handles POST /api/signup.  Instructors start with a pending
// registration payment; learners are complete from the start.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var body struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
		Name     string `json:"name" form:"name"`
		Role     string `json:"role" form:"role"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	email := strings.TrimSpace(body.Email)
	name := strings.TrimSpace(body.Name)
	if email == "" || body.Password == "" || name == "" {
		return badRequest(c, "All fields are required")
	}
	role, err := auth.ParseRole(body.Role)
	if err != nil {
		return badRequest(c, "Invalid role")
	}

	status, amount := auth.PaymentCompleted, int64(0)
	if role == auth.RoleInstructor {
		status, amount = auth.PaymentPending, h.PaymentCfg.InstructorFeeMajor()
	}
	md := map[string]any{
		"name":              name,
		"role":              role,
		"payment_status":    status,
		"payment_amount":    amount,
		"registration_date": time.Now().UTC().Format(time.RFC3339),
	}

	u, err := h.Provider.SignUp(c.Request().Context(), email, body.Password, md)
	if err != nil {
		var se *identity.SignUpError
		if errors.As(err, &se) {
			return badRequest(c, se.Message)
		}
		c.Logger().Errorf("signup: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User registered successfully", "user": u})
}

// SignIn handles POST /api/signin.  The token is released only when the
// payment gate allows it.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var body struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	email := strings.TrimSpace(body.Email)
	if email == "" || body.Password == "" {
		return badRequest(c, "All fields are required")
	}

	sess, err := h.Provider.SignInWithPassword(c.Request().Context(), email, body.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid credentials"})
		}
		c.Logger().Errorf("signin: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
	}
	if sess.AccessToken == "" || sess.User == nil {
		c.Logger().Errorf("signin: provider returned no access token for %s", email)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to extract authentication token"})
	}

	p := auth.PrincipalFromUser(sess.User)
	d := auth.Gate(p, sess.AccessToken)
	if !d.Allowed {
		h.Metrics.GateDenied()
		return c.JSON(http.StatusForbidden, echo.Map{
			"error":           "Payment required",
			"message":         "Please complete your instructor registration payment to access your account.",
			"paymentRequired": true,
			"redirectUrl":     d.RedirectURL,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":       "Login successful",
		"token":         d.Token,
		"role":          p.Role,
		"paymentStatus": p.PaymentStatus,
	})
}

// Redirect handles GET /api/redirect?token=.  It verifies the token and
// answers with the bridge page that stores the session in the browser.
func (h *AuthHandler) Redirect(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.String(http.StatusUnauthorized, "No token provided")
	}
	req, err := h.Builder.Build(c.Request().Context(), token, true)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidOrExpiredToken) {
			return c.String(http.StatusUnauthorized, "Invalid or expired token")
		}
		c.Logger().Errorf("redirect: %v", err)
		return c.String(http.StatusInternalServerError, "Server error")
	}
	var buf bytes.Buffer
	if err := auth.Materialize(&buf, req.Token, req.Principal); err != nil {
		c.Logger().Errorf("redirect: render bridge: %v", err)
		return c.String(http.StatusInternalServerError, "Server error")
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

const instructorPaymentType = "instructor_registration"

// CreateInstructorPayment handles POST /api/create-instructor-payment.
// The charged amount is always the configured fee.
func (h *AuthHandler) CreateInstructorPayment(c echo.Context) error {
	var body struct {
		Email  string `json:"email"`
		Name   string `json:"name"`
		UserID string `json:"userId"`
		Amount int64  `json:"amount"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Email == "" || body.Name == "" || body.UserID == "" || body.Amount <= 0 {
		return badRequest(c, "Email, name, userId, and amount are required")
	}
	if h.Payments == nil {
		return paymentsNotConfigured(c)
	}

	page := h.FrontendURL + auth.PaymentPagePath
	success := url.Values{}
	success.Set("email", body.Email)
	success.Set("userId", body.UserID)
	cancel := url.Values{}
	cancel.Set("email", body.Email)
	cancel.Set("name", body.Name)
	cancel.Set("userId", body.UserID)

	sess, err := h.Payments.CreateCheckoutSession(c.Request().Context(), payment.CheckoutRequest{
		Items: []payment.LineItem{{
			Name:        "Instructor Registration Fee",
			Description: "One-time setup fee to become an instructor on LearnTrack",
			Currency:    h.PaymentCfg.InstructorCurrency,
			UnitAmount:  h.PaymentCfg.InstructorFeeCents,
			Quantity:    1,
		}},
		// the placeholder is filled in by the processor and must stay unescaped
		SuccessURL:    page + "?session_id={CHECKOUT_SESSION_ID}&" + success.Encode(),
		CancelURL:     page + "?" + cancel.Encode(),
		CustomerEmail: body.Email,
		Metadata: map[string]string{
			"userId":      body.UserID,
			"userName":    body.Name,
			"paymentType": instructorPaymentType,
		},
	})
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			return paymentsNotConfigured(c)
		}
		c.Logger().Errorf("create instructor payment: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create payment session"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"sessionId":      sess.ID,
		"url":            sess.URL,
		"publishableKey": h.PaymentCfg.PublishableKey,
	})
}

// VerifyInstructorPayment handles POST /api/verify-instructor-payment.  The
// account is found by id when the client sends one, and the email must
// match it; only without an id does it fall back to the paged scan.
func (h *AuthHandler) VerifyInstructorPayment(c echo.Context) error {
	var body struct {
		SessionID string `json:"sessionId"`
		Email     string `json:"email"`
		UserID    string `json:"userId"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.SessionID == "" || body.Email == "" {
		return badRequest(c, "Session ID and email are required")
	}
	if h.Payments == nil {
		return paymentsNotConfigured(c)
	}
	ctx := c.Request().Context()

	sess, err := h.Payments.RetrieveSession(ctx, body.SessionID)
	switch {
	case errors.Is(err, payment.ErrSessionNotFound):
		return badRequest(c, "Payment session not found")
	case errors.Is(err, payment.ErrNotConfigured):
		return paymentsNotConfigured(c)
	case err != nil:
		c.Logger().Errorf("verify instructor payment: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error during payment verification"})
	}
	if !sess.Paid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Payment was not successful", "status": sess.PaymentStatus})
	}
	if sess.AmountTotal < h.PaymentCfg.InstructorFeeCents {
		return badRequest(c, "Payment amount is incorrect")
	}

	u, err := h.resolveUser(c, body.UserID, body.Email)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		c.Logger().Errorf("verify instructor payment: lookup: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update payment status"})
	}
	// a session only activates the account it was opened for
	if sess.Metadata["paymentType"] != instructorPaymentType || sess.Metadata["userId"] != u.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Session mismatch"})
	}

	now := time.Now().UTC()
	md := make(map[string]any, len(u.Metadata)+5)
	for k, v := range u.Metadata {
		md[k] = v
	}
	md["payment_status"] = auth.PaymentCompleted
	md["payment_date"] = now.Format(time.RFC3339)
	md["payment_reference"] = sess.ID
	md["payment_amount"] = h.PaymentCfg.InstructorFeeMajor()
	md["stripe_payment_intent"] = sess.PaymentIntent

	updated, err := h.Provider.UpdateUserMetadata(ctx, u.ID, md)
	if err != nil {
		c.Logger().Errorf("verify instructor payment: update %s: %v", u.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update payment status"})
	}

	service.InstructorActivated(h.Events, queue.InstructorActivatedEvent{
		UserID:           updated.ID,
		Email:            updated.Email,
		PaymentReference: sess.ID,
		AmountCents:      sess.AmountTotal,
		ActivatedAt:      now.Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Payment verified and account activated",
		"user":    updated,
	})
}

func (h *AuthHandler) resolveUser(c echo.Context, userID, email string) (*identity.User, error) {
	ctx := c.Request().Context()
	if userID == "" {
		return identity.FindUserByEmail(ctx, h.Provider, email, 0)
	}
	u, err := h.Provider.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(u.Email, email) {
		return nil, identity.ErrUserNotFound
	}
	return u, nil
}
