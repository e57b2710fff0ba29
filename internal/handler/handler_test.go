package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/learntrack/internal/auth"
	"github.com/iliyamo/learntrack/internal/config"
	"github.com/iliyamo/learntrack/internal/identity"
	"github.com/iliyamo/learntrack/internal/middleware"
	"github.com/iliyamo/learntrack/internal/model"
	"github.com/iliyamo/learntrack/internal/payment"
	"github.com/iliyamo/learntrack/internal/queue"
	"github.com/iliyamo/learntrack/internal/repository"
)

type fakeProvider struct {
	tokens    map[string]*identity.User
	users     map[string]*identity.User
	session   *identity.Session
	signInErr error
	verifyErr error
	updated   map[string]any
}

func (f *fakeProvider) SignUp(_ context.Context, email, _ string, md map[string]any) (*identity.User, error) {
	return &identity.User{ID: "new", Email: email, Metadata: md}, nil
}

func (f *fakeProvider) SignInWithPassword(context.Context, string, string) (*identity.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.session, nil
}

func (f *fakeProvider) VerifyToken(_ context.Context, token string) (*identity.User, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	if u, ok := f.tokens[token]; ok {
		return u, nil
	}
	return nil, identity.ErrInvalidToken
}

func (f *fakeProvider) GetUserByID(_ context.Context, id string) (*identity.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, identity.ErrUserNotFound
}

func (f *fakeProvider) UpdateUserMetadata(_ context.Context, id string, md map[string]any) (*identity.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	f.updated = md
	return &identity.User{ID: u.ID, Email: u.Email, Metadata: md, CreatedAt: u.CreatedAt}, nil
}

func (f *fakeProvider) ListUsers(_ context.Context, page, _ int) ([]*identity.User, error) {
	if page > 1 {
		return nil, nil
	}
	var out []*identity.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

type fakeProcessor struct {
	sessions map[string]*payment.Session
	created  *payment.CheckoutRequest
}

func (f *fakeProcessor) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*payment.Session, error) {
	f.created = &req
	return &payment.Session{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}, nil
}

func (f *fakeProcessor) RetrieveSession(_ context.Context, id string) (*payment.Session, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, payment.ErrSessionNotFound
}

type published struct {
	queue string
	event any
}

type fakePublisher struct{ ch chan published }

func newPublisher() *fakePublisher { return &fakePublisher{ch: make(chan published, 4)} }

func (f *fakePublisher) Publish(_ context.Context, q string, ev any) error {
	f.ch <- published{queue: q, event: ev}
	return nil
}

func (f *fakePublisher) next(t *testing.T) published {
	t.Helper()
	select {
	case p := <-f.ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
		return published{}
	}
}

var payCfg = config.PaymentConfig{CourseCurrency: "usd", InstructorCurrency: "zar", InstructorFeeCents: 150000, PublishableKey: "pk_test"}

func newRepos(t *testing.T) (*repository.Repos, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewRepos(db), mock
}

var courseCols = []string{"id", "instructor_id", "title", "description", "category", "level", "language",
	"price_cents", "is_published", "thumbnail_url", "rating", "rating_count", "content_data", "created_at", "updated_at"}

func courseRow(id, owner string, price int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(courseCols).
		AddRow(id, owner, "Go Basics", "intro", "programming", "Beginner", "English", price, true, nil, 0.0, 0, nil, now, now)
}

func do(e *echo.Echo, method, target, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSignIn_PendingInstructorGetsPaymentRedirect(t *testing.T) {
	prov := &fakeProvider{session: &identity.Session{
		AccessToken: "tok",
		User: &identity.User{ID: "u-9", Email: "i@example.com", Metadata: map[string]any{
			"role": "instructor", "payment_status": "pending", "name": "Ada L",
		}},
	}}
	m := middleware.NewMetrics(prometheus.NewRegistry())
	h := NewAuthHandler(prov, auth.NewBuilder(prov, repository.NewRepos(nil)), nil, payCfg, "http://localhost:5000", nil, m)
	e := echo.New()
	e.POST("/api/signin", h.SignIn)

	rec := do(e, http.MethodPost, "/api/signin", "", `{"email":"i@example.com","password":"pw"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"paymentRequired":true`)
	assert.Contains(t, rec.Body.String(), `"error":"Payment required"`)
	assert.Contains(t, rec.Body.String(), "email=i%40example.com")
	assert.Contains(t, rec.Body.String(), "userId=u-9")
	assert.NotContains(t, rec.Body.String(), "tok")
}

func TestSignIn_AllowedAndRejected(t *testing.T) {
	prov := &fakeProvider{session: &identity.Session{
		AccessToken: "tok",
		User:        &identity.User{ID: "u-1", Email: "l@example.com"},
	}}
	h := NewAuthHandler(prov, auth.NewBuilder(prov, repository.NewRepos(nil)), nil, payCfg, "", nil, nil)
	e := echo.New()
	e.POST("/api/signin", h.SignIn)

	rec := do(e, http.MethodPost, "/api/signin", "", `{"email":"l@example.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Login successful","token":"tok","role":"learner","paymentStatus":"pending"}`, rec.Body.String())

	rec = do(e, http.MethodPost, "/api/signin", "", `{"email":"l@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	prov.signInErr = identity.ErrInvalidCredentials
	rec = do(e, http.MethodPost, "/api/signin", "", `{"email":"l@example.com","password":"bad"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, rec.Body.String())
}

func TestSignUp_RoleHandling(t *testing.T) {
	prov := &fakeProvider{}
	h := NewAuthHandler(prov, auth.NewBuilder(prov, repository.NewRepos(nil)), nil, payCfg, "", nil, nil)
	e := echo.New()
	e.POST("/api/signup", h.SignUp)

	rec := do(e, http.MethodPost, "/api/signup", "", `{"email":"a@b.c","password":"pw","name":"A","role":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/api/signup", "", `{"email":"a@b.c","password":"pw","name":"A","role":"instructor"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"payment_status":"pending"`)
	assert.Contains(t, rec.Body.String(), `"payment_amount":1500`)

	rec = do(e, http.MethodPost, "/api/signup", "", `{"email":"a@b.c","password":"pw","name":"A"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"learner"`)
	assert.Contains(t, rec.Body.String(), `"payment_status":"completed"`)
}

func TestRedirect_RendersBridge(t *testing.T) {
	prov := &fakeProvider{tokens: map[string]*identity.User{
		"good": {ID: "u-2", Email: "i@example.com", Metadata: map[string]any{"role": "instructor"}},
	}}
	h := NewAuthHandler(prov, auth.NewBuilder(prov, repository.NewRepos(nil)), nil, payCfg, "", nil, nil)
	e := echo.New()
	e.GET("/api/redirect", h.Redirect)

	rec := do(e, http.MethodGet, "/api/redirect", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No token provided", rec.Body.String())

	rec = do(e, http.MethodGet, "/api/redirect?token=bad", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", rec.Body.String())

	rec = do(e, http.MethodGet, "/api/redirect?token=good", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), auth.SessionKey)
	assert.Contains(t, rec.Body.String(), "instructorDashboard.html")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestVerifyInstructorPayment(t *testing.T) {
	owner := &identity.User{ID: "u-3", Email: "i@example.com", Metadata: map[string]any{
		"name": "Ada", "role": "instructor", "payment_status": "pending",
	}}
	other := &identity.User{ID: "u-4", Email: "j@example.com", Metadata: map[string]any{
		"name": "Grace", "role": "instructor", "payment_status": "pending",
	}}
	newHandler := func(paid string, amount int64) (*echo.Echo, *fakeProvider, *fakePublisher) {
		prov := &fakeProvider{users: map[string]*identity.User{"u-3": owner, "u-4": other}}
		proc := &fakeProcessor{sessions: map[string]*payment.Session{
			"cs_1": {ID: "cs_1", PaymentStatus: paid, AmountTotal: amount, PaymentIntent: "pi_1",
				Metadata: map[string]string{"userId": "u-3", "paymentType": "instructor_registration"}},
			"cs_blank": {ID: "cs_blank", PaymentStatus: paid, AmountTotal: amount,
				Metadata: map[string]string{"userId": "", "paymentType": "instructor_registration"}},
			"cs_course": {ID: "cs_course", PaymentStatus: paid, AmountTotal: amount,
				Metadata: map[string]string{"user_id": "u-3", "course_id": "c1"}},
		}}
		pub := newPublisher()
		h := NewAuthHandler(prov, auth.NewBuilder(prov, repository.NewRepos(nil)), proc, payCfg, "", pub, nil)
		e := echo.New()
		e.POST("/api/verify-instructor-payment", h.VerifyInstructorPayment)
		return e, prov, pub
	}

	t.Run("activates by id", func(t *testing.T) {
		e, prov, pub := newHandler(payment.StatusPaid, 150000)
		rec := do(e, http.MethodPost, "/api/verify-instructor-payment", "", `{"sessionId":"cs_1","email":"i@example.com","userId":"u-3"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, auth.PaymentCompleted, prov.updated["payment_status"])
		assert.Equal(t, "Ada", prov.updated["name"])
		assert.Equal(t, "cs_1", prov.updated["payment_reference"])
		assert.Equal(t, "pi_1", prov.updated["stripe_payment_intent"])

		ev := pub.next(t)
		assert.Equal(t, queue.InstructorActivatedQueue, ev.queue)
		assert.Equal(t, "u-3", ev.event.(queue.InstructorActivatedEvent).UserID)
	})

	t.Run("falls back to email scan without id", func(t *testing.T) {
		e, prov, _ := newHandler(payment.StatusPaid, 150000)
		rec := do(e, http.MethodPost, "/api/verify-instructor-payment", "", `{"sessionId":"cs_1","email":"i@example.com"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, auth.PaymentCompleted, prov.updated["payment_status"])
	})

	t.Run("email must match the id", func(t *testing.T) {
		e, prov, _ := newHandler(payment.StatusPaid, 150000)
		rec := do(e, http.MethodPost, "/api/verify-instructor-payment", "", `{"sessionId":"cs_1","email":"x@example.com","userId":"u-3"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Nil(t, prov.updated)
	})

	t.Run("unpaid", func(t *testing.T) {
		e, _, _ := newHandler("unpaid", 150000)
		rec := do(e, http.MethodPost, "/api/verify-instructor-payment", "", `{"sessionId":"cs_1","email":"i@example.com","userId":"u-3"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Payment was not successful","status":"unpaid"}`, rec.Body.String())
	})

	t.Run("short amount", func(t *testing.T) {
		e, _, _ := newHandler(payment.StatusPaid, 1500)
		rec := do(e, http.MethodPost, "/api/verify-instructor-payment", "", `{"sessionId":"cs_1","email":"i@example.com","userId":"u-3"}`)
		assert.JSONEq(t, `{"error":"Payment amount is incorrect"}`, rec.Body.String())
	})

	t.Run("session cannot activate a second account", func(t *testing.T) {
		e, prov, _ := newHandler(payment.StatusPaid, 150000)
		rec := do(e, http.MethodPost, "/api/verify-instructor-payment", "", `{"sessionId":"cs_1","email":"i@example.com","userId":"u-3"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		prov.updated = nil

		rec = do(e, http.MethodPost, "/api/verify-instructor-payment", "", `{"sessionId":"cs_1","email":"j@example.com","userId":"u-4"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"error":"Session mismatch"}`, rec.Body.String())
		assert.Nil(t, prov.updated)
	})

	t.Run("session without an owner is rejected", func(t *testing.T) {
		e, prov, _ := newHandler(payment.StatusPaid, 150000)
		for _, body := range []string{
			`{"sessionId":"cs_blank","email":"i@example.com","userId":"u-3"}`,
			`{"sessionId":"cs_blank","email":"j@example.com","userId":"u-4"}`,
		} {
			rec := do(e, http.MethodPost, "/api/verify-instructor-payment", "", body)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		}
		assert.Nil(t, prov.updated)
	})

	t.Run("course checkout session is rejected", func(t *testing.T) {
		e, prov, _ := newHandler(payment.StatusPaid, 150000)
		rec := do(e, http.MethodPost, "/api/verify-instructor-payment", "", `{"sessionId":"cs_course","email":"i@example.com","userId":"u-3"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"error":"Session mismatch"}`, rec.Body.String())
		assert.Nil(t, prov.updated)
	})
}

func TestCreateInstructorPayment(t *testing.T) {
	prov := &fakeProvider{}
	proc := &fakeProcessor{}
	h := NewAuthHandler(prov, auth.NewBuilder(prov, repository.NewRepos(nil)), proc, payCfg, "http://localhost:5000", nil, nil)
	e := echo.New()
	e.POST("/api/create-instructor-payment", h.CreateInstructorPayment)

	rec := do(e, http.MethodPost, "/api/create-instructor-payment", "", `{"email":"i@example.com","name":"Ada","amount":150000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Email, name, userId, and amount are required"}`, rec.Body.String())
	assert.Nil(t, proc.created)

	rec = do(e, http.MethodPost, "/api/create-instructor-payment", "", `{"email":"i@example.com","name":"Ada","userId":"u-3","amount":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, proc.created)
	assert.Equal(t, "u-3", proc.created.Metadata["userId"])
	assert.Equal(t, "instructor_registration", proc.created.Metadata["paymentType"])
	assert.Equal(t, payCfg.InstructorFeeCents, proc.created.Items[0].UnitAmount)
}

func TestCreateInstructorPayment_NotConfigured(t *testing.T) {
	prov := &fakeProvider{}
	h := NewAuthHandler(prov, auth.NewBuilder(prov, repository.NewRepos(nil)), payment.NewStripeProcessor("", nil), payCfg, "", nil, nil)
	e := echo.New()
	e.POST("/api/create-instructor-payment", h.CreateInstructorPayment)

	rec := do(e, http.MethodPost, "/api/create-instructor-payment", "", `{"email":"i@example.com","name":"Ada","userId":"u-3","amount":150000}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Payment system not configured. Please contact administrator."}`, rec.Body.String())
}

// authed mounts h behind the authentication middleware the way the router
// does.  Token "u1" belongs to instructor U1 and "l1" to learner L1.
func authed(repos *repository.Repos) (*echo.Echo, echo.MiddlewareFunc) {
	prov := &fakeProvider{tokens: map[string]*identity.User{
		"u1": {ID: "U1", Email: "u1@example.com", Metadata: map[string]any{"role": "instructor", "payment_status": "completed"}},
		"l1": {ID: "L1", Email: "l1@example.com"},
	}}
	return echo.New(), middleware.Authenticate(auth.NewBuilder(prov, repos), nil)
}

func TestUpdateCourse_OtherInstructorIsForbidden(t *testing.T) {
	repos, mock := newRepos(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET updated_at = CURRENT_TIMESTAMP, title = ? WHERE id = ? AND instructor_id = ?")).
		WithArgs("New", "c1", "U1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT instructor_id FROM courses WHERE id = ?")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"instructor_id"}).AddRow("U2"))

	e, mw := authed(repos)
	h := NewCourseManagementHandler(repos, nil)
	e.PUT("/api/course-management/:courseId", h.Update, mw)

	rec := do(e, http.MethodPut, "/api/course-management/c1", "u1", `{"title":"New"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Not authorized to update this course"}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProtectedRoute_InvalidBearer(t *testing.T) {
	repos, _ := newRepos(t)
	e, mw := authed(repos)
	h := NewCourseManagementHandler(repos, nil)
	e.DELETE("/api/course-management/:courseId", h.Delete, mw)

	rec := do(e, http.MethodDelete, "/api/course-management/c1", "abc", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid or expired token"}`, rec.Body.String())
}

func TestUploadFile_OwnershipBeforeStorage(t *testing.T) {
	repos, mock := newRepos(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT instructor_id FROM courses WHERE id = ?")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"instructor_id"}).AddRow("U2"))

	e, mw := authed(repos)
	h := NewCourseManagementHandler(repos, nil)
	e.POST("/api/course-management/:courseId/upload-file", h.UploadFile, mw)

	body := "--x\r\nContent-Disposition: form-data; name=\"fileType\"\r\n\r\nvideo\r\n" +
		"--x\r\nContent-Disposition: form-data; name=\"file\"; filename=\"a.mp4\"\r\nContent-Type: video/mp4\r\n\r\nDATA\r\n--x--\r\n"
	req := httptest.NewRequest(http.MethodPost, "/api/course-management/c1/upload-file", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, "multipart/form-data; boundary=x")
	req.Header.Set(echo.HeaderAuthorization, "Bearer u1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Not authorized to upload files to this course"}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

var enrollmentCols = []string{"id", "user_id", "course_id", "progress_percent", "purchased", "payment_session_id", "payment_amount", "created_at"}

func TestEnroll(t *testing.T) {
	t.Run("free course", func(t *testing.T) {
		repos, mock := newRepos(t)
		mock.ExpectQuery("FROM courses WHERE id").WithArgs("c1").WillReturnRows(courseRow("c1", "U2", 0))
		mock.ExpectExec("INSERT INTO enrollments").WithArgs(sqlmock.AnyArg(), "L1", "c1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM enrollments e WHERE").WithArgs("L1", "c1").
			WillReturnRows(sqlmock.NewRows(enrollmentCols).AddRow("e1", "L1", "c1", 0, false, nil, nil, time.Now()))

		pub := newPublisher()
		e, mw := authed(repos)
		h := NewEnrollmentHandler(repos, pub)
		e.POST("/api/enrollments/enroll", h.Enroll, mw)

		rec := do(e, http.MethodPost, "/api/enrollments/enroll", "l1", `{"course_id":"c1","purchased":true}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"purchased":false`)

		ev := pub.next(t)
		assert.Equal(t, queue.EnrollmentCreatedQueue, ev.queue)
		assert.Equal(t, "Go Basics", ev.event.(queue.EnrollmentCreatedEvent).CourseTitle)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("paid course", func(t *testing.T) {
		repos, mock := newRepos(t)
		mock.ExpectQuery("FROM courses WHERE id").WithArgs("c2").WillReturnRows(courseRow("c2", "U2", 4900))

		e, mw := authed(repos)
		h := NewEnrollmentHandler(repos, nil)
		e.POST("/api/enrollments/:courseId", h.EnrollPath, mw)

		rec := do(e, http.MethodPost, "/api/enrollments/c2", "l1", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"This course requires payment"}`, rec.Body.String())
	})

	t.Run("missing course", func(t *testing.T) {
		repos, mock := newRepos(t)
		mock.ExpectQuery("FROM courses WHERE id").WithArgs("nope").WillReturnRows(sqlmock.NewRows(courseCols))

		e, mw := authed(repos)
		h := NewEnrollmentHandler(repos, nil)
		e.POST("/api/enrollments/:courseId", h.EnrollPath, mw)

		rec := do(e, http.MethodPost, "/api/enrollments/nope", "l1", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestPaymentVerify_SessionMustBelongToCaller(t *testing.T) {
	repos, mock := newRepos(t)
	proc := &fakeProcessor{sessions: map[string]*payment.Session{
		"cs_2": {ID: "cs_2", PaymentStatus: payment.StatusPaid, AmountTotal: 4900, Metadata: map[string]string{"user_id": "someone-else", "course_id": "c2"}},
	}}
	e, mw := authed(repos)
	h := NewPaymentHandler(repos, proc, payCfg, "", nil)
	e.POST("/api/payments/verify", h.Verify, mw)

	rec := do(e, http.MethodPost, "/api/payments/verify", "l1", `{"sessionId":"cs_2","courseId":"c2"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Session mismatch"}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentVerify_AmountMustMatchPrice(t *testing.T) {
	newHandler := func(t *testing.T, amount int64) (*echo.Echo, sqlmock.Sqlmock) {
		repos, mock := newRepos(t)
		proc := &fakeProcessor{sessions: map[string]*payment.Session{
			"cs_3": {ID: "cs_3", PaymentStatus: payment.StatusPaid, AmountTotal: amount, Metadata: map[string]string{"user_id": "L1", "course_id": "c2"}},
		}}
		e, mw := authed(repos)
		h := NewPaymentHandler(repos, proc, payCfg, "", nil)
		e.POST("/api/payments/verify", h.Verify, mw)
		return e, mock
	}

	t.Run("mismatch", func(t *testing.T) {
		e, mock := newHandler(t, 100)
		mock.ExpectQuery("FROM courses WHERE id").WithArgs("c2").WillReturnRows(courseRow("c2", "U2", 4900))

		rec := do(e, http.MethodPost, "/api/payments/verify", "l1", `{"sessionId":"cs_3","courseId":"c2"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Payment amount mismatch"}`, rec.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exact price", func(t *testing.T) {
		e, mock := newHandler(t, 4900)
		mock.ExpectQuery("FROM courses WHERE id").WithArgs("c2").WillReturnRows(courseRow("c2", "U2", 4900))
		mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE purchased = TRUE")).
			WithArgs(sqlmock.AnyArg(), "L1", "c2", "cs_3", int64(4900)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM enrollments e WHERE").WithArgs("L1", "c2").
			WillReturnRows(sqlmock.NewRows(enrollmentCols).AddRow("e2", "L1", "c2", 0, true, "cs_3", int64(4900), time.Now()))

		rec := do(e, http.MethodPost, "/api/payments/verify", "l1", `{"sessionId":"cs_3","courseId":"c2"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"purchased":true`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing course", func(t *testing.T) {
		e, mock := newHandler(t, 4900)
		mock.ExpectQuery("FROM courses WHERE id").WithArgs("c2").WillReturnRows(sqlmock.NewRows(courseCols))

		rec := do(e, http.MethodPost, "/api/payments/verify", "l1", `{"sessionId":"cs_3","courseId":"c2"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Course not found"}`, rec.Body.String())
	})
}

func TestCheckEnrollment_NotEnrolled(t *testing.T) {
	repos, mock := newRepos(t)
	mock.ExpectQuery("FROM enrollments e WHERE").WithArgs("L1", "c9").WillReturnRows(sqlmock.NewRows(enrollmentCols))

	e, mw := authed(repos)
	h := NewPaymentHandler(repos, nil, payCfg, "", nil)
	e.GET("/api/payments/check-enrollment/:courseId", h.CheckEnrollment, mw)

	rec := do(e, http.MethodGet, "/api/payments/check-enrollment/c9", "l1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"enrolled":false,"purchased":false,"enrollment":null}`, rec.Body.String())
}

func TestListCourses_PagingParams(t *testing.T) {
	repos, mock := newRepos(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery("ORDER BY created_at DESC LIMIT").WithArgs(100, 0).WillReturnRows(courseRow("c1", "U2", 0))

	h := NewCourseHandler(repos)
	e := echo.New()
	e.GET("/api/courses", h.List)

	rec := do(e, http.MethodGet, "/api/courses?limit=500", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = do(e, http.MethodGet, "/api/courses?offset=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsFor(t *testing.T) {
	s := statsFor([]*model.Enrollment{
		{ProgressPercent: 50, Course: &model.CourseSummary{Title: "Latest"}},
		{ProgressPercent: 100, Course: &model.CourseSummary{Title: "Older"}},
	})
	assert.Equal(t, 2, s.EnrolledCourses)
	assert.Equal(t, 1, s.CompletedCourses)
	assert.Equal(t, 7.0, s.LearningHours)
	assert.Equal(t, "Latest", s.LastAccessedCourse)

	empty := statsFor(nil)
	assert.Equal(t, "No courses yet", empty.LastAccessedCourse)
	assert.Zero(t, empty.LearningHours)
}

func TestUpdateMe_RejectsProtectedFields(t *testing.T) {
	repos, _ := newRepos(t)
	e, mw := authed(repos)
	h := NewProfileHandler(&fakeProvider{})
	e.PATCH("/api/profiles/me", h.UpdateMe, mw)

	rec := do(e, http.MethodPatch, "/api/profiles/me", "l1", `{"bio":"hi","role":"instructor"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(e, http.MethodPatch, "/api/profiles/me", "l1", `{"payment_status":"completed"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHTTPErrorHandler(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler

	rec := do(e, http.MethodGet, "/api/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/missing.html", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	assert.Contains(t, rec.Body.String(), "Page not found")
}
