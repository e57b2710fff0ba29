package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/learntrack/internal/auth"
	"github.com/iliyamo/learntrack/internal/config"
	"github.com/iliyamo/learntrack/internal/identity"
	"github.com/iliyamo/learntrack/internal/repository"
)

type stubProvider struct {
	identity.Provider
	users map[string]*identity.User
	err   error
}

func (s *stubProvider) VerifyToken(_ context.Context, token string) (*identity.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, identity.ErrInvalidToken
}

func newBuilder(p identity.Provider) *auth.Builder {
	return auth.NewBuilder(p, repository.NewRepos(nil))
}

func serve(t *testing.T, mw echo.MiddlewareFunc, h echo.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/api/x", h, mw)
	e.POST("/api/x", h, mw)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func ok(c echo.Context) error {
	p := PrincipalFrom(c)
	return c.JSON(http.StatusOK, echo.Map{"id": p.ID, "role": p.Role, "store": StoreFrom(c).UserID()})
}

func TestAuthenticate_InvalidBearer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	req.Header.Set("Authorization", "Bearer abc")

	rec := serve(t, Authenticate(newBuilder(&stubProvider{}), m), ok, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid or expired token"}`, rec.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authFailures.WithLabelValues("invalid")))
}

func TestAuthenticate_Missing(t *testing.T) {
	rec := serve(t, Authenticate(newBuilder(&stubProvider{}), nil), ok, httptest.NewRequest(http.MethodGet, "/api/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Missing Authorization token"}`, rec.Body.String())
}

func TestAuthenticate_ProviderDown(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/x?token=abc", nil)
	rec := serve(t, Authenticate(newBuilder(&stubProvider{err: identity.ErrUnavailable}), nil), ok, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Authentication check failed"}`, rec.Body.String())
}

func TestAuthenticate_SetsPrincipal(t *testing.T) {
	p := &stubProvider{users: map[string]*identity.User{
		"good": {ID: "u1", Email: "i@example.com", Metadata: map[string]any{"role": "instructor"}},
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/x", strings.NewReader(`{"token":"good"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := serve(t, Authenticate(newBuilder(p), nil), ok, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"u1","role":"instructor","store":"u1"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	p := &stubProvider{users: map[string]*identity.User{
		"learner":    {ID: "u1"},
		"instructor": {ID: "u2", Metadata: map[string]any{"role": "instructor"}},
	}}
	e := echo.New()
	e.POST("/api/create", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		Authenticate(newBuilder(p), nil), RequireRole("Only instructors can create courses", auth.RoleInstructor))

	for tok, want := range map[string]int{"learner": http.StatusForbidden, "instructor": http.StatusCreated} {
		req := httptest.NewRequest(http.MethodPost, "/api/create", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, tok)
		if want == http.StatusForbidden {
			assert.JSONEq(t, `{"error":"Only instructors can create courses"}`, rec.Body.String())
		}
	}
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/courses/:id", func(c echo.Context) error { return c.JSON(http.StatusNotFound, echo.Map{"error": "Course not found"}) })

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/courses/"+id, nil))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/courses/:id", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))

	m.GateDenied()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gateDenials))

	var nilMetrics *Metrics
	nilMetrics.GateDenied()
	nilMetrics.AuthFailure("x")
}

func TestDisabledRedisMiddlewaresPassThrough(t *testing.T) {
	cache := NewRedisCache(config.CacheConfig{Enabled: true}, nil, nil)
	limit := NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil)
	e := echo.New()
	e.GET("/api/courses", func(c echo.Context) error { return c.String(http.StatusOK, "list") }, cache, limit)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/courses", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestRedisCache_OnlyAllowedRoutes(t *testing.T) {
	// nothing listens here: allowed routes miss and fail to store, others never reach redis
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { rdb.Close() })
	cfg := config.CacheConfig{
		Enabled: true,
		Methods: map[string]bool{http.MethodGet: true},
		Routes:  map[string]bool{"/api/courses/:id": true},
		Prefix:  "lt:cache",
	}
	cache := NewRedisCache(cfg, rdb, nil)
	e := echo.New()
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/api/courses/instructor", ok, cache)
	e.GET("/api/courses/:id", ok, cache)

	get := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}
	rec := get("/api/courses/c1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	rec = get("/api/courses/instructor")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestCacheKeyFrom(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "lt:cache", KeyStrategy: "route_query"}
	e := echo.New()
	key := func(target string, params ...string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/api/courses/:id")
		c.SetParamNames("id")
		c.SetParamValues(params...)
		return cacheKeyFrom(cfg, c)
	}
	a := key("/api/courses/c1", "c1")
	assert.True(t, strings.HasPrefix(a, "lt:cache:"))
	assert.Equal(t, a, key("/api/courses/c1", "c1"))
	assert.NotEqual(t, a, key("/api/courses/c2", "c2"))
	assert.NotEqual(t, a, key("/api/courses/c1?x=1", "c1"))
}

func TestPayloadCodec(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(200, hdr, []byte(`{"data":[]}`))
	require.NoError(t, err)
	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, 200, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"data":[]}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0})
	assert.False(t, ok)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/signin", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/signin")

	assert.Equal(t, "lt:rl:ip:10.0.0.1:route:POST /api/signin",
		buildRateKey(config.RateLimitConfig{Prefix: "lt:rl", KeyStrategy: "ip_route"}, c))
	assert.Equal(t, "lt:rl:user:anon", buildRateKey(config.RateLimitConfig{Prefix: "lt:rl", KeyStrategy: "user"}, c))
	c.Set(ctxUserID, "u1")
	assert.Equal(t, "lt:rl:user:u1", buildRateKey(config.RateLimitConfig{Prefix: "lt:rl", KeyStrategy: "user"}, c))
}
