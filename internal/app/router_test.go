package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notiongate/notiongate/internal/auth"
	"github.com/notiongate/notiongate/internal/observability"
	"github.com/notiongate/notiongate/internal/shared"
)

// emptyRepo holds no users.
type emptyRepo struct{}

func (emptyRepo) FindByEmail(context.Context, string) (*auth.User, error) {
	return nil, shared.ErrNotFound
}
func (emptyRepo) CreateUser(context.Context, auth.NewUser) error { return nil }
func (emptyRepo) UpdateSession(context.Context, auth.SessionUpdate) error {
	return shared.ErrNotFound
}
func (emptyRepo) IncrementFailedAttempts(context.Context, string) error { return nil }
func (emptyRepo) FindBySessionToken(context.Context, string, time.Time) ([]auth.User, error) {
	return nil, nil
}
func (emptyRepo) FindByRefreshToken(context.Context, string, time.Time) ([]auth.User, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics()
	cfg := &Config{AppEnv: "test", RateLimitPerMinute: 1000, AppRequestTimeout: 5 * time.Second}
	service := auth.NewService(emptyRepo{}, auth.WithPasswordCost(4), auth.WithEvents(metrics))
	cookies := auth.NewCookieManager(false)
	return NewRouter(RouterParams{
		Logger:      logger,
		Config:      cfg,
		AuthHandler: auth.NewHandler(logger, service, cookies),
		Guard:       auth.NewGuard(logger, service, cookies, metrics),
		Metrics:     metrics,
	})
}

func TestRouterHealthz(t *testing.T) {
	router := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestRouterDoesNotExposeMetrics(t *testing.T) {
	router := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.NotContains(t, rr.Body.String(), "go_goroutines")
}

func TestMetricsRouterServesRegistry(t *testing.T) {
	router := NewMetricsRouter(observability.NewMetrics())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestRouterGuardsProtectedPages(t *testing.T) {
	router := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestRouterGuardsProtectedAPI(t *testing.T) {
	router := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/content?pageId=x", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":false`)
}

func TestRouterAuthCheckIsPublic(t *testing.T) {
	router := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/auth/check", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No session token found")
}

func TestRouterServesStaticWithCacheHeader(t *testing.T) {
	router := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
}

func TestRouterRateLimitsCredentialMutationsOnly(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := auth.NewService(emptyRepo{}, auth.WithPasswordCost(4))
	cookies := auth.NewCookieManager(false)
	router := NewRouter(RouterParams{
		Logger:      logger,
		Config:      &Config{RateLimitPerMinute: 2},
		AuthHandler: auth.NewHandler(logger, service, cookies),
		Guard:       auth.NewGuard(logger, service, cookies, nil),
	})
	serve := func(method, path string) int {
		var body io.Reader
		if method == http.MethodPost {
			body = strings.NewReader(`{}`)
		}
		req := httptest.NewRequest(method, path, body)
		req.RemoteAddr = "203.0.113.9:1234"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 4; i++ {
		assert.Equal(t, http.StatusOK, serve(http.MethodGet, "/healthz"))
		assert.Equal(t, http.StatusOK, serve(http.MethodGet, "/api/auth/check"))
	}

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, serve(http.MethodPost, "/api/auth"))
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
	assert.Equal(t, http.StatusTooManyRequests, serve(http.MethodPost, "/api/signup"))
	assert.Equal(t, http.StatusOK, serve(http.MethodGet, "/healthz"))
}
