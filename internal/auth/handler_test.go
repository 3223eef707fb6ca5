package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notiongate/notiongate/internal/auth"
)

type envelope struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	NewSessionToken string `json:"newSessionToken"`
}

func newAuthRouter(f *fixture) http.Handler {
	r := chi.NewRouter()
	handler := auth.NewHandler(nil, f.service, auth.NewCookieManager(true))
	handler.MountRoutes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "handler-test")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	var env envelope
	if strings.HasPrefix(res.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &env))
	}
	return res, env
}

func cookieByName(res *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range res.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignupAndLoginEndpoints(t *testing.T) {
	f := newFixture()
	router := newAuthRouter(f)

	res, env := doJSON(t, router, http.MethodPost, "/api/signup", `{"name":"Ada","email":"Ada@Example.com"}`)
	require.Equal(t, http.StatusOK, res.Code)
	assert.True(t, env.Success)
	assert.NotContains(t, res.Body.String(), f.sink.last().Password)
	assert.Equal(t, "ada@example.com", f.sink.last().Email)

	body := `{"email":"ada@example.com","password":"` + f.sink.last().Password + `"}`
	loginAt := time.Now()
	res, env = doJSON(t, router, http.MethodPost, "/api/auth", body)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Login successful", env.Message)

	session := cookieByName(res, auth.SessionCookieName)
	refresh := cookieByName(res, auth.RefreshCookieName)
	require.NotNil(t, session)
	require.NotNil(t, refresh)
	assert.True(t, session.HttpOnly)
	assert.True(t, session.Secure)
	assert.Equal(t, http.SameSiteStrictMode, session.SameSite)
	assert.Equal(t, "/", session.Path)
	assert.WithinDuration(t, loginAt.Add(24*time.Hour), session.Expires, time.Minute)
	assert.WithinDuration(t, loginAt.Add(30*24*time.Hour), refresh.Expires, time.Minute)
	assert.Equal(t, "handler-test", f.repo.user("ada@example.com").UserAgent)

	res, env = doJSON(t, router, http.MethodGet, "/api/auth/check", "", session)
	require.Equal(t, http.StatusOK, res.Code)
	assert.True(t, env.Success)
}

func TestSignupEndpointErrors(t *testing.T) {
	f := newFixture()
	router := newAuthRouter(f)

	res, _ := doJSON(t, router, http.MethodPost, "/api/signup", `{"name":"Ada"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res, _ = doJSON(t, router, http.MethodPost, "/api/signup", `{"name":"Ada","email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res, _ = doJSON(t, router, http.MethodPost, "/api/signup", `{"name":"Ada","email":"ada@example.com","admin":true}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res, _ = doJSON(t, router, http.MethodPost, "/api/signup", `{"name":"Ada","email":"ada@example.com"}`)
	require.Equal(t, http.StatusOK, res.Code)
	res, env := doJSON(t, router, http.MethodPost, "/api/signup", `{"name":"Ada","email":"ada@example.com"}`)
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.False(t, env.Success)
}

func TestLoginEndpointInvalidCredentials(t *testing.T) {
	f := newFixture()
	router := newAuthRouter(f)
	_, err := f.signup("Ada", "ada@example.com")
	require.NoError(t, err)

	wrong, wrongEnv := doJSON(t, router, http.MethodPost, "/api/auth", `{"email":"ada@example.com","password":"bad"}`)
	unknown, unknownEnv := doJSON(t, router, http.MethodPost, "/api/auth", `{"email":"nobody@example.com","password":"bad"}`)

	for _, res := range []*httptest.ResponseRecorder{wrong, unknown} {
		assert.Equal(t, http.StatusUnauthorized, res.Code)
		assert.Empty(t, res.Result().Cookies())
	}
	assert.Equal(t, wrongEnv, unknownEnv)
	assert.Equal(t, "Invalid credentials", wrongEnv.Message)

	res, _ := doJSON(t, router, http.MethodPost, "/api/auth", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLoginEndpointStoreFailure(t *testing.T) {
	f := newFixture()
	router := newAuthRouter(f)
	f.repo.setErr(assert.AnError)

	res, env := doJSON(t, router, http.MethodPost, "/api/auth", `{"email":"ada@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Equal(t, "Server error", env.Message)
	assert.NotContains(t, res.Body.String(), assert.AnError.Error())
}

func TestRefreshEndpoint(t *testing.T) {
	f := newFixture()
	router := newAuthRouter(f)
	password, err := f.signup("Ada", "ada@example.com")
	require.NoError(t, err)
	res, _ := doJSON(t, router, http.MethodPost, "/api/auth", `{"email":"ada@example.com","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, res.Code)
	oldSession := cookieByName(res, auth.SessionCookieName)
	refresh := cookieByName(res, auth.RefreshCookieName)

	res, env := doJSON(t, router, http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "No refresh token provided", env.Message)

	res, env = doJSON(t, router, http.MethodPost, "/api/refresh", "", &http.Cookie{Name: auth.RefreshCookieName, Value: "bogus"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Nil(t, cookieByName(res, auth.SessionCookieName))

	res, env = doJSON(t, router, http.MethodPost, "/api/refresh", "", refresh)
	require.Equal(t, http.StatusOK, res.Code)
	assert.True(t, env.Success)
	newSession := cookieByName(res, auth.SessionCookieName)
	require.NotNil(t, newSession)
	assert.Equal(t, env.NewSessionToken, newSession.Value)
	assert.NotEqual(t, oldSession.Value, newSession.Value)
	assert.Nil(t, cookieByName(res, auth.RefreshCookieName))
	assert.Equal(t, refresh.Value, f.repo.user("ada@example.com").RefreshToken)
}

func TestCheckAndLogoutEndpoints(t *testing.T) {
	f := newFixture()
	router := newAuthRouter(f)

	res, env := doJSON(t, router, http.MethodGet, "/api/auth/check", "")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "No session token found", env.Message)

	res, env = doJSON(t, router, http.MethodGet, "/api/auth/check", "", &http.Cookie{Name: auth.SessionCookieName, Value: "stale"})
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Session invalid", env.Message)

	for i := 0; i < 2; i++ {
		res, env = doJSON(t, router, http.MethodPost, "/api/auth/logout", "")
		require.Equal(t, http.StatusOK, res.Code)
		assert.True(t, env.Success)
		for _, name := range []string{auth.SessionCookieName, auth.RefreshCookieName} {
			c := cookieByName(res, name)
			require.NotNil(t, c, name)
			assert.Empty(t, c.Value)
			assert.Equal(t, "/", c.Path)
			assert.Negative(t, c.MaxAge)
		}
	}
}
