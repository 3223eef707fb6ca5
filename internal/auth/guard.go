package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/notiongate/notiongate/internal/platform/httpx"
	"github.com/notiongate/notiongate/internal/shared"
)

// Guard decisions reported to GuardRecorder.
const (
	DecisionPublic    = "public"
	DecisionValid     = "valid"
	DecisionRefreshed = "refreshed"
	DecisionMissing   = "missing"
	DecisionExpired   = "expired"
	DecisionError     = "error"
)

var (
	publicPrefixes = []string{"/get-access", "/api/auth", "/api/signup", "/api/refresh", "/static/"}
	publicPaths    = map[string]struct{}{
		"/":            {},
		"/healthz":     {},
		"/favicon.ico": {},
	}
)

// GuardRecorder counts guard decisions.
type GuardRecorder interface {
	GuardDecision(decision string)
}

type noopGuardRecorder struct{}

func (noopGuardRecorder) GuardDecision(string) {}

// Guard protects every non-public route with the session cookie, renewing an
// expired session from the refresh cookie when possible.
type Guard struct {
	logger   *slog.Logger
	service  *Service
	cookies  *CookieManager
	recorder GuardRecorder
}

// NewGuard constructs a Guard. recorder may be nil.
func NewGuard(logger *slog.Logger, service *Service, cookies *CookieManager, recorder GuardRecorder) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = noopGuardRecorder{}
	}
	return &Guard{logger: logger, service: service, cookies: cookies, recorder: recorder}
}

// IsPublicPath reports whether path bypasses the guard.
func IsPublicPath(path string) bool {
	if _, ok := publicPaths[path]; ok {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Middleware returns the chi-compatible guard middleware.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsPublicPath(r.URL.Path) {
			g.recorder.GuardDecision(DecisionPublic)
			next.ServeHTTP(w, r)
			return
		}

		decision, token := g.decide(w, r)
		g.recorder.GuardDecision(decision)
		switch decision {
		case DecisionValid, DecisionRefreshed:
			if decision == DecisionRefreshed {
				r = withSessionCookie(r, token)
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithSessionToken(r.Context(), token)))
		case DecisionMissing:
			g.reject(w, r, "Unauthorized")
		case DecisionExpired:
			g.reject(w, r, "Session expired")
		default:
			http.Redirect(w, r, "/", http.StatusSeeOther)
		}
	})
}

// decide validates the request credentials. A refreshed session cookie is
// written to w before returning.
func (g *Guard) decide(w http.ResponseWriter, r *http.Request) (decision, token string) {
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.Error("route guard panic", slog.String("path", r.URL.Path), slog.Any("panic", rec))
			decision, token = DecisionError, ""
		}
	}()

	sessionToken := ReadCookie(r, SessionCookieName)
	if sessionToken == "" {
		return DecisionMissing, ""
	}
	if g.service.IsSessionValid(r.Context(), sessionToken) {
		return DecisionValid, sessionToken
	}

	refreshToken := ReadCookie(r, RefreshCookieName)
	if refreshToken == "" {
		return DecisionExpired, ""
	}
	result, err := g.service.Refresh(r.Context(), refreshToken, r.UserAgent())
	if err != nil {
		g.logger.Info("session refresh rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
		return DecisionExpired, ""
	}
	g.cookies.SetSession(w, result.Session)
	return DecisionRefreshed, result.Session.Value
}

func (g *Guard) reject(w http.ResponseWriter, r *http.Request, message string) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		httpx.Fail(w, http.StatusUnauthorized, message)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// withSessionCookie returns a copy of r whose session cookie carries token.
func withSessionCookie(r *http.Request, token string) *http.Request {
	clone := r.Clone(r.Context())
	cookies := clone.Cookies()
	clone.Header.Del("Cookie")
	for _, c := range cookies {
		if c.Name == SessionCookieName {
			continue
		}
		clone.AddCookie(c)
	}
	clone.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	return clone
}
