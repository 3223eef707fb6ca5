package auth

import (
	"net/http"
	"time"
)

const (
	// SessionCookieName carries the session token.
	SessionCookieName = "session_token"
	// RefreshCookieName carries the refresh token.
	RefreshCookieName = "refresh_token"
)

// CookieManager writes the credential cookies. Both are HttpOnly, SameSite
// Strict and scoped to the whole site.
type CookieManager struct {
	secure bool
	now    func() time.Time
}

// NewCookieManager constructs a CookieManager. secure should be true outside
// development.
func NewCookieManager(secure bool) *CookieManager {
	return &CookieManager{secure: secure, now: time.Now}
}

// SetSession writes the session cookie.
func (cm *CookieManager) SetSession(w http.ResponseWriter, token Token) {
	http.SetCookie(w, cm.cookie(SessionCookieName, token))
}

// SetRefresh writes the refresh cookie.
func (cm *CookieManager) SetRefresh(w http.ResponseWriter, token Token) {
	http.SetCookie(w, cm.cookie(RefreshCookieName, token))
}

// Clear expires both credential cookies.
func (cm *CookieManager) Clear(w http.ResponseWriter) {
	for _, name := range []string{SessionCookieName, RefreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cm.secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func (cm *CookieManager) cookie(name string, token Token) *http.Cookie {
	maxAge := int(token.ExpiresAt.Sub(cm.now()).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    token.Value,
		Path:     "/",
		Expires:  token.ExpiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cm.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ReadCookie returns the named cookie value or "" when absent.
func ReadCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
