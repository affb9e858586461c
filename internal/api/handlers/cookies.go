package handlers

import (
	"net/http"
	"time"
)

const SessionCookieName = "nextstep_sid"

// CookieConfig controls the session cookie. Secure cookies use the __Host-
// prefix, which browsers only accept over HTTPS with Path=/ and no Domain.
type CookieConfig struct {
	Secure bool
	TTL    time.Duration
}

func (c CookieConfig) name() string {
	if c.Secure {
		return "__Host-" + SessionCookieName
	}
	return SessionCookieName
}

func (c CookieConfig) Set(w http.ResponseWriter, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.TTL.Seconds()),
	})
}

func (c CookieConfig) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// ReadSessionID prefers the __Host- cookie and falls back to the plain name
// used in local non-HTTPS development.
func ReadSessionID(r *http.Request) string {
	if c, err := r.Cookie("__Host-" + SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}
