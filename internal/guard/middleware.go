package guard

import (
	"encoding/json"
	"net/http"

	"github.com/nextstep/nextstep-bff/internal/domain"
	"github.com/nextstep/nextstep-bff/internal/logger"
	"github.com/nextstep/nextstep-bff/middleware"
)

// StateFunc reads the guard state of the request's session.
type StateFunc func(r *http.Request) State

// Middleware gates next behind required roles.
func Middleware(required []domain.Role, state StateFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Decide(state(r), required, r.URL.RequestURI())
			middleware.ObserveGuard(d.Outcome.String())
			if d.Outcome == Allow {
				next.ServeHTTP(w, r)
				return
			}
			logger.Ctx(r.Context()).Debug().
				Str("outcome", d.Outcome.String()).
				Str("path", r.URL.Path).
				Str("location", d.Location).
				Msg("route_guard")
			Write(w, r, d)
		})
	}
}

// Public applies DecidePublic before next.
func Public(state StateFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := DecidePublic(state(r), r.URL.RequestURI())
			middleware.ObserveGuard(d.Outcome.String())
			if d.Outcome == Allow {
				next.ServeHTTP(w, r)
				return
			}
			Write(w, r, d)
		})
	}
}

// Write renders a non-Allow decision: 202 while bootstrapping, else a 302.
func Write(w http.ResponseWriter, r *http.Request, d Decision) {
	switch d.Outcome {
	case Loading:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"view": "loading"},
		})
	case RedirectLogin, RedirectHome:
		http.Redirect(w, r, d.Location, http.StatusFound)
	}
}
