package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nextstep/nextstep-bff/internal/guard"
	"github.com/nextstep/nextstep-bff/internal/session"
)

// Sessions resolves the request's session store from the cookie. Requests
// without a usable cookie get an empty, ready store that is never persisted.
func Sessions(reg *session.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ReadSessionID(r)
			var st *session.Store
			if _, err := uuid.Parse(sid); err == nil {
				st = reg.Get(r.Context(), sid)
			} else {
				sid = ""
				st = session.NewStore(nil)
				st.MarkReady()
			}
			next.ServeHTTP(w, r.WithContext(session.WithStore(r.Context(), sid, st)))
		})
	}
}

// RequireReady holds API calls until the session finished bootstrapping, so
// they never race the bootstrap refresh. After wait it answers like the guard
// does for pages.
func RequireReady(wait time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := session.FromContext(r.Context())
			if st != nil && !st.Ready() {
				ctx, cancel := context.WithTimeout(r.Context(), wait)
				err := st.WaitReady(ctx)
				cancel()
				if err != nil {
					guard.Write(w, r, guard.Decision{Outcome: guard.Loading})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GuardState reads guard.State from the request's session.
func GuardState(r *http.Request) guard.State {
	return guard.StateOf(session.FromContext(r.Context()))
}
