package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nextstep/nextstep-bff/internal/domain"
	"github.com/nextstep/nextstep-bff/internal/logger"
	"github.com/nextstep/nextstep-bff/internal/session"
)

type SessionService interface {
	Login(ctx context.Context, st *session.Store, creds domain.LoginCredentials) (domain.User, error)
	Register(ctx context.Context, st *session.Store, reg domain.Registration) (domain.User, error)
	Logout(ctx context.Context, st *session.Store) error
	UpdateProfile(ctx context.Context, st *session.Store, patch domain.UserPatch) (domain.User, error)
	ChangePassword(ctx context.Context, st *session.Store, pc domain.PasswordChange) error
}

type SessionHandler struct {
	svc       SessionService
	reg       *session.Registry
	cookie    CookieConfig
	validate  *validator.Validate
	readyWait time.Duration
}

func NewSessionHandler(svc SessionService, reg *session.Registry, cookie CookieConfig) *SessionHandler {
	return &SessionHandler{
		svc:       svc,
		reg:       reg,
		cookie:    cookie,
		validate:  newValidator(),
		readyWait: 3 * time.Second,
	}
}

// SessionView is the session as the SPA sees it.
type SessionView struct {
	Authenticated bool                `json:"authenticated"`
	Status        string              `json:"status"`
	User          *domain.User        `json:"user"`
	Landing       string              `json:"landing"`
	Capabilities  []domain.Capability `json:"capabilities"`
}

func viewOf(st *session.Store) SessionView {
	v := SessionView{
		Status:       st.Status().String(),
		Landing:      "/auth",
		Capabilities: []domain.Capability{},
	}
	if u, ok := st.User(); ok && st.IsAuthenticated() {
		v.Authenticated = true
		v.User = &u
		v.Landing = u.Role.LandingPath()
		v.Capabilities = u.Role.Capabilities()
	}
	return v
}

// Get returns the current session, waiting briefly for a bootstrap in flight.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	st := session.FromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), h.readyWait)
	_ = st.WaitReady(ctx)
	cancel()
	ok(w, viewOf(st))
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in domain.LoginCredentials
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		writeError(w, r, validationError(err))
		return
	}
	h.authenticate(w, r, http.StatusOK, func(ctx context.Context, st *session.Store) error {
		_, err := h.svc.Login(ctx, st, in)
		return err
	})
}

func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in domain.Registration
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		writeError(w, r, validationError(err))
		return
	}
	h.authenticate(w, r, http.StatusCreated, func(ctx context.Context, st *session.Store) error {
		_, err := h.svc.Register(ctx, st, in)
		return err
	})
}

// authenticate runs fn against a store under a new session id and only
// switches the browser to it on success. The previous session is discarded.
func (h *SessionHandler) authenticate(w http.ResponseWriter, r *http.Request, status int, fn func(context.Context, *session.Store) error) {
	sid := h.reg.NewSID()
	st := h.reg.Fresh(sid)
	ctx := session.WithStore(r.Context(), sid, st)

	if err := fn(ctx, st); err != nil {
		h.reg.Drop(sid)
		writeError(w, r, err)
		return
	}

	if oldSID := session.SIDFromContext(r.Context()); oldSID != "" && oldSID != sid {
		if old := session.FromContext(r.Context()); old != nil {
			if err := old.ClearAuth(ctx); err != nil {
				logger.Ctx(ctx).Warn().Err(err).Msg("previous_session_clear_failed")
			}
		}
		h.reg.Drop(oldSID)
	}

	h.cookie.Set(w, sid)
	writeJSON(w, status, envelope{Data: viewOf(st)})
}

// Logout always ends the browser session, whatever the API says.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.svc.Logout(ctx, session.FromContext(ctx)); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("session_logout_failed")
	}
	if sid := session.SIDFromContext(ctx); sid != "" {
		h.reg.Drop(sid)
	}
	h.cookie.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch domain.UserPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), session.FromContext(r.Context()), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, u)
}

func (h *SessionHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var in domain.PasswordChange
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		writeError(w, r, validationError(err))
		return
	}
	if err := h.svc.ChangePassword(r.Context(), session.FromContext(r.Context()), in); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
