package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nextstep/nextstep-bff/internal/domain"
	"github.com/nextstep/nextstep-bff/internal/downstream"
	"github.com/nextstep/nextstep-bff/internal/logger"
	"github.com/nextstep/nextstep-bff/internal/session"
)

// API is the slice of the upstream /auth endpoints the service needs.
// Implementations must send requests through the session-aware transport.
type API interface {
	Login(ctx context.Context, creds domain.LoginCredentials) (downstream.AuthResult, error)
	Register(ctx context.Context, reg domain.Registration) (downstream.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	CurrentUser(ctx context.Context) (domain.User, error)
	UpdateUser(ctx context.Context, patch domain.UserPatch) (domain.User, error)
	ChangePassword(ctx context.Context, pc domain.PasswordChange) error
}

// Service ties the upstream auth API to a session store.
type Service struct {
	api       API
	refresher downstream.Refresher
	leeway    time.Duration
	readyWait time.Duration
	now       func() time.Time
}

type Option func(*Service)

// WithExpiryLeeway treats access tokens expiring within d as already expired
// during bootstrap.
func WithExpiryLeeway(d time.Duration) Option {
	return func(s *Service) { s.leeway = d }
}

// WithReadyWait bounds how long Logout waits for a bootstrapping session
// to rehydrate before revoking its refresh token.
func WithReadyWait(d time.Duration) Option {
	return func(s *Service) { s.readyWait = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(api API, r downstream.Refresher, opts ...Option) *Service {
	s := &Service{
		api:       api,
		refresher: r,
		leeway:    10 * time.Second,
		readyWait: 3 * time.Second,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// bind makes st the store the authenticated transport acts on.
func bind(ctx context.Context, st *session.Store) context.Context {
	return session.WithStore(ctx, session.SIDFromContext(ctx), st)
}

// Login authenticates upstream and replaces the session. A rejected login
// leaves st untouched.
func (s *Service) Login(ctx context.Context, st *session.Store, creds domain.LoginCredentials) (domain.User, error) {
	ctx = bind(ctx, st)
	res, err := s.api.Login(ctx, creds)
	if err != nil {
		return domain.User{}, err
	}
	if err := st.SetAuth(ctx, res.User, res.Tokens.Access, res.Tokens.Refresh); err != nil {
		return domain.User{}, err
	}
	logger.Ctx(ctx).Info().Str("user_id", res.User.ID).Str("role", res.User.Role.String()).Msg("session_login")
	return res.User, nil
}

func (s *Service) Register(ctx context.Context, st *session.Store, reg domain.Registration) (domain.User, error) {
	if reg.Password != reg.ConfirmPassword {
		return domain.User{}, domain.ErrPasswordMismatch()
	}
	if !reg.Role.Valid() {
		return domain.User{}, domain.ErrInvalidRole(reg.Role.String())
	}

	ctx = bind(ctx, st)
	res, err := s.api.Register(ctx, reg)
	if err != nil {
		return domain.User{}, err
	}
	if err := st.SetAuth(ctx, res.User, res.Tokens.Access, res.Tokens.Refresh); err != nil {
		return domain.User{}, err
	}
	logger.Ctx(ctx).Info().Str("user_id", res.User.ID).Str("role", res.User.Role.String()).Msg("session_registered")
	return res.User, nil
}

// Logout tells the API to blacklist the refresh token and always clears
// the local session, even when the API call fails. A session still
// bootstrapping is waited for, so a token that is only in durable storage
// still gets revoked.
func (s *Service) Logout(ctx context.Context, st *session.Store) error {
	ctx = bind(ctx, st)
	if !st.Ready() {
		wctx, cancel := context.WithTimeout(ctx, s.readyWait)
		err := st.WaitReady(wctx)
		cancel()
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("logout_before_bootstrap")
		}
	}
	if rt := st.RefreshToken(); rt != "" && st.IsAuthenticated() {
		if err := s.api.Logout(ctx, rt); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("upstream_logout_failed")
		}
	}
	return st.ClearAuth(ctx)
}

// Bootstrap rehydrates st and checks the restored session against the API.
// Sessions the API rejects are cleared; sessions that cannot be checked
// because the API is unreachable are kept. st is ready when it returns.
func (s *Service) Bootstrap(ctx context.Context, st *session.Store) {
	defer st.MarkReady()
	ctx = bind(ctx, st)
	log := logger.Ctx(ctx)

	if err := st.Rehydrate(ctx); err != nil {
		log.Warn().Err(err).Msg("session_rehydrate_failed")
		return
	}
	if !st.IsAuthenticated() {
		return
	}

	if rt := st.RefreshToken(); rt != "" && domain.AccessExpired(st.AccessToken(), s.now(), s.leeway) {
		pair, err := s.refresher.Refresh(ctx, rt)
		switch {
		case err == nil:
			if err := st.UpdateTokens(ctx, pair.Access, pair.Refresh); err != nil {
				log.Warn().Err(err).Msg("session_refresh_persist_failed")
			}
		case rejected(err):
			log.Info().Err(err).Msg("session_bootstrap_refresh_rejected")
			s.clear(ctx, st)
			return
		default:
			log.Warn().Err(err).Msg("session_bootstrap_refresh_failed")
			return
		}
	}

	u, err := s.api.CurrentUser(ctx)
	switch {
	case err == nil:
		if err := st.UpdateUser(ctx, domain.PatchFrom(u)); err != nil && !errors.Is(err, session.ErrNoSession) {
			log.Warn().Err(err).Msg("session_user_persist_failed")
		}
	case downstream.IsStatus(err, http.StatusUnauthorized):
		s.clear(ctx, st)
	default:
		log.Warn().Err(err).Msg("session_bootstrap_validate_failed")
	}
}

func (s *Service) clear(ctx context.Context, st *session.Store) {
	if err := st.ClearAuth(ctx); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("session_clear_failed")
	}
}

// UpdateProfile patches the user upstream and merges the stored result.
func (s *Service) UpdateProfile(ctx context.Context, st *session.Store, patch domain.UserPatch) (domain.User, error) {
	if !st.IsAuthenticated() {
		return domain.User{}, domain.ErrNotAuthenticated()
	}
	ctx = bind(ctx, st)
	if patch.Empty() {
		u, _ := st.User()
		return u, nil
	}

	u, err := s.api.UpdateUser(ctx, patch)
	if err != nil {
		return domain.User{}, err
	}
	if err := st.UpdateUser(ctx, domain.PatchFrom(u)); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return domain.User{}, domain.ErrSessionExpired()
		}
		return domain.User{}, err
	}
	updated, _ := st.User()
	return updated, nil
}

func (s *Service) ChangePassword(ctx context.Context, st *session.Store, pc domain.PasswordChange) error {
	if !st.IsAuthenticated() {
		return domain.ErrNotAuthenticated()
	}
	if pc.NewPassword != pc.ConfirmPassword {
		return domain.ErrPasswordMismatch()
	}
	return s.api.ChangePassword(bind(ctx, st), pc)
}

// rejected reports an answer from the refresh endpoint that means the refresh
// token is no good, as opposed to the endpoint being unreachable.
func rejected(err error) bool {
	var se *downstream.StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusBadRequest
}
