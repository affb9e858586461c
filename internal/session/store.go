package session

import (
	"context"
	"errors"
	"sync"

	"github.com/nextstep/nextstep-bff/internal/domain"
	"github.com/nextstep/nextstep-bff/internal/logger"
)

// ErrNoSession is returned by mutations that need an authenticated session.
var ErrNoSession = errors.New("session: no active session")

type Status int32

const (
	Bootstrapping Status = iota
	Ready
)

func (s Status) String() string {
	if s == Ready {
		return "ready"
	}
	return "bootstrapping"
}

// Store is the single source of truth for one session's user and token pair.
// Every mutation is written through to the Persister.
type Store struct {
	mu      sync.RWMutex
	user    *domain.User
	access  string
	refresh string

	// persistMu orders mutate+persist pairs so the durable copy never lags
	// behind a newer in-memory state.
	persistMu sync.Mutex
	persister Persister

	readyOnce sync.Once
	ready     chan struct{}
}

// NewStore returns an empty, bootstrapping store. A nil persister keeps the
// session in memory only.
func NewStore(p Persister) *Store {
	if p == nil {
		p = nopPersister{}
	}
	return &Store{
		persister: p,
		ready:     make(chan struct{}),
	}
}

// SetAuth replaces user and both tokens.
func (s *Store) SetAuth(ctx context.Context, user domain.User, accessToken, refreshToken string) error {
	if accessToken == "" {
		return domain.ErrMissingField("access")
	}
	return s.mutate(ctx, func() {
		u := user
		s.user = &u
		s.access = accessToken
		s.refresh = refreshToken
	})
}

// ClearAuth drops the session and removes the persisted entry.
func (s *Store) ClearAuth(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.user, s.access, s.refresh = nil, "", ""
	s.mu.Unlock()

	if err := s.persister.Clear(ctx); err != nil {
		return domain.ErrStorageUnavailable(err)
	}
	return nil
}

// UpdateUser merges patch into the current user. Tokens are untouched.
func (s *Store) UpdateUser(ctx context.Context, patch domain.UserPatch) error {
	var missing bool
	err := s.mutate(ctx, func() {
		if s.user == nil {
			missing = true
			return
		}
		u := patch.Apply(*s.user)
		s.user = &u
	})
	if missing {
		return ErrNoSession
	}
	return err
}

// UpdateTokens installs a refreshed token pair. An empty refresh keeps the
// current refresh token. It refuses when the session was cleared meanwhile so a
// late refresh cannot resurrect a logged-out session.
func (s *Store) UpdateTokens(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" {
		return domain.ErrMissingField("access")
	}
	var missing bool
	err := s.mutate(ctx, func() {
		if s.user == nil {
			missing = true
			return
		}
		s.access = accessToken
		if refreshToken != "" {
			s.refresh = refreshToken
		}
	})
	if missing {
		return ErrNoSession
	}
	return err
}

func (s *Store) mutate(ctx context.Context, fn func()) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	before := s.snapshotLocked()
	fn()
	after := s.snapshotLocked()
	s.mu.Unlock()

	if before == after {
		return nil
	}
	return s.save(ctx, after)
}

func (s *Store) save(ctx context.Context, snap Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return domain.ErrInternal(err)
	}
	if err := s.persister.Save(ctx, data); err != nil {
		return domain.ErrStorageUnavailable(err)
	}
	return nil
}

// Rehydrate loads the persisted snapshot into memory. A snapshot that cannot be
// decoded or breaks the user/token pairing is discarded and its entry removed.
func (s *Store) Rehydrate(ctx context.Context) error {
	if _, memOnly := s.persister.(nopPersister); memOnly {
		return nil
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	data, err := s.persister.Load(ctx)
	if err != nil {
		return domain.ErrStorageUnavailable(err)
	}

	var snap Snapshot
	if len(data) > 0 {
		snap, err = decodeSnapshot(data)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("session_snapshot_discarded")
			if cerr := s.persister.Clear(ctx); cerr != nil {
				logger.Ctx(ctx).Warn().Err(cerr).Msg("session_snapshot_clear_failed")
			}
			snap = Snapshot{}
		}
	}

	s.mu.Lock()
	s.user, s.access, s.refresh = snap.User, snap.Token, snap.RefreshToken
	s.mu.Unlock()
	return nil
}

// Reload re-reads the durable copy, picking up a refresh or logout done by
// another process sharing the same entry.
func (s *Store) Reload(ctx context.Context) error {
	return s.Rehydrate(ctx)
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.access != ""
}

// User returns a copy of the current user.
func (s *Store) User() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// HasRole reports whether the session user holds one of roles.
func (s *Store) HasRole(roles ...domain.Role) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return false
	}
	for _, r := range roles {
		if s.user.Role == r {
			return true
		}
	}
	return false
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snapshotLocked()
	if snap.User != nil {
		u := *snap.User
		snap.User = &u
	}
	return snap
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Token: s.access, RefreshToken: s.refresh, User: s.user}
}

func (s *Store) Status() Status {
	if s.Ready() {
		return Ready
	}
	return Bootstrapping
}

func (s *Store) Ready() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// MarkReady ends the bootstrap phase. Safe to call more than once.
func (s *Store) MarkReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// WaitReady blocks until the bootstrap finished or ctx is done.
func (s *Store) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
