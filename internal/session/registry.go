package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nextstep/nextstep-bff/internal/logger"
)

// PersisterFactory returns the durable entry for a session id.
type PersisterFactory func(sid string) Persister

// BootstrapFunc validates a freshly rehydrated store and must call MarkReady.
type BootstrapFunc func(ctx context.Context, st *Store)

type registryEntry struct {
	store    *Store
	lastSeen time.Time
}

// Registry shares one *Store per session id inside the process, so concurrent
// requests of the same browser observe the same tokens and share refreshes.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry

	persisterFor PersisterFactory
	bootstrap    BootstrapFunc
	idleTTL      time.Duration
	bootTimeout  time.Duration
	now          func() time.Time
}

type RegistryOption func(*Registry)

func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = d }
}

func WithBootstrap(fn BootstrapFunc) RegistryOption {
	return func(r *Registry) { r.bootstrap = fn }
}

func WithBootstrapTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.bootTimeout = d }
}

func withClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(factory PersisterFactory, opts ...RegistryOption) *Registry {
	r := &Registry{
		entries:      make(map[string]*registryEntry),
		persisterFor: factory,
		idleTTL:      15 * time.Minute,
		bootTimeout:  10 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.bootstrap == nil {
		r.bootstrap = RehydrateOnly
	}
	return r
}

// SetBootstrap installs the bootstrap used for entries created from now on.
func (r *Registry) SetBootstrap(fn BootstrapFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bootstrap = fn
}

// NewSID returns a fresh, unguessable session id.
func (r *Registry) NewSID() string {
	return uuid.NewString()
}

// Get returns the store for sid, creating it on first use. A new store starts
// bootstrapping in the background; callers gate on Ready or WaitReady.
func (r *Registry) Get(ctx context.Context, sid string) *Store {
	r.mu.Lock()
	if e, ok := r.entries[sid]; ok {
		e.lastSeen = r.now()
		r.mu.Unlock()
		return e.store
	}

	st := NewStore(r.persisterFor(sid))
	r.entries[sid] = &registryEntry{store: st, lastSeen: r.now()}
	boot := r.bootstrap
	r.mu.Unlock()

	// Detached from the request so an aborted first request doesn't strand the
	// store in Bootstrapping; keeps the request id for logs.
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.bootTimeout)
	go func() {
		defer cancel()
		defer st.MarkReady()
		boot(bctx, st)
	}()
	return st
}

// Adopt registers an already populated store under sid, e.g. after login
// rotated the session id.
func (r *Registry) Adopt(sid string, st *Store) {
	st.MarkReady()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[sid] = &registryEntry{store: st, lastSeen: r.now()}
}

// Fresh returns a ready, empty store bound to sid's durable entry without
// rehydrating it.
func (r *Registry) Fresh(sid string) *Store {
	st := NewStore(r.persisterFor(sid))
	r.Adopt(sid, st)
	return st
}

// Drop forgets sid in memory. The durable entry is left alone.
func (r *Registry) Drop(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sid)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts entries idle for longer than the idle TTL and returns how many
// were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTTL)
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for sid, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, sid)
			n++
		}
	}
	return n
}

// Run sweeps periodically until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	interval := r.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(); n > 0 {
				logger.Log.Debug().Int("evicted", n).Int("active", r.Len()).Msg("session_registry_sweep")
			}
		}
	}
}

// RehydrateOnly is the bootstrap used when no validation against the API is
// wired: load the snapshot and trust it.
func RehydrateOnly(ctx context.Context, st *Store) {
	if err := st.Rehydrate(ctx); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("session_rehydrate_failed")
	}
}
