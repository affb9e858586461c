package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nextstep/nextstep-bff/internal/api"
	"github.com/nextstep/nextstep-bff/internal/auth"
	"github.com/nextstep/nextstep-bff/internal/config"
	"github.com/nextstep/nextstep-bff/internal/downstream"
	"github.com/nextstep/nextstep-bff/internal/infrastructure/memory"
	"github.com/nextstep/nextstep-bff/internal/infrastructure/redis"
	"github.com/nextstep/nextstep-bff/internal/logger"
	"github.com/nextstep/nextstep-bff/internal/session"
	"github.com/nextstep/nextstep-bff/internal/tracing"
	"github.com/nextstep/nextstep-bff/middleware"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewRedis func(addr, password string, db int) *redis.Client

	NewRouter func(api.Deps) (http.Handler, error)

	// UpstreamTransport is the base RoundTripper for API calls; nil uses
	// http.DefaultTransport.
	UpstreamTransport http.RoundTripper
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	var cleanupFns []func()

	// 1) tracing
	tp, err := tracing.Init(context.Background(), tracing.Config{
		OTLPEndpoint: cfg.OTELEndpoint,
		Enabled:      cfg.OTELEnabled,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("tracing: %w", err)
	}
	cleanupFns = append(cleanupFns, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	})

	// 2) redis: required outside dev, since replicas must share sessions
	var redisCli *redis.Client
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := c.Ping(context.Background()); err != nil {
			_ = c.Close()
			if cfg.AppEnv != "dev" {
				runCleanup(cleanupFns)
				return nil, nil, fmt.Errorf("redis: %w", err)
			}
			logger.Log.Warn().Err(err).Msg("redis unavailable; sessions kept in memory")
		} else {
			logger.Log.Info().Str("addr", cfg.RedisAddr).Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	}

	// 3) session persistence
	var factory session.PersisterFactory
	if redisCli != nil {
		factory = redis.Factory(redisCli, cfg.SessionTTL)
	} else {
		storage := memory.NewStorage()
		factory = func(sid string) session.Persister {
			return storage.Entry(session.EntryName + ":" + sid)
		}
	}

	// 4) upstream clients
	base := deps.UpstreamTransport
	if base == nil {
		base = http.DefaultTransport
	}
	traced := &middleware.TracingTransport{Base: base}
	client := downstream.NewClient(downstream.ClientConfig{
		BaseURL:      cfg.UpstreamAPIURL,
		ReadTimeout:  cfg.UpstreamReadTimeout,
		WriteTimeout: cfg.UpstreamWriteTimeout,
	}, traced)
	refresher := downstream.NewTokenRefresher(client)
	authn := downstream.NewAuthenticator(traced, refresher, downstream.LogNotifier{}, cfg.RefreshTimeout)
	authed := client.WithTransport(authn.ContextTransport())

	// 5) service + registry
	svc := auth.NewService(downstream.NewAuthClient(authed), refresher)
	reg := session.NewRegistry(factory,
		session.WithIdleTTL(cfg.SessionIdleTTL),
		session.WithBootstrap(svc.Bootstrap),
	)
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go reg.Run(janitorCtx)
	cleanupFns = append(cleanupFns, stopJanitor)

	// 6) router
	mux, err := deps.NewRouter(api.Deps{
		Config:    cfg,
		Logger:    logger.Log,
		Registry:  reg,
		Sessions:  svc,
		Catalog:   downstream.NewCatalogClient(authed),
		Transport: authn.ContextTransport(),
		Redis:     redisCli,
	})
	if err != nil {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 7) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewRedis:   redis.New,
		NewRouter:  api.NewRouter,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
