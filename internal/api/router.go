package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nextstep/nextstep-bff/internal/api/handlers"
	"github.com/nextstep/nextstep-bff/internal/config"
	"github.com/nextstep/nextstep-bff/internal/guard"
	redisstore "github.com/nextstep/nextstep-bff/internal/infrastructure/redis"
	"github.com/nextstep/nextstep-bff/internal/proxy"
	"github.com/nextstep/nextstep-bff/internal/session"
	"github.com/nextstep/nextstep-bff/internal/tracing"
	"github.com/nextstep/nextstep-bff/middleware"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Registry *session.Registry
	Sessions handlers.SessionService
	Catalog  handlers.Catalog

	// Transport authenticates proxied calls with the request's session.
	Transport http.RoundTripper

	// Redis is nil when sessions live in memory.
	Redis *redisstore.Client

	// ReadyWait bounds how long API calls wait for a session bootstrap.
	ReadyWait time.Duration
}

// proxied are the upstream areas exposed under /api as-is.
var proxied = []string{"lms", "career", "jobs", "learning"}

func NewRouter(d Deps) (http.Handler, error) {
	cfg := d.Config
	if d.ReadyWait <= 0 {
		d.ReadyWait = 3 * time.Second
	}

	upstream, err := proxy.New(cfg.UpstreamAPIURL, "/api", d.Transport)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Metrics)
	r.Use(middleware.Tracing(tracing.ServiceName))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.HeaderXRequestID},
		ExposedHeaders:   []string{middleware.HeaderXRequestID, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.RLEnabled && cfg.RLIPLimit > 0 {
		r.Use(httprate.LimitByIP(cfg.RLIPLimit, cfg.RLIPWindow))
	}

	checkers := []handlers.ReadinessChecker{
		handlers.NewHTTPReadinessChecker("upstream_api", cfg.UpstreamAPIURL+"/"),
	}
	if d.Redis != nil {
		checkers = append(checkers, d.Redis)
	}
	ready := handlers.NewReadinessHandler(checkers...)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/healthz", ready.Healthz)
	r.Get("/api/readyz", ready.Readyz)

	cookie := handlers.CookieConfig{Secure: cfg.CookieSecure, TTL: cfg.SessionTTL}
	sessionH := handlers.NewSessionHandler(d.Sessions, d.Registry, cookie)
	pages := handlers.NewPageHandler(d.Catalog)
	loginLimit := loginLimiter(cfg, d.Redis)

	r.Group(func(r chi.Router) {
		r.Use(handlers.Sessions(d.Registry))

		r.Route("/api/session", func(r chi.Router) {
			r.Get("/", sessionH.Get)
			r.With(loginLimit).Post("/login", sessionH.Login)
			r.With(loginLimit).Post("/register", sessionH.Register)
			r.Post("/logout", sessionH.Logout)

			r.Group(func(r chi.Router) {
				r.Use(handlers.RequireReady(d.ReadyWait))
				r.Patch("/user", sessionH.UpdateUser)
				r.Post("/password", sessionH.ChangePassword)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(handlers.RequireReady(d.ReadyWait))
			for _, area := range proxied {
				r.Mount("/api/"+area, upstream)
			}
		})

		public := guard.Public(handlers.GuardState)
		r.With(public).Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, guard.LoginPath, http.StatusFound)
		})
		r.With(public).Get(guard.LoginPath, pages.Login)

		for _, route := range guard.Routes {
			h := pages.Page(route)
			if route.View == "dashboard" {
				h = pages.Dashboard
			}
			gated := r.With(guard.Middleware(route.Required(), handlers.GuardState))
			gated.Get(route.Pattern, h)
			gated.Get(route.Pattern+"/*", h)
		}
	})

	d.Logger.Info().
		Str("upstream", cfg.UpstreamAPIURL).
		Strs("proxied", proxied).
		Int("pages", len(guard.Routes)).
		Msg("routes_mounted")

	return r, nil
}

// loginLimiter throttles credential endpoints per IP: a Redis sliding window
// shared by all replicas, or an in-process window without Redis.
func loginLimiter(cfg *config.Config, rdb *redisstore.Client) func(http.Handler) http.Handler {
	if !cfg.RLEnabled || cfg.LoginRLLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if rdb != nil {
		return middleware.NewRedisRateLimiter(rdb.Raw()).Middleware(middleware.RateLimitConfig{
			Scope:  "login",
			Limit:  cfg.LoginRLLimit,
			Window: cfg.LoginRLWindow,
			KeyFn:  middleware.KeyByIP,
		})
	}
	return httprate.Limit(cfg.LoginRLLimit, cfg.LoginRLWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	)
}
