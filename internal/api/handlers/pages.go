package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nextstep/nextstep-bff/internal/domain"
	"github.com/nextstep/nextstep-bff/internal/downstream"
	"github.com/nextstep/nextstep-bff/internal/guard"
	"github.com/nextstep/nextstep-bff/internal/logger"
	"github.com/nextstep/nextstep-bff/internal/session"
)

type Catalog interface {
	Courses(ctx context.Context, q url.Values) (domain.Page[domain.Course], error)
	CareerPaths(ctx context.Context, q url.Values) (domain.Page[domain.CareerPath], error)
	Jobs(ctx context.Context, q url.Values) (domain.Page[domain.JobListing], error)
	LearningResources(ctx context.Context, q url.Values) (domain.Page[domain.LearningResource], error)
}

// feedSize caps each dashboard section.
const feedSize = 6

type PageHandler struct {
	catalog Catalog
	timeout time.Duration
}

func NewPageHandler(c Catalog) *PageHandler {
	return &PageHandler{catalog: c, timeout: 1500 * time.Millisecond}
}

// PageView is the view model of a guarded page.
type PageView struct {
	View         string              `json:"view"`
	Path         string              `json:"path"`
	User         domain.User         `json:"user"`
	Capabilities []domain.Capability `json:"capabilities"`
}

func pageView(r *http.Request, view string) PageView {
	u, _ := session.FromContext(r.Context()).User()
	return PageView{
		View:         view,
		Path:         r.URL.Path,
		User:         u,
		Capabilities: u.Role.Capabilities(),
	}
}

// Page renders the view model of a route from the guard table.
func (h *PageHandler) Page(route guard.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok(w, pageView(r, route.View))
	}
}

// Login renders the login page model with a sanitised post-login target.
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	ok(w, map[string]string{
		"view": "login",
		"next": guard.SafeNext(r.URL.Query().Get("next")),
	})
}

type DashboardView struct {
	PageView
	Role      domain.Role               `json:"role"`
	RoleLabel string                    `json:"role_label"`
	Courses   []domain.Course           `json:"courses,omitempty"`
	Careers   []domain.CareerPath       `json:"career_paths,omitempty"`
	Jobs      []domain.JobListing       `json:"jobs,omitempty"`
	Resources []domain.LearningResource `json:"learning_resources,omitempty"`
	Degraded  map[string]string         `json:"degraded,omitempty"`
}

// Dashboard fans out to the catalog sections the role can see. A failed
// section is reported under degraded instead of failing the page.
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	view := DashboardView{PageView: pageView(r, "dashboard")}
	role := view.User.Role
	view.Role = role
	view.RoleLabel = role.Label()

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	degrade := func(section string, err error) {
		reason := "unavailable"
		if errors.Is(err, downstream.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		logger.Ctx(r.Context()).Warn().Err(err).Str("section", section).Msg("dashboard_section_degraded")
		mu.Lock()
		if view.Degraded == nil {
			view.Degraded = map[string]string{}
		}
		view.Degraded[section] = reason
		mu.Unlock()
	}
	fetch := func(c domain.Capability, section string, fn func(ctx context.Context) error) {
		if !role.Can(c) {
			return
		}
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
			defer cancel()
			if err := fn(ctx); err != nil {
				degrade(section, err)
			}
			return nil
		})
	}

	fetch(domain.CapCourses, "courses", func(ctx context.Context) error {
		p, err := h.catalog.Courses(ctx, nil)
		view.Courses = head(p.Results)
		return err
	})
	fetch(domain.CapCareers, "career_paths", func(ctx context.Context) error {
		p, err := h.catalog.CareerPaths(ctx, nil)
		view.Careers = head(p.Results)
		return err
	})
	fetch(domain.CapJobs, "jobs", func(ctx context.Context) error {
		p, err := h.catalog.Jobs(ctx, url.Values{"ordering": {"-created_at"}})
		view.Jobs = head(p.Results)
		return err
	})
	fetch(domain.CapLearning, "learning_resources", func(ctx context.Context) error {
		p, err := h.catalog.LearningResources(ctx, nil)
		view.Resources = head(p.Results)
		return err
	})

	_ = g.Wait()
	ok(w, view)
}

func head[T any](items []T) []T {
	if len(items) > feedSize {
		return items[:feedSize]
	}
	return items
}
