package guard

import (
	"sort"
	"strings"

	"github.com/nextstep/nextstep-bff/internal/domain"
)

// Route is one guarded page. A route is scoped either by a capability or by
// an explicit role set; neither means "any signed-in user".
type Route struct {
	Pattern    string
	View       string
	Capability domain.Capability
	Roles      []domain.Role
}

// Required returns the roles allowed on the route.
func (r Route) Required() []domain.Role {
	if r.Capability != "" {
		return domain.RolesWith(r.Capability)
	}
	return r.Roles
}

// Match reports whether path is the route or below it.
func (r Route) Match(path string) bool {
	p := pathOf(path)
	return p == r.Pattern || strings.HasPrefix(p, r.Pattern+"/")
}

// Routes is the page table served behind the guard.
var Routes = append(dashboardRoutes(), []Route{
	{Pattern: "/courses", View: "courses", Capability: domain.CapCourses},
	{Pattern: "/careers", View: "careers", Capability: domain.CapCareers},
	{Pattern: "/jobs", View: "jobs", Capability: domain.CapJobs},
	{Pattern: "/learning", View: "learning", Capability: domain.CapLearning},
	{Pattern: "/users", View: "users", Capability: domain.CapUserAdmin},
	{Pattern: "/settings", View: "settings", Capability: domain.CapSettings},
	{Pattern: "/course-management", View: "course_management", Capability: domain.CapCourseManagement},
	{Pattern: "/job-management", View: "job_management", Capability: domain.CapJobManagement},
	{Pattern: "/applications", View: "applications", Capability: domain.CapApplications},
	{Pattern: "/mentees", View: "mentees", Capability: domain.CapMentees},
	{Pattern: "/resources", View: "resources", Capability: domain.CapMentorResources},
}...)

// dashboardRoutes derives one route per landing path from the role table, so
// every role's home is reachable by exactly the roles that land there.
func dashboardRoutes() []Route {
	byPath := map[string][]domain.Role{}
	for _, r := range domain.AllRoles {
		byPath[r.LandingPath()] = append(byPath[r.LandingPath()], r)
	}
	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := make([]Route, 0, len(paths))
	for _, p := range paths {
		out = append(out, Route{
			Pattern: p,
			View:    "dashboard",
			Roles:   byPath[p],
		})
	}
	return out
}

// Lookup finds the route covering path.
func Lookup(path string) (Route, bool) {
	for _, r := range Routes {
		if r.Match(path) {
			return r, true
		}
	}
	return Route{}, false
}
