package guard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextstep/nextstep-bff/internal/domain"
	"github.com/nextstep/nextstep-bff/internal/session"
)

func userWith(role domain.Role) *domain.User {
	return &domain.User{ID: "u", Role: role}
}

func TestDecide(t *testing.T) {
	employerOnly := []domain.Role{domain.RoleEmployer}

	cases := []struct {
		name     string
		state    State
		required []domain.Role
		uri      string
		outcome  Outcome
		location string
	}{
		{name: "bootstrapping", state: State{}, required: employerOnly, uri: "/jobs", outcome: Loading},
		{name: "bootstrapping with user still loads", state: State{User: userWith(domain.RoleEmployer)}, uri: "/jobs", outcome: Loading},
		{name: "anonymous", state: State{Ready: true}, required: employerOnly, uri: "/job-management?tab=open", outcome: RedirectLogin, location: "/auth?next=%2Fjob-management%3Ftab%3Dopen"},
		{name: "anonymous any-user route", state: State{Ready: true}, uri: "/settings", outcome: RedirectLogin, location: "/auth?next=%2Fsettings"},
		{name: "role mismatch goes home", state: State{Ready: true, User: userWith(domain.RoleLecturer)}, required: employerOnly, uri: "/job-management", outcome: RedirectHome, location: "/dashboard/lecturer"},
		{name: "mismatch at own landing falls through", state: State{Ready: true, User: userWith(domain.RoleLecturer)}, required: employerOnly, uri: "/dashboard/lecturer/", outcome: Allow},
		{name: "allowed role", state: State{Ready: true, User: userWith(domain.RoleEmployer)}, required: employerOnly, uri: "/job-management", outcome: Allow},
		{name: "no required roles", state: State{Ready: true, User: userWith(domain.RoleGeneral)}, uri: "/anything", outcome: Allow},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := Decide(c.state, c.required, c.uri)
			assert.Equal(t, c.outcome, d.Outcome)
			assert.Equal(t, c.location, d.Location)
			if c.outcome == RedirectLogin {
				assert.Equal(t, c.uri, d.From)
			}
		})
	}
}

func TestDecidePublic(t *testing.T) {
	mentor := State{Ready: true, User: userWith(domain.RoleMentor)}

	assert.Equal(t, Decision{Outcome: RedirectHome, Location: "/dashboard/mentor"}, DecidePublic(mentor, "/auth"))
	assert.Equal(t, Decision{Outcome: RedirectHome, Location: "/dashboard/mentor"}, DecidePublic(mentor, "/"))
	assert.Equal(t, Decision{Outcome: RedirectLogin, Location: "/auth"}, DecidePublic(State{Ready: true}, "/"))
	assert.Equal(t, Allow, DecidePublic(State{Ready: true}, "/auth?next=%2Fjobs").Outcome)
	assert.Equal(t, Loading, DecidePublic(State{}, "/auth").Outcome)
	assert.Equal(t, Allow, DecidePublic(State{}, "/about").Outcome)
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/jobs?x=1", SafeNext("/jobs?x=1"))
	assert.Empty(t, SafeNext("https://evil.example/"))
	assert.Empty(t, SafeNext("//evil.example"))
	assert.Empty(t, SafeNext(`/\evil.example`))
	assert.Empty(t, SafeNext("jobs"))
}

func TestRoutes(t *testing.T) {
	r, ok := Lookup("/job-management/42")
	require.True(t, ok)
	assert.Equal(t, []domain.Role{domain.RoleEmployer}, r.Required())

	r, ok = Lookup("/dashboard/admin")
	require.True(t, ok)
	assert.ElementsMatch(t, []domain.Role{domain.RoleInstitutionAdmin, domain.RoleMinistryAdmin, domain.RoleSuperuser}, r.Required())

	r, ok = Lookup("/courses")
	require.True(t, ok)
	assert.Contains(t, r.Required(), domain.RoleLecturer)
	assert.NotContains(t, r.Required(), domain.RoleEmployer)

	_, ok = Lookup("/jobsboard")
	assert.False(t, ok, "prefix match stops at segment boundaries")

	// Every role can reach its own landing page.
	for _, role := range domain.AllRoles {
		r, ok := Lookup(role.LandingPath())
		require.True(t, ok, role)
		assert.Contains(t, r.Required(), role)
	}
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("loading", func(t *testing.T) {
		h := Middleware(nil, func(*http.Request) State { return State{} })(ok)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs", nil))

		assert.Equal(t, http.StatusAccepted, rr.Code)
		assert.Equal(t, "1", rr.Header().Get("Retry-After"))
		var body struct {
			Data struct {
				View string `json:"view"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "loading", body.Data.View)
	})

	t.Run("redirect home", func(t *testing.T) {
		st := session.NewStore(nil)
		require.NoError(t, st.SetAuth(context.Background(), *userWith(domain.RoleLecturer), "a", ""))
		st.MarkReady()

		h := Middleware([]domain.Role{domain.RoleEmployer}, func(*http.Request) State { return StateOf(st) })(ok)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/applications", nil))

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/dashboard/lecturer", rr.Header().Get("Location"))
	})

	t.Run("allow", func(t *testing.T) {
		h := Middleware(nil, func(*http.Request) State {
			return State{Ready: true, User: userWith(domain.RoleGeneral)}
		})(ok)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/careers", nil))
		assert.Equal(t, http.StatusTeapot, rr.Code)
	})
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, State{Ready: true}, StateOf(nil))

	st := session.NewStore(nil)
	assert.Equal(t, State{}, StateOf(st))

	require.NoError(t, st.SetAuth(context.Background(), *userWith(domain.RoleMentor), "a", "r"))
	st.MarkReady()
	s := StateOf(st)
	assert.True(t, s.Ready)
	require.NotNil(t, s.User)
	assert.Equal(t, domain.RoleMentor, s.User.Role)
}
