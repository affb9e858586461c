package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nextstep/nextstep-bff/internal/domain"
	"github.com/nextstep/nextstep-bff/internal/downstream"
	"github.com/nextstep/nextstep-bff/internal/guard"
	"github.com/nextstep/nextstep-bff/internal/session"
)

func requestAs(t *testing.T, method, target string, u domain.User) *http.Request {
	t.Helper()
	st := session.NewStore(nil)
	require.NoError(t, st.SetAuth(context.Background(), u, "a", "r"))
	st.MarkReady()
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(session.WithStore(req.Context(), "sid", st))
}

func TestDashboard_FansOutByCapability(t *testing.T) {
	cat := &mockCatalog{}
	defer cat.AssertExpectations(t)

	courses := make([]domain.Course, 10)
	cat.On("Courses", mock.Anything, mock.Anything).Return(domain.Page[domain.Course]{Count: 10, Results: courses}, nil)
	cat.On("CareerPaths", mock.Anything, mock.Anything).Return(domain.Page[domain.CareerPath]{}, downstream.ErrUnavailable)
	cat.On("LearningResources", mock.Anything, mock.Anything).Return(domain.Page[domain.LearningResource]{}, downstream.ErrTimeout)

	rr := httptest.NewRecorder()
	NewPageHandler(cat).Dashboard(rr, requestAs(t, http.MethodGet, "/dashboard/lecturer", lecturer))

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data DashboardView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	v := body.Data
	assert.Equal(t, "dashboard", v.View)
	assert.Equal(t, "Lecturer", v.RoleLabel)
	assert.Len(t, v.Courses, feedSize)
	assert.Empty(t, v.Jobs)
	assert.Equal(t, map[string]string{"career_paths": "unavailable", "learning_resources": "timeout"}, v.Degraded)
	cat.AssertNotCalled(t, "Jobs", mock.Anything, mock.Anything)
}

func TestDashboard_SlowSectionTimesOut(t *testing.T) {
	cat := &mockCatalog{}
	cat.On("CareerPaths", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
		Return(domain.Page[domain.CareerPath]{}, context.DeadlineExceeded)
	cat.On("LearningResources", mock.Anything, mock.Anything).Return(domain.Page[domain.LearningResource]{Count: 1, Results: make([]domain.LearningResource, 1)}, nil)

	h := NewPageHandler(cat)
	h.timeout = 20 * time.Millisecond

	rr := httptest.NewRecorder()
	h.Dashboard(rr, requestAs(t, http.MethodGet, "/dashboard/general", domain.User{ID: "g", Role: domain.RoleGeneral}))

	var body struct {
		Data DashboardView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "timeout", body.Data.Degraded["career_paths"])
	assert.Len(t, body.Data.Resources, 1)
}

func TestPage(t *testing.T) {
	route, ok := guard.Lookup("/job-management")
	require.True(t, ok)

	rr := httptest.NewRecorder()
	NewPageHandler(&mockCatalog{}).Page(route)(rr, requestAs(t, http.MethodGet, "/job-management/7", domain.User{ID: "e", Role: domain.RoleEmployer}))

	var body struct {
		Data PageView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "job_management", body.Data.View)
	assert.Equal(t, "/job-management/7", body.Data.Path)
	assert.Contains(t, body.Data.Capabilities, domain.CapApplications)
}

func TestLoginPage_SanitisesNext(t *testing.T) {
	h := NewPageHandler(&mockCatalog{})

	rr := httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodGet, "/auth?next=%2Fjobs", nil))
	assert.JSONEq(t, `{"data":{"view":"login","next":"/jobs"}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodGet, "/auth?next=https%3A%2F%2Fevil.example", nil))
	assert.JSONEq(t, `{"data":{"view":"login","next":""}}`, rr.Body.String())
}
