package downstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextstep/nextstep-bff/internal/domain"
	"github.com/nextstep/nextstep-bff/internal/session"
	"github.com/nextstep/nextstep-bff/middleware"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{BaseURL: srv.URL + "/api/", ReadTimeout: time.Second, WriteTimeout: time.Second}, nil)
}

func TestClient_InjectsRequestID(t *testing.T) {
	var got string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(middleware.HeaderXRequestID)
		assert.Equal(t, "/api/ping", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	ctx := middleware.SetRequestIDForTest(context.Background(), "req-42")
	require.NoError(t, c.doJSON(ctx, http.MethodGet, "/ping", nil, nil, nil))
	assert.Equal(t, "req-42", got)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	c := NewClient(ClientConfig{BaseURL: srv.URL, ReadTimeout: 20 * time.Millisecond, WriteTimeout: time.Second}, nil)

	err := c.doJSON(context.Background(), http.MethodGet, "/slow", nil, nil, nil)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestClient_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()
	c := NewClient(ClientConfig{BaseURL: addr, ReadTimeout: time.Second, WriteTimeout: time.Second}, nil)

	err := c.doJSON(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_NotFoundOnGet(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	err := c.doJSON(context.Background(), http.MethodGet, "/missing", nil, nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_URL(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://api.test/api/"}, nil)
	assert.Equal(t, "http://api.test/api/jobs/jobs/", c.URL("jobs/jobs/", nil))
	assert.Equal(t, "http://api.test/api/jobs/jobs/?search=go", c.URL("/jobs/jobs/", url.Values{"search": {"go"}}))
}

func TestStatusErrorFrom(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		code    string
		message string
		fields  []string
	}{
		{name: "detail", status: 401, body: `{"detail":"Given token not valid","code":"token_not_valid"}`, code: "token_not_valid", message: "Given token not valid"},
		{name: "error string", status: 401, body: `{"error":"Invalid credentials"}`, code: "unauthorized", message: "Invalid credentials"},
		{name: "gateway envelope", status: 429, body: `{"error":{"code":"rate_limited","message":"slow down"}}`, code: "rate_limited", message: "slow down"},
		{name: "field errors", status: 400, body: `{"password":["too short"],"email":["already taken"]}`, code: "validation_failed", message: "email: already taken", fields: []string{"email", "password"}},
		{name: "non field errors", status: 400, body: `{"non_field_errors":["Passwords do not match"]}`, code: "validation_failed", message: "Passwords do not match", fields: []string{"non_field_errors"}},
		{name: "html", status: 502, body: `<html>bad gateway</html>`, code: "downstream_error", message: "unexpected status: 502"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			se := statusErrorFrom(c.status, []byte(c.body))
			assert.Equal(t, c.status, se.StatusCode)
			assert.Equal(t, c.code, se.Code)
			assert.Equal(t, c.message, se.Message)
			for _, f := range c.fields {
				assert.Contains(t, se.Fields, f)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "nope", UserMessage([]byte(`{"message":"nope"}`)))
	assert.Equal(t, "first", UserMessage([]byte(`{"detail":"first","message":"second"}`)))
	assert.Empty(t, UserMessage([]byte(`{}`)))
	assert.Empty(t, UserMessage(nil))
}

func TestIsStatus(t *testing.T) {
	err := error(&StatusError{StatusCode: 401})
	assert.True(t, IsStatus(err, 401))
	assert.False(t, IsStatus(err, 403))
	assert.False(t, IsStatus(errors.New("x"), 401))
}

const loginNested = `{"refresh":"r1","access":"a1","user":{"id":"5d8e","email":"s@x.io","full_name":"Sam","role":"TERTIARY"}}`

func TestAuthClient_Login(t *testing.T) {
	t.Run("nested response", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/auth/login/", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			_, _ = w.Write([]byte(loginNested))
		}))

		res, err := NewAuthClient(c).Login(context.Background(), domain.LoginCredentials{Email: "s@x.io", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, "a1", res.Tokens.Access)
		assert.Equal(t, "r1", res.Tokens.Refresh)
		assert.Equal(t, domain.RoleTertiaryStudent, res.User.Role)
		assert.Equal(t, "Sam", res.User.FullName)
	})

	t.Run("flattened response", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"access":"a1","id":"5d8e","email":"s@x.io","role":"MENTOR"}`))
		}))

		res, err := NewAuthClient(c).Login(context.Background(), domain.LoginCredentials{})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleMentor, res.User.Role)
		assert.Empty(t, res.Tokens.Refresh)
	})

	t.Run("bad credentials", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
		}))

		_, err := NewAuthClient(c).Login(context.Background(), domain.LoginCredentials{})
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
		assert.Equal(t, "Invalid credentials", se.Message)
	})

	t.Run("missing user", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"access":"a1"}`))
		}))

		_, err := NewAuthClient(c).Login(context.Background(), domain.LoginCredentials{})
		assert.True(t, IsStatus(err, http.StatusBadGateway))
	})
}

func TestAuthClient_LoginDoesNotRefresh(t *testing.T) {
	var refreshes int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/token/refresh/" {
			refreshes++
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
	}))
	st := session.NewStore(nil)
	auth := NewAuthenticator(http.DefaultTransport, NewTokenRefresher(c), &recordingNotifier{}, time.Second)
	require.NoError(t, st.SetAuth(context.Background(), mentor, "old", "r1"))

	_, err := NewAuthClient(c.WithTransport(auth.Transport(st))).Login(context.Background(), domain.LoginCredentials{})

	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Zero(t, refreshes)
	assert.True(t, st.IsAuthenticated(), "a failed login leaves the current session alone")
}

func TestAuthClient_UserEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/user/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"id":"u1","email":"a@x.io","full_name":"Ann","role":"EMPLOYER","company":"Acme"}`))
		case http.MethodPatch:
			_, _ = w.Write([]byte(`{"id":"u1","email":"a@x.io","full_name":"Ann","role":"EMPLOYER","company":"Initech"}`))
		}
	})
	mux.HandleFunc("/api/auth/change-password/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Wrong password"}`))
	})
	mux.HandleFunc("/api/auth/logout/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	ac := NewAuthClient(newTestClient(t, mux))
	ctx := context.Background()

	u, err := ac.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Acme", u.Company)

	company := "Initech"
	u, err = ac.UpdateUser(ctx, domain.UserPatch{Company: &company})
	require.NoError(t, err)
	assert.Equal(t, "Initech", u.Company)

	err = ac.ChangePassword(ctx, domain.PasswordChange{OldPassword: "x", NewPassword: "y", ConfirmPassword: "y"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Wrong password", se.Message)

	assert.NoError(t, ac.Logout(ctx, "r1"))
}

func TestCatalogClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs/jobs/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang", r.URL.Query().Get("search"))
		_, _ = w.Write([]byte(`{"count":1,"next":null,"previous":null,"results":[{"id":"4b1c2a5e-3f8d-4c6b-9a1e-2d7f8e9c0b1a","title":"Go dev","company":"Acme"}]}`))
	})
	mux.HandleFunc("/api/career/career-paths/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"7f3e9a2b-1c4d-4e5f-8a6b-9c0d1e2f3a4b","title":"Data Science"}]`))
	})
	cc := NewCatalogClient(newTestClient(t, mux))
	ctx := context.Background()

	jobs, err := cc.Jobs(ctx, url.Values{"search": {"golang"}})
	require.NoError(t, err)
	require.Len(t, jobs.Results, 1)
	assert.Equal(t, "Go dev", jobs.Results[0].Title)

	paths, err := cc.CareerPaths(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, paths.Count)
	assert.Equal(t, "Data Science", paths.Results[0].Title)

	_, err = cc.Courses(ctx, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
