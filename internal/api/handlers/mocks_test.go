package handlers

import (
	"context"
	"net/url"

	"github.com/stretchr/testify/mock"

	"github.com/nextstep/nextstep-bff/internal/domain"
	"github.com/nextstep/nextstep-bff/internal/session"
)

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) Login(ctx context.Context, st *session.Store, creds domain.LoginCredentials) (domain.User, error) {
	args := m.Called(ctx, st, creds)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockSessions) Register(ctx context.Context, st *session.Store, reg domain.Registration) (domain.User, error) {
	args := m.Called(ctx, st, reg)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockSessions) Logout(ctx context.Context, st *session.Store) error {
	args := m.Called(ctx, st)
	return args.Error(0)
}

func (m *mockSessions) UpdateProfile(ctx context.Context, st *session.Store, patch domain.UserPatch) (domain.User, error) {
	args := m.Called(ctx, st, patch)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockSessions) ChangePassword(ctx context.Context, st *session.Store, pc domain.PasswordChange) error {
	args := m.Called(ctx, st, pc)
	return args.Error(0)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Courses(ctx context.Context, q url.Values) (domain.Page[domain.Course], error) {
	args := m.Called(ctx, q)
	return args.Get(0).(domain.Page[domain.Course]), args.Error(1)
}

func (m *mockCatalog) CareerPaths(ctx context.Context, q url.Values) (domain.Page[domain.CareerPath], error) {
	args := m.Called(ctx, q)
	return args.Get(0).(domain.Page[domain.CareerPath]), args.Error(1)
}

func (m *mockCatalog) Jobs(ctx context.Context, q url.Values) (domain.Page[domain.JobListing], error) {
	args := m.Called(ctx, q)
	return args.Get(0).(domain.Page[domain.JobListing]), args.Error(1)
}

func (m *mockCatalog) LearningResources(ctx context.Context, q url.Values) (domain.Page[domain.LearningResource], error) {
	args := m.Called(ctx, q)
	return args.Get(0).(domain.Page[domain.LearningResource]), args.Error(1)
}
