package downstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nextstep/nextstep-bff/internal/domain"
)

// AuthResult is a successful login or registration.
type AuthResult struct {
	User   domain.User
	Tokens domain.TokenPair
}

// UnmarshalJSON accepts {access, refresh, user} as well as the flattened
// {access, refresh, ...user fields}.
func (r *AuthResult) UnmarshalJSON(b []byte) error {
	var nested struct {
		domain.TokenPair
		User *domain.User `json:"user"`
	}
	if err := json.Unmarshal(b, &nested); err != nil {
		return err
	}
	r.Tokens = nested.TokenPair
	if nested.User != nil {
		r.User = *nested.User
		return nil
	}
	var flat domain.User
	if err := json.Unmarshal(b, &flat); err != nil {
		return err
	}
	r.User = flat
	return nil
}

func (r AuthResult) validate() error {
	if r.Tokens.Access == "" {
		return fmt.Errorf("auth response: missing access token")
	}
	if r.User.ID == "" || !r.User.Role.Valid() {
		return fmt.Errorf("auth response: missing user")
	}
	return nil
}

// AuthClient wraps the /auth endpoints. Build it on an authenticated client:
// login and register opt out of the refresh flow themselves.
type AuthClient struct {
	client *Client
}

func NewAuthClient(c *Client) *AuthClient {
	return &AuthClient{client: c}
}

func (c *AuthClient) Login(ctx context.Context, creds domain.LoginCredentials) (AuthResult, error) {
	return c.authenticate(ctx, "/auth/login/", creds)
}

func (c *AuthClient) Register(ctx context.Context, reg domain.Registration) (AuthResult, error) {
	return c.authenticate(ctx, "/auth/register/", reg)
}

func (c *AuthClient) authenticate(ctx context.Context, path string, in any) (AuthResult, error) {
	var res AuthResult
	if err := c.client.doJSON(SkipRefresh(ctx), http.MethodPost, path, nil, in, &res); err != nil {
		return AuthResult{}, err
	}
	if err := res.validate(); err != nil {
		return AuthResult{}, &StatusError{
			StatusCode: http.StatusBadGateway,
			Code:       "invalid_auth_response",
			Message:    err.Error(),
		}
	}
	return res, nil
}

// Logout blacklists the refresh token upstream.
func (c *AuthClient) Logout(ctx context.Context, refreshToken string) error {
	in := map[string]string{"refresh": refreshToken}
	return c.client.doJSON(ctx, http.MethodPost, "/auth/logout/", nil, in, nil)
}

func (c *AuthClient) CurrentUser(ctx context.Context) (domain.User, error) {
	var u domain.User
	if err := c.client.doJSON(ctx, http.MethodGet, "/auth/user/", nil, nil, &u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// UpdateUser sends a partial update and returns the user as stored upstream.
func (c *AuthClient) UpdateUser(ctx context.Context, patch domain.UserPatch) (domain.User, error) {
	var u domain.User
	if err := c.client.doJSON(ctx, http.MethodPatch, "/auth/user/", nil, patch, &u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (c *AuthClient) ChangePassword(ctx context.Context, pc domain.PasswordChange) error {
	return c.client.doJSON(ctx, http.MethodPost, "/auth/change-password/", nil, pc, nil)
}
