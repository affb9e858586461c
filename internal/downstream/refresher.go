package downstream

import (
	"context"
	"net/http"

	"github.com/nextstep/nextstep-bff/internal/domain"
)

// Refresher exchanges a refresh token for a new token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error)
}

// TokenRefresher calls POST /auth/token/refresh/ on the plain client, so a 401
// from the refresh endpoint never triggers another refresh.
type TokenRefresher struct {
	client *Client
}

func NewTokenRefresher(c *Client) *TokenRefresher {
	return &TokenRefresher{client: c}
}

func (r *TokenRefresher) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	var pair domain.TokenPair
	in := map[string]string{"refresh": refreshToken}
	if err := r.client.doJSON(SkipRefresh(ctx), http.MethodPost, "/auth/token/refresh/", nil, in, &pair); err != nil {
		return domain.TokenPair{}, err
	}
	if pair.Access == "" {
		return domain.TokenPair{}, &StatusError{
			StatusCode: http.StatusBadGateway,
			Code:       "invalid_refresh_response",
			Message:    "refresh response carried no access token",
		}
	}
	return pair, nil
}
