package domain

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPair is the access/refresh pair issued by /auth/login/ and /auth/token/refresh/.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// AccessExpiry reads the exp claim of an access token without verifying the
// signature. Verification belongs to the API; the gateway only needs to know
// whether a token is worth sending.
func AccessExpiry(access string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return exp.Time, nil
}

// AccessExpired reports whether the token's exp lies before now+leeway.
// Tokens whose expiry cannot be read are reported as not expired so the API
// gets the final word.
func AccessExpired(access string, now time.Time, leeway time.Duration) bool {
	exp, err := AccessExpiry(access)
	if err != nil {
		return false
	}
	return !exp.After(now.Add(leeway))
}
