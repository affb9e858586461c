package domain

import (
	"errors"
	"testing"
)

func TestError_ErrorString(t *testing.T) {
	if New(KindAuth, "not_authenticated", "authentication required").Error() == "" {
		t.Fatal("expected non-empty error string")
	}

	root := errors.New("dial tcp: refused")
	err := ErrUpstreamUnavailable(root)
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is to match cause")
	}
	if errors.Unwrap(err) != root {
		t.Fatalf("unwrap did not return cause")
	}
}

func TestIs_MatchesCodeThroughWrapping(t *testing.T) {
	err := ErrSessionExpired()
	wrapped := errors.Join(errors.New("outer"), err)

	if !Is(wrapped, "session_expired") {
		t.Fatalf("expected session_expired through wrap")
	}
	if Is(errors.New("plain"), "session_expired") {
		t.Fatalf("plain error must not match")
	}
}

func TestConstructors_Meta(t *testing.T) {
	if ErrMissingField("email").Meta["field"] != "email" {
		t.Fatalf("missing field meta")
	}
	if ErrInvalidRole("WIZARD").Meta["role"] != "WIZARD" {
		t.Fatalf("invalid role meta")
	}
	if ErrPasswordMismatch().Meta["field"] != "confirm_password" {
		t.Fatalf("password mismatch meta")
	}
	if ErrRateLimited("login").Kind != KindRateLimited {
		t.Fatalf("rate limited kind")
	}
}
