package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestAccessExpiry(t *testing.T) {
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	tok := signed(t, jwt.MapClaims{"user_id": 1, "exp": exp.Unix()})

	got, err := AccessExpiry(tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(exp) {
		t.Fatalf("exp = %v, want %v", got, exp)
	}
}

func TestAccessExpiry_Errors(t *testing.T) {
	if _, err := AccessExpiry("not-a-jwt"); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := AccessExpiry(signed(t, jwt.MapClaims{"user_id": 1})); err == nil {
		t.Fatalf("expected missing exp error")
	}
}

func TestAccessExpired(t *testing.T) {
	now := time.Now()
	past := signed(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()})
	future := signed(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()})
	soon := signed(t, jwt.MapClaims{"exp": now.Add(10 * time.Second).Unix()})

	if !AccessExpired(past, now, 0) {
		t.Fatalf("past token should be expired")
	}
	if AccessExpired(future, now, 30*time.Second) {
		t.Fatalf("future token should not be expired")
	}
	if !AccessExpired(soon, now, 30*time.Second) {
		t.Fatalf("token inside leeway should count as expired")
	}
	if AccessExpired("opaque", now, 0) {
		t.Fatalf("unreadable token should not be reported expired")
	}
}

func TestPage_DecodesPaginatedAndBareArray(t *testing.T) {
	var paged Page[Course]
	if err := json.Unmarshal([]byte(`{"count":2,"next":"http://x/?page=2","previous":null,"results":[{"id":"8d0f6a5e-3c1b-4f7e-9a7b-1b2c3d4e5f60","title":"Maths"}]}`), &paged); err != nil {
		t.Fatalf("decode paged: %v", err)
	}
	if paged.Count != 2 || paged.Next == nil || len(paged.Results) != 1 || paged.Results[0].Title != "Maths" {
		t.Fatalf("unexpected page: %+v", paged)
	}

	var bare Page[Course]
	if err := json.Unmarshal([]byte(` [{"title":"a"},{"title":"b"},{"title":"c"}]`), &bare); err != nil {
		t.Fatalf("decode bare: %v", err)
	}
	if bare.Count != 3 || len(bare.Results) != 3 || bare.Next != nil {
		t.Fatalf("unexpected page: %+v", bare)
	}
}
