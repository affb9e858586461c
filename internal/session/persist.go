package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nextstep/nextstep-bff/internal/domain"
)

// EntryName is the storage entry the snapshot lives under, in every backend.
const EntryName = "nextstep-auth"

// Persister stores the serialised snapshot of one session.
// Load returns (nil, nil) when there is nothing stored.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Clear(ctx context.Context) error
}

// Snapshot is the persisted form of a session.
type Snapshot struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	User         *domain.User `json:"user"`
}

// Empty reports whether nothing is stored in s.
func (s Snapshot) Empty() bool {
	return s.Token == "" && s.RefreshToken == "" && s.User == nil
}

// Consistent reports whether user and access token are both present or both
// absent. A refresh token alone is never a session.
func (s Snapshot) Consistent() bool {
	if s.User == nil {
		return s.Token == "" && s.RefreshToken == ""
	}
	return s.Token != ""
}

func encodeSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

func decodeSnapshot(b []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode %s: %w", EntryName, err)
	}
	if !s.Consistent() {
		return Snapshot{}, fmt.Errorf("decode %s: user and token must be set together", EntryName)
	}
	return s, nil
}

// nopPersister keeps the session in memory only.
type nopPersister struct{}

func (nopPersister) Load(context.Context) ([]byte, error) { return nil, nil }
func (nopPersister) Save(context.Context, []byte) error   { return nil }
func (nopPersister) Clear(context.Context) error          { return nil }
