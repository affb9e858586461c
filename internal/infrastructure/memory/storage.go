package memory

import (
	"context"
	"sync"
)

// Storage is a process-local named-entry store, the gateway's stand-in for
// browser localStorage when no Redis is configured.
type Storage struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewStorage() *Storage {
	return &Storage{entries: make(map[string][]byte)}
}

func (s *Storage) Get(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[name]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

func (s *Storage) Set(name string, data []byte) {
	v := make([]byte, len(data))
	copy(v, data)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = v
}

func (s *Storage) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
}

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entry binds one name of s as a session persister.
func (s *Storage) Entry(name string) *Entry {
	return &Entry{storage: s, name: name}
}

type Entry struct {
	storage *Storage
	name    string
}

func (e *Entry) Load(context.Context) ([]byte, error) {
	v, _ := e.storage.Get(e.name)
	return v, nil
}

func (e *Entry) Save(_ context.Context, data []byte) error {
	e.storage.Set(e.name, data)
	return nil
}

func (e *Entry) Clear(context.Context) error {
	e.storage.Remove(e.name)
	return nil
}
