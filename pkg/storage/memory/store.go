package memory

import (
	"context"
	"sync"
)

// Store keeps visitor state in process memory. Suitable for tests and single-instance
// development only: state is lost on restart and not shared between replicas.
type Store struct {
	mu   sync.Mutex
	data map[string]map[string]string
	// FailWith, when set, is returned by every operation. Tests use it to simulate an
	// unavailable backend.
	FailWith error
}

func New() *Store {
	return &Store{data: make(map[string]map[string]string)}
}

func (s *Store) Get(_ context.Context, visitorID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return "", false, s.FailWith
	}
	v, ok := s.data[visitorID][key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, visitorID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	ns, ok := s.data[visitorID]
	if !ok {
		ns = make(map[string]string)
		s.data[visitorID] = ns
	}
	ns[key] = value
	return nil
}

func (s *Store) Delete(_ context.Context, visitorID string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	ns := s.data[visitorID]
	for _, key := range keys {
		delete(ns, key)
	}
	return nil
}

func (s *Store) Take(_ context.Context, visitorID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return "", false, s.FailWith
	}
	ns := s.data[visitorID]
	v, ok := ns[key]
	if ok {
		delete(ns, key)
	}
	return v, ok, nil
}

func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.FailWith
}

func (s *Store) Close() error { return nil }
