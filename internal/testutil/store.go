package testutil

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"
)

// ErrInjected is returned by fakes when a failure has been configured.
var ErrInjected = errors.New("injected failure")

// MemStore is an in-memory store.Store for tests. It keeps the uploaded
// bytes per key and can be told to fail listings or specific uploads.
type MemStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	puts     []string
	FailList bool
	// FailPut reports whether the upload of key should fail.
	FailPut func(key string) bool
}

// NewMemStore creates a store pre-populated with the given keys.
func NewMemStore(keys ...string) *MemStore {
	s := &MemStore{objects: make(map[string][]byte)}
	for _, k := range keys {
		s.objects[k] = nil
	}
	return s
}

// List implements store.Store.
func (s *MemStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailList {
		return nil, ErrInjected
	}
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Put implements store.Store.
func (s *MemStore) Put(_ context.Context, localPath, key string) error {
	if s.FailPut != nil && s.FailPut(key) {
		return ErrInjected
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.puts = append(s.puts, key)
	return nil
}

// Close implements store.Store.
func (s *MemStore) Close() error { return nil }

// Puts returns the keys uploaded so far, in upload order.
func (s *MemStore) Puts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.puts...)
}

// Object returns the bytes stored under key.
func (s *MemStore) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}
