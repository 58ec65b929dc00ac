// Package memory provides an in-process storage.Store used for tests and
// ephemeral sessions.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"invoicer/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps raw JSON per key, so decoding behaves exactly like a real backend.
type Store struct {
	mu     sync.Mutex
	values map[string][]byte

	// FailWrites makes every write return storage.ErrUnavailable.
	FailWrites bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

// Put stores raw bytes under key without validation. Tests use it to plant
// malformed data.
func (s *Store) Put(key string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), raw...)
}

// Raw returns the bytes stored under key.
func (s *Store) Raw(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *Store) GetJSON(_ context.Context, key string, v any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, &storage.MalformedError{Key: key, Err: err}
	}
	return true, nil
}

func (s *Store) SetJSON(ctx context.Context, key string, v any) error {
	return s.SetJSONBatch(ctx, map[string]any{key: v})
}

func (s *Store) SetJSONBatch(_ context.Context, values map[string]any) error {
	encoded := make(map[string][]byte, len(values))
	for key, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %q: %w", key, err)
		}
		encoded[key] = data
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return storage.ErrUnavailable
	}
	for key, data := range encoded {
		s.values[key] = data
	}
	return nil
}

func (s *Store) IncrementCounter(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var last int64
	if raw, ok := s.values[key]; ok {
		if err := json.Unmarshal(raw, &last); err != nil {
			return 0, &storage.MalformedError{Key: key, Err: err}
		}
	}
	if s.FailWrites {
		return 0, storage.ErrUnavailable
	}
	if last < 0 {
		last = 0
	}
	next := last + 1
	s.values[key] = []byte(strconv.FormatInt(next, 10))
	return next, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return storage.ErrUnavailable
	}
	delete(s.values, key)
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return storage.ErrUnavailable
	}
	for _, key := range storage.AllKeys {
		delete(s.values, key)
	}
	return nil
}

func (s *Store) Close() error { return nil }
