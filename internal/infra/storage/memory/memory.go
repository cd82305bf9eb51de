package memory

import (
	"context"
	"fmt"
	"sync"

	"workseald/internal/domain"
)

// Store is an in-memory object store for tests and single-node development
// runs. Locations are reported with a mem:// scheme so logs make the
// non-durable backend obvious.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewStore() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func (s *Store) Put(ctx context.Context, key string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = buf
	return "mem://" + key, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: object %q", domain.ErrNotFound, key)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

var _ domain.ObjectStore = (*Store)(nil)
