package storage

import (
	"context"
	"sync"
	"time"

	"github.com/platinummonkey/stackpulse/pkg/clock"
)

// MemoryStore is an in-process ObjectStore. Write times come from the injected clock.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
	clock   clock.Clock
	puts    int
}

// NewMemoryStore creates an empty store. A nil clock uses the real clock.
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.Real{}
	}
	return &MemoryStore{
		objects: make(map[string]Object),
		clock:   clk,
	}
}

// Get implements ObjectReader.Get
func (s *MemoryStore) Get(ctx context.Context, key string) (*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	body := make([]byte, len(obj.Body))
	copy(body, obj.Body)
	obj.Body = body
	return &obj, nil
}

// LastModified implements ObjectReader.LastModified
func (s *MemoryStore) LastModified(ctx context.Context, key string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return time.Time{}, ErrObjectNotFound
	}
	return obj.LastModified, nil
}

// Put implements ObjectWriter.Put
func (s *MemoryStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	data := make([]byte, len(body))
	copy(data, body)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Object{
		Key:          key,
		Body:         data,
		ContentType:  contentType,
		LastModified: s.clock.Now(),
	}
	s.puts++
	return nil
}

// HealthCheck always succeeds
func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}

// Puts returns the number of writes performed
func (s *MemoryStore) Puts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}
