package prefs

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. Watchers are notified synchronously on
// Set, which makes it suitable for tests and for several sessions sharing one
// process.
type MemoryStore struct {
	mu       sync.Mutex
	values   map[string]string
	watchers map[string][]chan string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:   make(map[string]string),
		watchers: make(map[string][]chan string),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

// Set implements Store.
func (s *MemoryStore) Set(key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	if value == "" {
		return nil
	}
	for _, ch := range s.watchers[key] {
		// Keep only the newest value when the watcher lags behind.
		select {
		case <-ch:
		default:
		}
		ch <- value
	}
	return nil
}

// Watch implements Store.
func (s *MemoryStore) Watch(ctx context.Context, key string) (<-chan string, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	ch := make(chan string, 1)
	s.mu.Lock()
	s.watchers[key] = append(s.watchers[key], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.watchers[key]
		for i, c := range list {
			if c == ch {
				s.watchers[key] = append(list[:i], list[i+1:]...)
				break
			}
		}
		close(ch)
	}()

	return ch, nil
}
