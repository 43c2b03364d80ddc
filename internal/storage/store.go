package storage

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrEmptyKey is returned when a key is the empty string.
	ErrEmptyKey = errors.New("key cannot be empty")
	// ErrKeyTooLong is returned when a key exceeds Limits.MaxKeyBytes.
	ErrKeyTooLong = errors.New("key too long")
	// ErrQuotaExceeded is returned when a write would exceed the key count
	// or total payload size allowed by the store.
	ErrQuotaExceeded = errors.New("store quota exceeded")
)

// Store defines the capabilities of an external key-value store.
// Implementations own their persistence and sync lifecycle.
type Store interface {
	// Set stores value under key, replacing any existing value.
	Set(key string, value []byte) error
	// Get returns the raw value for key. ok is false if the key is absent.
	Get(key string) (value []byte, ok bool, err error)
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
	// AllKeys returns every key currently present in the store.
	AllKeys() ([]string, error)
	// Synchronize asks the store to persist pending changes.
	Synchronize() error
}

// Limits bounds the size of an InMemoryStore.
// A zero field disables that limit.
type Limits struct {
	MaxKeyBytes   int
	MaxKeys       int
	MaxTotalBytes int
}

// DefaultLimits mirrors the quotas of a platform cloud key-value store:
// 64 byte keys, 1024 keys and 1 MiB of total payload.
func DefaultLimits() Limits {
	return Limits{
		MaxKeyBytes:   64,
		MaxKeys:       1024,
		MaxTotalBytes: 1 << 20,
	}
}

// InMemoryStore is an in-memory implementation of Store.
// It's thread-safe and enforces Limits on every write.
type InMemoryStore struct {
	mu         sync.RWMutex
	data       map[string][]byte
	limits     Limits
	totalBytes int
	pending    int    // changes since the last Synchronize
	generation uint64 // number of Synchronize calls that committed changes
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore(limits Limits) *InMemoryStore {
	return &InMemoryStore{
		data:   make(map[string][]byte),
		limits: limits,
	}
}

// Set stores a copy of value under key.
func (s *InMemoryStore) Set(key string, value []byte) error {
	if err := s.checkKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[key]
	if !exists && s.limits.MaxKeys > 0 && len(s.data) >= s.limits.MaxKeys {
		return fmt.Errorf("%w: %d keys", ErrQuotaExceeded, s.limits.MaxKeys)
	}

	total := s.totalBytes - entrySize(key, existing, exists) + len(key) + len(value)
	if s.limits.MaxTotalBytes > 0 && total > s.limits.MaxTotalBytes {
		return fmt.Errorf("%w: %d bytes", ErrQuotaExceeded, s.limits.MaxTotalBytes)
	}

	s.data[key] = append([]byte(nil), value...)
	s.totalBytes = total
	s.pending++
	return nil
}

// Get retrieves a copy of the value for key.
func (s *InMemoryStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.data[key]
	if !exists {
		return nil, false, nil
	}
	// Return a copy to avoid external modifications
	return append([]byte(nil), value...), true, nil
}

// Remove deletes key if present.
func (s *InMemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, exists := s.data[key]
	if !exists {
		return nil
	}
	delete(s.data, key)
	s.totalBytes -= entrySize(key, value, true)
	s.pending++
	return nil
}

// AllKeys returns the current keys in sorted order.
func (s *InMemoryStore) AllKeys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Synchronize commits pending changes. It is a no-op when nothing changed.
func (s *InMemoryStore) Synchronize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending > 0 {
		s.pending = 0
		s.generation++
	}
	return nil
}

// Pending returns the number of changes not yet synchronized.
func (s *InMemoryStore) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

// Generation returns how many times pending changes have been committed.
func (s *InMemoryStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Len returns the number of stored keys.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *InMemoryStore) checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if s.limits.MaxKeyBytes > 0 && len(key) > s.limits.MaxKeyBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrKeyTooLong, len(key), s.limits.MaxKeyBytes)
	}
	return nil
}

// entrySize is the quota cost of one entry.
func entrySize(key string, value []byte, exists bool) int {
	if !exists {
		return 0
	}
	return len(key) + len(value)
}
