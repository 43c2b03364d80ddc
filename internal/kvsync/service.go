package kvsync

import (
	"errors"
	"fmt"
	"sync"

	"cloudkv/internal/codec"
	"cloudkv/internal/storage"
)

const defaultSource = "kvsync.Service"

// Service serializes access to an external store. Writes hold the lock
// exclusively; fetches share it. The service keeps no copy of any value.
type Service struct {
	mu     sync.RWMutex
	store  storage.Store
	logger Logger
	source string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the outcome logger. The default discards messages.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSource sets the source name passed to the logger.
func WithSource(source string) Option {
	return func(s *Service) {
		if source != "" {
			s.source = source
		}
	}
}

// New creates a Service over store. The store is referenced, not owned.
func New(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: NopLogger{},
		source: defaultSource,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes value under key and asks the store to synchronize.
func (s *Service) Save(key Key, value any) error {
	raw, err := codec.Encode(value)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}

	var logs []string
	defer func() { s.emit(logs) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Set(key.String(), raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	logs = append(logs, fmt.Sprintf("Save success - Key: %s, Value: %v", key, value))
	if err := s.store.Synchronize(); err != nil {
		return fmt.Errorf("save %s: synchronize: %w", key, err)
	}
	return nil
}

// Fetch reads key as a T. It reports false when the key is absent, the
// stored value does not fit T, or the store cannot be read.
func Fetch[T any](s *Service, key Key) (T, bool) {
	var logs []string
	defer func() { s.emit(logs) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero T
	raw, ok, err := s.store.Get(key.String())
	if err != nil || !ok {
		return zero, false
	}
	value, ok := codec.Decode[T](raw)
	if !ok {
		return zero, false
	}
	logs = append(logs, fmt.Sprintf("Fetch success - Key: %s, Value: %v", key, value))
	return value, true
}

// Delete removes key and asks the store to synchronize. Deleting an
// absent key succeeds.
func (s *Service) Delete(key Key) error {
	var logs []string
	defer func() { s.emit(logs) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Remove(key.String()); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	logs = append(logs, fmt.Sprintf("Delete success - Key: %s", key))
	if err := s.store.Synchronize(); err != nil {
		return fmt.Errorf("delete %s: synchronize: %w", key, err)
	}
	return nil
}

// ClearAll removes every key the store reports, including keys outside the
// known set, then synchronizes once. Failed removals do not stop the sweep.
func (s *Service) ClearAll() error {
	var logs []string
	defer func() { s.emit(logs) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.store.AllKeys()
	if err != nil {
		return fmt.Errorf("clear: list keys: %w", err)
	}

	var errs []error
	for _, k := range keys {
		if err := s.store.Remove(k); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", k, err))
			continue
		}
		logs = append(logs, fmt.Sprintf("Deleted key - %s", k))
	}
	if err := s.store.Synchronize(); err != nil {
		errs = append(errs, fmt.Errorf("synchronize: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

// emit runs after the lock is released, in the order messages were recorded.
func (s *Service) emit(logs []string) {
	for _, msg := range logs {
		s.logger.Log(s.source, msg)
	}
}

// Typed binds a Service to one key and one value type.
type Typed[T any] struct {
	svc *Service
	key Key
}

// Bind returns a typed handle for key.
func Bind[T any](s *Service, key Key) Typed[T] {
	return Typed[T]{svc: s, key: key}
}

// Key returns the bound key.
func (t Typed[T]) Key() Key { return t.key }

// Load fetches the bound key.
func (t Typed[T]) Load() (T, bool) { return Fetch[T](t.svc, t.key) }

// Store saves value under the bound key.
func (t Typed[T]) Store(value T) error { return t.svc.Save(t.key, value) }

// Clear deletes the bound key.
func (t Typed[T]) Clear() error { return t.svc.Delete(t.key) }
