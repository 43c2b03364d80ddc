package storage

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func TestInMemoryStore_SetGet(t *testing.T) {
	store := NewInMemoryStore(DefaultLimits())

	if err := store.Set("key1", []byte("value1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, ok, err := store.Get("key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected key1 to exist")
	}
	if string(value) != "value1" {
		t.Errorf("Expected 'value1', got '%s'", string(value))
	}
}

func TestInMemoryStore_GetNotFound(t *testing.T) {
	store := NewInMemoryStore(DefaultLimits())
	value, ok, err := store.Get("nonexistent")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok || value != nil {
		t.Error("Expected absent result for non-existent key")
	}
}

func TestInMemoryStore_Remove(t *testing.T) {
	store := NewInMemoryStore(DefaultLimits())
	store.Set("key1", []byte("value1"))

	if err := store.Remove("key1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok, _ := store.Get("key1"); ok {
		t.Error("Expected key1 to be removed")
	}

	// Removing again is not an error
	if err := store.Remove("key1"); err != nil {
		t.Errorf("Remove of absent key should succeed, got %v", err)
	}
}

func TestInMemoryStore_AllKeysSorted(t *testing.T) {
	store := NewInMemoryStore(DefaultLimits())
	store.Set("b", []byte("2"))
	store.Set("a", []byte("1"))
	store.Set("c", []byte("3"))

	keys, err := store.AllKeys()
	if err != nil {
		t.Fatalf("AllKeys failed: %v", err)
	}
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Expected %v, got %v", want, keys)
	}
}

func TestInMemoryStore_Synchronize(t *testing.T) {
	store := NewInMemoryStore(DefaultLimits())

	store.Set("a", []byte("1"))
	store.Set("b", []byte("2"))
	if store.Pending() != 2 {
		t.Errorf("Expected 2 pending changes, got %d", store.Pending())
	}

	store.Synchronize()
	if store.Pending() != 0 {
		t.Errorf("Expected no pending changes after sync, got %d", store.Pending())
	}
	if store.Generation() != 1 {
		t.Errorf("Expected generation 1, got %d", store.Generation())
	}

	// Nothing pending: generation stays put
	store.Synchronize()
	if store.Generation() != 1 {
		t.Errorf("Expected generation to stay 1, got %d", store.Generation())
	}

	// Removing an absent key does not count as a change
	store.Remove("missing")
	if store.Pending() != 0 {
		t.Errorf("Expected no pending changes, got %d", store.Pending())
	}
}

func TestInMemoryStore_Limits(t *testing.T) {
	tests := []struct {
		name    string
		limits  Limits
		setup   map[string]string
		key     string
		value   string
		wantErr error
	}{
		{
			name:    "empty key",
			limits:  DefaultLimits(),
			key:     "",
			value:   "x",
			wantErr: ErrEmptyKey,
		},
		{
			name:    "key too long",
			limits:  DefaultLimits(),
			key:     strings.Repeat("k", 65),
			value:   "x",
			wantErr: ErrKeyTooLong,
		},
		{
			name:    "too many keys",
			limits:  Limits{MaxKeys: 2},
			setup:   map[string]string{"a": "1", "b": "2"},
			key:     "c",
			value:   "3",
			wantErr: ErrQuotaExceeded,
		},
		{
			name:   "overwrite at key limit",
			limits: Limits{MaxKeys: 2},
			setup:  map[string]string{"a": "1", "b": "2"},
			key:    "b",
			value:  "22",
		},
		{
			name:    "payload too large",
			limits:  Limits{MaxTotalBytes: 10},
			setup:   map[string]string{"a": "1234"},
			key:     "b",
			value:   "123456",
			wantErr: ErrQuotaExceeded,
		},
		{
			name:   "overwrite frees previous payload",
			limits: Limits{MaxTotalBytes: 10},
			setup:  map[string]string{"a": "12345678"},
			key:    "a",
			value:  "123456789",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewInMemoryStore(tt.limits)
			for k, v := range tt.setup {
				if err := store.Set(k, []byte(v)); err != nil {
					t.Fatalf("setup Set(%s) failed: %v", k, err)
				}
			}

			err := store.Set(tt.key, []byte(tt.value))
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Set() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Set() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInMemoryStore_RemoveReleasesQuota(t *testing.T) {
	store := NewInMemoryStore(Limits{MaxKeys: 1})
	store.Set("a", []byte("1"))
	if err := store.Set("b", []byte("2")); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Expected quota error, got %v", err)
	}

	store.Remove("a")
	if err := store.Set("b", []byte("2")); err != nil {
		t.Errorf("Expected Set to succeed after Remove, got %v", err)
	}
}

func TestInMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryStore(DefaultLimits())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Set("key1", []byte("value"))
		}()
		go func() {
			defer wg.Done()
			store.Get("key1")
		}()
	}
	wg.Wait()

	value, ok, _ := store.Get("key1")
	if !ok {
		t.Fatal("Expected value after concurrent writes")
	}
	if string(value) != "value" {
		t.Errorf("Expected 'value', got '%s'", string(value))
	}
}

func TestInMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewInMemoryStore(DefaultLimits())
	input := []byte("value1")
	store.Set("key1", input)

	// Mutating the caller's slice must not leak into the store
	input[0] = 'Y'

	v1, _, _ := store.Get("key1")
	v2, _, _ := store.Get("key1")
	v1[0] = 'X'

	if string(v2) != "value1" {
		t.Errorf("Get should return independent copies, got %s", string(v2))
	}
}
