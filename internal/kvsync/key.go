package kvsync

import (
	"errors"
	"fmt"
)

// ErrUnknownKey is returned by ParseKey for names outside the known set.
var ErrUnknownKey = errors.New("unknown key")

// Key identifies a value in the external store.
type Key string

// Known keys. Add new identifiers here and to Known.
const (
	KeyFreeUserRemainingRequests Key = "freeUserRemainingRequests"
)

// Known returns every registered key.
func Known() []Key {
	return []Key{
		KeyFreeUserRemainingRequests,
	}
}

// ParseKey resolves name to a known Key.
func ParseKey(name string) (Key, error) {
	for _, k := range Known() {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, name)
}

func (k Key) String() string {
	return string(k)
}
