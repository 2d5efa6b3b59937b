// Package tokens persists the auth and refresh tokens between runs. Storage
// backends are a TOML file under the user's config directory, an embedded
// badger database, or memory for tests and guest sessions.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Keys used by the session actions.
const (
	AuthTokenKey    = "auth_token"
	RefreshTokenKey = "refresh_token"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("token not found")

// Storage is a small durable key-value store.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Kind names a storage backend in configuration.
type Kind string

const (
	KindFile   Kind = "file"
	KindBadger Kind = "badger"
	KindMemory Kind = "memory"
)

// Open returns the backend named by kind rooted at path. An empty path uses
// the backend's default location.
func Open(kind Kind, path string) (Storage, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(string(kind)))) {
	case "", KindFile:
		return NewFileStorage(path), nil
	case KindBadger:
		return OpenBadger(path)
	case KindMemory:
		return NewMemoryStorage(), nil
	}
	return nil, fmt.Errorf("unknown token store %q", kind)
}
