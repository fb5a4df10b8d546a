// Package storage provides the durable key/value store behind sessions,
// documents and usage counters.
package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get when the key has no value
var ErrNotFound = errors.New("key not found")

// Store is a durable string-keyed byte store. Set always overwrites.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Closer is implemented by stores holding connections
type Closer interface {
	Close() error
}

// KeyPrefix is the namespace root shared by every session
const KeyPrefix = "cv:"

type namespaced struct {
	store  Store
	prefix string
}

// Namespaced scopes every key of store under cv:<namespace>:.
func Namespaced(store Store, namespace string) Store {
	return &namespaced{store: store, prefix: KeyPrefix + namespace + ":"}
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.store.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.store.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.store.Delete(ctx, n.prefix+key)
}

// validKey rejects keys that cannot be stored by every backend
func validKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, "\x00")
}
