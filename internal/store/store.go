// Package store provides the durable key-value medium that backs session,
// cart and wishlist state. Records survive a client restart; which backend
// holds them (a local directory, Redis, PostgreSQL or DynamoDB) is a
// deployment choice hidden behind the Store interface.
package store

import (
	"context"
	"fmt"
)

// Key layout. Cart and wishlist records are partitioned by scope (identity id
// or "guest"); the session record is a singleton.
const (
	SessionKey     = "session"
	CartPrefix     = "cart:"
	WishlistPrefix = "wishlist:"
)

// CartKey returns the cart record key for a scope.
func CartKey(scope string) string { return CartPrefix + scope }

// WishlistKey returns the wishlist record key for a scope.
func WishlistKey(scope string) string { return WishlistPrefix + scope }

// Store is the durable key-value medium. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the value for key. The second return is false when the
	// key is absent; absence is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// PersistenceError wraps a backend failure. A failed write means "this
// mutation will not survive a reload"; it never invalidates the in-memory
// mutation that already happened.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op, key string, err error) error {
	return &PersistenceError{Op: op, Key: key, Err: err}
}
