// Package kvstore provides the persistent key-value layer every resource
// repository is built on: point get/set/delete, prefix scans and a per-key
// optimistic read-modify-write.
package kvstore

import (
	"context"
	"errors"

	"gorm.io/datatypes"
)

// ErrConflict is returned by Update when the per-key version check kept
// failing after retries.
var ErrConflict = errors.New("kvstore: update conflict")

// UpdateFunc receives the current value (found reports whether the key
// exists) and returns the value to persist.
type UpdateFunc func(value datatypes.JSON, found bool) (datatypes.JSON, error)

// Store is a generic string-keyed mapping of JSON values.
//
// A Get miss is a normal outcome, reported via the bool, never as an error.
// Set upserts atomically per key. Delete is idempotent. ScanPrefix returns
// the values (not keys) of all entries whose key starts with prefix, in no
// particular order.
type Store interface {
	Get(ctx context.Context, key string) (datatypes.JSON, bool, error)
	Set(ctx context.Context, key string, value datatypes.JSON) error
	Delete(ctx context.Context, key string) error
	ScanPrefix(ctx context.Context, prefix string) ([]datatypes.JSON, error)

	// Update runs fn against the current value of key and persists the
	// result, guarded by a per-key version check so concurrent writers
	// cannot silently drop each other's changes. fn may run more than once.
	Update(ctx context.Context, key string, fn UpdateFunc) error
}
