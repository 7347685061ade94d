// Package store persists the saved-article collection and reconciles
// saves against it.
//
// The collection lives as one serialized blob under one well-known key in
// a generic key-value backend; every mutation is read-modify-write of the
// whole collection, so callers treat it as the transactional unit.
package store

import "context"

// ArticlesKey is the well-known key the collection is stored under.
const ArticlesKey = "savedArticles"

// KV is the entire storage capability the store requires from its host.
//
// Available is the capability probe run before every operation: a backend
// mid-teardown reports false, reads then return empty and writes are
// skipped with a warning instead of surfacing a crash.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Available() bool
}
