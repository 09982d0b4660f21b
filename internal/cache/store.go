// Package cache provides a namespaced TTL key/value store shared by the
// upstream clients, with a Redis backend for deployments and a file backend
// for single-node setups and tests.
package cache

import (
	"context"
	"time"
)

// Cache namespaces. Each upstream provider reads and writes under its own
// namespace so keys cannot collide and maintenance can reason per tier.
const (
	NamespaceTrakt = "trakt"
	NamespaceTMDB  = "tmdb"
	NamespaceRPDB  = "rpdb"
)

// Default TTLs per namespace. Poster URLs barely change, metadata changes
// slowly, watch history changes while the user is watching.
const (
	DefaultRPDBTTL  = 24 * time.Hour
	DefaultTMDBTTL  = time.Hour
	DefaultTraktTTL = 30 * time.Minute
)

// Sentinel TTL values, matching Redis TTL reply semantics.
const (
	// TTLPersistent means the key exists but carries no expiry.
	TTLPersistent = time.Duration(-1)
	// TTLMissing means the key does not exist (or has already expired).
	TTLMissing = time.Duration(-2)
)

// Store is a best-effort cache. Read and write operations report success as
// a bool and never fail the caller: a broken cache degrades every read to a
// miss and every write to a no-op. Only the maintenance surface (Keys, TTL)
// returns errors, because a sweep cannot silently treat enumeration failure
// as an empty cache.
type Store interface {
	// Get unmarshals the cached value for key into dest. Returns false on
	// miss, expiry, or any backend/decode failure.
	Get(ctx context.Context, namespace, key string, dest any) bool

	// Set stores value under key with the given TTL. A ttl <= 0 stores the
	// value without expiry.
	Set(ctx context.Context, namespace, key string, value any, ttl time.Duration) bool

	// Delete removes the key. Returns false only on backend failure.
	Delete(ctx context.Context, namespace, key string) bool

	// Exists reports whether a live value is present for key.
	Exists(ctx context.Context, namespace, key string) bool

	// Keys enumerates all keys currently stored in the namespace, including
	// keys whose value has expired but not yet been reclaimed.
	Keys(ctx context.Context, namespace string) ([]string, error)

	// TTL reports the remaining lifetime of key, TTLPersistent for keys
	// without expiry, or TTLMissing for absent/expired keys.
	TTL(ctx context.Context, namespace, key string) (time.Duration, error)

	// Expire assigns a fresh TTL to an existing key.
	Expire(ctx context.Context, namespace, key string, ttl time.Duration) bool

	// Close releases backend resources.
	Close() error
}

// Namespaces lists every namespace the maintenance sweep covers.
func Namespaces() []string {
	return []string{NamespaceTrakt, NamespaceTMDB, NamespaceRPDB}
}
