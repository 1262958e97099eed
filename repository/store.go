package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrKeyNotFound is returned by Store implementations when a key (or hash/set
// member lookup) does not resolve. Callers translate it into domain not-found
// errors; it is never surfaced to clients directly.
var ErrKeyNotFound = errors.New("key not found in store")

// Store is the session store adapter: a TTL-bearing key/value store with
// native set operations. Any backend with per-key read-after-write consistency
// and atomic set add/remove can satisfy it; the production implementation is
// infra.RedisClient, tests and single-node development use MemoryStore.
//
// Mutations that accept a ttl renew the key's expiry; a ttl of zero leaves the
// current expiry untouched.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error

	SetAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error
	SetRemove(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	SetCard(ctx context.Context, key string) (int64, error)
	SetIsMember(ctx context.Context, key, member string) (bool, error)

	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	GetInt(ctx context.Context, key string) (int64, error)
}

// Key layout for the upload engine. One session record per session ID, one
// chunk record per (session, index), one active-session index per owner.
func sessionKey(id uuid.UUID) string  { return fmt.Sprintf("upload:session:%s", id) }
func uploadedKey(id uuid.UUID) string { return fmt.Sprintf("upload:session:%s:uploaded", id) }
func failedKey(id uuid.UUID) string   { return fmt.Sprintf("upload:session:%s:failed", id) }
func retriesKey(id uuid.UUID) string  { return fmt.Sprintf("upload:session:%s:retries", id) }
func ownerKey(owner uuid.UUID) string { return fmt.Sprintf("upload:owner:%s:sessions", owner) }
func chunkKey(id uuid.UUID, index int) string {
	return fmt.Sprintf("upload:chunk:%s:%d", id, index)
}
