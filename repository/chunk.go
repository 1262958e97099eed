package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChunkRepository stores raw chunk payloads keyed by (session, index). Chunks
// are transient: they exist between a successful upload and completion
// cleanup, and share the owning session's TTL.
type ChunkRepository struct {
	store Store
	ttl   time.Duration
}

func NewChunkRepository(store Store, ttl time.Duration) *ChunkRepository {
	return &ChunkRepository{store: store, ttl: ttl}
}

// Save persists a chunk payload with the session TTL.
func (r *ChunkRepository) Save(ctx context.Context, sessionID uuid.UUID, index int, payload []byte) error {
	return r.store.SetBytes(ctx, chunkKey(sessionID, index), payload, r.ttl)
}

// Get returns the payload for one chunk. ErrKeyNotFound when missing.
func (r *ChunkRepository) Get(ctx context.Context, sessionID uuid.UUID, index int) ([]byte, error) {
	return r.store.GetBytes(ctx, chunkKey(sessionID, index))
}

// Delete removes a single chunk payload.
func (r *ChunkRepository) Delete(ctx context.Context, sessionID uuid.UUID, index int) error {
	return r.store.Delete(ctx, chunkKey(sessionID, index))
}

// DeleteAll removes every chunk payload of a session.
func (r *ChunkRepository) DeleteAll(ctx context.Context, sessionID uuid.UUID, totalChunks int) error {
	keys := make([]string, 0, totalChunks)
	for i := 0; i < totalChunks; i++ {
		keys = append(keys, chunkKey(sessionID, i))
	}
	if len(keys) == 0 {
		return nil
	}
	return r.store.Delete(ctx, keys...)
}
