package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidstream/upload-service/entity"
)

func newSession(owner uuid.UUID) *entity.UploadSession {
	now := time.Now()
	return &entity.UploadSession{
		ID:          uuid.New(),
		OwnerID:     owner,
		FileName:    "clip.mp4",
		FileSize:    100,
		ChunkSize:   10,
		TotalChunks: 10,
		Status:      entity.UploadStatusInitiated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	repo := NewSessionRepository(NewMemoryStore(), time.Hour)
	ctx := context.Background()
	owner := uuid.New()
	session := newSession(owner)

	require.NoError(t, repo.Create(ctx, session))

	found, err := repo.Find(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, found.ID)
	assert.Equal(t, session.FileName, found.FileName)
	assert.Equal(t, entity.UploadStatusInitiated, found.Status)

	ids, err := repo.OwnerSessions(ctx, owner)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, session.ID, ids[0])

	_, err = repo.Find(ctx, uuid.New())
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSaveGuardsStatusTransitions(t *testing.T) {
	repo := NewSessionRepository(NewMemoryStore(), time.Hour)
	ctx := context.Background()
	session := newSession(uuid.New())
	require.NoError(t, repo.Create(ctx, session))

	// A stale in-memory copy taken before the cancel below.
	stale := *session
	stale.Status = entity.UploadStatusUploading

	session.Status = entity.UploadStatusCancelled
	require.NoError(t, repo.Save(ctx, session))

	require.ErrorIs(t, repo.Save(ctx, &stale), ErrStateConflict)

	found, err := repo.Find(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.UploadStatusCancelled, found.Status)

	// Same-status rewrites stay allowed for field updates.
	require.NoError(t, repo.Save(ctx, session))

	// A record that expired out of the store is never resurrected.
	gone := newSession(uuid.New())
	gone.Status = entity.UploadStatusUploading
	require.ErrorIs(t, repo.Save(ctx, gone), ErrKeyNotFound)
}

func TestMarkUploadedIsSetSemantics(t *testing.T) {
	repo := NewSessionRepository(NewMemoryStore(), time.Hour)
	ctx := context.Background()
	session := newSession(uuid.New())
	require.NoError(t, repo.Create(ctx, session))

	require.NoError(t, repo.MarkUploaded(ctx, session.ID, 3))
	require.NoError(t, repo.MarkUploaded(ctx, session.ID, 3))
	require.NoError(t, repo.MarkUploaded(ctx, session.ID, 1))

	count, err := repo.UploadedCount(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "duplicate marks must not inflate the count")

	uploaded, err := repo.UploadedChunks(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, uploaded, "indices come back sorted")

	ok, err := repo.IsUploaded(ctx, session.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsUploaded(ctx, session.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkUploadedClearsFailureRecord(t *testing.T) {
	repo := NewSessionRepository(NewMemoryStore(), time.Hour)
	ctx := context.Background()
	session := newSession(uuid.New())
	require.NoError(t, repo.Create(ctx, session))

	require.NoError(t, repo.MarkFailed(ctx, session.ID, 5))

	failed, err := repo.FailedChunks(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, failed)

	// Success at the same index supersedes the failure; an index is never in
	// both sets.
	require.NoError(t, repo.MarkUploaded(ctx, session.ID, 5))

	failed, err = repo.FailedChunks(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestRetryCounter(t *testing.T) {
	repo := NewSessionRepository(NewMemoryStore(), time.Hour)
	ctx := context.Background()
	session := newSession(uuid.New())
	require.NoError(t, repo.Create(ctx, session))

	count, err := repo.RetryCount(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	for want := int64(1); want <= 3; want++ {
		count, err = repo.IncrementRetry(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}
}

func TestDeleteStateKeys(t *testing.T) {
	repo := NewSessionRepository(NewMemoryStore(), time.Hour)
	ctx := context.Background()
	session := newSession(uuid.New())
	require.NoError(t, repo.Create(ctx, session))

	require.NoError(t, repo.MarkUploaded(ctx, session.ID, 0))
	require.NoError(t, repo.MarkFailed(ctx, session.ID, 1))
	_, err := repo.IncrementRetry(ctx, session.ID)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteStateKeys(ctx, session.ID))

	count, err := repo.UploadedCount(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// The session record itself survives until TTL expiry.
	_, err = repo.Find(ctx, session.ID)
	require.NoError(t, err)
}

func TestOwnerIndexPrune(t *testing.T) {
	repo := NewSessionRepository(NewMemoryStore(), time.Hour)
	ctx := context.Background()
	owner := uuid.New()

	first := newSession(owner)
	second := newSession(owner)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	require.NoError(t, repo.RemoveFromOwnerIndex(ctx, owner, first.ID))

	ids, err := repo.OwnerSessions(ctx, owner)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, second.ID, ids[0])
}

func TestSessionExpiry(t *testing.T) {
	store := NewMemoryStore()
	repo := NewSessionRepository(store, 10*time.Millisecond)
	ctx := context.Background()
	session := newSession(uuid.New())
	require.NoError(t, repo.Create(ctx, session))

	time.Sleep(25 * time.Millisecond)

	_, err := repo.Find(ctx, session.ID)
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestChunkRepository(t *testing.T) {
	store := NewMemoryStore()
	chunks := NewChunkRepository(store, time.Hour)
	ctx := context.Background()
	sessionID := uuid.New()

	require.NoError(t, chunks.Save(ctx, sessionID, 0, []byte("first")))
	require.NoError(t, chunks.Save(ctx, sessionID, 1, []byte("second")))

	payload, err := chunks.Get(ctx, sessionID, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), payload)

	require.NoError(t, chunks.DeleteAll(ctx, sessionID, 2))

	_, err = chunks.Get(ctx, sessionID, 0)
	require.ErrorIs(t, err, ErrKeyNotFound)
	_, err = chunks.Get(ctx, sessionID, 1)
	require.ErrorIs(t, err, ErrKeyNotFound)
}
