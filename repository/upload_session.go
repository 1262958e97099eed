package repository

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/vidstream/upload-service/entity"
)

// SessionRepository persists upload sessions in the session store. The session
// record itself is a JSON value; the uploaded/failed chunk index sets and the
// retry counter are separate keys mutated through the store's atomic set and
// counter primitives, so concurrent chunk uploads never race on them. Every
// mutation renews the shared TTL.
type SessionRepository struct {
	store Store
	ttl   time.Duration
}

func NewSessionRepository(store Store, ttl time.Duration) *SessionRepository {
	return &SessionRepository{store: store, ttl: ttl}
}

// Create stores a new session record and registers it in the owner's
// active-session index.
func (r *SessionRepository) Create(ctx context.Context, session *entity.UploadSession) error {
	if err := r.store.Set(ctx, sessionKey(session.ID), session, r.ttl); err != nil {
		return err
	}
	return r.store.SetAdd(ctx, ownerKey(session.OwnerID), r.ttl, session.ID.String())
}

// Find loads a session record. Returns ErrKeyNotFound for unknown or expired
// sessions.
func (r *SessionRepository) Find(ctx context.Context, id uuid.UUID) (*entity.UploadSession, error) {
	var session entity.UploadSession
	if err := r.store.Get(ctx, sessionKey(id), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ErrStateConflict is returned by Save when the stored record's status does
// not allow transitioning to the status being written. A concurrent terminal
// transition (cancel, failure) won the record; the caller must roll back its
// side effects instead of clobbering the terminal state.
var ErrStateConflict = errors.New("session status transition conflict")

// Save rewrites the session record and renews the TTL on all session-scoped
// keys. The write is guarded: the stored status must allow the transition to
// session.Status (same-status rewrites always pass), so a record that went
// terminal under a concurrent writer cannot be resurrected. Returns
// ErrKeyNotFound when the record has expired; set-valued state never travels
// through here (see MarkUploaded/MarkFailed).
func (r *SessionRepository) Save(ctx context.Context, session *entity.UploadSession) error {
	current, err := r.Find(ctx, session.ID)
	if err != nil {
		return err
	}
	if current.Status != session.Status && !current.Status.CanTransition(session.Status) {
		return ErrStateConflict
	}
	session.UpdatedAt = time.Now()
	if err := r.store.Set(ctx, sessionKey(session.ID), session, r.ttl); err != nil {
		return err
	}
	r.renewSets(ctx, session.ID)
	return nil
}

// renewSets extends the expiry of the per-session set keys so chunks never
// outlive their owning session record.
func (r *SessionRepository) renewSets(ctx context.Context, id uuid.UUID) {
	_ = r.store.Expire(ctx, uploadedKey(id), r.ttl)
	_ = r.store.Expire(ctx, failedKey(id), r.ttl)
	_ = r.store.Expire(ctx, retriesKey(id), r.ttl)
}

// MarkUploaded atomically records a chunk success: the index joins the
// uploaded set and leaves the failed set. An index can never be in both.
func (r *SessionRepository) MarkUploaded(ctx context.Context, id uuid.UUID, index int) error {
	member := strconv.Itoa(index)
	if err := r.store.SetAdd(ctx, uploadedKey(id), r.ttl, member); err != nil {
		return err
	}
	return r.store.SetRemove(ctx, failedKey(id), member)
}

// MarkFailed records a chunk failure for the resume coordinator. It never
// touches the uploaded set: a prior success at this index stays valid.
func (r *SessionRepository) MarkFailed(ctx context.Context, id uuid.UUID, index int) error {
	return r.store.SetAdd(ctx, failedKey(id), r.ttl, strconv.Itoa(index))
}

// ClearUploaded removes an index from the uploaded set. Used to roll back a
// chunk success that lost a race against a terminal transition.
func (r *SessionRepository) ClearUploaded(ctx context.Context, id uuid.UUID, index int) error {
	return r.store.SetRemove(ctx, uploadedKey(id), strconv.Itoa(index))
}

// ClearFailed removes an index from the failed set ahead of a retry.
func (r *SessionRepository) ClearFailed(ctx context.Context, id uuid.UUID, index int) error {
	return r.store.SetRemove(ctx, failedKey(id), strconv.Itoa(index))
}

// IsUploaded reports whether a chunk index is already recorded as uploaded.
func (r *SessionRepository) IsUploaded(ctx context.Context, id uuid.UUID, index int) (bool, error) {
	return r.store.SetIsMember(ctx, uploadedKey(id), strconv.Itoa(index))
}

// UploadedCount returns the number of uploaded chunk indices.
func (r *SessionRepository) UploadedCount(ctx context.Context, id uuid.UUID) (int, error) {
	n, err := r.store.SetCard(ctx, uploadedKey(id))
	return int(n), err
}

// UploadedChunks returns the uploaded chunk indices in ascending order.
func (r *SessionRepository) UploadedChunks(ctx context.Context, id uuid.UUID) ([]int, error) {
	return r.indexSet(ctx, uploadedKey(id))
}

// FailedChunks returns the failed chunk indices in ascending order.
func (r *SessionRepository) FailedChunks(ctx context.Context, id uuid.UUID) ([]int, error) {
	return r.indexSet(ctx, failedKey(id))
}

func (r *SessionRepository) indexSet(ctx context.Context, key string) ([]int, error) {
	members, err := r.store.SetMembers(ctx, key)
	if err != nil {
		return nil, err
	}
	indices := make([]int, 0, len(members))
	for _, member := range members {
		index, err := strconv.Atoi(member)
		if err != nil {
			continue
		}
		indices = append(indices, index)
	}
	sort.Ints(indices)
	return indices, nil
}

// IncrementRetry bumps the session's retry counter and returns the new value.
func (r *SessionRepository) IncrementRetry(ctx context.Context, id uuid.UUID) (int64, error) {
	return r.store.Increment(ctx, retriesKey(id), r.ttl)
}

// RetryCount returns the current retry counter (zero when never incremented).
func (r *SessionRepository) RetryCount(ctx context.Context, id uuid.UUID) (int64, error) {
	count, err := r.store.GetInt(ctx, retriesKey(id))
	if errors.Is(err, ErrKeyNotFound) {
		return 0, nil
	}
	return count, err
}

// RemoveFromOwnerIndex unlinks a session from the owner's active-session
// index. Used on completion and cancellation, and to prune dangling entries.
func (r *SessionRepository) RemoveFromOwnerIndex(ctx context.Context, owner, id uuid.UUID) error {
	return r.store.SetRemove(ctx, ownerKey(owner), id.String())
}

// OwnerSessions lists the session IDs currently in the owner's index.
func (r *SessionRepository) OwnerSessions(ctx context.Context, owner uuid.UUID) ([]uuid.UUID, error) {
	members, err := r.store.SetMembers(ctx, ownerKey(owner))
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, member := range members {
		id, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DeleteStateKeys drops the per-session set and counter keys. The session
// record itself is left to expire with the store TTL.
func (r *SessionRepository) DeleteStateKeys(ctx context.Context, id uuid.UUID) error {
	return r.store.Delete(ctx, uploadedKey(id), failedKey(id), retriesKey(id))
}
