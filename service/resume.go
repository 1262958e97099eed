package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vidstream/upload-service/entity"
)

// ResumePlan tells an interrupted client exactly what is left to send.
// NextChunkIndex equals TotalChunks when nothing is missing, signalling the
// session is ready to complete.
type ResumePlan struct {
	Status         *SessionStatus `json:"session"`
	MissingChunks  []int          `json:"missing_chunks"`
	NextChunkIndex int            `json:"next_chunk_index"`
	RetriesUsed    int            `json:"retries_used"`
	MaxRetries     int            `json:"max_retries"`
}

// RetryDecision is the outcome of a retry request for a failed chunk.
type RetryDecision struct {
	ChunkIndex int   `json:"chunk_index"`
	CanRetry   bool  `json:"can_retry"`
	RetryCount int64 `json:"retry_count"`
}

// Resume computes the missing-chunk set and the safe retry point for a
// session. Rejected for terminal sessions.
func (s *UploadService) Resume(ctx context.Context, ownerID, sessionID uuid.UUID) (*ResumePlan, error) {
	session, err := s.loadOwnedSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, &TerminalSessionError{Status: session.Status}
	}

	uploaded, err := s.sessions.UploadedChunks(ctx, session.ID)
	if err != nil {
		return nil, storeErr("list uploaded chunks", err)
	}
	missing := missingIndices(uploaded, session.TotalChunks)

	next := session.TotalChunks
	if len(missing) > 0 {
		next = missing[0]
	}

	status, err := s.statusOf(ctx, session)
	if err != nil {
		return nil, err
	}

	retries, err := s.sessions.RetryCount(ctx, session.ID)
	if err != nil {
		return nil, storeErr("read retry count", err)
	}
	used := int(retries)
	if used > s.policy.MaxRetries {
		used = s.policy.MaxRetries
	}

	return &ResumePlan{
		Status:         status,
		MissingChunks:  missing,
		NextChunkIndex: next,
		RetriesUsed:    used,
		MaxRetries:     s.policy.MaxRetries,
	}, nil
}

// RetryChunk spends one unit of the session's retry budget to make a failed
// chunk index eligible for re-upload. The budget is terminal for the retry
// path once exhausted, not for the session as a whole.
func (s *UploadService) RetryChunk(ctx context.Context, ownerID, sessionID uuid.UUID, index int) (*RetryDecision, error) {
	session, err := s.loadOwnedSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, &TerminalSessionError{Status: session.Status}
	}
	if index < 0 || index >= session.TotalChunks {
		return nil, &ValidationError{Reason: fmt.Sprintf("chunk index %d out of range [0, %d)", index, session.TotalChunks)}
	}

	// Claim the budget unit first: the atomic increment is the gate, so two
	// concurrent retries can never both pass on the same remaining unit. The
	// stored counter may drift past the budget on rejected claims; grants
	// never do.
	count, err := s.sessions.IncrementRetry(ctx, session.ID)
	if err != nil {
		return nil, storeErr("increment retry count", err)
	}
	if count > int64(s.policy.MaxRetries) {
		return nil, &RetryExhaustedError{ChunkIndex: index, RetryCount: s.policy.MaxRetries, MaxRetries: s.policy.MaxRetries}
	}
	if err := s.sessions.ClearFailed(ctx, session.ID, index); err != nil {
		return nil, storeErr("clear failed chunk", err)
	}

	s.logger.InfoWithContextf(ctx, "[Upload] Session %s chunk %d cleared for retry (%d/%d)",
		session.ID, index, count, s.policy.MaxRetries)

	return &RetryDecision{ChunkIndex: index, CanRetry: true, RetryCount: count}, nil
}

// ListActive enumerates the caller's sessions, excluding completed and
// cancelled ones. Index entries whose session no longer resolves in the store
// (expired) are pruned as a self-healing step.
func (s *UploadService) ListActive(ctx context.Context, ownerID uuid.UUID) ([]*SessionStatus, error) {
	ids, err := s.sessions.OwnerSessions(ctx, ownerID)
	if err != nil {
		return nil, storeErr("list owner sessions", err)
	}

	statuses := make([]*SessionStatus, 0, len(ids))
	for _, id := range ids {
		session, err := s.sessions.Find(ctx, id)
		if err != nil {
			// Session expired from the store; heal the index.
			if pruneErr := s.sessions.RemoveFromOwnerIndex(ctx, ownerID, id); pruneErr != nil {
				s.logger.WarningWithContextf(ctx, "[Upload] Failed to prune expired session %s from owner index: %v", id, pruneErr)
			}
			continue
		}
		if session.Status == entity.UploadStatusCompleted || session.Status == entity.UploadStatusCancelled {
			continue
		}
		status, err := s.statusOf(ctx, session)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
