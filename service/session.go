package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vidstream/upload-service/entity"
	"github.com/vidstream/upload-service/repository"
)

// InitiateRequest carries the client-declared properties of a new upload.
type InitiateRequest struct {
	FileName    string
	FileSize    int64
	ContentType string
	Metadata    map[string]string
}

// SessionStatus is the status view returned to callers for any session state.
type SessionStatus struct {
	SessionID      uuid.UUID           `json:"session_id"`
	FileName       string              `json:"file_name"`
	FileSize       int64               `json:"file_size"`
	TotalChunks    int                 `json:"total_chunks"`
	UploadedChunks int                 `json:"uploaded_chunks"`
	FailedChunks   int                 `json:"failed_chunks"`
	Status         entity.UploadStatus `json:"status"`
	Progress       float64             `json:"progress"`
}

// Initiate creates a new upload session. Chunk size is fixed by policy;
// totalChunks is derived with ceiling division.
func (s *UploadService) Initiate(ctx context.Context, ownerID uuid.UUID, req InitiateRequest) (*entity.UploadSession, error) {
	if req.FileName == "" {
		return nil, &ValidationError{Reason: "file name is required"}
	}
	if req.FileSize <= 0 {
		return nil, &ValidationError{Reason: "file size must be greater than zero"}
	}
	if req.FileSize > s.policy.MaxFileSize {
		return nil, &ValidationError{Reason: "file size exceeds the configured maximum"}
	}

	now := time.Now()
	session := &entity.UploadSession{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		ContentType: req.ContentType,
		Metadata:    req.Metadata,
		ChunkSize:   s.policy.ChunkSize,
		TotalChunks: int((req.FileSize + s.policy.ChunkSize - 1) / s.policy.ChunkSize),
		Status:      entity.UploadStatusInitiated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, storeErr("create session", err)
	}

	s.logger.InfoWithContextf(ctx, "[Upload] Initiated session %s for %q (%d bytes, %d chunks)",
		session.ID, session.FileName, session.FileSize, session.TotalChunks)

	return session, nil
}

// GetStatus returns the status view of a session. Allowed in every state,
// terminal ones included.
func (s *UploadService) GetStatus(ctx context.Context, ownerID, sessionID uuid.UUID) (*SessionStatus, error) {
	session, err := s.loadOwnedSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.statusOf(ctx, session)
}

// Cancel terminally cancels a session, deletes its chunk payloads and removes
// it from the owner's active-session index. Safe to call concurrently with
// in-flight chunk uploads: those detect the terminal status and roll back.
func (s *UploadService) Cancel(ctx context.Context, ownerID, sessionID uuid.UUID) error {
	session, err := s.loadOwnedSession(ctx, ownerID, sessionID)
	if err != nil {
		return err
	}
	if session.Status.Terminal() {
		return &TerminalSessionError{Status: session.Status}
	}

	session.Status = entity.UploadStatusCancelled
	if err := s.sessions.Save(ctx, session); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			// Lost to a concurrent terminal transition.
			if latest, findErr := s.sessions.Find(ctx, sessionID); findErr == nil {
				return &TerminalSessionError{Status: latest.Status}
			}
			return &TerminalSessionError{Status: entity.UploadStatusCompleted}
		}
		if errors.Is(err, repository.ErrKeyNotFound) {
			return &NotFoundError{What: "upload session"}
		}
		return storeErr("save session", err)
	}

	s.cleanupSession(ctx, session, "cancelled")

	s.logger.InfoWithContextf(ctx, "[Upload] Cancelled session %s", session.ID)
	return nil
}

// loadOwnedSession fetches a session and verifies the caller owns it. The
// owner-mismatch response stays distinct from not-found.
func (s *UploadService) loadOwnedSession(ctx context.Context, ownerID, sessionID uuid.UUID) (*entity.UploadSession, error) {
	session, err := s.sessions.Find(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrKeyNotFound) {
			return nil, &NotFoundError{What: "upload session"}
		}
		return nil, storeErr("find session", err)
	}
	if session.OwnerID != ownerID {
		return nil, &AuthorizationError{Reason: "session belongs to another owner"}
	}
	return session, nil
}

func (s *UploadService) statusOf(ctx context.Context, session *entity.UploadSession) (*SessionStatus, error) {
	uploaded, err := s.sessions.UploadedCount(ctx, session.ID)
	if err != nil {
		return nil, storeErr("count uploaded chunks", err)
	}
	failed, err := s.sessions.FailedChunks(ctx, session.ID)
	if err != nil {
		return nil, storeErr("list failed chunks", err)
	}
	return &SessionStatus{
		SessionID:      session.ID,
		FileName:       session.FileName,
		FileSize:       session.FileSize,
		TotalChunks:    session.TotalChunks,
		UploadedChunks: uploaded,
		FailedChunks:   len(failed),
		Status:         session.Status,
		Progress:       progressPercent(uploaded, session.TotalChunks),
	}, nil
}

func progressPercent(uploaded, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(uploaded) / float64(total) * 100
}
