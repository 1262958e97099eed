package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vidstream/upload-service/entity"
	"github.com/vidstream/upload-service/repository"
	"github.com/vidstream/upload-service/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ChunkReceipt is the result of one chunk upload.
type ChunkReceipt struct {
	ChunkIndex     int     `json:"chunk_index"`
	Accepted       bool    `json:"accepted"`
	AlreadyStored  bool    `json:"already_stored"`
	UploadedChunks int     `json:"uploaded_chunks"`
	TotalChunks    int     `json:"total_chunks"`
	Progress       float64 `json:"progress"`
}

// UploadChunk validates, verifies and persists one chunk, then records the
// outcome against the session. Chunks may arrive in any order and from
// parallel workers; re-uploading an index the store already holds is an
// idempotent no-op.
func (s *UploadService) UploadChunk(ctx context.Context, ownerID, sessionID uuid.UUID, index int, payload []byte, declaredHash string) (*ChunkReceipt, error) {
	ctx, span := s.tracer.Start(ctx, "UploadChunk", trace.WithAttributes(
		attribute.String("upload.session_id", sessionID.String()),
		attribute.Int("upload.chunk_index", index),
	))
	defer span.End()

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
	if expected := session.ExpectedChunkLen(index); int64(len(payload)) != expected {
		return nil, &ValidationError{Reason: fmt.Sprintf("chunk %d must be %d bytes, got %d", index, expected, len(payload))}
	}

	// Duplicate upload of an index the store already holds: set semantics,
	// report success without touching state.
	alreadyStored, err := s.sessions.IsUploaded(ctx, session.ID, index)
	if err != nil {
		return nil, storeErr("check uploaded set", err)
	}
	if alreadyStored {
		receipt, err := s.receiptFor(ctx, session, index)
		if err != nil {
			return nil, err
		}
		receipt.AlreadyStored = true
		return receipt, nil
	}

	if declaredHash != "" {
		computed := utils.HashSHA256(payload)
		if !utils.SecureCompare(computed, declaredHash) {
			// The payload never reaches the store on a failed declared hash.
			if err := s.sessions.MarkFailed(ctx, session.ID, index); err != nil {
				s.logger.WarningWithContextf(ctx, "[Upload] Failed to mark chunk %d of session %s as failed: %v", index, session.ID, err)
			}
			s.logger.WarningWithContextf(ctx, "[Upload] Chunk %d of session %s rejected: hash mismatch", index, session.ID)
			return nil, &IntegrityError{ChunkIndex: index, Declared: declaredHash, Computed: computed}
		}
	}

	if err := s.chunks.Save(ctx, session.ID, index, payload); err != nil {
		if markErr := s.sessions.MarkFailed(ctx, session.ID, index); markErr != nil {
			s.logger.WarningWithContextf(ctx, "[Upload] Failed to mark chunk %d of session %s as failed: %v", index, session.ID, markErr)
		}
		return nil, storeErr("save chunk", err)
	}

	// Re-read the status after persisting: a concurrent Cancel must not leave
	// a zombie chunk behind.
	current, err := s.loadOwnedSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		_ = s.chunks.Delete(ctx, session.ID, index)
		return nil, &TerminalSessionError{Status: current.Status}
	}

	if err := s.sessions.MarkUploaded(ctx, session.ID, index); err != nil {
		return nil, storeErr("mark chunk uploaded", err)
	}

	if current.Status == entity.UploadStatusInitiated {
		current.Status = entity.UploadStatusUploading
	}
	// Save also renews the shared TTL on every successful mutation. The
	// guarded write refuses to overwrite a record that went terminal after
	// the re-read above; in that case the chunk and its uploaded-set entry
	// are rolled back so the cancel keeps its clean slate.
	if err := s.sessions.Save(ctx, current); err != nil {
		switch {
		case errors.Is(err, repository.ErrStateConflict):
			return nil, s.rollbackChunk(ctx, session.ID, index)
		case errors.Is(err, repository.ErrKeyNotFound):
			s.rollbackArtifacts(ctx, session.ID, index)
			return nil, &NotFoundError{What: "upload session"}
		default:
			return nil, storeErr("save session", err)
		}
	}

	receipt, err := s.receiptFor(ctx, current, index)
	if err != nil {
		return nil, err
	}

	s.logger.InfoWithContextf(ctx, "[Upload] Session %s chunk %d stored (%d/%d, %.1f%%)",
		session.ID, index, receipt.UploadedChunks, receipt.TotalChunks, receipt.Progress)

	return receipt, nil
}

// rollbackChunk undoes a chunk write that lost the race against a terminal
// transition. The latest status is reported so the caller sees the same
// error a pre-write terminal check would have produced.
func (s *UploadService) rollbackChunk(ctx context.Context, sessionID uuid.UUID, index int) error {
	s.rollbackArtifacts(ctx, sessionID, index)
	status := entity.UploadStatusCancelled
	if latest, err := s.sessions.Find(ctx, sessionID); err == nil {
		status = latest.Status
	}
	return &TerminalSessionError{Status: status}
}

func (s *UploadService) rollbackArtifacts(ctx context.Context, sessionID uuid.UUID, index int) {
	if err := s.sessions.ClearUploaded(ctx, sessionID, index); err != nil {
		s.logger.WarningWithContextf(ctx, "[Upload] Failed to clear uploaded mark for chunk %d of session %s: %v", index, sessionID, err)
	}
	if err := s.chunks.Delete(ctx, sessionID, index); err != nil {
		s.logger.WarningWithContextf(ctx, "[Upload] Failed to delete chunk %d of session %s during rollback: %v", index, sessionID, err)
	}
}

func (s *UploadService) receiptFor(ctx context.Context, session *entity.UploadSession, index int) (*ChunkReceipt, error) {
	uploaded, err := s.sessions.UploadedCount(ctx, session.ID)
	if err != nil {
		return nil, storeErr("count uploaded chunks", err)
	}
	return &ChunkReceipt{
		ChunkIndex:     index,
		Accepted:       true,
		UploadedChunks: uploaded,
		TotalChunks:    session.TotalChunks,
		Progress:       progressPercent(uploaded, session.TotalChunks),
	}, nil
}
