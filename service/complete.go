package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/vidstream/upload-service/entity"
	"github.com/vidstream/upload-service/infra/produce"
	"github.com/vidstream/upload-service/repository"
	"github.com/vidstream/upload-service/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
)

// CompletionResult is returned after a successful assembly and hand-off.
type CompletionResult struct {
	SessionID   uuid.UUID `json:"session_id"`
	Location    string    `json:"location"`
	Size        int64     `json:"size"`
	FileHash    string    `json:"file_hash"`
	CompletedAt time.Time `json:"completed_at"`
}

// Complete verifies that every chunk is present, reassembles them in index
// order, verifies whole-object integrity and hands the result to the blob
// store. Chunk index is the only ordering key: assembly reproduces the
// original byte stream no matter the arrival order.
//
// A whole-object hash mismatch or a blob-store failure marks the session
// failed and keeps the chunk payloads for manual recovery; only a fully
// successful hand-off triggers chunk cleanup.
func (s *UploadService) Complete(ctx context.Context, ownerID, sessionID uuid.UUID, expectedTotalChunks int, declaredHash string) (*CompletionResult, error) {
	ctx, span := s.tracer.Start(ctx, "Complete", trace.WithAttributes(
		attribute.String("upload.session_id", sessionID.String()),
	))
	defer span.End()

	session, err := s.loadOwnedSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, &TerminalSessionError{Status: session.Status}
	}
	if expectedTotalChunks != session.TotalChunks {
		return nil, &ValidationError{Reason: fmt.Sprintf("expected %d total chunks, session has %d", expectedTotalChunks, session.TotalChunks)}
	}

	uploaded, err := s.sessions.UploadedChunks(ctx, session.ID)
	if err != nil {
		return nil, storeErr("list uploaded chunks", err)
	}
	if missing := missingIndices(uploaded, session.TotalChunks); len(missing) > 0 {
		return nil, &MissingChunksError{Missing: missing}
	}

	// Assemble in index order while hashing the byte stream.
	assembled := bytes.NewBuffer(make([]byte, 0, session.FileSize))
	hasher := utils.NewSHA256()
	for index := 0; index < session.TotalChunks; index++ {
		payload, err := s.chunks.Get(ctx, session.ID, index)
		if err != nil {
			return nil, storeErr(fmt.Sprintf("read chunk %d", index), err)
		}
		assembled.Write(payload)
		hasher.Write(payload)
	}
	fileHash := utils.HexDigest(hasher)

	if declaredHash != "" && !utils.SecureCompare(fileHash, declaredHash) {
		// The corrupted chunk is unknown at this point; the caller must start
		// a new session rather than retry indices. Chunks are kept.
		s.failSession(ctx, session)
		s.logger.ErrorWithContextf(ctx, nil, "[Upload] Session %s failed whole-object verification", session.ID)
		return nil, &IntegrityError{ChunkIndex: -1, Declared: declaredHash, Computed: fileHash}
	}

	ext := filepath.Ext(session.FileName)
	if ext == "" {
		ext = ".bin"
	}
	objectKey := fmt.Sprintf("%s/%s%s", session.OwnerID, fileHash, ext)

	location, storedSize, err := s.blob.Store(ctx, bytes.NewReader(assembled.Bytes()), int64(assembled.Len()), objectKey, session.ContentType, session.Metadata)
	if err != nil {
		// Hand-off failure keeps the chunks so the upload can be recovered.
		s.failSession(ctx, session)
		s.logger.ErrorWithContextf(ctx, err, "[Upload] Session %s blob store hand-off failed", session.ID)
		return nil, storeErr("blob store hand-off", err)
	}

	completedAt := time.Now()
	session.Status = entity.UploadStatusCompleted
	session.CompletedAt = &completedAt
	session.FinalLocation = location
	if err := s.sessions.Save(ctx, session); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			// A concurrent Cancel won; the stored object stays in the blob
			// store, chunk cleanup already ran on the cancel side.
			if latest, findErr := s.sessions.Find(ctx, sessionID); findErr == nil {
				return nil, &TerminalSessionError{Status: latest.Status}
			}
			return nil, &TerminalSessionError{Status: entity.UploadStatusCancelled}
		}
		if errors.Is(err, repository.ErrKeyNotFound) {
			return nil, &NotFoundError{What: "upload session"}
		}
		return nil, storeErr("save session", err)
	}

	// Success cleanup: transient chunk payloads and the owner index entry go;
	// the session record stays readable until store expiry.
	s.cleanupSession(ctx, session, "completed")

	s.recordObject(ctx, session, fileHash, location, storedSize)
	s.notifyPipeline(ctx, session, fileHash, location, storedSize)

	s.logger.InfoWithContextf(ctx, "[Upload] Session %s completed: %s (%d bytes)", session.ID, location, storedSize)

	return &CompletionResult{
		SessionID:   session.ID,
		Location:    location,
		Size:        storedSize,
		FileHash:    fileHash,
		CompletedAt: completedAt,
	}, nil
}

// cleanupSession removes chunk payloads, state keys and the owner index entry
// for a session that no longer needs them. Failures never propagate to the
// caller: what could not be removed inline is queued for the cleanup worker.
func (s *UploadService) cleanupSession(ctx context.Context, session *entity.UploadSession, reason string) {
	failed := false
	if err := s.chunks.DeleteAll(ctx, session.ID, session.TotalChunks); err != nil {
		s.logger.WarningWithContextf(ctx, "[Upload] Failed to delete chunks of %s session %s: %v", reason, session.ID, err)
		failed = true
	}
	if err := s.sessions.DeleteStateKeys(ctx, session.ID); err != nil {
		s.logger.WarningWithContextf(ctx, "[Upload] Failed to delete state keys of session %s: %v", session.ID, err)
		failed = true
	}
	if err := s.sessions.RemoveFromOwnerIndex(ctx, session.OwnerID, session.ID); err != nil {
		s.logger.WarningWithContextf(ctx, "[Upload] Failed to prune owner index for session %s: %v", session.ID, err)
	}
	if failed && s.events != nil {
		msg := produce.SessionCleanupMessage{
			SessionID:   session.ID.String(),
			TotalChunks: session.TotalChunks,
			Reason:      reason,
		}
		if err := s.events.PublishSessionCleanup(ctx, msg); err != nil {
			s.logger.WarningWithContextf(ctx, "[Upload] Failed to queue cleanup job for session %s: %v", session.ID, err)
		}
	}
}

func (s *UploadService) failSession(ctx context.Context, session *entity.UploadSession) {
	session.Status = entity.UploadStatusFailed
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.WarningWithContextf(ctx, "[Upload] Failed to mark session %s as failed: %v", session.ID, err)
	}
}

// recordObject writes the completed-object catalog entry. Best effort: the
// upload already succeeded, a catalog miss is logged and left to reconciliation.
func (s *UploadService) recordObject(ctx context.Context, session *entity.UploadSession, fileHash, location string, size int64) {
	if s.catalog == nil {
		return
	}
	existing, err := s.catalog.FindByOwnerAndHash(session.OwnerID, fileHash)
	if err != nil {
		s.logger.WarningWithContextf(ctx, "[Upload] Failed to look up catalog entry for session %s: %v", session.ID, err)
	}
	if existing != nil {
		// Same owner, same bytes: the blob key is content addressed, so the
		// earlier entry already points at this object.
		return
	}
	metadata := datatypes.JSONMap{}
	for k, v := range session.Metadata {
		metadata[k] = v
	}
	object := &entity.Object{
		ID:          uuid.New(),
		OwnerID:     session.OwnerID,
		OriginName:  session.FileName,
		ContentType: session.ContentType,
		SizeBytes:   size,
		FileHash:    fileHash,
		Location:    location,
		Metadata:    metadata,
	}
	if err := s.catalog.Create(object); err != nil {
		s.logger.WarningWithContextf(ctx, "[Upload] Failed to record object for session %s: %v", session.ID, err)
	}
}

// notifyPipeline publishes the completed upload for downstream processing.
// Best effort: completion never depends on the pipeline.
func (s *UploadService) notifyPipeline(ctx context.Context, session *entity.UploadSession, fileHash, location string, size int64) {
	if s.events == nil {
		return
	}
	msg := produce.UploadCompletedMessage{
		SessionID:   session.ID.String(),
		OwnerID:     session.OwnerID.String(),
		FileName:    session.FileName,
		ContentType: session.ContentType,
		FileHash:    fileHash,
		Location:    location,
		FileSize:    size,
		Metadata:    session.Metadata,
	}
	if err := s.events.PublishUploadCompleted(ctx, msg); err != nil {
		s.logger.WarningWithContextf(ctx, "[Upload] Failed to publish completion event for session %s: %v", session.ID, err)
	}
}

// missingIndices returns [0, total) \ uploaded, sorted ascending. uploaded
// must be sorted, which SessionRepository guarantees.
func missingIndices(uploaded []int, total int) []int {
	missing := make([]int, 0)
	next := 0
	for _, index := range uploaded {
		for ; next < index && next < total; next++ {
			missing = append(missing, next)
		}
		if next == index {
			next++
		}
	}
	for ; next < total; next++ {
		missing = append(missing, next)
	}
	return missing
}
