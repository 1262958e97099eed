package entity

import (
	"time"

	"github.com/google/uuid"
)

// UploadStatus represents the status of an upload session
type UploadStatus string

const (
	UploadStatusInitiated UploadStatus = "initiated"
	UploadStatusUploading UploadStatus = "uploading"
	UploadStatusCompleted UploadStatus = "completed"
	UploadStatusFailed    UploadStatus = "failed"
	UploadStatusCancelled UploadStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed out of s.
func (s UploadStatus) Terminal() bool {
	switch s {
	case UploadStatusCompleted, UploadStatusFailed, UploadStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows moving from s to next.
// initiated -> uploading -> completed, with failed and cancelled reachable from
// any non-terminal state. Terminal states allow nothing.
func (s UploadStatus) CanTransition(next UploadStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case UploadStatusUploading:
		return s == UploadStatusInitiated || s == UploadStatusUploading
	case UploadStatusCompleted:
		return s == UploadStatusUploading || s == UploadStatusInitiated
	case UploadStatusFailed, UploadStatusCancelled:
		return true
	}
	return false
}

// UploadSession represents one chunked upload attempt. The record is stored as
// JSON in the session store; the uploaded/failed chunk index sets and the retry
// counter live in separate store keys so they can be mutated atomically.
type UploadSession struct {
	ID            uuid.UUID         `json:"id"`
	OwnerID       uuid.UUID         `json:"owner_id"`
	FileName      string            `json:"file_name"`
	FileSize      int64             `json:"file_size"`
	ContentType   string            `json:"content_type"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	ChunkSize     int64             `json:"chunk_size"`
	TotalChunks   int               `json:"total_chunks"`
	Status        UploadStatus      `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	FinalLocation string            `json:"final_location,omitempty"`
}

// ExpectedChunkLen returns the exact payload length required for a chunk index.
// Every chunk is ChunkSize bytes except the last, which carries the remainder.
func (s *UploadSession) ExpectedChunkLen(index int) int64 {
	if index == s.TotalChunks-1 {
		return s.FileSize - int64(s.TotalChunks-1)*s.ChunkSize
	}
	return s.ChunkSize
}
