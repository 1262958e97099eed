package service

import (
	"fmt"

	"github.com/vidstream/upload-service/entity"
)

// Domain error taxonomy. Handlers translate these into HTTP responses; every
// failure carries its kind, the session's current status where known, and the
// offending chunk indices where relevant.

// ValidationError reports a malformed request.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// AuthorizationError reports an owner mismatch. Kept distinct from
// NotFoundError, matching the engine's trust boundary.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "not authorized: " + e.Reason
}

// NotFoundError reports an unknown or expired session.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return e.What + " not found"
}

// TerminalSessionError reports an operation against a completed, failed or
// cancelled session.
type TerminalSessionError struct {
	Status entity.UploadStatus
}

func (e *TerminalSessionError) Error() string {
	return fmt.Sprintf("session is in terminal state %q", e.Status)
}

// IntegrityError reports a hash mismatch. ChunkIndex is -1 for whole-object
// verification at completion.
type IntegrityError struct {
	ChunkIndex int
	Declared   string
	Computed   string
}

func (e *IntegrityError) Error() string {
	if e.ChunkIndex >= 0 {
		return fmt.Sprintf("chunk %d hash mismatch: declared %s, computed %s", e.ChunkIndex, e.Declared, e.Computed)
	}
	return fmt.Sprintf("file hash mismatch: declared %s, computed %s", e.Declared, e.Computed)
}

// MissingChunksError reports a completion attempted before every chunk was
// uploaded. Missing is sorted ascending.
type MissingChunksError struct {
	Missing []int
}

func (e *MissingChunksError) Error() string {
	return fmt.Sprintf("upload incomplete: %d chunks missing %v", len(e.Missing), e.Missing)
}

// RetryExhaustedError reports a retry request beyond the session's budget.
type RetryExhaustedError struct {
	ChunkIndex int
	RetryCount int
	MaxRetries int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retry budget exhausted for chunk %d: %d of %d retries used", e.ChunkIndex, e.RetryCount, e.MaxRetries)
}

// StoreError wraps a transient session-store or blob-store failure. Distinct
// from the domain errors above so callers know to retry with backoff.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
