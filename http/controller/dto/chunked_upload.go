package dto

// InitUploadRequest represents the request to initialize a chunked upload
type InitUploadRequest struct {
	FileName    string            `json:"file_name" binding:"required"`
	FileSize    int64             `json:"file_size" binding:"required,gt=0"`
	ContentType string            `json:"content_type"`
	Metadata    map[string]string `json:"metadata"` // Opaque, forwarded to the blob store
}

// InitUploadResponse represents the response after initializing a chunked upload
type InitUploadResponse struct {
	SessionID   string `json:"session_id"`
	ChunkSize   int64  `json:"chunk_size"`
	TotalChunks int    `json:"total_chunks"`
	Status      string `json:"status"`
}

// UploadChunkRequest represents the request to upload a chunk (from form params)
type UploadChunkRequest struct {
	ChunkIndex int    `form:"chunk_index" binding:"min=0"`
	ChunkHash  string `form:"chunk_hash"` // Optional SHA256 of the chunk payload
}

// CompleteUploadRequest represents the request to complete a chunked upload
type CompleteUploadRequest struct {
	TotalChunks int    `json:"total_chunks" binding:"required,gt=0"`
	FileHash    string `json:"file_hash"` // Optional SHA256 of the whole file
}

// ErrorResponse carries the error kind, the session's current status where
// known, and offending chunk indices where relevant.
type ErrorResponse struct {
	Kind          string `json:"kind"`
	Message       string `json:"message"`
	SessionStatus string `json:"session_status,omitempty"`
	ChunkIndices  []int  `json:"chunk_indices,omitempty"`
}
