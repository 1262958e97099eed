package controller

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vidstream/upload-service/http/controller/dto"
	"github.com/vidstream/upload-service/service"
	"github.com/vidstream/upload-service/utils"
)

// InitUpload creates a new upload session for the authenticated user
// POST /api/v1/uploads
func (ctrl *Controller) InitUpload(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Upload] user_id not found in context")
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	var req dto.InitUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Upload] Invalid init request: %v", err)
		utils.JSON400(c, "Invalid request: "+err.Error())
		return
	}

	session, err := ctrl.Uploads.Initiate(ctx, userID, service.InitiateRequest{
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		ContentType: req.ContentType,
		Metadata:    req.Metadata,
	})
	if err != nil {
		ctrl.respondError(c, "[Upload]", err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Upload] Session %s initiated for user %s: %s (%d bytes, %d chunks)",
		session.ID, userID, session.FileName, session.FileSize, session.TotalChunks)

	utils.JSON201(c, dto.InitUploadResponse{
		SessionID:   session.ID.String(),
		ChunkSize:   session.ChunkSize,
		TotalChunks: session.TotalChunks,
		Status:      string(session.Status),
	})
}

// UploadChunk receives one chunk for an active session
// POST /api/v1/uploads/:id/chunks
func (ctrl *Controller) UploadChunk(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid session id format")
		return
	}

	var req dto.UploadChunkRequest
	if c.Query("chunk_index") != "" {
		if err := c.ShouldBindQuery(&req); err != nil {
			utils.JSON400(c, "Invalid request: "+err.Error())
			return
		}
	} else {
		// Header and form fallbacks for clients that stream raw bodies.
		chunkIndexStr := c.GetHeader("X-Chunk-Index")
		if chunkIndexStr == "" {
			chunkIndexStr = c.PostForm("chunk_index")
		}
		req.ChunkIndex, err = strconv.Atoi(chunkIndexStr)
		if err != nil {
			utils.JSON400(c, "Invalid chunk_index")
			return
		}
		req.ChunkHash = c.GetHeader("X-Chunk-Hash")
		if req.ChunkHash == "" {
			req.ChunkHash = c.PostForm("chunk_hash")
		}
	}
	if req.ChunkHash == "" {
		req.ChunkHash = c.GetHeader("X-Chunk-Hash")
	}

	payload, err := readChunkPayload(c)
	if err != nil {
		utils.JSON400(c, err.Error())
		return
	}

	receipt, err := ctrl.Uploads.UploadChunk(ctx, userID, sessionID, req.ChunkIndex, payload, req.ChunkHash)
	if err != nil {
		ctrl.respondError(c, "[Chunk]", err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Chunk] Chunk %d accepted for session %s (%d/%d)",
		receipt.ChunkIndex, sessionID, receipt.UploadedChunks, receipt.TotalChunks)

	utils.JSON200(c, receipt)
}

// readChunkPayload accepts either a multipart "chunk" file part or a raw
// request body with an explicit Content-Length.
func readChunkPayload(c *gin.Context) ([]byte, error) {
	file, _, err := c.Request.FormFile("chunk")
	if err == nil {
		defer file.Close()
		payload, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read chunk payload: %w", err)
		}
		return payload, nil
	}

	if c.Request.ContentLength <= 0 {
		return nil, errors.New("Content-Length header is required for raw body upload")
	}
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk payload: %w", err)
	}
	return payload, nil
}

// CompleteUpload assembles all chunks and hands the object to durable storage
// POST /api/v1/uploads/:id/complete
func (ctrl *Controller) CompleteUpload(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid session id format")
		return
	}

	var req dto.CompleteUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request: "+err.Error())
		return
	}

	result, err := ctrl.Uploads.Complete(ctx, userID, sessionID, req.TotalChunks, req.FileHash)
	if err != nil {
		ctrl.respondError(c, "[Complete]", err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Complete] Session %s completed: %s (%d bytes)",
		sessionID, result.Location, result.Size)

	utils.JSON200(c, result)
}

// GetUploadStatus returns the progress view for a session in any state
// GET /api/v1/uploads/:id/status
func (ctrl *Controller) GetUploadStatus(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid session id format")
		return
	}

	status, err := ctrl.Uploads.GetStatus(ctx, userID, sessionID)
	if err != nil {
		ctrl.respondError(c, "[Status]", err)
		return
	}

	utils.JSON200(c, status)
}

// ResumeUpload tells an interrupted client which chunks are still missing
// GET /api/v1/uploads/:id/resume
func (ctrl *Controller) ResumeUpload(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid session id format")
		return
	}

	plan, err := ctrl.Uploads.Resume(ctx, userID, sessionID)
	if err != nil {
		ctrl.respondError(c, "[Resume]", err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Resume] Session %s resumable: %d chunks missing, next index %d",
		sessionID, len(plan.MissingChunks), plan.NextChunkIndex)

	utils.JSON200(c, plan)
}

// RetryChunk authorizes one retry attempt for a failed chunk
// POST /api/v1/uploads/:id/chunks/:index/retry
func (ctrl *Controller) RetryChunk(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid session id format")
		return
	}

	chunkIndex, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		utils.JSON400(c, "Invalid chunk index")
		return
	}

	decision, err := ctrl.Uploads.RetryChunk(ctx, userID, sessionID, chunkIndex)
	if err != nil {
		ctrl.respondError(c, "[Retry]", err)
		return
	}

	utils.JSON200(c, decision)
}

// AbortUpload cancels a session and discards its staged chunks
// DELETE /api/v1/uploads/:id
func (ctrl *Controller) AbortUpload(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid session id format")
		return
	}

	if err := ctrl.Uploads.Cancel(ctx, userID, sessionID); err != nil {
		ctrl.respondError(c, "[Abort]", err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Abort] Session %s cancelled by user %s", sessionID, userID)

	utils.JSON200(c, gin.H{
		"session_id": sessionID.String(),
		"status":     "cancelled",
	})
}

// ListUploads returns the authenticated user's non-terminal sessions
// GET /api/v1/uploads
func (ctrl *Controller) ListUploads(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		utils.JSON401(c, "Unauthorized: user_id not found")
		return
	}

	sessions, err := ctrl.Uploads.ListActive(ctx, userID)
	if err != nil {
		ctrl.respondError(c, "[List]", err)
		return
	}

	utils.JSON200(c, gin.H{"uploads": sessions, "total": len(sessions)})
}

// respondError maps the engine's error taxonomy onto HTTP responses. The body
// always names the error kind so clients can branch without parsing messages.
func (ctrl *Controller) respondError(c *gin.Context, tag string, err error) {
	ctx := c.Request.Context()

	var validationErr *service.ValidationError
	var authErr *service.AuthorizationError
	var notFoundErr *service.NotFoundError
	var terminalErr *service.TerminalSessionError
	var integrityErr *service.IntegrityError
	var missingErr *service.MissingChunksError
	var retryErr *service.RetryExhaustedError
	var storeErr *service.StoreError

	switch {
	case errors.As(err, &validationErr):
		utils.JSON400(c, dto.ErrorResponse{Kind: "validation", Message: validationErr.Error()})
	case errors.As(err, &authErr):
		ctrl.Infra.Logger.WarningWithContextf(ctx, "%s Forbidden: %v", tag, err)
		utils.JSON403(c, dto.ErrorResponse{Kind: "forbidden", Message: authErr.Error()})
	case errors.As(err, &notFoundErr):
		utils.JSON404(c, dto.ErrorResponse{Kind: "not_found", Message: notFoundErr.Error()})
	case errors.As(err, &terminalErr):
		utils.JSON409(c, dto.ErrorResponse{
			Kind:          "terminal_session",
			Message:       terminalErr.Error(),
			SessionStatus: string(terminalErr.Status),
		})
	case errors.As(err, &integrityErr):
		resp := dto.ErrorResponse{Kind: "integrity", Message: integrityErr.Error()}
		if integrityErr.ChunkIndex >= 0 {
			resp.ChunkIndices = []int{integrityErr.ChunkIndex}
		}
		utils.JSON422(c, resp)
	case errors.As(err, &missingErr):
		utils.JSON409(c, dto.ErrorResponse{
			Kind:         "missing_chunks",
			Message:      missingErr.Error(),
			ChunkIndices: missingErr.Missing,
		})
	case errors.As(err, &retryErr):
		utils.JSON429(c, dto.ErrorResponse{
			Kind:         "retry_exhausted",
			Message:      retryErr.Error(),
			ChunkIndices: []int{retryErr.ChunkIndex},
		})
	case errors.As(err, &storeErr):
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "%s Store failure", tag)
		utils.JSON503(c, dto.ErrorResponse{Kind: "store_unavailable", Message: "storage temporarily unavailable, retry with backoff"})
	default:
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "%s Unexpected error", tag)
		utils.JSON500(c, dto.ErrorResponse{Kind: "internal", Message: "internal server error"})
	}
}
