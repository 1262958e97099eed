package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	infraPkg "github.com/vidstream/upload-service/infra"
	"github.com/vidstream/upload-service/repository"
	"github.com/vidstream/upload-service/service"
)

type testBlobStore struct{}

func (testBlobStore) Store(_ context.Context, data io.Reader, size int64, key, _ string, _ map[string]string) (string, int64, error) {
	if _, err := io.Copy(io.Discard, data); err != nil {
		return "", 0, err
	}
	return "test-bucket/" + key, size, nil
}

func newTestRouter(t *testing.T, userID uuid.UUID) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	uploads := service.NewUploadService(
		service.Policy{ChunkSize: 4, MaxFileSize: 1 << 20, MaxRetries: 3},
		repository.NewSessionRepository(store, time.Hour),
		repository.NewChunkRepository(store, time.Hour),
		testBlobStore{},
		nil,
		nil,
		infraPkg.NewStdoutLogger(),
	)

	ctrl := &Controller{
		Infra:   &infraPkg.Infra{Logger: infraPkg.NewStdoutLogger()},
		Uploads: uploads,
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID.String())
		c.Next()
	})

	api := r.Group("/api/v1/uploads")
	api.POST("/", ctrl.InitUpload)
	api.GET("/", ctrl.ListUploads)
	api.POST("/:id/chunks", ctrl.UploadChunk)
	api.POST("/:id/chunks/:index/retry", ctrl.RetryChunk)
	api.POST("/:id/complete", ctrl.CompleteUpload)
	api.GET("/:id/status", ctrl.GetUploadStatus)
	api.GET("/:id/resume", ctrl.ResumeUpload)
	api.DELETE("/:id", ctrl.AbortUpload)

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func initSession(t *testing.T, r *gin.Engine, fileSize int) string {
	t.Helper()
	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/uploads/", gin.H{
		"file_name": "clip.mp4",
		"file_size": fileSize,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	data := resp["data"].(map[string]interface{})
	return data["session_id"].(string)
}

func putChunk(t *testing.T, r *gin.Engine, sessionID string, index int, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	path := fmt.Sprintf("/api/v1/uploads/%s/chunks?chunk_index=%d", sessionID, index)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/octet-stream")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInitUploadEndpoint(t *testing.T) {
	r := newTestRouter(t, uuid.New())

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/uploads/", gin.H{
		"file_name": "clip.mp4",
		"file_size": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	data := resp["data"].(map[string]interface{})
	assert.NotEmpty(t, data["session_id"])
	assert.Equal(t, float64(3), data["total_chunks"])
	assert.Equal(t, "initiated", data["status"])
}

func TestInitUploadRejectsBadBody(t *testing.T) {
	r := newTestRouter(t, uuid.New())

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/uploads/", gin.H{"file_name": "clip.mp4"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChunkAndCompleteFlow(t *testing.T) {
	r := newTestRouter(t, uuid.New())
	sessionID := initSession(t, r, 10)

	require.Equal(t, http.StatusOK, putChunk(t, r, sessionID, 0, []byte("abcd")).Code)
	require.Equal(t, http.StatusOK, putChunk(t, r, sessionID, 2, []byte("ij")).Code)

	// Completion with a gap reports the missing indices.
	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/uploads/"+sessionID+"/complete", gin.H{"total_chunks": 3})
	require.Equal(t, http.StatusConflict, w.Code)
	errBody := resp["error"].(map[string]interface{})
	assert.Equal(t, "missing_chunks", errBody["kind"])
	assert.Equal(t, []interface{}{float64(1)}, errBody["chunk_indices"])

	require.Equal(t, http.StatusOK, putChunk(t, r, sessionID, 1, []byte("efgh")).Code)

	w, resp = doJSON(t, r, http.MethodPost, "/api/v1/uploads/"+sessionID+"/complete", gin.H{"total_chunks": 3})
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.NotEmpty(t, data["location"])
	assert.NotEmpty(t, data["file_hash"])
}

func TestChunkEndpointIsIdempotent(t *testing.T) {
	r := newTestRouter(t, uuid.New())
	sessionID := initSession(t, r, 8)

	require.Equal(t, http.StatusOK, putChunk(t, r, sessionID, 0, []byte("abcd")).Code)

	w := putChunk(t, r, sessionID, 0, []byte("abcd"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.True(t, data["already_stored"].(bool))
	assert.Equal(t, float64(1), data["uploaded_chunks"])
}

func TestStatusUnknownSession(t *testing.T) {
	r := newTestRouter(t, uuid.New())

	w, resp := doJSON(t, r, http.MethodGet, "/api/v1/uploads/"+uuid.NewString()+"/status", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	errBody := resp["error"].(map[string]interface{})
	assert.Equal(t, "not_found", errBody["kind"])
}

func TestAbortThenUploadConflicts(t *testing.T) {
	r := newTestRouter(t, uuid.New())
	sessionID := initSession(t, r, 8)

	w, _ := doJSON(t, r, http.MethodDelete, "/api/v1/uploads/"+sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	chunkResp := putChunk(t, r, sessionID, 0, []byte("abcd"))
	require.Equal(t, http.StatusConflict, chunkResp.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(chunkResp.Body.Bytes(), &resp))
	errBody := resp["error"].(map[string]interface{})
	assert.Equal(t, "terminal_session", errBody["kind"])
	assert.Equal(t, "cancelled", errBody["session_status"])
}
