package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vidstream/upload-service/entity"
	"github.com/vidstream/upload-service/infra/produce"
	"github.com/vidstream/upload-service/repository"
)

// fakeBlobStore captures hand-offs in memory and can be told to fail.
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failing bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Store(_ context.Context, data io.Reader, size int64, key, _ string, _ map[string]string) (string, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return "", 0, errors.New("blob store unavailable")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return "", 0, err
	}
	f.objects[key] = buf.Bytes()
	return "fake-bucket/" + key, size, nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu        sync.Mutex
	completed []produce.UploadCompletedMessage
	cleanups  []produce.SessionCleanupMessage
}

func (f *fakePublisher) PublishUploadCompleted(_ context.Context, msg produce.UploadCompletedMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, msg)
	return nil
}

func (f *fakePublisher) PublishSessionCleanup(_ context.Context, msg produce.SessionCleanupMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups = append(f.cleanups, msg)
	return nil
}

// fakeCatalog records completed-object entries in memory.
type fakeCatalog struct {
	mu      sync.Mutex
	objects []*entity.Object
}

func (f *fakeCatalog) Create(object *entity.Object) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects = append(f.objects, object)
	return nil
}

func (f *fakeCatalog) FindByOwnerAndHash(ownerID uuid.UUID, fileHash string) (*entity.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, object := range f.objects {
		if object.OwnerID == ownerID && object.FileHash == fileHash {
			return object, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// hookedStore interposes on a Store so a test can run a competing operation
// at an exact point inside a service call. Each hook fires once.
type hookedStore struct {
	repository.Store

	mu              sync.Mutex
	beforeSetAdd    func(key string)
	beforeIncrement func(key string)
}

func (h *hookedStore) SetAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	h.mu.Lock()
	hook := h.beforeSetAdd
	h.beforeSetAdd = nil
	h.mu.Unlock()
	if hook != nil {
		hook(key)
	}
	return h.Store.SetAdd(ctx, key, ttl, members...)
}

func (h *hookedStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	h.mu.Lock()
	hook := h.beforeIncrement
	h.beforeIncrement = nil
	h.mu.Unlock()
	if hook != nil {
		hook(key)
	}
	return h.Store.Increment(ctx, key, ttl)
}

// nopLogger satisfies Logger without output.
type nopLogger struct{}

func (nopLogger) InfoWithContextf(context.Context, string, ...interface{})         {}
func (nopLogger) WarningWithContextf(context.Context, string, ...interface{})      {}
func (nopLogger) ErrorWithContextf(context.Context, error, string, ...interface{}) {}
