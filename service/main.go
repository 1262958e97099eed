package service

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/vidstream/upload-service/config"
	"github.com/vidstream/upload-service/entity"
	"github.com/vidstream/upload-service/infra/produce"
	"github.com/vidstream/upload-service/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// BlobStore is the durable object store collaborator. One call is treated as
// atomic success/failure; infra.MinioClient is the production implementation.
type BlobStore interface {
	Store(ctx context.Context, data io.Reader, size int64, key, contentType string, metadata map[string]string) (location string, storedSize int64, err error)
}

// ObjectCatalog records completed uploads for the rest of the platform.
// Satisfied by repository.ObjectRepository; optional (nil skips the record).
type ObjectCatalog interface {
	Create(object *entity.Object) error
	FindByOwnerAndHash(ownerID uuid.UUID, fileHash string) (*entity.Object, error)
}

// EventPublisher notifies the processing pipeline about finished uploads and
// queues deferred cleanup jobs. Satisfied by produce.UploadProduceService;
// optional and best-effort.
type EventPublisher interface {
	PublishUploadCompleted(ctx context.Context, msg produce.UploadCompletedMessage) error
	PublishSessionCleanup(ctx context.Context, msg produce.SessionCleanupMessage) error
}

// Logger is the logging surface the engine needs; infra.LoggerClient
// satisfies it.
type Logger interface {
	InfoWithContextf(ctx context.Context, format string, args ...interface{})
	WarningWithContextf(ctx context.Context, format string, args ...interface{})
	ErrorWithContextf(ctx context.Context, err error, format string, args ...interface{})
}

// Policy holds the upload limits fixed by configuration, never by clients.
type Policy struct {
	ChunkSize   int64
	MaxFileSize int64
	MaxRetries  int
}

// PolicyFromConfig extracts the upload policy from the environment config.
func PolicyFromConfig(cfg *config.EnvConfig) Policy {
	return Policy{
		ChunkSize:   cfg.Upload.ChunkSize,
		MaxFileSize: cfg.Upload.MaxFileSize,
		MaxRetries:  cfg.Upload.MaxRetries,
	}
}

// UploadService is the resumable chunked upload engine. All session state
// lives in the shared store; the service itself is stateless and safe for
// concurrent use.
type UploadService struct {
	policy   Policy
	sessions *repository.SessionRepository
	chunks   *repository.ChunkRepository
	blob     BlobStore
	catalog  ObjectCatalog
	events   EventPublisher
	logger   Logger
	tracer   trace.Tracer
}

func NewUploadService(
	policy Policy,
	sessions *repository.SessionRepository,
	chunks *repository.ChunkRepository,
	blob BlobStore,
	catalog ObjectCatalog,
	events EventPublisher,
	logger Logger,
) *UploadService {
	return &UploadService{
		policy:   policy,
		sessions: sessions,
		chunks:   chunks,
		blob:     blob,
		catalog:  catalog,
		events:   events,
		logger:   logger,
		tracer:   otel.Tracer("upload-service"),
	}
}
