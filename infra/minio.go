package infra

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/vidstream/upload-service/config"
)

// MinioClient is the durable blob store collaborator. The upload engine hands
// it one fully assembled, integrity-verified object per completed session and
// treats the call as atomic success/failure.
type MinioClient struct {
	Client   *minio.Client
	Endpoint string
	Bucket   string
}

func InitMinioClient(cfg *config.EnvConfig) *MinioClient {
	endpoint := cfg.Minio.Endpoint
	if endpoint == "" {
		panic("MinIO endpoint is not configured")
	}

	accessKey := cfg.Minio.AccessKey
	secretKey := cfg.Minio.SecretKey
	if accessKey == "" || secretKey == "" {
		panic("MinIO credentials are not configured")
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: cfg.Minio.UseSSL,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO client: %v", err))
	}

	client := &MinioClient{
		Client:   minioClient,
		Endpoint: endpoint,
		Bucket:   cfg.Upload.TargetBucket,
	}

	if err := client.EnsureBucket(context.Background(), client.Bucket); err != nil {
		panic(fmt.Sprintf("Failed to ensure upload bucket: %v", err))
	}

	log.Println("Connected to MinIO:", endpoint)

	return client
}

// EnsureBucket creates a bucket if it doesn't exist
func (m *MinioClient) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := m.Client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = m.Client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// Store uploads an assembled object under the given key and returns its
// location reference ("bucket/key") and stored size.
func (m *MinioClient) Store(ctx context.Context, data io.Reader, size int64, key, contentType string, metadata map[string]string) (string, int64, error) {
	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	}

	info, err := m.Client.PutObject(ctx, m.Bucket, key, data, size, opts)
	if err != nil {
		return "", 0, fmt.Errorf("failed to put object: %w", err)
	}

	return fmt.Sprintf("%s/%s", m.Bucket, key), info.Size, nil
}

// GetObjectStream streams an object without loading it into memory.
func (m *MinioClient) GetObjectStream(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	obj, err := m.Client.GetObject(ctx, m.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get object: %w", err)
	}

	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, 0, fmt.Errorf("failed to stat object: %w", err)
	}

	return obj, stat.Size, nil
}

// DeleteObject removes an object from the upload bucket.
func (m *MinioClient) DeleteObject(ctx context.Context, key string) error {
	err := m.Client.RemoveObject(ctx, m.Bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
