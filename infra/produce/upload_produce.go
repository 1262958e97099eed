package produce

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	UploadExchange = "upload.exchange"

	// UploadCompletedQueue carries finalized uploads to the processing
	// pipeline (transcoding, thumbnails). The upload engine only publishes;
	// completion never waits on downstream processing.
	UploadCompletedQueue      = "upload.completed"
	UploadCompletedRoutingKey = "upload.completed"

	// UploadCleanupQueue carries deferred cleanup jobs. Chunk deletion is
	// attempted inline first; a job is queued only when the inline pass could
	// not remove everything, so the cleanup worker can retry later.
	UploadCleanupQueue      = "upload.cleanup"
	UploadCleanupRoutingKey = "upload.cleanup"
)

// UploadCompletedMessage announces a fully assembled, verified upload.
type UploadCompletedMessage struct {
	SessionID   string            `json:"session_id"`
	OwnerID     string            `json:"owner_id"`
	FileName    string            `json:"file_name"`
	ContentType string            `json:"content_type"`
	FileHash    string            `json:"file_hash"`
	Location    string            `json:"location"`
	FileSize    int64             `json:"file_size"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   int64             `json:"timestamp"`
}

// SessionCleanupMessage requests removal of a session's staged chunks and
// state keys after the session reached a state where they are no longer
// needed.
type SessionCleanupMessage struct {
	SessionID   string `json:"session_id"`
	TotalChunks int    `json:"total_chunks"`
	Reason      string `json:"reason"` // "completed" or "cancelled"
	Timestamp   int64  `json:"timestamp"`
}

// UploadProduceService handles publishing upload lifecycle events
type UploadProduceService struct {
	channel *amqp.Channel
}

// InitUploadProduceService declares the exchange/queue topology and returns
// the publisher.
func InitUploadProduceService(channel *amqp.Channel) *UploadProduceService {
	service := &UploadProduceService{
		channel: channel,
	}

	err := channel.ExchangeDeclare(
		UploadExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to declare Upload exchange: " + err.Error())
	}

	_, err = channel.QueueDeclare(
		UploadCompletedQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare Upload Completed queue: " + err.Error())
	}

	err = channel.QueueBind(
		UploadCompletedQueue,
		UploadCompletedRoutingKey,
		UploadExchange,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to bind Upload Completed queue: " + err.Error())
	}

	_, err = channel.QueueDeclare(
		UploadCleanupQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to declare Upload Cleanup queue: " + err.Error())
	}

	err = channel.QueueBind(
		UploadCleanupQueue,
		UploadCleanupRoutingKey,
		UploadExchange,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to bind Upload Cleanup queue: " + err.Error())
	}

	return service
}

// PublishUploadCompleted publishes an upload.completed event for the
// processing pipeline.
func (s *UploadProduceService) PublishUploadCompleted(ctx context.Context, msg UploadCompletedMessage) error {
	msg.Timestamp = time.Now().Unix()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(
		ctx,
		UploadExchange,
		UploadCompletedRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}

// PublishSessionCleanup queues a deferred cleanup job for the cleanup worker.
func (s *UploadProduceService) PublishSessionCleanup(ctx context.Context, msg SessionCleanupMessage) error {
	msg.Timestamp = time.Now().Unix()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(
		ctx,
		UploadExchange,
		UploadCleanupRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}
