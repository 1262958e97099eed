package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/vidstream/upload-service/infra"
	"github.com/vidstream/upload-service/infra/produce"
	"github.com/vidstream/upload-service/repository"
)

// CleanupConsumer drains deferred cleanup jobs. The API attempts chunk
// deletion inline; a job lands here only when that pass failed, so every
// delivery is retried until the store accepts the deletes or the keys expire.
type CleanupConsumer struct {
	channel    *amqp.Channel
	infra      *infra.Infra
	repository *repository.Repository
}

func NewCleanupConsumer(channel *amqp.Channel, infra *infra.Infra, repo *repository.Repository) *CleanupConsumer {
	return &CleanupConsumer{
		channel:    channel,
		infra:      infra,
		repository: repo,
	}
}

func (c *CleanupConsumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		produce.UploadCleanupQueue,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register cleanup consumer: %w", err)
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Cleanup Consumer] Started listening on queue: %s", produce.UploadCleanupQueue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.infra.Logger.InfoWithContextf(ctx, "[Cleanup Consumer] Shutting down...")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.infra.Logger.WarningWithContextf(ctx, "[Cleanup Consumer] Channel closed")
					return
				}
				c.handleSessionCleanup(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *CleanupConsumer) handleSessionCleanup(ctx context.Context, msg amqp.Delivery) {
	var payload produce.SessionCleanupMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Cleanup Consumer] Failed to unmarshal message")
		_ = msg.Nack(false, false)
		return
	}

	sessionID, err := uuid.Parse(payload.SessionID)
	if err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Cleanup Consumer] Invalid session ID %q", payload.SessionID)
		_ = msg.Nack(false, false)
		return
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Cleanup Consumer] Cleaning up %s session %s (%d chunks)",
		payload.Reason, sessionID, payload.TotalChunks)

	// The HTTP request that queued this job is long gone; run against a
	// background context so shutdown does not abort a half-done delete.
	bgCtx := context.Background()

	if err := c.repository.ChunkRepo.DeleteAll(bgCtx, sessionID, payload.TotalChunks); err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Cleanup Consumer] Failed to delete chunks of session %s", sessionID)
		_ = msg.Nack(false, true) // Requeue
		return
	}

	if err := c.repository.SessionRepo.DeleteStateKeys(bgCtx, sessionID); err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Cleanup Consumer] Failed to delete state keys of session %s", sessionID)
		_ = msg.Nack(false, true) // Requeue
		return
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Cleanup Consumer] Session %s cleaned up", sessionID)
	_ = msg.Ack(false)
}
