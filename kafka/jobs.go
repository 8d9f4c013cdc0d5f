package kafka

import (
	"context"
	"errors"
	"log"

	"newsrelay/types"
)

// BatchRunner is implemented by orchestrator.Batch.
type BatchRunner interface {
	Run(ctx context.Context, req types.PublishRequest) (*types.BatchReport, error)
}

// NewPublishHandler turns publish-request messages into batch runs. Requests
// the orchestrator refuses are marked, since redelivery cannot fix them.
func NewPublishHandler(runner BatchRunner) *TypedMessageHandler[types.PublishRequest] {
	return &TypedMessageHandler[types.PublishRequest]{
		Validate: func(msg *types.PublishRequest) bool {
			if _, err := types.ParsePlatform(string(msg.Platform)); err != nil {
				log.Printf("⚠️  Skipping publish request: %v", err)
				return false
			}
			if len(msg.Items) == 0 {
				log.Printf("⚠️  Skipping publish request for %s with no items", msg.Platform)
				return false
			}
			return true
		},
		Process: func(ctx context.Context, msg *types.PublishRequest) error {
			report, err := runner.Run(ctx, *msg)
			switch {
			case err == nil:
				log.Printf("✅ Publish job %s done: %d/%d succeeded", report.BatchID, report.Success, report.Total)
				return nil
			case errors.Is(err, types.ErrConfiguration), errors.Is(err, types.ErrValidation):
				log.Printf("⚠️  Publish job refused: %v", err)
				return nil
			default:
				return err
			}
		},
		AlwaysMark: true,
	}
}

// NewPublishConsumer wires the publish handler to a consumer group.
func NewPublishConsumer(brokers []string, topic, groupID string, runner BatchRunner) (*Consumer, error) {
	return NewConsumer(ConsumerConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
		Handler: NewPublishHandler(runner),
	})
}
