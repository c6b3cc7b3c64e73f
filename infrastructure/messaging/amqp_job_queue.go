package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"course-video-service/domain/ports"
	natspkg "course-video-service/infrastructure/nats"
	"course-video-service/infrastructure/rabbitmq"
	"course-video-service/pkg/logger"
)

// AMQPJobQueue implements JobQueuePort และ JobConsumerPort บน RabbitMQ
// body ใช้รูปแบบ JSON เดียวกับ NATS
type AMQPJobQueue struct {
	client   *rabbitmq.Client
	prefetch int
	cancel   context.CancelFunc
}

func NewAMQPJobQueue(client *rabbitmq.Client, prefetch int) *AMQPJobQueue {
	return &AMQPJobQueue{client: client, prefetch: prefetch}
}

func (q *AMQPJobQueue) PublishJob(ctx context.Context, job *ports.TranscodeJobData) error {
	if err := validateJob(job); err != nil {
		return err
	}

	body, err := json.Marshal(toNATSJob(job))
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.Publish(ctx, body, fmt.Sprintf("%s:%d", job.VideoID, job.Attempt)); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Transcode job published to RabbitMQ", "video_id", job.VideoID, "attempt", job.Attempt)
	return nil
}

func (q *AMQPJobQueue) GetQueueStatus(ctx context.Context) (*ports.QueueStatus, error) {
	messages, consumers, err := q.client.QueueDepth()
	if err != nil {
		return nil, err
	}
	return &ports.QueueStatus{
		Driver:      "rabbitmq",
		PendingJobs: uint64(messages),
		Consumers:   consumers,
	}, nil
}

func (q *AMQPJobQueue) Start(ctx context.Context, handler ports.JobHandler) error {
	ctx, q.cancel = context.WithCancel(ctx)

	return q.client.Consume(ctx, q.prefetch, func(ctx context.Context, body []byte) error {
		job, err := decodeJob(body)
		if err != nil {
			// message เสีย requeue ไปก็ไม่มีประโยชน์
			logger.Error("Dropping malformed transcode job", "error", err)
			return nil
		}
		return handler(ctx, job)
	})
}

func (q *AMQPJobQueue) Stop() error {
	if q.cancel != nil {
		q.cancel()
	}
	return nil
}

func decodeJob(body []byte) (*ports.TranscodeJobData, error) {
	var wire natspkg.TranscodeJob
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, err
	}
	if wire.VideoID == "" {
		return nil, fmt.Errorf("video_id is required")
	}
	return fromNATSJob(&wire), nil
}
