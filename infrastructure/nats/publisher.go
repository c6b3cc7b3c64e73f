package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"course-video-service/pkg/logger"
)

// Publisher publishes transcode jobs to JetStream
type Publisher struct {
	client *Client
}

func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// PublishTranscodeJob Nats-Msg-Id = videoId:attempt ทำให้ publish ซ้ำไม่สร้าง job ซ้ำ
func (p *Publisher) PublishTranscodeJob(ctx context.Context, job *TranscodeJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	msgID := fmt.Sprintf("%s:%d", job.VideoID, job.Attempt)
	ack, err := p.client.js.Publish(ctx, SubjectJobs, data, jetstream.WithMsgID(msgID))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to publish transcode job",
			"video_id", job.VideoID,
			"error", err,
		)
		return fmt.Errorf("failed to publish job: %w", err)
	}

	logger.InfoContext(ctx, "Transcode job published to JetStream",
		"video_id", job.VideoID,
		"attempt", job.Attempt,
		"stream", ack.Stream,
		"sequence", ack.Sequence,
		"duplicate", ack.Duplicate,
	)
	return nil
}
