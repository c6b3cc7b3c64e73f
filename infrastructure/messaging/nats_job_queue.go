package messaging

import (
	"context"
	"fmt"
	"time"

	"course-video-service/domain/ports"
	natspkg "course-video-service/infrastructure/nats"
)

// NATSJobQueue implements JobQueuePort using NATS JetStream
type NATSJobQueue struct {
	publisher *natspkg.Publisher
	client    *natspkg.Client
}

func NewNATSJobQueue(client *natspkg.Client, publisher *natspkg.Publisher) *NATSJobQueue {
	return &NATSJobQueue{
		publisher: publisher,
		client:    client,
	}
}

func (q *NATSJobQueue) PublishJob(ctx context.Context, job *ports.TranscodeJobData) error {
	if err := validateJob(job); err != nil {
		return err
	}
	return q.publisher.PublishTranscodeJob(ctx, toNATSJob(job))
}

func (q *NATSJobQueue) GetQueueStatus(ctx context.Context) (*ports.QueueStatus, error) {
	status, err := q.client.GetStatus(ctx)
	if err != nil {
		return nil, err
	}

	return &ports.QueueStatus{
		Driver:      "nats",
		StreamName:  status.Stream.Name,
		PendingJobs: status.Consumer.NumPending,
		AckPending:  uint64(status.Consumer.NumAckPending),
		Consumers:   status.Consumer.NumWaiting,
	}, nil
}

// NATSJobConsumer implements JobConsumerPort
type NATSJobConsumer struct {
	consumer *natspkg.Consumer
}

func NewNATSJobConsumer(consumer *natspkg.Consumer) *NATSJobConsumer {
	return &NATSJobConsumer{consumer: consumer}
}

func (c *NATSJobConsumer) Start(ctx context.Context, handler ports.JobHandler) error {
	return c.consumer.Start(ctx, func(ctx context.Context, job *natspkg.TranscodeJob) error {
		return handler(ctx, fromNATSJob(job))
	})
}

func (c *NATSJobConsumer) Stop() error {
	return c.consumer.Stop()
}

func toNATSJob(job *ports.TranscodeJobData) *natspkg.TranscodeJob {
	return &natspkg.TranscodeJob{
		VideoID:           job.VideoID,
		OriginalPath:      job.OriginalPath,
		Qualities:         job.Qualities,
		SegmentDuration:   job.SegmentDuration,
		GenerateThumbnail: job.GenerateThumbnail,
		Attempt:           job.Attempt,
		CreatedAt:         job.RequestedAt.Unix(),
	}
}

func fromNATSJob(job *natspkg.TranscodeJob) *ports.TranscodeJobData {
	return &ports.TranscodeJobData{
		VideoID:           job.VideoID,
		OriginalPath:      job.OriginalPath,
		Qualities:         job.Qualities,
		SegmentDuration:   job.SegmentDuration,
		GenerateThumbnail: job.GenerateThumbnail,
		Attempt:           job.Attempt,
		RequestedAt:       time.Unix(job.CreatedAt, 0),
	}
}

func validateJob(job *ports.TranscodeJobData) error {
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}
	if job.VideoID == "" {
		return fmt.Errorf("video_id is required")
	}
	return nil
}
