package messaging

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"course-video-service/domain/ports"
	"course-video-service/pkg/logger"
)

var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrQueueClosed = errors.New("job queue is closed")
)

// memoryMaxRedeliver จำนวนครั้งที่ส่ง job ซ้ำเมื่อ handler คืน error
const memoryMaxRedeliver = 3

type memoryEnvelope struct {
	job        *ports.TranscodeJobData
	deliveries int
}

// MemoryJobQueue queue ใน process (API และ worker อยู่ใน binary เดียว) job หายเมื่อ restart
type MemoryJobQueue struct {
	jobs        chan memoryEnvelope
	concurrency int
	retryDelay  time.Duration

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	active int
}

func NewMemoryJobQueue(capacity, concurrency int) *MemoryJobQueue {
	if capacity <= 0 {
		capacity = 100
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &MemoryJobQueue{
		jobs:        make(chan memoryEnvelope, capacity),
		concurrency: concurrency,
		retryDelay:  5 * time.Second,
	}
}

func (q *MemoryJobQueue) PublishJob(ctx context.Context, job *ports.TranscodeJobData) error {
	if err := validateJob(job); err != nil {
		return err
	}
	return q.enqueue(memoryEnvelope{job: job})
}

func (q *MemoryJobQueue) enqueue(env memoryEnvelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- env:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryJobQueue) GetQueueStatus(ctx context.Context) (*ports.QueueStatus, error) {
	q.mu.Lock()
	active := q.active
	q.mu.Unlock()

	return &ports.QueueStatus{
		Driver:      "memory",
		PendingJobs: uint64(len(q.jobs)),
		AckPending:  uint64(active),
		Consumers:   1,
	}, nil
}

// Start ทำ job พร้อมกันไม่เกิน concurrency จน ctx ถูก cancel หรือ Stop
func (q *MemoryJobQueue) Start(ctx context.Context, handler ports.JobHandler) error {
	ctx, cancel := context.WithCancel(ctx)
	q.mu.Lock()
	q.cancel = cancel
	q.mu.Unlock()
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(q.concurrency)

	logger.Info("Memory job queue started", "concurrency", q.concurrency)

loop:
	for {
		select {
		case <-gctx.Done():
			break loop
		case env := <-q.jobs:
			q.setActive(1)
			g.Go(func() error {
				defer q.setActive(-1)
				q.handle(gctx, env, handler)
				return nil
			})
		}
	}

	g.Wait()
	logger.Info("Memory job queue stopped")
	return nil
}

func (q *MemoryJobQueue) handle(ctx context.Context, env memoryEnvelope, handler ports.JobHandler) {
	err := handler(ctx, env.job)
	if err == nil || ctx.Err() != nil {
		return
	}

	env.deliveries++
	if env.deliveries > memoryMaxRedeliver {
		logger.Error("Giving up on transcode job", "video_id", env.job.VideoID, "error", err)
		return
	}

	logger.Warn("Transcode job will be redelivered", "video_id", env.job.VideoID, "error", err)
	select {
	case <-ctx.Done():
	case <-time.After(q.retryDelay):
		if err := q.enqueue(env); err != nil {
			logger.Error("Failed to requeue transcode job", "video_id", env.job.VideoID, "error", err)
		}
	}
}

func (q *MemoryJobQueue) setActive(delta int) {
	q.mu.Lock()
	q.active += delta
	q.mu.Unlock()
}

// Stop ไม่รับ job ใหม่และ cancel job ที่กำลังทำ
func (q *MemoryJobQueue) Stop() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	if q.cancel != nil {
		q.cancel()
	}
	return nil
}
