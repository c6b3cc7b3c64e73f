package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"course-video-service/pkg/logger"
)

// JobHandler คืน error เมื่อต้องการให้ส่ง job ใหม่ (Nak)
type JobHandler func(ctx context.Context, job *TranscodeJob) error

type ConsumerConfig struct {
	Concurrency int // จำนวน job ที่ทำพร้อมกันใน process นี้
}

// Consumer pull consumer ของ worker ส่ง InProgress ระหว่าง job ยาวๆ เพื่อไม่ให้ถูก redeliver
type Consumer struct {
	client   *Client
	config   ConsumerConfig
	consumer jetstream.Consumer
	consume  jetstream.ConsumeContext

	running atomic.Bool
	wg      sync.WaitGroup
	sem     chan struct{}
	cancel  context.CancelFunc
}

func NewConsumer(client *Client, config ConsumerConfig) *Consumer {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &Consumer{
		client: client,
		config: config,
		sem:    make(chan struct{}, config.Concurrency),
	}
}

// Start รับ job จนกว่า ctx ถูก cancel แล้วรอ job ที่กำลังทำ
func (c *Consumer) Start(ctx context.Context, handler JobHandler) error {
	consumer, err := c.client.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          ConsumerName,
		Durable:       ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       AckWait,
		MaxDeliver:    MaxDeliver,
		MaxAckPending: c.config.Concurrency * 4,
		FilterSubject: SubjectJobs,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	c.consumer = consumer

	jobCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		// block callback จนกว่าจะมีช่องว่าง ทำให้ไม่ดึง message เกิน concurrency
		select {
		case c.sem <- struct{}{}:
		case <-jobCtx.Done():
			msg.Nak()
			return
		}

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			defer func() { <-c.sem }()
			c.processMessage(jobCtx, msg, handler)
		}()
	}, jetstream.PullMaxMessages(1))
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	c.consume = consumeCtx

	c.running.Store(true)
	logger.Info("JetStream consumer started",
		"stream", StreamName,
		"consumer", ConsumerName,
		"concurrency", c.config.Concurrency,
	)

	<-jobCtx.Done()
	return c.shutdown()
}

func (c *Consumer) processMessage(ctx context.Context, msg jetstream.Msg, handler JobHandler) {
	var job TranscodeJob
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		logger.Error("Failed to unmarshal transcode job", "error", err)
		msg.Term()
		return
	}

	stopHeartbeat := c.heartbeat(ctx, msg)
	err := handler(ctx, &job)
	stopHeartbeat()

	if err != nil {
		delay := 10 * time.Second
		if meta, mErr := msg.Metadata(); mErr == nil {
			delay *= time.Duration(meta.NumDelivered)
		}
		if errors.Is(err, context.Canceled) {
			delay = 0
		}
		logger.Warn("Transcode job will be redelivered",
			"video_id", job.VideoID,
			"attempt", job.Attempt,
			"delay", delay.String(),
			"error", err,
		)
		msg.NakWithDelay(delay)
		return
	}

	if err := msg.Ack(); err != nil {
		logger.Warn("Failed to ack transcode job", "video_id", job.VideoID, "error", err)
	}
}

// heartbeat ส่ง InProgress เป็นระยะเพื่อรีเซ็ต AckWait
func (c *Consumer) heartbeat(ctx context.Context, msg jetstream.Msg) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(AckWait / 4)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := msg.InProgress(); err != nil {
					logger.Warn("Failed to extend transcode job ack deadline", "error", err)
				}
			}
		}
	}()
	return func() { close(done) }
}

// Stop หยุดรับ job ใหม่ และ cancel job ที่กำลังทำ (job จะถูก Nak เพื่อให้ worker อื่นรับต่อ)
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *Consumer) shutdown() error {
	if !c.running.Swap(false) {
		return nil
	}
	if c.consume != nil {
		c.consume.Stop()
	}
	c.wg.Wait()
	logger.Info("JetStream consumer stopped")
	return nil
}

func (c *Consumer) IsRunning() bool {
	return c.running.Load()
}
