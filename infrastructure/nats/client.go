package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"course-video-service/pkg/logger"
)

// Client wraps NATS connection with JetStream context
type Client struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
}

type ClientConfig struct {
	URL  string // nats://localhost:4222
	Name string // ชื่อ connection ที่เห็นใน nats server monitoring
}

// NewClient เชื่อมต่อและสร้าง/อัปเดต stream ของ transcode jobs
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	client := &Client{conn: nc, js: js}

	if err := client.setupStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to setup stream: %w", err)
	}

	logger.Info("NATS client initialized", "url", cfg.URL, "stream", StreamName)
	return client, nil
}

func (c *Client) setupStream(ctx context.Context) error {
	stream, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectJobs},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.WorkQueuePolicy, // ลบ message หลัง Ack
		MaxAge:      24 * time.Hour,
		Duplicates:  10 * time.Minute, // กัน publish ซ้ำของ attempt เดียวกัน (Nats-Msg-Id)
		Replicas:    1,
		Description: "Transcode job queue",
	})
	if err != nil {
		return fmt.Errorf("failed to create/update transcode stream: %w", err)
	}
	c.stream = stream
	return nil
}

func (c *Client) Conn() *nats.Conn {
	return c.conn
}

func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

func (c *Client) Stream() jetstream.Stream {
	return c.stream
}

// GetStatus ดึงสถานะของ stream และ consumer (consumer อาจยังไม่มีถ้า worker ยังไม่เริ่ม)
func (c *Client) GetStatus(ctx context.Context) (*JetStreamStatus, error) {
	streamInfo, err := c.stream.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream info: %w", err)
	}

	var consumerInfo ConsumerInfo
	if consumer, err := c.stream.Consumer(ctx, ConsumerName); err == nil {
		if ci, err := consumer.Info(ctx); err == nil {
			consumerInfo = ConsumerInfo{
				Name:          ci.Name,
				NumPending:    ci.NumPending,
				NumAckPending: ci.NumAckPending,
				Redelivered:   uint64(ci.NumRedelivered),
				NumWaiting:    ci.NumWaiting,
			}
		}
	}

	return &JetStreamStatus{
		Stream: StreamInfo{
			Name:     streamInfo.Config.Name,
			Messages: streamInfo.State.Msgs,
			Bytes:    streamInfo.State.Bytes,
			FirstSeq: streamInfo.State.FirstSeq,
			LastSeq:  streamInfo.State.LastSeq,
		},
		Consumer: consumerInfo,
	}, nil
}

// Close drain แล้วปิด connection
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return err
	}
	logger.Info("NATS connection closed")
	return nil
}

// Ping ทดสอบ connection
func (c *Client) Ping() error {
	return c.conn.FlushTimeout(5 * time.Second)
}

func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}
