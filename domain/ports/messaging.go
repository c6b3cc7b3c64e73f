package ports

import (
	"context"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// Job Queue Port - สำหรับส่ง/รับ Transcode Jobs
// ═══════════════════════════════════════════════════════════════════════════════

// TranscodeJobData - Plain struct (ไม่มี NATS/AMQP dependency)
type TranscodeJobData struct {
	VideoID           string
	OriginalPath      string
	Qualities         []string
	SegmentDuration   int
	GenerateThumbnail bool
	Attempt           int
	RequestedAt       time.Time
}

// QueueStatus - สถานะของ job queue
type QueueStatus struct {
	Driver      string
	StreamName  string
	PendingJobs uint64
	AckPending  uint64
	Consumers   int
}

// JobQueuePort - Interface สำหรับฝั่งส่ง job
type JobQueuePort interface {
	// PublishJob ส่ง transcode job เข้า queue (ไม่รอให้ encode เสร็จ)
	PublishJob(ctx context.Context, job *TranscodeJobData) error

	// GetQueueStatus ดึงสถานะ queue (pending jobs, etc.)
	GetQueueStatus(ctx context.Context) (*QueueStatus, error)
}

// JobHandler callback ที่ worker เรียกต่อหนึ่ง job
type JobHandler func(ctx context.Context, job *TranscodeJobData) error

// JobConsumerPort - Interface สำหรับฝั่ง worker
type JobConsumerPort interface {
	// Start เริ่มรับ job จนกว่า ctx จะถูก cancel หรือเรียก Stop
	Start(ctx context.Context, handler JobHandler) error

	// Stop หยุดรับ job ใหม่และรอ job ที่กำลังทำ
	Stop() error
}

// ═══════════════════════════════════════════════════════════════════════════════
// Lock Port - mutual exclusion ต่อ videoId
// ═══════════════════════════════════════════════════════════════════════════════

// LockPort distributed/in-process lock
type LockPort interface {
	// TryAcquire คืน token และ true ถ้าได้ lock, false ถ้ามีคนถืออยู่
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)

	// Release ปล่อย lock เฉพาะเมื่อ token ตรงกับผู้ถือ
	Release(ctx context.Context, key string, token string) error
}
