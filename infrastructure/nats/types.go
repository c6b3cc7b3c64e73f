package nats

import "time"

// Stream and Consumer names
const (
	StreamName   = "TRANSCODE_JOBS"
	ConsumerName = "TRANSCODE_WORKER"
	SubjectJobs  = "jobs.transcode"

	// MaxDeliver จำนวนครั้งสูงสุดที่ส่ง job เดิม (job ที่ล้มเหลวจริงถูก Ack ไปแล้ว นี่คือกรณี worker ตาย)
	MaxDeliver = 5
	// AckWait ต้องมากกว่าช่วง heartbeat (InProgress) หลายเท่า
	AckWait = 2 * time.Minute
)

// ═══════════════════════════════════════════════════════════════════════════════
// TranscodeJob - API → Worker (via JetStream)
// ═══════════════════════════════════════════════════════════════════════════════
type TranscodeJob struct {
	VideoID           string   `json:"video_id"`
	OriginalPath      string   `json:"original_path"` // videos/{id}/original/{name}
	Qualities         []string `json:"qualities"`     // ["1080p", "720p", "480p"]
	SegmentDuration   int      `json:"segment_duration"`
	GenerateThumbnail bool     `json:"generate_thumbnail"`
	Attempt           int      `json:"attempt"`
	CreatedAt         int64    `json:"created_at"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// JetStream Status - สำหรับ Monitoring API
// ═══════════════════════════════════════════════════════════════════════════════
type JetStreamStatus struct {
	Stream   StreamInfo   `json:"stream"`
	Consumer ConsumerInfo `json:"consumer"`
}

type StreamInfo struct {
	Name     string `json:"name"`
	Messages uint64 `json:"messages"`
	Bytes    uint64 `json:"bytes"`
	FirstSeq uint64 `json:"first_seq"`
	LastSeq  uint64 `json:"last_seq"`
}

type ConsumerInfo struct {
	Name          string `json:"name"`
	NumPending    uint64 `json:"num_pending"`
	NumAckPending int    `json:"ack_pending"`
	Redelivered   uint64 `json:"redelivered"`
	NumWaiting    int    `json:"num_waiting"` // pull requests ที่รออยู่ ~ จำนวน worker
}
