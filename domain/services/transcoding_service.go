package services

import (
	"context"

	"github.com/google/uuid"

	"course-video-service/domain/dto"
	"course-video-service/domain/ports"
)

// ProcessingOptions ตัวเลือกของหนึ่ง attempt (ค่าว่างใช้ default จาก config)
type ProcessingOptions struct {
	Qualities         []string
	SegmentDuration   int
	GenerateThumbnail *bool
}

// TranscodingService Transcoding Orchestrator
type TranscodingService interface {
	// TriggerProcessing เปลี่ยนสถานะเป็น processing แบบมีเงื่อนไขแล้วส่ง job เข้า queue
	// คืน ErrAlreadyProcessing ถ้ามี attempt ที่ยังทำงานอยู่ ไม่รอให้ encode เสร็จ
	TriggerProcessing(ctx context.Context, videoID uuid.UUID, opts ProcessingOptions) error

	// ProcessVideoToHLS ทำงานจริง (เรียกจาก worker) ผลลัพธ์สะท้อนผ่านสถานะของ Video record
	ProcessVideoToHLS(ctx context.Context, job *ports.TranscodeJobData) error

	// GetStats ดึงสถิติจำนวนวิดีโอตาม status และสถานะ queue
	GetStats(ctx context.Context) (*dto.TranscodingStatsResponse, error)
}
