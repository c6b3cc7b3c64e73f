package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"course-video-service/domain/dto"
	"course-video-service/domain/models"
)

// ErrNotFound record ไม่พบ (repository แปลง gorm.ErrRecordNotFound เป็นตัวนี้)
var ErrNotFound = errors.New("record not found")

type VideoRepository interface {
	Create(ctx context.Context, video *models.Video) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error)
	// ListWithFilters ดึง videos พร้อม filter, search, pagination
	ListWithFilters(ctx context.Context, params *dto.VideoFilterRequest) ([]*models.Video, int64, error)
	// UpdateMetadata อัพเดทเฉพาะ field ที่ไม่ใช่สถานะ (title, description, source metadata)
	UpdateMetadata(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	CountByStatus(ctx context.Context, status models.VideoStatus) (int64, error)

	// TransitionStatus เปลี่ยนสถานะแบบมีเงื่อนไข (WHERE status IN sources ของ to)
	// พร้อม fields อื่นใน UPDATE เดียวกัน คืน models.ErrInvalidTransition ถ้าสถานะปัจจุบันไม่อนุญาต
	TransitionStatus(ctx context.Context, id uuid.UUID, to models.VideoStatus, fields map[string]interface{}) error
	// SaveRenditionProgress บันทึก rendition list ระหว่าง processing (เฉพาะเมื่อยัง processing)
	SaveRenditionProgress(ctx context.Context, id uuid.UUID, renditions, failed models.Renditions) error
	// MarkFailed เปลี่ยนเป็น failed พร้อมเพิ่ม error history
	MarkFailed(ctx context.Context, id uuid.UUID, record models.ErrorRecord) error
	// GetStuckProcessing ดึง videos ที่ processing_started_at เก่ากว่า threshold
	GetStuckProcessing(ctx context.Context, threshold time.Time) ([]*models.Video, error)

	// DeleteDetachingLessons ใน transaction เดียว: ถอด video ออกจากทุก lesson แล้วลบ record
	// คืน models.ErrInvalidTransition ถ้ากำลัง processing
	DeleteDetachingLessons(ctx context.Context, id uuid.UUID) error
}
