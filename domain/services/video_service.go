package services

import (
	"context"

	"github.com/google/uuid"

	"course-video-service/domain/dto"
	"course-video-service/domain/models"
)

type VideoService interface {
	// CreateVideo ลงทะเบียน video record (pending) จาก upload session ที่ออกไปแล้ว
	// ถ้า StartProcessing = true จะ trigger orchestration ต่อ
	CreateVideo(ctx context.Context, caller Caller, req *dto.CreateVideoRequest) (*models.Video, bool, error)

	// GetByVideoID ดึง video ตาม videoId คืน ErrVideoNotFound ถ้าไม่มี
	GetByVideoID(ctx context.Context, videoID uuid.UUID) (*models.Video, error)

	// ListWithFilters ดึง videos พร้อม filter, search, pagination (admin)
	ListWithFilters(ctx context.Context, params *dto.VideoFilterRequest) ([]*models.Video, int64, error)

	// UpdateVideo แก้ไขได้เฉพาะ title/description สถานะแก้จากภายนอกไม่ได้
	UpdateVideo(ctx context.Context, videoID uuid.UUID, req *dto.UpdateVideoRequest) (*models.Video, error)

	// DeleteVideo ถอดออกจาก lessons และลบ record ก่อน แล้วค่อยคืนพื้นที่ storage
	DeleteVideo(ctx context.Context, videoID uuid.UUID) error
}
