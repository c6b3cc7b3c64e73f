package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"course-video-service/domain/models"
)

type UploadSessionRepository interface {
	Create(ctx context.Context, session *models.UploadSession) error
	// Upsert เขียนทับ session เดิมของ videoId ถ้ามี
	Upsert(ctx context.Context, session *models.UploadSession) error
	GetByVideoID(ctx context.Context, videoID uuid.UUID) (*models.UploadSession, error)
	// MarkConfirmed ตั้ง confirmed_at (เฉพาะที่ยังไม่ confirm) คืน ErrNotFound ถ้าไม่มี session ที่ยังเปิดอยู่
	MarkConfirmed(ctx context.Context, videoID uuid.UUID, at time.Time) error
	Delete(ctx context.Context, videoID uuid.UUID) error
	// ListAbandoned sessions ที่ยังไม่ confirm และหมดอายุก่อน before
	ListAbandoned(ctx context.Context, before time.Time, limit int) ([]*models.UploadSession, error)
	// DeleteConfirmedBefore ลบ sessions ที่ confirm แล้วและเก่ากว่า before
	DeleteConfirmedBefore(ctx context.Context, before time.Time) (int64, error)
}
