package repositories

import (
	"context"

	"github.com/google/uuid"
)

type LessonRepository interface {
	// GetCourseIDsByVideoID course ids ของทุก lesson ที่อ้างอิง video นี้ (ไม่ซ้ำ)
	GetCourseIDsByVideoID(ctx context.Context, videoID uuid.UUID) ([]uuid.UUID, error)
	CountByVideoID(ctx context.Context, videoID uuid.UUID) (int64, error)
}

type EnrollmentRepository interface {
	// ExistsForAnyCourse user ลงทะเบียนอย่างน้อยหนึ่งคอร์สในรายการหรือไม่
	ExistsForAnyCourse(ctx context.Context, userID uuid.UUID, courseIDs []uuid.UUID) (bool, error)
}
