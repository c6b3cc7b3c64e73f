package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"course-video-service/domain/models"
	"course-video-service/domain/repositories"
)

type LessonRepositoryImpl struct {
	db *gorm.DB
}

func NewLessonRepository(db *gorm.DB) repositories.LessonRepository {
	return &LessonRepositoryImpl{db: db}
}

func (r *LessonRepositoryImpl) GetCourseIDsByVideoID(ctx context.Context, videoID uuid.UUID) ([]uuid.UUID, error) {
	var courseIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Lesson{}).
		Where("video_id = ?", videoID).
		Distinct().
		Pluck("course_id", &courseIDs).Error
	return courseIDs, err
}

func (r *LessonRepositoryImpl) CountByVideoID(ctx context.Context, videoID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Lesson{}).
		Where("video_id = ?", videoID).
		Count(&count).Error
	return count, err
}

type EnrollmentRepositoryImpl struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) repositories.EnrollmentRepository {
	return &EnrollmentRepositoryImpl{db: db}
}

func (r *EnrollmentRepositoryImpl) ExistsForAnyCourse(ctx context.Context, userID uuid.UUID, courseIDs []uuid.UUID) (bool, error) {
	if len(courseIDs) == 0 {
		return false, nil
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id IN ?", userID, courseIDs).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
