package serviceimpl

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"course-video-service/domain/models"
	"course-video-service/domain/repositories"
	"course-video-service/domain/services"
	"course-video-service/pkg/logger"
)

type AccessServiceImpl struct {
	videoRepo      repositories.VideoRepository
	lessonRepo     repositories.LessonRepository
	enrollmentRepo repositories.EnrollmentRepository
}

func NewAccessService(
	videoRepo repositories.VideoRepository,
	lessonRepo repositories.LessonRepository,
	enrollmentRepo repositories.EnrollmentRepository,
) services.AccessService {
	return &AccessServiceImpl{
		videoRepo:      videoRepo,
		lessonRepo:     lessonRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

// CanStream video -> lessons -> courses -> enrollment (หรือ admin override)
func (s *AccessServiceImpl) CanStream(ctx context.Context, caller services.Caller, videoID uuid.UUID) (bool, error) {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, services.ErrVideoNotFound
		}
		return false, err
	}

	// ยังไม่มีอะไรให้ stream ไม่ว่าจะ enroll หรือเป็น admin
	if !video.IsReady() {
		return false, nil
	}

	if models.IsAdminRole(caller.Role) {
		return true, nil
	}

	if caller.UserID == uuid.Nil {
		return false, nil
	}

	courseIDs, err := s.lessonRepo.GetCourseIDsByVideoID(ctx, videoID)
	if err != nil {
		return false, err
	}

	// video ที่ไม่มี lesson ไม่มี course context ให้ตรวจ -> admin เท่านั้น
	if len(courseIDs) == 0 {
		return false, nil
	}

	enrolled, err := s.enrollmentRepo.ExistsForAnyCourse(ctx, caller.UserID, courseIDs)
	if err != nil {
		return false, err
	}

	if !enrolled {
		logger.DebugContext(ctx, "Stream access denied",
			"video_id", videoID,
			"user_id", caller.UserID,
		)
	}

	return enrolled, nil
}
