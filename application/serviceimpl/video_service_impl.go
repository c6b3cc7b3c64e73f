package serviceimpl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"course-video-service/domain/dto"
	"course-video-service/domain/models"
	"course-video-service/domain/ports"
	"course-video-service/domain/repositories"
	"course-video-service/domain/services"
	"course-video-service/pkg/addressing"
	"course-video-service/pkg/config"
	"course-video-service/pkg/logger"
)

type VideoServiceImpl struct {
	videoRepo          repositories.VideoRepository
	sessionRepo        repositories.UploadSessionRepository
	storage            ports.StoragePort
	transcodingService services.TranscodingService
	maxFileSize        int64
	abandonGrace       time.Duration
	now                func() time.Time
}

func NewVideoService(
	videoRepo repositories.VideoRepository,
	sessionRepo repositories.UploadSessionRepository,
	storage ports.StoragePort,
	transcodingService services.TranscodingService,
	uploadCfg config.UploadConfig,
) *VideoServiceImpl {
	if uploadCfg.AbandonGrace <= 0 {
		uploadCfg.AbandonGrace = time.Hour
	}
	return &VideoServiceImpl{
		videoRepo:          videoRepo,
		sessionRepo:        sessionRepo,
		storage:            storage,
		transcodingService: transcodingService,
		maxFileSize:        uploadCfg.MaxFileSize,
		abandonGrace:       uploadCfg.AbandonGrace,
		now:                time.Now,
	}
}

// CreateVideo สร้าง Video record จาก upload session หลังยืนยันว่าไฟล์อยู่ใน storage
func (s *VideoServiceImpl) CreateVideo(ctx context.Context, caller services.Caller, req *dto.CreateVideoRequest) (*models.Video, bool, error) {
	if !models.IsAdminRole(caller.Role) {
		return nil, false, services.ErrForbidden
	}
	if req == nil || req.VideoID == uuid.Nil {
		return nil, false, services.NewValidationError("videoId", "is required")
	}
	if len(req.Qualities) > 0 {
		if _, err := ports.ResolveQualityProfiles(req.Qualities); err != nil {
			return nil, false, services.NewValidationError("qualities", err.Error())
		}
	}

	session, err := s.sessionRepo.GetByVideoID(ctx, req.VideoID)
	if err != nil {
		if isNotFound(err) {
			return nil, false, services.ErrUploadSessionNotFound
		}
		return nil, false, err
	}

	// complete ซ้ำ คืน record เดิม
	if session.IsConfirmed() {
		existing, err := s.GetByVideoID(ctx, req.VideoID)
		if err != nil {
			if errors.Is(err, services.ErrVideoNotFound) {
				return nil, false, services.ErrUploadSessionNotFound
			}
			return nil, false, err
		}
		return existing, false, nil
	}

	// หลัง expiresAt + grace ไฟล์เป็นของ sweeper แล้ว
	if s.now().After(session.ExpiresAt.Add(s.abandonGrace)) {
		return nil, false, services.ErrUploadSessionExpired
	}

	info, err := s.storage.StatFile(ctx, session.StoragePath)
	if err != nil {
		if errors.Is(err, ports.ErrObjectNotFound) {
			return nil, false, services.ErrUploadNotReceived
		}
		return nil, false, services.NewExternalServiceError("storage", err)
	}
	if err := s.checkUploadedSize(info.Size, session.FileSize); err != nil {
		logger.WarnContext(ctx, "Rejected uploaded file",
			"video_id", req.VideoID,
			"declared", session.FileSize,
			"actual", info.Size,
			"max", s.maxFileSize,
		)
		// presigned PUT ไม่ผูก Content-Length ไฟล์ที่ไม่ตรงต้องลบทิ้ง
		if delErr := s.storage.DeleteFolder(ctx, addressing.VideoPrefix(req.VideoID)); delErr != nil {
			logger.WarnContext(ctx, "Failed to delete rejected upload", "video_id", req.VideoID, "error", delErr)
		}
		return nil, false, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = session.Title
	}
	description := session.Description
	if req.Description != nil {
		description = *req.Description
	}

	video := &models.Video{
		ID:                 session.VideoID,
		Title:              title,
		Description:        description,
		OriginalPath:       session.StoragePath,
		OriginalFileName:   session.FileName,
		FileSize:           info.Size,
		SourceFormat:       session.FileFormat,
		Status:             models.VideoStatusPending,
		RequestedQualities: req.Qualities,
		Renditions:         models.Renditions{},
		FailedRenditions:   models.Renditions{},
		ErrorHistory:       models.ErrorHistory{},
		CreatedBy:          session.CreatedBy,
	}
	if err := s.videoRepo.Create(ctx, video); err != nil {
		logger.ErrorContext(ctx, "Failed to create video record", "video_id", video.ID, "error", err)
		return nil, false, fmt.Errorf("failed to create video: %w", err)
	}

	if err := s.sessionRepo.MarkConfirmed(ctx, video.ID, s.now()); err != nil {
		logger.WarnContext(ctx, "Failed to mark upload session confirmed", "video_id", video.ID, "error", err)
	}

	logger.InfoContext(ctx, "Video registered",
		"video_id", video.ID,
		"title", video.Title,
		"file_size", video.FileSize,
		"created_by", video.CreatedBy,
	)

	if !req.StartProcessing {
		return video, false, nil
	}

	err = s.transcodingService.TriggerProcessing(ctx, video.ID, services.ProcessingOptions{Qualities: req.Qualities})
	if err != nil {
		// record ยังอยู่ trigger ใหม่ได้ภายหลัง
		logger.WarnContext(ctx, "Auto processing not started", "video_id", video.ID, "error", err)
	}

	current, getErr := s.GetByVideoID(ctx, video.ID)
	if getErr != nil {
		return video, err == nil, nil
	}
	return current, err == nil, nil
}

func (s *VideoServiceImpl) checkUploadedSize(actual, declared int64) error {
	if s.maxFileSize > 0 && actual > s.maxFileSize {
		return services.NewValidationError("fileSize", fmt.Sprintf("uploaded file exceeds the maximum of %d bytes", s.maxFileSize))
	}
	if actual != declared {
		return services.NewValidationError("fileSize", fmt.Sprintf("uploaded %d bytes, declared %d", actual, declared))
	}
	return nil
}

func (s *VideoServiceImpl) GetByVideoID(ctx context.Context, videoID uuid.UUID) (*models.Video, error) {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		if isNotFound(err) {
			return nil, services.ErrVideoNotFound
		}
		return nil, err
	}
	return video, nil
}

func (s *VideoServiceImpl) ListWithFilters(ctx context.Context, params *dto.VideoFilterRequest) ([]*models.Video, int64, error) {
	if params == nil {
		params = &dto.VideoFilterRequest{}
	}
	if params.Status != "" {
		if _, err := models.ParseVideoStatus(params.Status); err != nil {
			return nil, 0, services.NewValidationError("status", err.Error())
		}
	}
	params.Page, params.Limit = dto.NormalizePage(params.Page, params.Limit)

	return s.videoRepo.ListWithFilters(ctx, params)
}

func (s *VideoServiceImpl) UpdateVideo(ctx context.Context, videoID uuid.UUID, req *dto.UpdateVideoRequest) (*models.Video, error) {
	if _, err := s.GetByVideoID(ctx, videoID); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req != nil && req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, services.NewValidationError("title", "must not be empty")
		}
		fields["title"] = title
	}
	if req != nil && req.Description != nil {
		fields["description"] = *req.Description
	}

	if len(fields) > 0 {
		if err := s.videoRepo.UpdateMetadata(ctx, videoID, fields); err != nil {
			return nil, err
		}
	}

	return s.GetByVideoID(ctx, videoID)
}

// DeleteVideo ไม่ลบระหว่าง processing, ลบ record ก่อนแล้วค่อยลบไฟล์
// ลบไฟล์ไม่สำเร็จ session ถูกเปิดใหม่แบบหมดอายุ ให้ sweeper ลบซ้ำรอบถัดไป
func (s *VideoServiceImpl) DeleteVideo(ctx context.Context, videoID uuid.UUID) error {
	video, err := s.GetByVideoID(ctx, videoID)
	if err != nil {
		return err
	}

	if err := s.videoRepo.DeleteDetachingLessons(ctx, videoID); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidTransition):
			return services.ErrAlreadyProcessing
		case isNotFound(err):
			return services.ErrVideoNotFound
		}
		return err
	}

	if err := s.storage.DeleteFolder(ctx, addressing.VideoPrefix(videoID)); err != nil {
		logger.WarnContext(ctx, "Failed to delete video objects, scheduling purge",
			"video_id", videoID,
			"prefix", addressing.VideoPrefix(videoID),
			"error", err,
		)
		if err := s.sessionRepo.Upsert(ctx, s.purgeSession(video)); err != nil {
			logger.ErrorContext(ctx, "Failed to schedule storage purge", "video_id", videoID, "error", err)
		}
		logger.InfoContext(ctx, "Video deleted", "video_id", videoID, "purge_pending", true)
		return nil
	}

	if err := s.sessionRepo.Delete(ctx, videoID); err != nil && !isNotFound(err) {
		logger.WarnContext(ctx, "Failed to delete upload session", "video_id", videoID, "error", err)
	}

	logger.InfoContext(ctx, "Video deleted", "video_id", videoID)
	return nil
}

// purgeSession session ที่ยังไม่ confirm และหมดอายุเกิน grace แล้ว sweeper จึงลบ prefix ทันทีรอบถัดไป
func (s *VideoServiceImpl) purgeSession(video *models.Video) *models.UploadSession {
	return &models.UploadSession{
		VideoID:     video.ID,
		StoragePath: video.OriginalPath,
		FileName:    video.OriginalFileName,
		FileSize:    video.FileSize,
		FileFormat:  video.SourceFormat,
		Title:       video.Title,
		CreatedBy:   video.CreatedBy,
		ExpiresAt:   s.now().Add(-s.abandonGrace - time.Minute),
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}

var _ services.VideoService = (*VideoServiceImpl)(nil)
