package serviceimpl

import (
	"context"
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
	"course-video-service/pkg/metrics"
)

// videoContentTypes MIME type ต่อ container format
var videoContentTypes = map[string]string{
	"mp4":  "video/mp4",
	"m4v":  "video/x-m4v",
	"mov":  "video/quicktime",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
	"avi":  "video/x-msvideo",
	"ts":   "video/mp2t",
}

// UploadServiceImpl Upload Broker
type UploadServiceImpl struct {
	storage        ports.StoragePort
	sessionRepo    repositories.UploadSessionRepository
	videoService   services.VideoService
	cfg            config.UploadConfig
	allowedFormats map[string]bool
	now            func() time.Time
}

func NewUploadService(
	storage ports.StoragePort,
	sessionRepo repositories.UploadSessionRepository,
	videoService services.VideoService,
	cfg config.UploadConfig,
) *UploadServiceImpl {
	allowed := make(map[string]bool, len(cfg.AllowedFormats))
	for _, f := range cfg.AllowedFormats {
		allowed[normalizeFormat(f)] = true
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = time.Hour
	}

	return &UploadServiceImpl{
		storage:        storage,
		sessionRepo:    sessionRepo,
		videoService:   videoService,
		cfg:            cfg,
		allowedFormats: allowed,
		now:            time.Now,
	}
}

// RequestUploadURL ออก presigned PUT URL สำหรับ path เดียวของ videoId ใหม่
func (s *UploadServiceImpl) RequestUploadURL(ctx context.Context, caller services.Caller, req *dto.RequestUploadURLRequest) (*dto.UploadURLResponse, error) {
	if !models.IsAdminRole(caller.Role) {
		return nil, services.ErrForbidden
	}

	format, err := s.validateUploadRequest(req)
	if err != nil {
		return nil, err
	}

	videoID := addressing.GenerateVideoID()
	storagePath, err := addressing.OriginalPath(videoID, req.FileName)
	if err != nil {
		return nil, services.NewValidationError("fileName", err.Error())
	}

	contentType := contentTypeForFormat(format)
	presigned, err := s.storage.PresignUpload(ctx, storagePath, contentType, s.cfg.URLExpiry)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to presign upload URL",
			"video_id", videoID,
			"provider", s.storage.GetProviderName(),
			"error", err,
		)
		return nil, services.NewExternalServiceError("storage", err)
	}

	// บันทึก session หลัง presign สำเร็จเท่านั้น
	session := &models.UploadSession{
		VideoID:     videoID,
		StoragePath: storagePath,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		FileFormat:  format,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		CreatedBy:   caller.UserID,
		ExpiresAt:   presigned.ExpiresAt,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		logger.ErrorContext(ctx, "Failed to record upload session", "video_id", videoID, "error", err)
		return nil, fmt.Errorf("failed to record upload session: %w", err)
	}

	metrics.UploadURLsIssuedTotal.Inc()

	logger.InfoContext(ctx, "Upload URL issued",
		"video_id", videoID,
		"user_id", caller.UserID,
		"file_size", req.FileSize,
		"format", format,
		"expires_at", presigned.ExpiresAt,
	)

	return &dto.UploadURLResponse{
		UploadURL:   presigned.URL,
		Method:      presigned.Method,
		Headers:     presigned.Headers,
		VideoID:     videoID,
		StoragePath: storagePath,
		ExpiresAt:   presigned.ExpiresAt,
	}, nil
}

// CompleteUpload ยืนยันการ upload แล้วลงทะเบียน Video record
func (s *UploadServiceImpl) CompleteUpload(ctx context.Context, caller services.Caller, videoID uuid.UUID, req *dto.CompleteUploadRequest) (*dto.CompleteUploadResponse, error) {
	if !models.IsAdminRole(caller.Role) {
		return nil, services.ErrForbidden
	}

	startProcessing := s.cfg.AutoStartProcess
	var qualities []string
	if req != nil {
		if req.StartProcessing != nil {
			startProcessing = *req.StartProcessing
		}
		qualities = req.Qualities
	}

	video, started, err := s.videoService.CreateVideo(ctx, caller, &dto.CreateVideoRequest{
		VideoID:         videoID,
		StartProcessing: startProcessing,
		Qualities:       qualities,
	})
	if err != nil {
		return nil, err
	}

	return &dto.CompleteUploadResponse{
		Video:             dto.VideoToVideoResponse(video),
		ProcessingStarted: started,
	}, nil
}

// AbortUpload ลบไฟล์ที่อาจค้างอยู่และ session ที่ยังไม่ confirm
func (s *UploadServiceImpl) AbortUpload(ctx context.Context, caller services.Caller, videoID uuid.UUID) error {
	if !models.IsAdminRole(caller.Role) {
		return services.ErrForbidden
	}

	session, err := s.sessionRepo.GetByVideoID(ctx, videoID)
	if err != nil {
		if isNotFound(err) {
			return services.ErrUploadSessionNotFound
		}
		return err
	}
	if session.IsConfirmed() {
		return services.NewValidationError("videoId", "upload is already completed, delete the video instead")
	}

	if err := s.storage.DeleteFolder(ctx, addressing.VideoPrefix(videoID)); err != nil {
		return services.NewExternalServiceError("storage", err)
	}
	if err := s.sessionRepo.Delete(ctx, videoID); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Upload aborted", "video_id", videoID, "user_id", caller.UserID)
	return nil
}

// GetUploadLimits ข้อจำกัดสำหรับ frontend
func (s *UploadServiceImpl) GetUploadLimits() *dto.UploadLimitsResponse {
	formats := make([]string, 0, len(s.cfg.AllowedFormats))
	for _, f := range s.cfg.AllowedFormats {
		formats = append(formats, normalizeFormat(f))
	}
	return &dto.UploadLimitsResponse{
		MaxFileSize:      s.cfg.MaxFileSize,
		AllowedFormats:   formats,
		URLExpirySeconds: int(s.cfg.URLExpiry.Seconds()),
	}
}

// validateUploadRequest คืน format ที่ normalize แล้ว
func (s *UploadServiceImpl) validateUploadRequest(req *dto.RequestUploadURLRequest) (string, error) {
	if req == nil {
		return "", services.NewValidationError("", "request body is required")
	}
	if strings.TrimSpace(req.FileName) == "" {
		return "", services.NewValidationError("fileName", "is required")
	}
	if strings.TrimSpace(req.Title) == "" {
		return "", services.NewValidationError("title", "is required")
	}
	if req.FileSize <= 0 {
		return "", services.NewValidationError("fileSize", "must be greater than zero")
	}
	if req.FileSize > s.cfg.MaxFileSize {
		return "", services.NewValidationError("fileSize",
			fmt.Sprintf("exceeds the maximum of %d bytes", s.cfg.MaxFileSize))
	}

	format := normalizeFormat(req.FileFormat)
	if format == "" {
		return "", services.NewValidationError("fileFormat", "is required")
	}
	if !s.allowedFormats[format] {
		return "", services.NewValidationError("fileFormat",
			fmt.Sprintf("%q is not allowed, allowed: %s", format, strings.Join(s.cfg.AllowedFormats, ", ")))
	}

	ext, err := addressing.SanitizeExtension(req.FileName)
	if err != nil {
		return "", services.NewValidationError("fileName", err.Error())
	}
	if ext != format {
		return "", services.NewValidationError("fileName", "extension does not match fileFormat")
	}

	return format, nil
}

func normalizeFormat(format string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
}

func contentTypeForFormat(format string) string {
	if ct, ok := videoContentTypes[format]; ok {
		return ct
	}
	return "application/octet-stream"
}

var _ services.UploadService = (*UploadServiceImpl)(nil)
