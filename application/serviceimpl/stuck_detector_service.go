package serviceimpl

import (
	"context"
	"fmt"
	"time"

	"course-video-service/domain/models"
	"course-video-service/domain/ports"
	"course-video-service/domain/repositories"
	"course-video-service/pkg/logger"
	"course-video-service/pkg/metrics"
	"course-video-service/pkg/scheduler"
)

// StuckDetectorConfig การตั้งค่าสำหรับ stuck detector
type StuckDetectorConfig struct {
	CheckCron         string        // default: ทุกนาที
	ProcessingTimeout time.Duration // processing นานกว่านี้ถือว่า worker หายไปแล้ว (default: 2h)
}

// StuckDetectorService เปลี่ยน record ที่ค้างใน processing เป็น failed เพื่อให้ trigger ใหม่ได้
type StuckDetectorService struct {
	config    StuckDetectorConfig
	videoRepo repositories.VideoRepository
	notifier  ports.NotifierPort
	scheduler scheduler.JobScheduler
	now       func() time.Time
}

func NewStuckDetectorService(
	config StuckDetectorConfig,
	videoRepo repositories.VideoRepository,
	notifier ports.NotifierPort,
	jobScheduler scheduler.JobScheduler,
) *StuckDetectorService {
	if config.CheckCron == "" {
		config.CheckCron = "* * * * *"
	}
	if config.ProcessingTimeout <= 0 {
		config.ProcessingTimeout = 2 * time.Hour
	}

	return &StuckDetectorService{
		config:    config,
		videoRepo: videoRepo,
		notifier:  notifier,
		scheduler: jobScheduler,
		now:       time.Now,
	}
}

// RegisterDetectorJob ลงทะเบียน detector job กับ scheduler
func (s *StuckDetectorService) RegisterDetectorJob() error {
	return s.scheduler.AddJob("stuck_detector", s.config.CheckCron, func(ctx context.Context) {
		s.RunDetection(ctx)
	})
}

// RunDetection คืนจำนวน record ที่ถูก mark failed
func (s *StuckDetectorService) RunDetection(ctx context.Context) int {
	threshold := s.now().Add(-s.config.ProcessingTimeout)

	stuckVideos, err := s.videoRepo.GetStuckProcessing(ctx, threshold)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to get stuck processing videos", "error", err)
		return 0
	}

	var marked []string
	for _, video := range stuckVideos {
		logger.WarnContext(ctx, "Detected stuck processing video",
			"video_id", video.ID,
			"processing_started_at", video.ProcessingStartedAt,
			"timeout", s.config.ProcessingTimeout,
		)

		record := models.ErrorRecord{
			Attempt:   video.AttemptCount,
			Error:     fmt.Sprintf("processing timed out after %s", s.config.ProcessingTimeout),
			Stage:     "stuck",
			Timestamp: s.now().UTC().Format(time.RFC3339),
		}
		// MarkFailed มีเงื่อนไข status = processing จึงไม่ทับผลของ worker ที่เพิ่งจบ
		if err := s.videoRepo.MarkFailed(ctx, video.ID, record); err != nil {
			logger.WarnContext(ctx, "Failed to mark stuck video as failed", "video_id", video.ID, "error", err)
			continue
		}

		metrics.StuckJobsDetectedTotal.Inc()
		marked = append(marked, video.ID.String())
	}

	if len(marked) == 0 {
		return 0
	}

	logger.InfoContext(ctx, "Stuck detection completed", "marked_failed", len(marked))

	if s.notifier != nil && s.notifier.IsEnabled() {
		if err := s.notifier.SendStuckJobsAlert(ctx, marked); err != nil {
			logger.WarnContext(ctx, "Failed to send stuck jobs alert", "error", err)
		}
	}

	return len(marked)
}
