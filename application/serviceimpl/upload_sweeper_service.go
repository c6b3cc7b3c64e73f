package serviceimpl

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"course-video-service/domain/ports"
	"course-video-service/domain/repositories"
	"course-video-service/pkg/addressing"
	"course-video-service/pkg/logger"
	"course-video-service/pkg/metrics"
	"course-video-service/pkg/scheduler"
	"course-video-service/pkg/utils"
)

const sweepBatchSize = 100

// UploadSweeperConfig การตั้งค่าสำหรับ sweeper
type UploadSweeperConfig struct {
	SweepCron          string        // default: ทุก 30 นาที
	AbandonGrace       time.Duration // เวลาหลัง URL หมดอายุก่อนถือว่าถูกทิ้ง
	ConfirmedRetention time.Duration // เก็บ session ที่ confirm แล้วไว้นานเท่าไร
	TempDir            string        // work dir ของ transcoder
	TempMaxAge         time.Duration
}

// UploadSweeperService เก็บกวาด upload ที่ไม่มีการ complete และ work dir ที่ค้าง
type UploadSweeperService struct {
	config      UploadSweeperConfig
	sessionRepo repositories.UploadSessionRepository
	videoRepo   repositories.VideoRepository
	storage     ports.StoragePort
	scheduler   scheduler.JobScheduler
	now         func() time.Time
}

func NewUploadSweeperService(
	config UploadSweeperConfig,
	sessionRepo repositories.UploadSessionRepository,
	videoRepo repositories.VideoRepository,
	storage ports.StoragePort,
	jobScheduler scheduler.JobScheduler,
) *UploadSweeperService {
	if config.SweepCron == "" {
		config.SweepCron = "*/30 * * * *"
	}
	if config.AbandonGrace <= 0 {
		config.AbandonGrace = time.Hour
	}
	if config.ConfirmedRetention <= 0 {
		config.ConfirmedRetention = 7 * 24 * time.Hour
	}
	if config.TempMaxAge <= 0 {
		config.TempMaxAge = 24 * time.Hour
	}

	return &UploadSweeperService{
		config:      config,
		sessionRepo: sessionRepo,
		videoRepo:   videoRepo,
		storage:     storage,
		scheduler:   jobScheduler,
		now:         time.Now,
	}
}

// RegisterSweepJob registers the sweep job with scheduler
func (s *UploadSweeperService) RegisterSweepJob() error {
	return s.scheduler.AddJob("upload_sweeper", s.config.SweepCron, func(ctx context.Context) {
		s.RunSweep(ctx)
	})
}

// SweepResult สรุปผลหนึ่งรอบ
type SweepResult struct {
	Reclaimed    int
	Adopted      int
	Pruned       int64
	TempRemoved  int
	TempFreedMiB int64
}

// RunSweep runs all sweep tasks
func (s *UploadSweeperService) RunSweep(ctx context.Context) SweepResult {
	var result SweepResult

	result.Reclaimed, result.Adopted = s.reclaimAbandoned(ctx)

	pruned, err := s.sessionRepo.DeleteConfirmedBefore(ctx, s.now().Add(-s.config.ConfirmedRetention))
	if err != nil {
		logger.WarnContext(ctx, "Failed to prune confirmed upload sessions", "error", err)
	}
	result.Pruned = pruned

	removed, freed := s.cleanupTempDirs(ctx)
	result.TempRemoved = removed
	result.TempFreedMiB = freed / 1024 / 1024

	if result.Reclaimed+result.Adopted+result.TempRemoved > 0 || result.Pruned > 0 {
		logger.InfoContext(ctx, "Upload sweep completed",
			"reclaimed", result.Reclaimed,
			"adopted", result.Adopted,
			"pruned", result.Pruned,
			"temp_removed", result.TempRemoved,
			"temp_freed_mb", result.TempFreedMiB,
		)
	}

	return result
}

// reclaimAbandoned ลบไฟล์ของ session ที่ URL หมดอายุเกิน grace และยังไม่ confirm
// session ที่มี Video record แล้ว (confirm ไม่สำเร็จกลางทาง) ถูก mark confirmed แทนการลบ
func (s *UploadSweeperService) reclaimAbandoned(ctx context.Context) (reclaimed, adopted int) {
	before := s.now().Add(-s.config.AbandonGrace)

	sessions, err := s.sessionRepo.ListAbandoned(ctx, before, sweepBatchSize)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list abandoned upload sessions", "error", err)
		return 0, 0
	}

	for _, session := range sessions {
		if _, err := s.videoRepo.GetByID(ctx, session.VideoID); err == nil {
			if err := s.sessionRepo.MarkConfirmed(ctx, session.VideoID, s.now()); err != nil {
				logger.WarnContext(ctx, "Failed to adopt upload session", "video_id", session.VideoID, "error", err)
				continue
			}
			adopted++
			continue
		} else if !isNotFound(err) {
			logger.WarnContext(ctx, "Failed to check video for upload session", "video_id", session.VideoID, "error", err)
			continue
		}

		if err := s.storage.DeleteFolder(ctx, addressing.VideoPrefix(session.VideoID)); err != nil {
			logger.WarnContext(ctx, "Failed to delete abandoned upload", "video_id", session.VideoID, "error", err)
			continue
		}
		if err := s.sessionRepo.Delete(ctx, session.VideoID); err != nil {
			logger.WarnContext(ctx, "Failed to delete abandoned upload session", "video_id", session.VideoID, "error", err)
			continue
		}

		metrics.UploadSessionsReclaimedTotal.Inc()
		logger.InfoContext(ctx, "Reclaimed abandoned upload",
			"video_id", session.VideoID,
			"storage_path", session.StoragePath,
			"expired_at", session.ExpiresAt,
		)
		reclaimed++
	}

	return reclaimed, adopted
}

// cleanupTempDirs ลบ work dir ของ transcoder ที่ค้างจาก worker ที่ตายกลางคัน
func (s *UploadSweeperService) cleanupTempDirs(ctx context.Context) (int, int64) {
	if s.config.TempDir == "" {
		return 0, 0
	}

	matches, err := filepath.Glob(filepath.Join(s.config.TempDir, "transcode-*"))
	if err != nil {
		return 0, 0
	}

	cutoff := s.now().Add(-s.config.TempMaxAge)
	count := 0
	var totalSize int64

	for _, dir := range matches {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}

		size, _ := utils.DirSize(dir)
		if err := os.RemoveAll(dir); err != nil {
			logger.WarnContext(ctx, "Failed to delete stale work dir", "path", dir, "error", err)
			continue
		}
		count++
		totalSize += size
	}

	return count, totalSize
}
