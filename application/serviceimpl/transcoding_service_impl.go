package serviceimpl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/sync/semaphore"

	"course-video-service/domain/dto"
	"course-video-service/domain/models"
	"course-video-service/domain/ports"
	"course-video-service/domain/repositories"
	"course-video-service/domain/services"
	"course-video-service/pkg/addressing"
	"course-video-service/pkg/config"
	"course-video-service/pkg/hls"
	"course-video-service/pkg/logger"
	"course-video-service/pkg/metrics"
	"course-video-service/pkg/utils"
)

// stages ที่บันทึกลง ErrorRecord
const (
	stageEnqueue   = "enqueue"
	stageDownload  = "download"
	stageProbe     = "probe"
	stageTranscode = "transcode"
	stageUpload    = "upload"
	stageFinalize  = "finalize"
)

const lockKeyPrefix = "transcode:lock:"

type TranscodingServiceImpl struct {
	videoRepo  repositories.VideoRepository
	storage    ports.StoragePort
	transcoder ports.TranscoderPort
	jobQueue   ports.JobQueuePort
	lock       ports.LockPort
	notifier   ports.NotifierPort // nil = ไม่แจ้งเตือน
	cfg        config.TranscodeConfig

	now       func() time.Time
	checkDisk func(dir string, required int64) error
}

func NewTranscodingService(
	videoRepo repositories.VideoRepository,
	storage ports.StoragePort,
	transcoder ports.TranscoderPort,
	jobQueue ports.JobQueuePort,
	lock ports.LockPort,
	notifier ports.NotifierPort,
	cfg config.TranscodeConfig,
) *TranscodingServiceImpl {
	if cfg.MaxParallelEncodes < 1 {
		cfg.MaxParallelEncodes = 1
	}
	if cfg.SegmentDuration <= 0 {
		cfg.SegmentDuration = 6
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 3 * time.Hour
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}

	s := &TranscodingServiceImpl{
		videoRepo:  videoRepo,
		storage:    storage,
		transcoder: transcoder,
		jobQueue:   jobQueue,
		lock:       lock,
		notifier:   notifier,
		cfg:        cfg,
		now:        time.Now,
	}
	s.checkDisk = s.checkDiskSpace
	return s
}

// ═══════════════════════════════════════════════════════════════════════════════
// Trigger
// ═══════════════════════════════════════════════════════════════════════════════

// TriggerProcessing เปลี่ยนเป็น processing แบบมีเงื่อนไขแล้วส่ง job เข้า queue
func (s *TranscodingServiceImpl) TriggerProcessing(ctx context.Context, videoID uuid.UUID, opts services.ProcessingOptions) error {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		if isNotFound(err) {
			return services.ErrVideoNotFound
		}
		return err
	}

	if video.IsProcessing() {
		return services.ErrAlreadyProcessing
	}

	qualities := opts.Qualities
	if len(qualities) == 0 {
		qualities = video.RequestedQualities
	}
	if len(qualities) == 0 {
		qualities = s.cfg.Qualities
	}
	profiles, err := ports.ResolveQualityProfiles(qualities)
	if err != nil {
		return services.NewValidationError("qualities", err.Error())
	}
	names := profileNames(profiles)

	segmentDuration := opts.SegmentDuration
	if segmentDuration <= 0 {
		segmentDuration = s.cfg.SegmentDuration
	}
	generateThumbnail := s.cfg.GenerateThumbnail
	if opts.GenerateThumbnail != nil {
		generateThumbnail = *opts.GenerateThumbnail
	}

	attempt := video.AttemptCount + 1
	startedAt := s.now()

	// attempt ใหม่เริ่มจาก rendition list ว่าง
	err = s.videoRepo.TransitionStatus(ctx, videoID, models.VideoStatusProcessing, map[string]interface{}{
		"renditions":            models.Renditions{},
		"failed_renditions":     models.Renditions{},
		"master_playlist_path":  "",
		"processing_error":      "",
		"attempt_count":         attempt,
		"requested_qualities":   pq.StringArray(names),
		"processing_started_at": startedAt,
		"processed_at":          nil,
	})
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			return services.ErrAlreadyProcessing
		}
		if isNotFound(err) {
			return services.ErrVideoNotFound
		}
		return err
	}

	job := &ports.TranscodeJobData{
		VideoID:           videoID.String(),
		OriginalPath:      video.OriginalPath,
		Qualities:         names,
		SegmentDuration:   segmentDuration,
		GenerateThumbnail: generateThumbnail,
		Attempt:           attempt,
		RequestedAt:       startedAt,
	}

	if err := s.publish(ctx, job); err != nil {
		logger.ErrorContext(ctx, "Failed to enqueue transcode job", "video_id", videoID, "error", err)

		record := models.ErrorRecord{
			Attempt:   attempt,
			Error:     fmt.Sprintf("failed to enqueue job: %v", err),
			Stage:     stageEnqueue,
			Timestamp: s.now().UTC().Format(time.RFC3339),
		}
		if markErr := s.videoRepo.MarkFailed(ctx, videoID, record); markErr != nil {
			logger.ErrorContext(ctx, "Failed to mark video failed after enqueue error", "video_id", videoID, "error", markErr)
		}
		return services.NewExternalServiceError("queue", err)
	}

	logger.InfoContext(ctx, "Video queued for transcoding",
		"video_id", videoID,
		"attempt", attempt,
		"qualities", names,
		"segment_duration", segmentDuration,
	)

	return nil
}

func (s *TranscodingServiceImpl) publish(ctx context.Context, job *ports.TranscodeJobData) error {
	if s.jobQueue == nil {
		return errors.New("job queue not available")
	}
	return s.jobQueue.PublishJob(ctx, job)
}

// ═══════════════════════════════════════════════════════════════════════════════
// Worker side
// ═══════════════════════════════════════════════════════════════════════════════

// ProcessVideoToHLS ทำหนึ่ง attempt ผลลัพธ์สะท้อนผ่านสถานะของ record
// คืน error เฉพาะกรณีที่ควร redeliver job (lock backend ล่ม, worker ถูกหยุดกลางคัน)
func (s *TranscodingServiceImpl) ProcessVideoToHLS(ctx context.Context, job *ports.TranscodeJobData) error {
	videoID, err := uuid.Parse(job.VideoID)
	if err != nil {
		logger.ErrorContext(ctx, "Dropping transcode job with invalid video id", "video_id", job.VideoID)
		metrics.RecordJobOutcome("skipped")
		return nil
	}

	lockKey := lockKeyPrefix + videoID.String()
	token, ok, err := s.lock.TryAcquire(ctx, lockKey, s.cfg.LockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire transcode lock: %w", err)
	}
	if !ok {
		logger.InfoContext(ctx, "Transcode already running elsewhere", "video_id", videoID)
		metrics.RecordJobOutcome("locked")
		return nil
	}
	defer func() {
		if err := s.lock.Release(context.Background(), lockKey, token); err != nil {
			logger.WarnContext(ctx, "Failed to release transcode lock", "video_id", videoID, "error", err)
		}
	}()

	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		if isNotFound(err) {
			logger.InfoContext(ctx, "Video deleted before transcode started", "video_id", videoID)
			metrics.RecordJobOutcome("skipped")
			return nil
		}
		return err
	}

	// job ซ้ำหรือ job ของ attempt เก่า
	if !video.IsProcessing() || (job.Attempt > 0 && video.AttemptCount != job.Attempt) {
		logger.InfoContext(ctx, "Skipping stale transcode job",
			"video_id", videoID,
			"status", video.Status,
			"job_attempt", job.Attempt,
			"current_attempt", video.AttemptCount,
		)
		metrics.RecordJobOutcome("skipped")
		return nil
	}

	metrics.ActiveTranscodeJobs.Inc()
	defer metrics.ActiveTranscodeJobs.Dec()

	started := s.now()
	logger.InfoContext(ctx, "Starting transcode attempt",
		"video_id", videoID,
		"attempt", video.AttemptCount,
		"qualities", job.Qualities,
	)

	stage, err := s.runAttempt(ctx, video, job)
	if err != nil {
		if ctx.Err() != nil {
			// worker ถูกหยุด ปล่อยให้ queue ส่ง job ใหม่ หรือ stuck detector เก็บ
			logger.WarnContext(ctx, "Transcode interrupted", "video_id", videoID, "stage", stage)
			return ctx.Err()
		}
		s.fail(ctx, video, stage, err)
		return nil
	}

	metrics.RecordJobOutcome("ready")
	logger.InfoContext(ctx, "Transcode attempt completed",
		"video_id", videoID,
		"attempt", video.AttemptCount,
		"elapsed", s.now().Sub(started).String(),
	)
	return nil
}

// runAttempt คืน stage ที่ล้มเหลวพร้อม error
func (s *TranscodingServiceImpl) runAttempt(ctx context.Context, video *models.Video, job *ports.TranscodeJobData) (string, error) {
	if err := os.MkdirAll(s.cfg.TempDir, 0755); err != nil {
		return stageDownload, fmt.Errorf("failed to create temp dir: %w", err)
	}
	workDir, err := os.MkdirTemp(s.cfg.TempDir, "transcode-"+video.ID.String()+"-")
	if err != nil {
		return stageDownload, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// original + renditions ทุก quality รวมกันไม่เกินราว 3 เท่าของต้นฉบับ
	if err := s.checkDisk(s.cfg.TempDir, video.FileSize*3); err != nil {
		return stageDownload, err
	}

	originalPath := video.OriginalPath
	if job.OriginalPath != "" {
		originalPath = job.OriginalPath
	}
	localInput := filepath.Join(workDir, "original"+filepath.Ext(originalPath))
	if err := s.storage.DownloadFile(ctx, originalPath, localInput); err != nil {
		return stageDownload, fmt.Errorf("failed to download original: %w", err)
	}

	info, err := s.transcoder.GetVideoInfo(ctx, localInput)
	if err != nil {
		return stageProbe, fmt.Errorf("failed to probe original: %w", err)
	}
	s.saveSourceMetadata(ctx, video.ID, info)

	qualities := job.Qualities
	if len(qualities) == 0 {
		qualities = s.cfg.Qualities
	}
	requested, err := ports.ResolveQualityProfiles(qualities)
	if err != nil {
		return stageTranscode, err
	}
	profiles := selectProfilesForSource(requested, info.Height)
	logger.InfoContext(ctx, "Source probed",
		"source_quality", info.GetQualityLabel(),
		"codec", info.Codec,
		"renditions", len(profiles),
	)

	// ไฟล์ของ attempt ก่อนหน้าไม่ควรปนกับรอบนี้
	if err := s.storage.DeleteFolder(ctx, addressing.HLSPrefix(video.ID)); err != nil {
		logger.WarnContext(ctx, "Failed to clear previous HLS output", "video_id", video.ID, "error", err)
	}

	segmentDuration := job.SegmentDuration
	if segmentDuration <= 0 {
		segmentDuration = s.cfg.SegmentDuration
	}

	renditions, failed := s.encodeAll(ctx, video.ID, workDir, localInput, info, profiles, segmentDuration)
	if ctx.Err() != nil {
		return stageTranscode, ctx.Err()
	}

	lowest := profiles[0].Name
	if _, ok := renditions.Find(lowest); !ok {
		reason := "unknown error"
		if r, found := failed.Find(lowest); found {
			reason = r.Error
		}
		return stageTranscode, fmt.Errorf("lowest quality %s failed: %s", lowest, reason)
	}

	thumbnailPath := ""
	if job.GenerateThumbnail {
		thumbnailPath = s.generateThumbnail(ctx, video.ID, workDir, localInput, info.Duration)
	}

	master, err := hls.BuildMasterPlaylist(renditions)
	if err != nil {
		return stageFinalize, err
	}
	masterPath := addressing.MasterPlaylistPath(video.ID)
	if err := s.storage.UploadFile(ctx, bytes.NewReader(master), int64(len(master)), masterPath, hls.ContentType); err != nil {
		return stageUpload, fmt.Errorf("failed to upload master playlist: %w", err)
	}

	fields := map[string]interface{}{
		"renditions":           renditions.SortedByBandwidth(),
		"failed_renditions":    failed,
		"master_playlist_path": masterPath,
		"duration":             info.Duration,
		"processing_error":     "",
		"processed_at":         s.now(),
	}
	if thumbnailPath != "" {
		fields["thumbnail_path"] = thumbnailPath
	}

	if err := s.videoRepo.TransitionStatus(ctx, video.ID, models.VideoStatusReady, fields); err != nil {
		return stageFinalize, fmt.Errorf("failed to mark video ready: %w", err)
	}

	if len(failed) > 0 {
		logger.WarnContext(ctx, "Video ready with missing qualities",
			"video_id", video.ID,
			"failed_qualities", failed.Qualities(),
		)
	}

	return "", nil
}

// encodeAll encode ทุก quality พร้อมกันไม่เกิน MaxParallelEncodes
// บันทึก progress ทุกครั้งที่ rendition หนึ่งเสร็จ
func (s *TranscodingServiceImpl) encodeAll(
	ctx context.Context,
	videoID uuid.UUID,
	workDir, localInput string,
	info *ports.VideoInfo,
	profiles []ports.QualityProfile,
	segmentDuration int,
) (models.Renditions, models.Renditions) {
	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		renditions = models.Renditions{}
		failed     = models.Renditions{}
	)

	sem := semaphore.NewWeighted(int64(s.cfg.MaxParallelEncodes))

	for _, profile := range profiles {
		wg.Add(1)
		go func(profile ports.QualityProfile) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				failed = failed.Upsert(models.Rendition{Quality: profile.Name, Error: err.Error()})
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			begin := s.now()
			rendition, err := s.encodeRendition(ctx, videoID, workDir, localInput, info, profile, segmentDuration)
			metrics.RecordRendition(profile.Name, err == nil, s.now().Sub(begin))

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				logger.WarnContext(ctx, "Rendition failed",
					"video_id", videoID,
					"quality", profile.Name,
					"error", err,
				)
				failed = failed.Upsert(models.Rendition{Quality: profile.Name, Error: err.Error()})
			} else {
				renditions = renditions.Upsert(*rendition)
				logger.InfoContext(ctx, "Rendition completed",
					"video_id", videoID,
					"quality", profile.Name,
					"segments", rendition.Segments,
				)
			}

			progress := append(models.Renditions{}, renditions...)
			failedSoFar := append(models.Renditions{}, failed...)
			if err := s.videoRepo.SaveRenditionProgress(ctx, videoID, progress, failedSoFar); err != nil {
				logger.WarnContext(ctx, "Failed to save rendition progress", "video_id", videoID, "error", err)
			}
		}(profile)
	}

	wg.Wait()
	return renditions, failed
}

// encodeRendition encode หนึ่ง quality แล้ว upload segments ก่อน playlist
func (s *TranscodingServiceImpl) encodeRendition(
	ctx context.Context,
	videoID uuid.UUID,
	workDir, localInput string,
	info *ports.VideoInfo,
	profile ports.QualityProfile,
	segmentDuration int,
) (*models.Rendition, error) {
	result, err := s.transcoder.TranscodeRendition(ctx, &ports.RenditionOptions{
		InputPath:   localInput,
		OutputDir:   filepath.Join(workDir, "hls", profile.Name),
		Profile:     profile,
		SegmentTime: segmentDuration,
		Source:      info,
	})
	if err != nil {
		return nil, err
	}

	files := append([]string{}, result.Files...)
	sort.SliceStable(files, func(i, j int) bool {
		return filepath.Base(files[j]) == addressing.PlaylistName && filepath.Base(files[i]) != addressing.PlaylistName
	})

	for _, localFile := range files {
		key, err := addressing.RenditionFilePath(videoID, profile.Name, filepath.Base(localFile))
		if err != nil {
			return nil, err
		}
		if err := s.uploadLocalFile(ctx, localFile, key, contentTypeForHLSFile(localFile)); err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", filepath.Base(localFile), err)
		}
	}

	playlistPath, err := addressing.RenditionPlaylistPath(videoID, profile.Name)
	if err != nil {
		return nil, err
	}

	return &models.Rendition{
		Quality:      profile.Name,
		PlaylistPath: playlistPath,
		Bandwidth:    profile.Bandwidth(),
		Width:        profile.Width,
		Height:       profile.Height,
		Segments:     result.Segments,
	}, nil
}

// generateThumbnail ล้มเหลวได้โดยไม่กระทบ attempt คืน storage path หรือ ""
func (s *TranscodingServiceImpl) generateThumbnail(ctx context.Context, videoID uuid.UUID, workDir, localInput string, duration float64) string {
	atSecond := duration / 10
	if atSecond < 1 && duration >= 1 {
		atSecond = 1
	}

	localThumb := filepath.Join(workDir, addressing.ThumbnailName)
	if err := s.transcoder.GenerateThumbnail(ctx, localInput, localThumb, atSecond); err != nil {
		logger.WarnContext(ctx, "Failed to generate thumbnail", "video_id", videoID, "error", err)
		return ""
	}

	key := addressing.ThumbnailPath(videoID)
	if err := s.uploadLocalFile(ctx, localThumb, key, "image/jpeg"); err != nil {
		logger.WarnContext(ctx, "Failed to upload thumbnail", "video_id", videoID, "error", err)
		return ""
	}
	return key
}

func (s *TranscodingServiceImpl) uploadLocalFile(ctx context.Context, localPath, key, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}

	return s.storage.UploadFile(ctx, f, stat.Size(), key, contentType)
}

func (s *TranscodingServiceImpl) saveSourceMetadata(ctx context.Context, videoID uuid.UUID, info *ports.VideoInfo) {
	err := s.videoRepo.UpdateMetadata(ctx, videoID, map[string]interface{}{
		"source_codec":   info.Codec,
		"source_bitrate": info.Bitrate,
		"source_width":   info.Width,
		"source_height":  info.Height,
		"frame_rate":     info.FrameRate,
		"duration":       info.Duration,
	})
	if err != nil {
		logger.WarnContext(ctx, "Failed to save source metadata", "video_id", videoID, "error", err)
	}
}

// fail บันทึก FAILED พร้อมประวัติ แล้วแจ้ง operator
func (s *TranscodingServiceImpl) fail(ctx context.Context, video *models.Video, stage string, cause error) {
	failedAt := s.now().UTC().Format(time.RFC3339)
	record := models.ErrorRecord{
		Attempt:   video.AttemptCount,
		Error:     cause.Error(),
		Stage:     stage,
		Timestamp: failedAt,
	}

	logger.ErrorContext(ctx, "Transcode attempt failed",
		"video_id", video.ID,
		"attempt", video.AttemptCount,
		"stage", stage,
		"error", cause,
	)

	if err := s.videoRepo.MarkFailed(ctx, video.ID, record); err != nil {
		logger.ErrorContext(ctx, "Failed to mark video failed", "video_id", video.ID, "error", err)
	}
	metrics.RecordJobOutcome("failed")

	if s.notifier == nil || !s.notifier.IsEnabled() {
		return
	}
	err := s.notifier.SendTranscodeFailAlert(ctx, &ports.FailureNotification{
		VideoID:  video.ID.String(),
		Title:    video.Title,
		Error:    cause.Error(),
		Attempt:  video.AttemptCount,
		Stage:    stage,
		FailedAt: failedAt,
	})
	if err != nil {
		logger.WarnContext(ctx, "Failed to send failure alert", "video_id", video.ID, "error", err)
	}
}

func (s *TranscodingServiceImpl) checkDiskSpace(dir string, required int64) error {
	_, err := utils.CheckDiskSpace(dir, required, s.cfg.MinFreeDiskPercent)
	var spaceErr *utils.DiskSpaceError
	if errors.As(err, &spaceErr) {
		return err
	}
	if err != nil {
		// statfs ใช้ไม่ได้ (เช่นบาง container) ปล่อยให้ download เป็นตัวตัดสิน
		logger.Warn("Disk space check unavailable", "dir", dir, "error", err)
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// Stats
// ═══════════════════════════════════════════════════════════════════════════════

func (s *TranscodingServiceImpl) GetStats(ctx context.Context) (*dto.TranscodingStatsResponse, error) {
	stats := &dto.TranscodingStatsResponse{}

	counts := map[models.VideoStatus]*int64{
		models.VideoStatusPending:    &stats.Pending,
		models.VideoStatusProcessing: &stats.Processing,
		models.VideoStatusReady:      &stats.Ready,
		models.VideoStatusFailed:     &stats.Failed,
	}
	for status, target := range counts {
		n, err := s.videoRepo.CountByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		*target = n
	}

	if s.jobQueue != nil {
		status, err := s.jobQueue.GetQueueStatus(ctx)
		if err != nil {
			logger.WarnContext(ctx, "Failed to get queue status", "error", err)
		} else {
			stats.QueueDriver = status.Driver
			stats.QueuePending = status.PendingJobs
			stats.QueueAckPending = status.AckPending
		}
	}

	return stats, nil
}

// selectProfilesForSource ตัด quality ที่สูงกว่าต้นฉบับ แต่ไม่ตัด quality ต่ำสุด
// profiles ต้องเรียงจากต่ำไปสูงแล้ว
func selectProfilesForSource(profiles []ports.QualityProfile, sourceHeight int) []ports.QualityProfile {
	if len(profiles) == 0 || sourceHeight <= 0 {
		return profiles
	}

	selected := []ports.QualityProfile{profiles[0]}
	for _, p := range profiles[1:] {
		if p.Height <= sourceHeight {
			selected = append(selected, p)
		}
	}
	return selected
}

func profileNames(profiles []ports.QualityProfile) []string {
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	return names
}

func contentTypeForHLSFile(name string) string {
	switch filepath.Ext(name) {
	case ".m3u8":
		return hls.ContentType
	case ".ts":
		return hls.SegmentContentType
	default:
		return "application/octet-stream"
	}
}

var _ services.TranscodingService = (*TranscodingServiceImpl)(nil)
