package serviceimpl

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-video-service/domain/models"
	"course-video-service/domain/ports"
	"course-video-service/domain/services"
	"course-video-service/pkg/addressing"
	"course-video-service/pkg/config"
)

type orchestratorFixture struct {
	svc        *TranscodingServiceImpl
	repo       *fakeVideoRepo
	storage    *fakeStorage
	transcoder *fakeTranscoder
	queue      *fakeQueue
	lock       *fakeLock
	notifier   *fakeNotifier
	video      *models.Video
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()

	videoID := uuid.New()
	originalPath, err := addressing.OriginalPath(videoID, "lecture.mp4")
	require.NoError(t, err)

	video := &models.Video{
		ID:           videoID,
		Title:        "Lecture 1",
		OriginalPath: originalPath,
		FileSize:     1024,
		Status:       models.VideoStatusPending,
	}

	f := &orchestratorFixture{
		repo:       newFakeVideoRepo(video),
		storage:    newFakeStorage(),
		transcoder: &fakeTranscoder{info: ports.VideoInfo{Duration: 600, Width: 1280, Height: 720, Codec: "h264"}, failQ: map[string]bool{}},
		queue:      &fakeQueue{},
		lock:       newFakeLock(),
		notifier:   &fakeNotifier{},
		video:      video,
	}
	f.storage.put(originalPath, []byte("original-bytes"))

	f.svc = NewTranscodingService(f.repo, f.storage, f.transcoder, f.queue, f.lock, f.notifier, config.TranscodeConfig{
		Qualities:          []string{"360p", "720p"},
		SegmentDuration:    6,
		GenerateThumbnail:  true,
		MaxParallelEncodes: 2,
		TempDir:            t.TempDir(),
		LockTTL:            time.Hour,
	})
	f.svc.checkDisk = func(string, int64) error { return nil }

	return f
}

// runLastJob ทำงานแบบที่ worker ทำกับ job ล่าสุดใน queue
func (f *orchestratorFixture) runLastJob(t *testing.T) {
	t.Helper()
	job := f.queue.last()
	require.NotNil(t, job)
	require.NoError(t, f.svc.ProcessVideoToHLS(context.Background(), job))
}

func TestTranscoding_EndToEndReady(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.TriggerProcessing(ctx, f.video.ID, services.ProcessingOptions{}))

	queued := f.repo.get(f.video.ID)
	assert.Equal(t, models.VideoStatusProcessing, queued.Status)
	assert.Equal(t, 1, queued.AttemptCount)
	assert.NotNil(t, queued.ProcessingStartedAt)

	f.runLastJob(t)

	video := f.repo.get(f.video.ID)
	require.Equal(t, models.VideoStatusReady, video.Status)
	assert.ElementsMatch(t, []string{"360p", "720p"}, video.GetQualities())
	assert.Empty(t, video.FailedRenditions)
	assert.InDelta(t, 600.0, video.Duration, 0.001)
	assert.Equal(t, addressing.MasterPlaylistPath(video.ID), video.MasterPlaylistPath)
	assert.Equal(t, addressing.ThumbnailPath(video.ID), video.ThumbnailPath)
	assert.NotNil(t, video.ProcessedAt)
	assert.Equal(t, "h264", video.SourceCodec)

	master, ok := f.storage.object(video.MasterPlaylistPath)
	require.True(t, ok, "master playlist uploaded")
	assert.Contains(t, string(master), "360p/playlist.m3u8")
	assert.Contains(t, string(master), "720p/playlist.m3u8")
	assert.Less(t, strings.Index(string(master), "360p"), strings.Index(string(master), "720p"))

	_, ok = f.storage.object(video.ThumbnailPath)
	assert.True(t, ok, "thumbnail uploaded")

	// master ถูก upload หลังสุด, playlist ของแต่ละ quality หลัง segments ของตัวเอง
	uploads := f.storage.uploads()
	assert.Equal(t, video.MasterPlaylistPath, uploads[len(uploads)-1])
	for _, q := range []string{"360p", "720p"} {
		playlist, _ := addressing.RenditionPlaylistPath(video.ID, q)
		segment, _ := addressing.RenditionFilePath(video.ID, q, "segment_001.ts")
		assert.Less(t, indexOf(uploads, segment), indexOf(uploads, playlist), q)
	}

	assert.Empty(t, f.lock.held, "lock released")
}

func TestTranscoding_HigherQualityFailureStillReady(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.transcoder.failQ["720p"] = true

	require.NoError(t, f.svc.TriggerProcessing(context.Background(), f.video.ID, services.ProcessingOptions{}))
	f.runLastJob(t)

	video := f.repo.get(f.video.ID)
	require.Equal(t, models.VideoStatusReady, video.Status)
	assert.Equal(t, []string{"360p"}, video.GetQualities())
	assert.Equal(t, []string{"720p"}, video.FailedRenditions.Qualities())

	master, _ := f.storage.object(video.MasterPlaylistPath)
	assert.Contains(t, string(master), "360p/playlist.m3u8")
	assert.NotContains(t, string(master), "720p")
	assert.Empty(t, f.notifier.failures)
}

func TestTranscoding_LowestQualityFailureMarksFailed(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.transcoder.failQ["360p"] = true

	require.NoError(t, f.svc.TriggerProcessing(context.Background(), f.video.ID, services.ProcessingOptions{}))
	f.runLastJob(t)

	video := f.repo.get(f.video.ID)
	require.Equal(t, models.VideoStatusFailed, video.Status)
	assert.Contains(t, video.ProcessingError, "360p")
	require.Len(t, video.ErrorHistory, 1)
	assert.Equal(t, "transcode", video.ErrorHistory[0].Stage)
	assert.Equal(t, 1, video.ErrorHistory[0].Attempt)
	assert.Empty(t, video.MasterPlaylistPath)

	_, ok := f.storage.object(addressing.MasterPlaylistPath(video.ID))
	assert.False(t, ok, "no master playlist for a failed attempt")

	require.Len(t, f.notifier.failures, 1)
	assert.Equal(t, video.ID.String(), f.notifier.failures[0].VideoID)
}

func TestTranscoding_RetryAfterFailure(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.transcoder.failQ["360p"] = true
	ctx := context.Background()

	require.NoError(t, f.svc.TriggerProcessing(ctx, f.video.ID, services.ProcessingOptions{}))
	f.runLastJob(t)
	require.Equal(t, models.VideoStatusFailed, f.repo.get(f.video.ID).Status)

	delete(f.transcoder.failQ, "360p")
	require.NoError(t, f.svc.TriggerProcessing(ctx, f.video.ID, services.ProcessingOptions{}))

	retrying := f.repo.get(f.video.ID)
	assert.Equal(t, models.VideoStatusProcessing, retrying.Status)
	assert.Equal(t, 2, retrying.AttemptCount)
	assert.Empty(t, retrying.ProcessingError)
	assert.Empty(t, retrying.Renditions)
	assert.Empty(t, retrying.FailedRenditions)

	f.runLastJob(t)
	video := f.repo.get(f.video.ID)
	assert.Equal(t, models.VideoStatusReady, video.Status)
	assert.Len(t, video.ErrorHistory, 1, "history of the failed attempt is kept")

	fresh := newOrchestratorFixture(t)
	require.NoError(t, fresh.svc.TriggerProcessing(ctx, fresh.video.ID, services.ProcessingOptions{}))
	fresh.runLastJob(t)
	want := fresh.repo.get(fresh.video.ID)

	assert.ElementsMatch(t, want.GetQualities(), video.GetQualities())
	assert.Empty(t, video.FailedRenditions)
	retriedMaster, _ := f.storage.object(video.MasterPlaylistPath)
	freshMaster, _ := fresh.storage.object(want.MasterPlaylistPath)
	assert.Equal(t, string(freshMaster), string(retriedMaster))
}

func TestTranscoding_RetryDropsStaleRenditions(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	// attempt แรก 720p encode สำเร็จแต่ 360p พัง
	f.transcoder.failQ["360p"] = true
	require.NoError(t, f.svc.TriggerProcessing(ctx, f.video.ID, services.ProcessingOptions{}))
	f.runLastJob(t)
	require.Equal(t, models.VideoStatusFailed, f.repo.get(f.video.ID).Status)

	// attempt ที่สองกลับกัน
	f.transcoder.failQ = map[string]bool{"720p": true}
	require.NoError(t, f.svc.TriggerProcessing(ctx, f.video.ID, services.ProcessingOptions{}))
	f.runLastJob(t)

	video := f.repo.get(f.video.ID)
	require.Equal(t, models.VideoStatusReady, video.Status)
	assert.Equal(t, []string{"360p"}, video.GetQualities())
	assert.Equal(t, []string{"720p"}, video.FailedRenditions.Qualities())
	_, ok := video.Renditions.Find("720p")
	assert.False(t, ok, "rendition from the earlier attempt is not referenced")

	master, _ := f.storage.object(video.MasterPlaylistPath)
	assert.Contains(t, string(master), "360p/playlist.m3u8")
	assert.NotContains(t, string(master), "720p")

	fresh := newOrchestratorFixture(t)
	fresh.transcoder.failQ["720p"] = true
	require.NoError(t, fresh.svc.TriggerProcessing(ctx, fresh.video.ID, services.ProcessingOptions{}))
	fresh.runLastJob(t)
	want := fresh.repo.get(fresh.video.ID)
	assert.ElementsMatch(t, want.GetQualities(), video.GetQualities())
	assert.ElementsMatch(t, want.FailedRenditions.Qualities(), video.FailedRenditions.Qualities())
}

func TestTranscoding_SecondTriggerRefused(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.TriggerProcessing(ctx, f.video.ID, services.ProcessingOptions{}))
	err := f.svc.TriggerProcessing(ctx, f.video.ID, services.ProcessingOptions{})
	assert.ErrorIs(t, err, services.ErrAlreadyProcessing)
	assert.Len(t, f.queue.jobs, 1)
}

func TestTranscoding_ReprocessReadyVideo(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.TriggerProcessing(ctx, f.video.ID, services.ProcessingOptions{}))
	f.runLastJob(t)
	require.Equal(t, models.VideoStatusReady, f.repo.get(f.video.ID).Status)

	require.NoError(t, f.svc.TriggerProcessing(ctx, f.video.ID, services.ProcessingOptions{Qualities: []string{"360p"}}))
	video := f.repo.get(f.video.ID)
	assert.Equal(t, models.VideoStatusProcessing, video.Status)
	assert.Empty(t, video.Renditions, "new attempt starts with no renditions")
	assert.Equal(t, []string{"360p"}, f.queue.last().Qualities)
}

func TestTranscoding_EnqueueFailureMarksFailed(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.queue.err = errors.New("nats: no responders")

	err := f.svc.TriggerProcessing(context.Background(), f.video.ID, services.ProcessingOptions{})
	assert.True(t, services.IsExternalServiceError(err))

	video := f.repo.get(f.video.ID)
	assert.Equal(t, models.VideoStatusFailed, video.Status)
	require.Len(t, video.ErrorHistory, 1)
	assert.Equal(t, "enqueue", video.ErrorHistory[0].Stage)
}

func TestTranscoding_TriggerValidation(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	err := f.svc.TriggerProcessing(ctx, uuid.New(), services.ProcessingOptions{})
	assert.ErrorIs(t, err, services.ErrVideoNotFound)

	err = f.svc.TriggerProcessing(ctx, f.video.ID, services.ProcessingOptions{Qualities: []string{"4320p"}})
	assert.True(t, services.IsValidationError(err))
	assert.Equal(t, models.VideoStatusPending, f.repo.get(f.video.ID).Status)
}

func TestTranscoding_LockedJobIsSkipped(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.TriggerProcessing(ctx, f.video.ID, services.ProcessingOptions{}))
	_, ok, err := f.lock.TryAcquire(ctx, lockKeyPrefix+f.video.ID.String(), time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	f.runLastJob(t)

	assert.Equal(t, models.VideoStatusProcessing, f.repo.get(f.video.ID).Status)
	assert.Empty(t, f.transcoder.encoded)
}

func TestTranscoding_StaleJobIsSkipped(t *testing.T) {
	f := newOrchestratorFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.TriggerProcessing(ctx, f.video.ID, services.ProcessingOptions{}))
	job := *f.queue.last()
	f.runLastJob(t)
	require.Equal(t, models.VideoStatusReady, f.repo.get(f.video.ID).Status)

	// redelivery ของ job เดิมหลังจบไปแล้ว
	require.NoError(t, f.svc.ProcessVideoToHLS(ctx, &job))
	assert.Len(t, f.transcoder.encoded, 2)
}

func TestTranscoding_SkipsQualitiesAboveSource(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.transcoder.info.Height = 480
	f.transcoder.info.Width = 854

	opts := services.ProcessingOptions{Qualities: []string{"1080p", "720p", "480p", "360p"}}
	require.NoError(t, f.svc.TriggerProcessing(context.Background(), f.video.ID, opts))
	f.runLastJob(t)

	video := f.repo.get(f.video.ID)
	require.Equal(t, models.VideoStatusReady, video.Status)
	assert.ElementsMatch(t, []string{"360p", "480p"}, video.GetQualities())
}

func TestTranscoding_ThumbnailFailureIsNotFatal(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.transcoder.thumbErr = errors.New("no frame")

	require.NoError(t, f.svc.TriggerProcessing(context.Background(), f.video.ID, services.ProcessingOptions{}))
	f.runLastJob(t)

	video := f.repo.get(f.video.ID)
	assert.Equal(t, models.VideoStatusReady, video.Status)
	assert.Empty(t, video.ThumbnailPath)
}

func TestTranscoding_MissingOriginalFailsAtDownload(t *testing.T) {
	f := newOrchestratorFixture(t)
	require.NoError(t, f.storage.DeleteFile(context.Background(), f.video.OriginalPath))

	require.NoError(t, f.svc.TriggerProcessing(context.Background(), f.video.ID, services.ProcessingOptions{}))
	f.runLastJob(t)

	video := f.repo.get(f.video.ID)
	require.Equal(t, models.VideoStatusFailed, video.Status)
	assert.Equal(t, "download", video.ErrorHistory[0].Stage)
}

func TestTranscoding_GetStats(t *testing.T) {
	f := newOrchestratorFixture(t)
	require.NoError(t, f.svc.TriggerProcessing(context.Background(), f.video.ID, services.ProcessingOptions{}))

	stats, err := f.svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Processing)
	assert.Equal(t, int64(0), stats.Pending)
	assert.Equal(t, "fake", stats.QueueDriver)
	assert.Equal(t, uint64(1), stats.QueuePending)
}

func TestSelectProfilesForSource(t *testing.T) {
	profiles, err := ports.ResolveQualityProfiles([]string{"720p", "480p", "1080p"})
	require.NoError(t, err)

	assert.Equal(t, []string{"480p", "720p"}, profileNames(selectProfilesForSource(profiles, 720)))
	assert.Equal(t, []string{"480p"}, profileNames(selectProfilesForSource(profiles, 240)), "lowest is always kept")
	assert.Equal(t, []string{"480p", "720p", "1080p"}, profileNames(selectProfilesForSource(profiles, 0)))
}

func indexOf(list []string, want string) int {
	for i, s := range list {
		if s == want {
			return i
		}
	}
	return -1
}
