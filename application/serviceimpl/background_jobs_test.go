package serviceimpl

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-video-service/domain/models"
	"course-video-service/pkg/addressing"
	"course-video-service/pkg/scheduler"
)

func TestStuckDetector_MarksOnlyTimedOut(t *testing.T) {
	now := time.Now()
	longAgo := now.Add(-3 * time.Hour)
	recent := now.Add(-10 * time.Minute)

	stuck := newStoredVideo(models.VideoStatusProcessing)
	stuck.ProcessingStartedAt = &longAgo
	stuck.AttemptCount = 2
	running := newStoredVideo(models.VideoStatusProcessing)
	running.ProcessingStartedAt = &recent

	repo := newFakeVideoRepo(stuck, running)
	notifier := &fakeNotifier{}
	detector := NewStuckDetectorService(StuckDetectorConfig{ProcessingTimeout: 2 * time.Hour}, repo, notifier, scheduler.NewJobScheduler())
	detector.now = func() time.Time { return now }

	assert.Equal(t, 1, detector.RunDetection(context.Background()))

	failed := repo.get(stuck.ID)
	assert.Equal(t, models.VideoStatusFailed, failed.Status)
	assert.Contains(t, failed.ProcessingError, "timed out")
	assert.Equal(t, 2, failed.ErrorHistory[0].Attempt)
	assert.Equal(t, models.VideoStatusProcessing, repo.get(running.ID).Status)

	require.Len(t, notifier.stuck, 1)
	assert.Equal(t, []string{stuck.ID.String()}, notifier.stuck[0])

	// record ที่ fail แล้ว trigger ใหม่ได้
	assert.True(t, failed.CanStartProcessing())
}

func TestStuckDetector_RegistersJob(t *testing.T) {
	s := scheduler.NewJobScheduler()
	detector := NewStuckDetectorService(StuckDetectorConfig{}, newFakeVideoRepo(), nil, s)

	require.NoError(t, detector.RegisterDetectorJob())
	assert.Contains(t, s.ListJobs(), "stuck_detector")
}

func TestUploadSweeper_ReclaimsAbandoned(t *testing.T) {
	now := time.Now()
	ctx := context.Background()
	sessions := newFakeSessionRepo()
	storage := newFakeStorage()

	abandonedID, adoptedID, freshID := uuid.New(), uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{abandonedID, adoptedID} {
		path, _ := addressing.OriginalPath(id, "a.mp4")
		require.NoError(t, sessions.Create(ctx, &models.UploadSession{VideoID: id, StoragePath: path, ExpiresAt: now.Add(-3 * time.Hour)}))
		storage.put(path, []byte("x"))
	}
	freshPath, _ := addressing.OriginalPath(freshID, "a.mp4")
	require.NoError(t, sessions.Create(ctx, &models.UploadSession{VideoID: freshID, StoragePath: freshPath, ExpiresAt: now.Add(30 * time.Minute)}))
	storage.put(freshPath, []byte("x"))

	// adopted: มี Video record แล้วแต่ confirm ไม่สำเร็จ
	videos := newFakeVideoRepo(&models.Video{ID: adoptedID, Status: models.VideoStatusPending})

	sweeper := NewUploadSweeperService(UploadSweeperConfig{AbandonGrace: time.Hour}, sessions, videos, storage, scheduler.NewJobScheduler())
	sweeper.now = func() time.Time { return now }

	result := sweeper.RunSweep(ctx)
	assert.Equal(t, 1, result.Reclaimed)
	assert.Equal(t, 1, result.Adopted)

	_, err := sessions.GetByVideoID(ctx, abandonedID)
	assert.Error(t, err)
	assert.Contains(t, storage.deletedPrefix, addressing.VideoPrefix(abandonedID))

	adopted, err := sessions.GetByVideoID(ctx, adoptedID)
	require.NoError(t, err)
	assert.True(t, adopted.IsConfirmed())
	assert.NotContains(t, storage.deletedPrefix, addressing.VideoPrefix(adoptedID))

	_, ok := storage.object(freshPath)
	assert.True(t, ok, "upload still within its window is untouched")
}

func TestUploadSweeper_PrunesOldConfirmed(t *testing.T) {
	now := time.Now()
	ctx := context.Background()
	sessions := newFakeSessionRepo()

	old := now.Add(-8 * 24 * time.Hour)
	require.NoError(t, sessions.Create(ctx, &models.UploadSession{VideoID: uuid.New(), ExpiresAt: old, ConfirmedAt: &old}))

	sweeper := NewUploadSweeperService(UploadSweeperConfig{}, sessions, newFakeVideoRepo(), newFakeStorage(), scheduler.NewJobScheduler())
	sweeper.now = func() time.Time { return now }

	result := sweeper.RunSweep(ctx)
	assert.Equal(t, int64(1), result.Pruned)
	assert.Empty(t, sessions.sessions)
}
