package serviceimpl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-video-service/domain/dto"
	"course-video-service/domain/models"
	"course-video-service/domain/services"
	"course-video-service/pkg/addressing"
	"course-video-service/pkg/config"
)

type uploadFixture struct {
	svc        *UploadServiceImpl
	storage    *fakeStorage
	sessions   *fakeSessionRepo
	videos     *fakeVideoRepo
	transcoder *fakeTranscodingService
}

func newUploadFixture() *uploadFixture {
	f := &uploadFixture{
		storage:    newFakeStorage(),
		sessions:   newFakeSessionRepo(),
		videos:     newFakeVideoRepo(),
		transcoder: &fakeTranscodingService{},
	}
	cfg := config.UploadConfig{
		MaxFileSize:    1 << 30,
		AllowedFormats: []string{"mp4", "mov", "webm"},
		URLExpiry:      time.Hour,
	}
	videoService := NewVideoService(f.videos, f.sessions, f.storage, f.transcoder, cfg)
	f.svc = NewUploadService(f.storage, f.sessions, videoService, cfg)
	return f
}

func validUploadRequest() *dto.RequestUploadURLRequest {
	return &dto.RequestUploadURLRequest{
		FileName:   "Lecture 01.MP4",
		FileSize:   2048,
		FileFormat: "mp4",
		Title:      "Lecture 1",
	}
}

func TestRequestUploadURL_Success(t *testing.T) {
	f := newUploadFixture()

	resp, err := f.svc.RequestUploadURL(context.Background(), adminCaller, validUploadRequest())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, resp.VideoID)
	wantPath, _ := addressing.OriginalPath(resp.VideoID, "x.mp4")
	assert.Equal(t, wantPath, resp.StoragePath)
	assert.Equal(t, "PUT", resp.Method)
	assert.Equal(t, "video/mp4", resp.Headers["Content-Type"])
	assert.Contains(t, resp.UploadURL, resp.StoragePath)

	session, err := f.sessions.GetByVideoID(context.Background(), resp.VideoID)
	require.NoError(t, err)
	assert.Equal(t, resp.StoragePath, session.StoragePath)
	assert.Equal(t, adminCaller.UserID, session.CreatedBy)
	assert.False(t, session.IsConfirmed())

	_, err = f.videos.GetByID(context.Background(), resp.VideoID)
	assert.Error(t, err, "no video record until the upload is completed")
}

func TestRequestUploadURL_UniqueIDs(t *testing.T) {
	f := newUploadFixture()
	ctx := context.Background()

	first, err := f.svc.RequestUploadURL(ctx, adminCaller, validUploadRequest())
	require.NoError(t, err)
	second, err := f.svc.RequestUploadURL(ctx, adminCaller, validUploadRequest())
	require.NoError(t, err)

	assert.NotEqual(t, first.VideoID, second.VideoID)
	assert.NotEqual(t, first.StoragePath, second.StoragePath)
}

func TestRequestUploadURL_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		caller services.Caller
		mutate func(*dto.RequestUploadURLRequest)
		check  func(t *testing.T, err error)
	}{
		{
			name:   "non admin",
			caller: services.Caller{UserID: uuid.New(), Role: models.RoleUser},
			mutate: func(*dto.RequestUploadURLRequest) {},
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, services.ErrForbidden) },
		},
		{
			name:   "format not allowed",
			caller: adminCaller,
			mutate: func(r *dto.RequestUploadURLRequest) { r.FileFormat = "exe"; r.FileName = "a.exe" },
			check:  func(t *testing.T, err error) { assert.True(t, services.IsValidationError(err)) },
		},
		{
			name:   "extension mismatch",
			caller: adminCaller,
			mutate: func(r *dto.RequestUploadURLRequest) { r.FileName = "lecture.mov" },
			check:  func(t *testing.T, err error) { assert.True(t, services.IsValidationError(err)) },
		},
		{
			name:   "too large",
			caller: adminCaller,
			mutate: func(r *dto.RequestUploadURLRequest) { r.FileSize = (1 << 30) + 1 },
			check:  func(t *testing.T, err error) { assert.True(t, services.IsValidationError(err)) },
		},
		{
			name:   "empty file",
			caller: adminCaller,
			mutate: func(r *dto.RequestUploadURLRequest) { r.FileSize = 0 },
			check:  func(t *testing.T, err error) { assert.True(t, services.IsValidationError(err)) },
		},
		{
			name:   "missing title",
			caller: adminCaller,
			mutate: func(r *dto.RequestUploadURLRequest) { r.Title = "  " },
			check:  func(t *testing.T, err error) { assert.True(t, services.IsValidationError(err)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUploadFixture()
			req := validUploadRequest()
			tt.mutate(req)

			_, err := f.svc.RequestUploadURL(context.Background(), tt.caller, req)
			require.Error(t, err)
			tt.check(t, err)
			assert.Empty(t, f.sessions.sessions)
		})
	}
}

func TestRequestUploadURL_PresignFailurePersistsNothing(t *testing.T) {
	f := newUploadFixture()
	f.storage.presignErr = errors.New("connection refused")

	_, err := f.svc.RequestUploadURL(context.Background(), adminCaller, validUploadRequest())
	require.Error(t, err)
	assert.True(t, services.IsExternalServiceError(err))
	assert.Empty(t, f.sessions.sessions)
}

func TestCompleteUpload_CreatesPendingVideo(t *testing.T) {
	f := newUploadFixture()
	ctx := context.Background()

	issued, err := f.svc.RequestUploadURL(ctx, adminCaller, validUploadRequest())
	require.NoError(t, err)

	// ยังไม่ได้ PUT ไฟล์
	noStart := false
	_, err = f.svc.CompleteUpload(ctx, adminCaller, issued.VideoID, &dto.CompleteUploadRequest{StartProcessing: &noStart})
	assert.ErrorIs(t, err, services.ErrUploadNotReceived)

	f.storage.put(issued.StoragePath, make([]byte, 2048))

	resp, err := f.svc.CompleteUpload(ctx, adminCaller, issued.VideoID, &dto.CompleteUploadRequest{StartProcessing: &noStart})
	require.NoError(t, err)
	assert.False(t, resp.ProcessingStarted)
	assert.Equal(t, models.VideoStatusPending, resp.Video.Status)
	assert.Equal(t, "Lecture 1", resp.Video.Title)
	assert.Equal(t, int64(2048), resp.Video.FileSize)
	assert.Equal(t, issued.StoragePath, resp.Video.OriginalPath)

	session, _ := f.sessions.GetByVideoID(ctx, issued.VideoID)
	assert.True(t, session.IsConfirmed())

	// complete ซ้ำคืน record เดิม
	again, err := f.svc.CompleteUpload(ctx, adminCaller, issued.VideoID, &dto.CompleteUploadRequest{StartProcessing: &noStart})
	require.NoError(t, err)
	assert.Equal(t, resp.Video.VideoID, again.Video.VideoID)
	assert.Empty(t, f.transcoder.triggered)
}

func TestCompleteUpload_StartsProcessing(t *testing.T) {
	f := newUploadFixture()
	ctx := context.Background()

	issued, err := f.svc.RequestUploadURL(ctx, adminCaller, validUploadRequest())
	require.NoError(t, err)
	f.storage.put(issued.StoragePath, make([]byte, 2048))

	start := true
	resp, err := f.svc.CompleteUpload(ctx, adminCaller, issued.VideoID, &dto.CompleteUploadRequest{StartProcessing: &start})
	require.NoError(t, err)
	assert.True(t, resp.ProcessingStarted)
	assert.Equal(t, []uuid.UUID{issued.VideoID}, f.transcoder.triggered)
}

func TestCompleteUpload_UnknownSession(t *testing.T) {
	f := newUploadFixture()
	_, err := f.svc.CompleteUpload(context.Background(), adminCaller, uuid.New(), nil)
	assert.ErrorIs(t, err, services.ErrUploadSessionNotFound)
}

func TestAbortUpload(t *testing.T) {
	f := newUploadFixture()
	ctx := context.Background()

	issued, err := f.svc.RequestUploadURL(ctx, adminCaller, validUploadRequest())
	require.NoError(t, err)
	f.storage.put(issued.StoragePath, []byte("partial"))

	require.NoError(t, f.svc.AbortUpload(ctx, adminCaller, issued.VideoID))

	_, ok := f.storage.object(issued.StoragePath)
	assert.False(t, ok)
	_, err = f.sessions.GetByVideoID(ctx, issued.VideoID)
	assert.Error(t, err)

	assert.ErrorIs(t, f.svc.AbortUpload(ctx, adminCaller, issued.VideoID), services.ErrUploadSessionNotFound)
}

func TestGetUploadLimits(t *testing.T) {
	f := newUploadFixture()
	limits := f.svc.GetUploadLimits()

	assert.Equal(t, int64(1<<30), limits.MaxFileSize)
	assert.Equal(t, []string{"mp4", "mov", "webm"}, limits.AllowedFormats)
	assert.Equal(t, 3600, limits.URLExpirySeconds)
}
