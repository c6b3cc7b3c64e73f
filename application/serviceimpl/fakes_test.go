package serviceimpl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"course-video-service/domain/dto"
	"course-video-service/domain/models"
	"course-video-service/domain/ports"
	"course-video-service/domain/repositories"
	"course-video-service/domain/services"
)

// ═══════════════════════════════════════════════════════════════════════════════
// Video repository
// ═══════════════════════════════════════════════════════════════════════════════

type fakeVideoRepo struct {
	mu     sync.Mutex
	videos map[uuid.UUID]*models.Video
}

func newFakeVideoRepo(videos ...*models.Video) *fakeVideoRepo {
	r := &fakeVideoRepo{videos: map[uuid.UUID]*models.Video{}}
	for _, v := range videos {
		r.videos[v.ID] = v
	}
	return r
}

func (r *fakeVideoRepo) get(id uuid.UUID) *models.Video {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return nil
	}
	cp := *v
	return &cp
}

func (r *fakeVideoRepo) Create(_ context.Context, video *models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.videos[video.ID]; exists {
		return fmt.Errorf("duplicate video %s", video.ID)
	}
	cp := *video
	r.videos[video.ID] = &cp
	return nil
}

func (r *fakeVideoRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Video, error) {
	if v := r.get(id); v != nil {
		return v, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeVideoRepo) ListWithFilters(_ context.Context, params *dto.VideoFilterRequest) ([]*models.Video, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Video
	for _, v := range r.videos {
		if params.Status != "" && string(v.Status) != params.Status {
			continue
		}
		if params.Search != "" && !strings.Contains(strings.ToLower(v.Title), strings.ToLower(params.Search)) {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *fakeVideoRepo) UpdateMetadata(_ context.Context, id uuid.UUID, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	applyVideoFields(v, fields)
	return nil
}

func (r *fakeVideoRepo) CountByStatus(_ context.Context, status models.VideoStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, v := range r.videos {
		if v.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *fakeVideoRepo) TransitionStatus(_ context.Context, id uuid.UUID, to models.VideoStatus, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if err := models.ValidateTransition(v.Status, to); err != nil {
		return err
	}
	v.Status = to
	applyVideoFields(v, fields)
	return nil
}

func (r *fakeVideoRepo) SaveRenditionProgress(_ context.Context, id uuid.UUID, renditions, failed models.Renditions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if !v.IsProcessing() {
		return models.ErrInvalidTransition
	}
	v.Renditions = renditions
	v.FailedRenditions = failed
	return nil
}

func (r *fakeVideoRepo) MarkFailed(_ context.Context, id uuid.UUID, record models.ErrorRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if err := models.ValidateTransition(v.Status, models.VideoStatusFailed); err != nil {
		return err
	}
	v.Status = models.VideoStatusFailed
	v.AppendErrorHistory(record)
	return nil
}

func (r *fakeVideoRepo) GetStuckProcessing(_ context.Context, threshold time.Time) ([]*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Video
	for _, v := range r.videos {
		if v.IsProcessing() && v.ProcessingStartedAt != nil && v.ProcessingStartedAt.Before(threshold) {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeVideoRepo) DeleteDetachingLessons(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if v.IsProcessing() {
		return models.ErrInvalidTransition
	}
	delete(r.videos, id)
	return nil
}

func applyVideoFields(v *models.Video, fields map[string]interface{}) {
	for key, value := range fields {
		switch key {
		case "title":
			v.Title = value.(string)
		case "description":
			v.Description = value.(string)
		case "renditions":
			v.Renditions = value.(models.Renditions)
		case "failed_renditions":
			v.FailedRenditions = value.(models.Renditions)
		case "master_playlist_path":
			v.MasterPlaylistPath = value.(string)
		case "thumbnail_path":
			v.ThumbnailPath = value.(string)
		case "processing_error":
			v.ProcessingError = value.(string)
		case "attempt_count":
			v.AttemptCount = value.(int)
		case "requested_qualities":
			v.RequestedQualities = value.(pq.StringArray)
		case "processing_started_at":
			t := value.(time.Time)
			v.ProcessingStartedAt = &t
		case "processed_at":
			if value == nil {
				v.ProcessedAt = nil
			} else {
				t := value.(time.Time)
				v.ProcessedAt = &t
			}
		case "duration":
			v.Duration = value.(float64)
		case "source_codec":
			v.SourceCodec = value.(string)
		case "source_bitrate":
			v.SourceBitrate = value.(int64)
		case "source_width":
			v.SourceWidth = value.(int)
		case "source_height":
			v.SourceHeight = value.(int)
		case "frame_rate":
			v.FrameRate = value.(float64)
		default:
			panic("fakeVideoRepo: unknown field " + key)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// Upload sessions, lessons, enrollments
// ═══════════════════════════════════════════════════════════════════════════════

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.UploadSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[uuid.UUID]*models.UploadSession{}}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *models.UploadSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *session
	r.sessions[session.VideoID] = &cp
	return nil
}

func (r *fakeSessionRepo) Upsert(ctx context.Context, session *models.UploadSession) error {
	return r.Create(ctx, session)
}

func (r *fakeSessionRepo) GetByVideoID(_ context.Context, videoID uuid.UUID) (*models.UploadSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[videoID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) MarkConfirmed(_ context.Context, videoID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[videoID]
	if !ok || s.ConfirmedAt != nil {
		return repositories.ErrNotFound
	}
	s.ConfirmedAt = &at
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, videoID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, videoID)
	return nil
}

func (r *fakeSessionRepo) ListAbandoned(_ context.Context, before time.Time, limit int) ([]*models.UploadSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.UploadSession
	for _, s := range r.sessions {
		if s.ConfirmedAt == nil && s.ExpiresAt.Before(before) {
			cp := *s
			out = append(out, &cp)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) DeleteConfirmedBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.ConfirmedAt != nil && s.ConfirmedAt.Before(before) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

type fakeLessonRepo struct {
	courses map[uuid.UUID][]uuid.UUID // videoID -> courseIDs
}

func (r *fakeLessonRepo) GetCourseIDsByVideoID(_ context.Context, videoID uuid.UUID) ([]uuid.UUID, error) {
	return r.courses[videoID], nil
}

func (r *fakeLessonRepo) CountByVideoID(_ context.Context, videoID uuid.UUID) (int64, error) {
	return int64(len(r.courses[videoID])), nil
}

type fakeEnrollmentRepo struct {
	enrolled map[uuid.UUID][]uuid.UUID // userID -> courseIDs
}

func (r *fakeEnrollmentRepo) ExistsForAnyCourse(_ context.Context, userID uuid.UUID, courseIDs []uuid.UUID) (bool, error) {
	for _, have := range r.enrolled[userID] {
		for _, want := range courseIDs {
			if have == want {
				return true, nil
			}
		}
	}
	return false, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// Storage
// ═══════════════════════════════════════════════════════════════════════════════

type fakeStorage struct {
	mu             sync.Mutex
	objects        map[string][]byte
	uploadOrder    []string
	deletedPrefix  []string
	presignErr     error
	statErr        error
	deleteFolderEr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = data
}

func (s *fakeStorage) object(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[path]
	return data, ok
}

func (s *fakeStorage) uploads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.uploadOrder...)
}

func (s *fakeStorage) UploadFile(_ context.Context, r io.Reader, _ int64, path, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = data
	s.uploadOrder = append(s.uploadOrder, path)
	return nil
}

func (s *fakeStorage) DownloadFile(_ context.Context, path, localPath string) error {
	data, ok := s.object(path)
	if !ok {
		return ports.ErrObjectNotFound
	}
	return os.WriteFile(localPath, data, 0644)
}

func (s *fakeStorage) StatFile(_ context.Context, path string) (*ports.FileInfo, error) {
	if s.statErr != nil {
		return nil, s.statErr
	}
	data, ok := s.object(path)
	if !ok {
		return nil, ports.ErrObjectNotFound
	}
	return &ports.FileInfo{Path: path, Size: int64(len(data))}, nil
}

func (s *fakeStorage) DeleteFile(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

func (s *fakeStorage) DeleteFolder(_ context.Context, prefix string) error {
	if s.deleteFolderEr != nil {
		return s.deleteFolderEr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(s.objects, key)
		}
	}
	s.deletedPrefix = append(s.deletedPrefix, prefix)
	return nil
}

func (s *fakeStorage) GetFileContent(_ context.Context, path string) (io.ReadCloser, *ports.FileInfo, error) {
	data, ok := s.object(path)
	if !ok {
		return nil, nil, ports.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), &ports.FileInfo{Path: path, Size: int64(len(data))}, nil
}

func (s *fakeStorage) GetFileRange(_ context.Context, path string, start, end int64) (io.ReadCloser, int64, error) {
	data, ok := s.object(path)
	if !ok {
		return nil, 0, ports.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data[start : end+1])), int64(len(data)), nil
}

func (s *fakeStorage) PresignUpload(_ context.Context, path, contentType string, expiry time.Duration) (*ports.PresignedUpload, error) {
	if s.presignErr != nil {
		return nil, s.presignErr
	}
	return &ports.PresignedUpload{
		URL:       "https://storage.test/" + path + "?signed=1",
		Method:    "PUT",
		Headers:   map[string]string{"Content-Type": contentType},
		ExpiresAt: time.Now().Add(expiry),
	}, nil
}

func (s *fakeStorage) GetFileURL(path string) string {
	return "https://storage.test/" + path
}

func (s *fakeStorage) GetProviderName() string {
	return "fake"
}

// ═══════════════════════════════════════════════════════════════════════════════
// Transcoder, queue, lock, notifier
// ═══════════════════════════════════════════════════════════════════════════════

type fakeTranscoder struct {
	mu        sync.Mutex
	info      ports.VideoInfo
	probeErr  error
	failQ     map[string]bool
	thumbErr  error
	encoded   []string
	thumbnail bool
}

func (t *fakeTranscoder) GetVideoInfo(_ context.Context, _ string) (*ports.VideoInfo, error) {
	if t.probeErr != nil {
		return nil, t.probeErr
	}
	info := t.info
	return &info, nil
}

func (t *fakeTranscoder) TranscodeRendition(_ context.Context, opts *ports.RenditionOptions) (*ports.RenditionResult, error) {
	t.mu.Lock()
	t.encoded = append(t.encoded, opts.Profile.Name)
	fail := t.failQ[opts.Profile.Name]
	t.mu.Unlock()

	if fail {
		return nil, errors.New("encoder exited with status 1")
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, err
	}
	playlist := filepath.Join(opts.OutputDir, "playlist.m3u8")
	files := []string{playlist}
	for i := 0; i < 2; i++ {
		seg := filepath.Join(opts.OutputDir, fmt.Sprintf("segment_%03d.ts", i))
		if err := os.WriteFile(seg, []byte("ts"), 0644); err != nil {
			return nil, err
		}
		files = append(files, seg)
	}
	body := "#EXTM3U\n#EXTINF:6.0,\nsegment_000.ts\n#EXTINF:6.0,\nsegment_001.ts\n#EXT-X-ENDLIST\n"
	if err := os.WriteFile(playlist, []byte(body), 0644); err != nil {
		return nil, err
	}

	return &ports.RenditionResult{PlaylistFile: playlist, Files: files, Segments: 2}, nil
}

func (t *fakeTranscoder) GenerateThumbnail(_ context.Context, _, outputPath string, _ float64) error {
	if t.thumbErr != nil {
		return t.thumbErr
	}
	t.mu.Lock()
	t.thumbnail = true
	t.mu.Unlock()
	return os.WriteFile(outputPath, []byte("jpg"), 0644)
}

func (t *fakeTranscoder) IsAvailable() bool {
	return true
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []*ports.TranscodeJobData
	err  error
}

func (q *fakeQueue) PublishJob(_ context.Context, job *ports.TranscodeJobData) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) GetQueueStatus(_ context.Context) (*ports.QueueStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return &ports.QueueStatus{Driver: "fake", PendingJobs: uint64(len(q.jobs))}, nil
}

func (q *fakeQueue) last() *ports.TranscodeJobData {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil
	}
	return q.jobs[len(q.jobs)-1]
}

type fakeLock struct {
	mu   sync.Mutex
	held map[string]string
}

func newFakeLock() *fakeLock {
	return &fakeLock{held: map[string]string{}}
}

func (l *fakeLock) TryAcquire(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, true, nil
}

func (l *fakeLock) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	failures []*ports.FailureNotification
	stuck    [][]string
}

func (n *fakeNotifier) SendTranscodeFailAlert(_ context.Context, notification *ports.FailureNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, notification)
	return nil
}

func (n *fakeNotifier) SendStuckJobsAlert(_ context.Context, videoIDs []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stuck = append(n.stuck, videoIDs)
	return nil
}

func (n *fakeNotifier) IsEnabled() bool {
	return true
}

// fakeTranscodingService บันทึกการ trigger สำหรับ test ของ VideoService
type fakeTranscodingService struct {
	triggered []uuid.UUID
	err       error
}

func (f *fakeTranscodingService) TriggerProcessing(_ context.Context, videoID uuid.UUID, _ services.ProcessingOptions) error {
	if f.err != nil {
		return f.err
	}
	f.triggered = append(f.triggered, videoID)
	return nil
}

func (f *fakeTranscodingService) ProcessVideoToHLS(context.Context, *ports.TranscodeJobData) error {
	return nil
}

func (f *fakeTranscodingService) GetStats(context.Context) (*dto.TranscodingStatsResponse, error) {
	return &dto.TranscodingStatsResponse{}, nil
}

var adminCaller = services.Caller{UserID: uuid.New(), Role: models.RoleAdmin}
