package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-video-service/application/serviceimpl"
	"course-video-service/domain/models"
	"course-video-service/domain/services"
	"course-video-service/infrastructure/storage"
	"course-video-service/pkg/addressing"
	"course-video-service/pkg/config"
	"course-video-service/pkg/utils"
)

const testMaster = "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-STREAM-INF:BANDWIDTH=2628000,RESOLUTION=1280x720,NAME=\"720p\"\n720p/playlist.m3u8\n"

func newTokenService() *serviceimpl.StreamTokenServiceImpl {
	return serviceimpl.NewStreamTokenService(&config.StreamConfig{
		TokenSecret: "handler-test-secret-key-32-chars!!",
		TokenTTL:    time.Minute,
		TokenMaxTTL: 5 * time.Minute,
	})
}

// newHLSApp เตรียม local storage ที่มี master playlist และ segment หนึ่งไฟล์
func newHLSApp(t *testing.T, scope string) (*fiber.App, uuid.UUID, *serviceimpl.StreamTokenServiceImpl) {
	t.Helper()

	store, err := storage.NewLocalStorage(storage.LocalStorageConfig{
		BasePath:   t.TempDir(),
		BaseURL:    "http://localhost:8080",
		SigningKey: "local-signing-key",
	})
	require.NoError(t, err)

	ctx := context.Background()
	videoID := uuid.New()

	require.NoError(t, store.UploadFile(ctx, strings.NewReader(testMaster), int64(len(testMaster)),
		addressing.MasterPlaylistPath(videoID), "application/vnd.apple.mpegurl"))

	segKey, err := addressing.RenditionFilePath(videoID, "720p", "segment_000.ts")
	require.NoError(t, err)
	require.NoError(t, store.UploadFile(ctx, strings.NewReader("0123456789"), 10, segKey, "video/mp2t"))

	tokens := newTokenService()
	h := NewHLSHandler(store, tokens, scope)

	app := fiber.New()
	app.Get("/hls/:videoId/master.m3u8", h.ServeMaster)
	app.Get("/hls/:videoId/:quality/:file", h.ServeRenditionFile)
	return app, videoID, tokens
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHLSHandler_ManifestScope(t *testing.T) {
	app, videoID, tokens := newHLSApp(t, config.TokenScopeManifest)
	token, err := tokens.GenerateStreamToken(videoID, uuid.New(), time.Minute)
	require.NoError(t, err)

	masterURL := fmt.Sprintf("/hls/%s/master.m3u8", videoID)

	resp, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, masterURL, nil))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, masterURL+"?token="+token.Value, nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, testMaster, body)
	assert.Equal(t, "application/vnd.apple.mpegurl", resp.Header.Get("Content-Type"))

	// token ของ video อื่นใช้ไม่ได้
	other, err := tokens.GenerateStreamToken(uuid.New(), uuid.New(), time.Minute)
	require.NoError(t, err)
	resp, _ = doRequest(t, app, httptest.NewRequest(http.MethodGet, masterURL+"?token="+other.Value, nil))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// manifest scope: segment ไม่ต้องมี token
	segURL := fmt.Sprintf("/hls/%s/720p/segment_000.ts", videoID)
	resp, body = doRequest(t, app, httptest.NewRequest(http.MethodGet, segURL, nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "0123456789", body)

	req := httptest.NewRequest(http.MethodGet, segURL, nil)
	req.Header.Set("Range", "bytes=2-5")
	resp, body = doRequest(t, app, req)
	assert.Equal(t, fiber.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "2345", body)
	assert.Equal(t, "bytes 2-5/10", resp.Header.Get("Content-Range"))

	req = httptest.NewRequest(http.MethodGet, segURL, nil)
	req.Header.Set("Range", "bytes=50-")
	resp, _ = doRequest(t, app, req)
	assert.Equal(t, fiber.StatusRequestedRangeNotSatisfiable, resp.StatusCode)
}

func TestHLSHandler_AllScope(t *testing.T) {
	app, videoID, tokens := newHLSApp(t, config.TokenScopeAll)
	token, err := tokens.GenerateStreamToken(videoID, uuid.New(), time.Minute)
	require.NoError(t, err)

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/hls/%s/master.m3u8?token=%s", videoID, token.Value), nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "720p/playlist.m3u8?token="+token.Value)
	assert.Contains(t, body, "#EXT-X-STREAM-INF:BANDWIDTH=2628000")

	segURL := fmt.Sprintf("/hls/%s/720p/segment_000.ts", videoID)
	resp, _ = doRequest(t, app, httptest.NewRequest(http.MethodGet, segURL, nil))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, segURL, nil)
	req.Header.Set(streamTokenHeader, token.Value)
	resp, body = doRequest(t, app, req)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "0123456789", body)
}

func TestHLSHandler_AllScopeHeaderRefreshesToken(t *testing.T) {
	app, videoID, tokens := newHLSApp(t, config.TokenScopeAll)
	fresh, err := tokens.GenerateStreamToken(videoID, uuid.New(), time.Minute)
	require.NoError(t, err)
	other, err := tokens.GenerateStreamToken(uuid.New(), uuid.New(), time.Minute)
	require.NoError(t, err)

	segURL := fmt.Sprintf("/hls/%s/720p/segment_000.ts", videoID)
	for _, stale := range []string{"expired.token", other.Value} {
		req := httptest.NewRequest(http.MethodGet, segURL+"?token="+stale, nil)
		resp, _ := doRequest(t, app, req)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		req = httptest.NewRequest(http.MethodGet, segURL+"?token="+stale, nil)
		req.Header.Set(streamTokenHeader, fresh.Value)
		resp, body := doRequest(t, app, req)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "0123456789", body)
	}

	// playlist ที่ขอด้วย header ได้ URI ที่ติด token ใหม่
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/hls/%s/master.m3u8?token=expired.token", videoID), nil)
	req.Header.Set(streamTokenHeader, fresh.Value)
	resp, body := doRequest(t, app, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "720p/playlist.m3u8?token="+fresh.Value)
}

func TestHLSHandler_RejectsUnknownPaths(t *testing.T) {
	app, videoID, _ := newHLSApp(t, config.TokenScopeManifest)

	for _, path := range []string{
		fmt.Sprintf("/hls/%s/720p/secret.txt", videoID),
		fmt.Sprintf("/hls/%s/hd/segment_000.ts", videoID),
		"/hls/not-a-uuid/720p/segment_000.ts",
		fmt.Sprintf("/hls/%s/480p/segment_000.ts", videoID),
	} {
		resp, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, path)
	}
}

type stubAccessService struct {
	allowed bool
	err     error
}

func (s *stubAccessService) CanStream(ctx context.Context, caller services.Caller, videoID uuid.UUID) (bool, error) {
	return s.allowed, s.err
}

func newStreamApp(access services.AccessService, user *utils.UserContext) *fiber.App {
	h := NewStreamHandler(access, newTokenService(), "https://api.example.com", config.TokenScopeManifest)
	app := fiber.New()
	app.Post("/videos/:videoId/stream-token", func(c *fiber.Ctx) error {
		utils.SetUserContext(c, user)
		return c.Next()
	}, h.IssueStreamToken)
	return app
}

func TestStreamHandler_IssueStreamToken(t *testing.T) {
	user := &utils.UserContext{ID: uuid.New(), Role: models.RoleUser}
	videoID := uuid.New()
	url := fmt.Sprintf("/videos/%s/stream-token", videoID)

	tests := []struct {
		name   string
		access *stubAccessService
		want   int
	}{
		{name: "entitled", access: &stubAccessService{allowed: true}, want: fiber.StatusCreated},
		{name: "not entitled", access: &stubAccessService{allowed: false}, want: fiber.StatusForbidden},
		{name: "unknown video", access: &stubAccessService{err: services.ErrVideoNotFound}, want: fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newStreamApp(tt.access, user)
			resp, body := doRequest(t, app, httptest.NewRequest(http.MethodPost, url, nil))
			assert.Equal(t, tt.want, resp.StatusCode)

			if tt.want == fiber.StatusCreated {
				var out struct {
					Data struct {
						Token       string `json:"token"`
						PlaylistURL string `json:"playlistUrl"`
						Scope       string `json:"scope"`
					} `json:"data"`
				}
				require.NoError(t, json.Unmarshal([]byte(body), &out))
				assert.NotEmpty(t, out.Data.Token)
				assert.Equal(t, fmt.Sprintf("https://api.example.com/hls/%s/master.m3u8?token=%s", videoID, out.Data.Token), out.Data.PlaylistURL)
				assert.Equal(t, config.TokenScopeManifest, out.Data.Scope)
			}
		})
	}
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", services.NewValidationError("fileSize", "too large"), fiber.StatusBadRequest},
		{"forbidden", services.ErrForbidden, fiber.StatusForbidden},
		{"not found", services.ErrVideoNotFound, fiber.StatusNotFound},
		{"session not found", services.ErrUploadSessionNotFound, fiber.StatusNotFound},
		{"already processing", services.ErrAlreadyProcessing, fiber.StatusConflict},
		{"not ready", services.ErrVideoNotReady, fiber.StatusConflict},
		{"upload missing", services.ErrUploadNotReceived, fiber.StatusConflict},
		{"wrapped transition", fmt.Errorf("delete: %w", models.ErrInvalidTransition), fiber.StatusConflict},
		{"external", services.NewExternalServiceError("queue", errors.New("nats down")), fiber.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return handleServiceError(c, tt.err) })

			resp, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.want, resp.StatusCode)
			if tt.want == fiber.StatusServiceUnavailable {
				assert.NotEmpty(t, resp.Header.Get("Retry-After"))
			}
		})
	}
}

func TestParseByteRange(t *testing.T) {
	start, end, err := parseByteRange("bytes=100-199")
	require.NoError(t, err)
	assert.Equal(t, int64(100), start)
	assert.Equal(t, int64(199), end)

	start, end, err = parseByteRange("bytes=5-")
	require.NoError(t, err)
	assert.Equal(t, int64(5), start)
	assert.Equal(t, int64(-1), end)

	for _, bad := range []string{"", "bytes=", "bytes=-500", "bytes=10-5", "bytes=0-1,4-5", "items=0-1"} {
		_, _, err := parseByteRange(bad)
		assert.Error(t, err, bad)
	}
}
