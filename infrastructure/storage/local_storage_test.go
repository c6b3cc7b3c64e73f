package storage

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-video-service/domain/ports"
)

func newTestLocalStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(LocalStorageConfig{
		BasePath:   t.TempDir(),
		BaseURL:    "http://localhost:8080/",
		SigningKey: "local-signing-key",
	})
	require.NoError(t, err)
	return s
}

func TestLocalStorage_UploadStatRead(t *testing.T) {
	ctx := context.Background()
	s := newTestLocalStorage(t)

	path := "videos/abc/hls/720p/playlist.m3u8"
	require.NoError(t, s.UploadFile(ctx, strings.NewReader("#EXTM3U\n"), -1, path, "application/vnd.apple.mpegurl"))

	info, err := s.StatFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, int64(8), info.Size)
	assert.Equal(t, "application/vnd.apple.mpegurl", info.ContentType)

	body, _, err := s.GetFileContent(ctx, path)
	require.NoError(t, err)
	defer body.Close()
	content, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n", string(content))

	_, err = s.StatFile(ctx, "videos/abc/missing.ts")
	assert.ErrorIs(t, err, ports.ErrObjectNotFound)
}

func TestLocalStorage_GetFileRange(t *testing.T) {
	ctx := context.Background()
	s := newTestLocalStorage(t)

	path := "videos/abc/hls/360p/segment_000.ts"
	require.NoError(t, s.UploadFile(ctx, strings.NewReader("0123456789"), 10, path, "video/mp2t"))

	body, total, err := s.GetFileRange(ctx, path, 2, 5)
	require.NoError(t, err)
	defer body.Close()
	content, _ := io.ReadAll(body)
	assert.Equal(t, int64(10), total)
	assert.Equal(t, "2345", string(content))

	tail, _, err := s.GetFileRange(ctx, path, 7, -1)
	require.NoError(t, err)
	defer tail.Close()
	content, _ = io.ReadAll(tail)
	assert.Equal(t, "789", string(content))
}

func TestLocalStorage_DeleteFolderScopedToPrefix(t *testing.T) {
	ctx := context.Background()
	s := newTestLocalStorage(t)

	require.NoError(t, s.UploadFile(ctx, strings.NewReader("a"), 1, "videos/abc/original.mp4", "video/mp4"))
	require.NoError(t, s.UploadFile(ctx, strings.NewReader("b"), 1, "videos/abcd/original.mp4", "video/mp4"))

	require.NoError(t, s.DeleteFolder(ctx, "videos/abc"))

	_, err := s.StatFile(ctx, "videos/abc/original.mp4")
	assert.ErrorIs(t, err, ports.ErrObjectNotFound)
	_, err = s.StatFile(ctx, "videos/abcd/original.mp4")
	assert.NoError(t, err, "sibling prefix must survive")

	assert.NoError(t, s.DeleteFolder(ctx, "videos/never-existed/"))
	assert.ErrorIs(t, s.DeleteFolder(ctx, "/"), ErrEmptyPrefix)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s := newTestLocalStorage(t)

	err := s.UploadFile(ctx, strings.NewReader("x"), 1, "videos/../../etc/passwd", "text/plain")
	assert.Error(t, err)

	_, err = s.StatFile(ctx, "../secret")
	assert.Error(t, err)
}

func TestLocalStorage_PresignAndVerify(t *testing.T) {
	ctx := context.Background()
	s := newTestLocalStorage(t)
	issued := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return issued }

	presigned, err := s.PresignUpload(ctx, "videos/abc/original.mp4", "video/mp4", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "PUT", presigned.Method)
	assert.Equal(t, "video/mp4", presigned.Headers["Content-Type"])
	assert.Equal(t, issued.Add(time.Hour), presigned.ExpiresAt)

	u, err := url.Parse(presigned.URL)
	require.NoError(t, err)
	assert.Equal(t, "/storage/local/videos/abc/original.mp4", u.Path)

	expires, sig := u.Query().Get("expires"), u.Query().Get("sig")
	key := strings.TrimPrefix(u.Path, LocalUploadRoute)

	assert.NoError(t, s.VerifyUploadSignature(key, expires, sig))
	assert.ErrorIs(t, s.VerifyUploadSignature("videos/other/original.mp4", expires, sig), ErrUploadURLSignature)
	assert.ErrorIs(t, s.VerifyUploadSignature(key, "1800000000", sig), ErrUploadURLSignature)
	assert.ErrorIs(t, s.VerifyUploadSignature(key, "not-a-number", sig), ErrUploadURLSignature)

	s.now = func() time.Time { return issued.Add(2 * time.Hour) }
	assert.ErrorIs(t, s.VerifyUploadSignature(key, expires, sig), ErrUploadURLExpired)
}

func TestFolderPrefix(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "videos/abc", want: "videos/abc/"},
		{in: "/videos/abc/", want: "videos/abc/"},
		{in: `videos\abc`, want: "videos/abc/"},
		{in: "", wantErr: true},
		{in: "/", wantErr: true},
	}

	for _, tt := range tests {
		got, err := folderPrefix(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrEmptyPrefix, tt.in)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
