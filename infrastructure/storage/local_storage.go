package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"course-video-service/domain/ports"
	"course-video-service/pkg/utils"
)

// LocalUploadRoute path ที่ handler รับ PUT สำหรับ local driver
const LocalUploadRoute = "/storage/local/"

var (
	ErrUploadURLExpired   = errors.New("upload URL has expired")
	ErrUploadURLSignature = errors.New("upload URL signature is invalid")
)

// LocalStorage implements StoragePort บน filesystem (dev / single node)
// presigned upload ชี้กลับมาที่ API เองและ verify ด้วย HMAC
type LocalStorage struct {
	basePath   string
	baseURL    string
	signingKey []byte
	now        func() time.Time
}

type LocalStorageConfig struct {
	BasePath   string // ./uploads
	BaseURL    string // http://localhost:8080
	SigningKey string
}

func NewLocalStorage(config LocalStorageConfig) (*LocalStorage, error) {
	if config.SigningKey == "" {
		return nil, errors.New("local storage signing key is required")
	}
	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath:   config.BasePath,
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		signingKey: []byte(config.SigningKey),
		now:        time.Now,
	}, nil
}

// resolve แปลง object key เป็น path จริงภายใต้ basePath
func (l *LocalStorage) resolve(path string) (string, error) {
	key, err := utils.ValidateAndSanitizePath(normalizeKey(path))
	if err != nil {
		return "", fmt.Errorf("invalid object key %q: %w", path, err)
	}
	return filepath.Join(l.basePath, filepath.FromSlash(key)), nil
}

func (l *LocalStorage) UploadFile(ctx context.Context, file io.Reader, size int64, path string, contentType string) error {
	fullPath, err := l.resolve(path)
	if err != nil {
		return err
	}
	return writeLocalFile(fullPath, file)
}

func (l *LocalStorage) DownloadFile(ctx context.Context, path string, localPath string) error {
	src, _, err := l.GetFileContent(ctx, path)
	if err != nil {
		return err
	}
	defer src.Close()

	return writeLocalFile(localPath, src)
}

func (l *LocalStorage) StatFile(ctx context.Context, path string) (*ports.FileInfo, error) {
	fullPath, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ports.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, ports.ErrObjectNotFound
	}

	return &ports.FileInfo{
		Path:         normalizeKey(path),
		Size:         info.Size(),
		ContentType:  contentTypeByExt(path),
		LastModified: info.ModTime(),
	}, nil
}

func (l *LocalStorage) DeleteFile(ctx context.Context, path string) error {
	fullPath, err := l.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	l.cleanupEmptyDirs(filepath.Dir(fullPath))
	return nil
}

// DeleteFolder ลบทั้ง folder ไม่มีอยู่ถือว่าสำเร็จ
func (l *LocalStorage) DeleteFolder(ctx context.Context, prefix string) error {
	prefix, err := folderPrefix(prefix)
	if err != nil {
		return err
	}
	fullPath, err := l.resolve(prefix)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(fullPath); err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	l.cleanupEmptyDirs(filepath.Dir(fullPath))
	return nil
}

func (l *LocalStorage) GetFileContent(ctx context.Context, path string) (io.ReadCloser, *ports.FileInfo, error) {
	info, err := l.StatFile(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	fullPath, _ := l.resolve(path)

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, info, nil
}

// GetFileRange อ่านไฟล์บางส่วน (byte range request)
func (l *LocalStorage) GetFileRange(ctx context.Context, path string, start, end int64) (io.ReadCloser, int64, error) {
	file, info, err := l.GetFileContent(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	totalSize := info.Size

	seeker := file.(*os.File)
	if _, err := seeker.Seek(start, io.SeekStart); err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("failed to seek: %w", err)
	}

	actualEnd := end
	if end < 0 || end >= totalSize {
		actualEnd = totalSize - 1
	}

	return &limitedReadCloser{
		reader: io.LimitReader(file, actualEnd-start+1),
		closer: file,
	}, totalSize, nil
}

// PresignUpload URL ชี้ไปที่ LocalUploadRoute ของ API พร้อม expires และ sig
func (l *LocalStorage) PresignUpload(ctx context.Context, path string, contentType string, expiry time.Duration) (*ports.PresignedUpload, error) {
	key, err := utils.ValidateAndSanitizePath(normalizeKey(path))
	if err != nil {
		return nil, fmt.Errorf("invalid object key %q: %w", path, err)
	}

	expiresAt := l.now().Add(expiry)
	expires := strconv.FormatInt(expiresAt.Unix(), 10)

	query := url.Values{}
	query.Set("expires", expires)
	query.Set("sig", l.sign(key, expires))

	return &ports.PresignedUpload{
		URL:       l.baseURL + LocalUploadRoute + key + "?" + query.Encode(),
		Method:    http.MethodPut,
		Headers:   map[string]string{"Content-Type": contentType},
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyUploadSignature ตรวจ query ของ URL ที่ออกโดย PresignUpload
func (l *LocalStorage) VerifyUploadSignature(path, expires, sig string) error {
	key, err := utils.ValidateAndSanitizePath(normalizeKey(path))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUploadURLSignature, err)
	}

	expiresAt, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrUploadURLSignature
	}

	expected := l.sign(key, expires)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrUploadURLSignature
	}
	if l.now().Unix() > expiresAt {
		return ErrUploadURLExpired
	}
	return nil
}

func (l *LocalStorage) sign(key, expires string) string {
	mac := hmac.New(sha256.New, l.signingKey)
	mac.Write([]byte(http.MethodPut + "\n" + key + "\n" + expires))
	return hex.EncodeToString(mac.Sum(nil))
}

func (l *LocalStorage) GetFileURL(path string) string {
	return l.baseURL + "/" + normalizeKey(path)
}

func (l *LocalStorage) GetProviderName() string {
	return "local"
}

// cleanupEmptyDirs ลบ directory ว่างขึ้นไปจนถึง basePath
func (l *LocalStorage) cleanupEmptyDirs(dir string) {
	absBase, _ := filepath.Abs(l.basePath)
	absDir, _ := filepath.Abs(dir)

	for absDir != absBase && strings.HasPrefix(absDir, absBase) {
		entries, err := os.ReadDir(absDir)
		if err != nil || len(entries) > 0 {
			break
		}
		os.Remove(absDir)
		absDir = filepath.Dir(absDir)
	}
}

type limitedReadCloser struct {
	reader io.Reader
	closer io.Closer
}

func (l *limitedReadCloser) Read(p []byte) (n int, err error) {
	return l.reader.Read(p)
}

func (l *limitedReadCloser) Close() error {
	return l.closer.Close()
}

// writeLocalFile เขียนลง temp file แล้ว rename ผู้อ่านไม่เห็นไฟล์ที่เขียนไม่ครบ
func writeLocalFile(fullPath string, src io.Reader) error {
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

var _ ports.StoragePort = (*LocalStorage)(nil)
