package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"course-video-service/domain/ports"
	"course-video-service/pkg/logger"
)

// S3Storage implements StoragePort สำหรับ MinIO / S3-compatible ผ่าน minio-go
type S3Storage struct {
	client    *minio.Client
	bucket    string
	publicURL string
	endpoint  string
	useSSL    bool
}

type S3StorageConfig struct {
	Endpoint  string // minio:9000
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
	PublicURL string // optional
}

// NewS3Storage สร้าง client และตรวจว่า bucket มีอยู่ (สร้างให้ถ้ายังไม่มี)
func NewS3Storage(ctx context.Context, config S3StorageConfig) (*S3Storage, error) {
	// segment upload ขนานกันหลาย rendition ต้องการ connection pool ที่ใหญ่ขึ้น
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 50,
		MaxConnsPerHost:     100,
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure:    config.UseSSL,
		Region:    config.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{Region: config.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info("S3 bucket created", "bucket", config.Bucket)
	}

	logger.Info("S3 storage initialized",
		"endpoint", config.Endpoint,
		"bucket", config.Bucket,
		"ssl", config.UseSSL,
	)

	return &S3Storage{
		client:    client,
		bucket:    config.Bucket,
		publicURL: strings.TrimSuffix(config.PublicURL, "/"),
		endpoint:  config.Endpoint,
		useSSL:    config.UseSSL,
	}, nil
}

// UploadFile size = -1 ให้ minio อ่านแบบ streaming จนจบ
func (s *S3Storage) UploadFile(ctx context.Context, file io.Reader, size int64, path string, contentType string) error {
	path = normalizeKey(path)

	_, err := s.client.PutObject(ctx, s.bucket, path, file, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	logger.Debug("File uploaded to S3", "path", path, "content_type", contentType)
	return nil
}

func (s *S3Storage) DownloadFile(ctx context.Context, path string, localPath string) error {
	path = normalizeKey(path)

	if err := s.client.FGetObject(ctx, s.bucket, path, localPath, minio.GetObjectOptions{}); err != nil {
		if isMinioNotFound(err) {
			return ports.ErrObjectNotFound
		}
		return fmt.Errorf("failed to download file: %w", err)
	}
	return nil
}

func (s *S3Storage) StatFile(ctx context.Context, path string) (*ports.FileInfo, error) {
	path = normalizeKey(path)

	info, err := s.client.StatObject(ctx, s.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return nil, ports.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	return &ports.FileInfo{
		Path:         path,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

func (s *S3Storage) DeleteFile(ctx context.Context, path string) error {
	path = normalizeKey(path)

	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Debug("File deleted from S3", "path", path)
	return nil
}

// DeleteFolder ลบทุก object ที่ขึ้นต้นด้วย prefix (prefix ว่างไม่อนุญาต)
func (s *S3Storage) DeleteFolder(ctx context.Context, prefix string) error {
	prefix, err := folderPrefix(prefix)
	if err != nil {
		return err
	}

	var keys []minio.ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		keys = append(keys, obj)
	}
	if len(keys) == 0 {
		logger.Debug("No objects found to delete", "prefix", prefix)
		return nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, obj := range keys {
		objectsCh <- obj
	}
	close(objectsCh)

	failed := 0
	var firstErr error
	for rErr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		failed++
		if firstErr == nil {
			firstErr = rErr.Err
		}
		logger.Warn("Failed to delete object", "key", rErr.ObjectName, "error", rErr.Err)
	}
	if firstErr != nil {
		return fmt.Errorf("failed to delete %d of %d objects under %s: %w", failed, len(keys), prefix, firstErr)
	}

	logger.Info("Folder deleted from S3", "prefix", prefix, "objects", len(keys))
	return nil
}

func (s *S3Storage) GetFileContent(ctx context.Context, path string) (io.ReadCloser, *ports.FileInfo, error) {
	path = normalizeKey(path)

	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get object: %w", err)
	}

	// GetObject ไม่ error จนกว่าจะอ่าน ใช้ Stat เพื่อรู้ว่ามีไฟล์จริง
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isMinioNotFound(err) {
			return nil, nil, ports.ErrObjectNotFound
		}
		return nil, nil, fmt.Errorf("failed to stat object: %w", err)
	}

	return obj, &ports.FileInfo{
		Path:         path,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

// GetFileRange อ่านไฟล์บางส่วน (byte range request)
func (s *S3Storage) GetFileRange(ctx context.Context, path string, start, end int64) (io.ReadCloser, int64, error) {
	path = normalizeKey(path)

	info, err := s.client.StatObject(ctx, s.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return nil, 0, ports.ErrObjectNotFound
		}
		return nil, 0, fmt.Errorf("failed to stat object: %w", err)
	}

	totalSize := info.Size
	actualEnd := end
	if end < 0 || end >= totalSize {
		actualEnd = totalSize - 1
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, actualEnd); err != nil {
		return nil, 0, fmt.Errorf("failed to set range: %w", err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, path, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get object range: %w", err)
	}

	return obj, totalSize, nil
}

// PresignUpload signed PUT URL ไฟล์เดียว (client ต้องส่ง Content-Type ตรงกับที่ sign)
func (s *S3Storage) PresignUpload(ctx context.Context, path string, contentType string, expiry time.Duration) (*ports.PresignedUpload, error) {
	path = normalizeKey(path)

	u, err := s.client.PresignedPutObject(ctx, s.bucket, path, expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	logger.Debug("Presigned upload URL generated", "path", path, "expiry", expiry)

	return &ports.PresignedUpload{
		URL:       u.String(),
		Method:    http.MethodPut,
		Headers:   map[string]string{"Content-Type": contentType},
		ExpiresAt: time.Now().Add(expiry),
	}, nil
}

func (s *S3Storage) GetFileURL(path string) string {
	path = normalizeKey(path)

	if s.publicURL != "" {
		return s.publicURL + "/" + path
	}

	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, path)
}

func (s *S3Storage) GetProviderName() string {
	return "s3"
}

// Client ใช้โดย cmd/setup-bucket
func (s *S3Storage) Client() *minio.Client {
	return s.client
}

func isMinioNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

var _ ports.StoragePort = (*S3Storage)(nil)
