package ports

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrObjectNotFound ไม่พบไฟล์ใน storage
	ErrObjectNotFound = errors.New("object not found")
	// ErrNotSupported provider ไม่รองรับ operation นี้
	ErrNotSupported = errors.New("operation not supported by storage provider")
)

// StoragePort คือ interface หลักสำหรับ object storage
// ทำให้เปลี่ยน storage provider ได้ง่าย (Local, MinIO/S3, R2)
type StoragePort interface {
	// UploadFile อัปโหลดไฟล์ไปยัง storage
	// path: เส้นทางที่จะเก็บไฟล์ (เช่น "videos/{id}/hls/720p/segment_000.ts")
	// size: ขนาดไฟล์ (-1 = ไม่ทราบ)
	UploadFile(ctx context.Context, file io.Reader, size int64, path string, contentType string) error

	// DownloadFile ดาวน์โหลดไฟล์จาก storage ลง local path (สำหรับ transcode)
	DownloadFile(ctx context.Context, path string, localPath string) error

	// StatFile ข้อมูลไฟล์ คืน ErrObjectNotFound ถ้าไม่มี
	StatFile(ctx context.Context, path string) (*FileInfo, error)

	// DeleteFile ลบไฟล์จาก storage
	DeleteFile(ctx context.Context, path string) error

	// DeleteFolder ลบไฟล์ทั้งหมดใน folder (prefix)
	DeleteFolder(ctx context.Context, prefix string) error

	// GetFileContent อ่านไฟล์ทั้งไฟล์จาก storage
	GetFileContent(ctx context.Context, path string) (io.ReadCloser, *FileInfo, error)

	// GetFileRange อ่านไฟล์บางส่วน (byte range requests)
	// end: byte position สิ้นสุด (-1 = ถึงท้ายไฟล์)
	// return: io.ReadCloser, totalFileSize, error
	GetFileRange(ctx context.Context, path string, start, end int64) (io.ReadCloser, int64, error)

	// PresignUpload สร้าง signed URL สำหรับ PUT ไฟล์เดียวตรงเข้า storage
	PresignUpload(ctx context.Context, path string, contentType string, expiry time.Duration) (*PresignedUpload, error)

	// GetFileURL URL สำหรับเข้าถึงไฟล์ (internal/public)
	GetFileURL(path string) string

	// GetProviderName ชื่อ provider (local, s3, r2)
	GetProviderName() string
}

// FileInfo ข้อมูลไฟล์ใน storage
type FileInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// PresignedUpload ผลลัพธ์ของ presign
type PresignedUpload struct {
	URL       string
	Method    string            // PUT
	Headers   map[string]string // headers ที่ client ต้องส่งมาด้วย
	ExpiresAt time.Time
}
