package dto

import (
	"time"

	"github.com/google/uuid"
)

// ═══════════════════════════════════════════════════════════════════════════════
// Upload DTOs - สำหรับ Presigned URL Upload ตรงจาก Frontend ไป Storage
// ═══════════════════════════════════════════════════════════════════════════════

// === Requests ===

// RequestUploadURLRequest ข้อมูลสำหรับขอ upload URL
type RequestUploadURLRequest struct {
	FileName    string `json:"fileName" validate:"required,min=1,max=255"`
	FileSize    int64  `json:"fileSize" validate:"required,min=1"`
	FileFormat  string `json:"fileFormat" validate:"required,min=2,max=10"`
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"omitempty,max=5000"`
}

// CompleteUploadRequest ยืนยันว่า upload ขึ้น storage เสร็จแล้ว
type CompleteUploadRequest struct {
	StartProcessing *bool    `json:"startProcessing"` // nil = ใช้ค่า default จาก config
	Qualities       []string `json:"qualities" validate:"omitempty,dive,oneof=1080p 720p 480p 360p 240p"`
}

// === Responses ===

// UploadURLResponse ผลลัพธ์ของการขอ upload URL
// Note: ยังไม่มี Video record จนกว่าจะเรียก complete
type UploadURLResponse struct {
	UploadURL   string            `json:"uploadUrl"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers,omitempty"`
	VideoID     uuid.UUID         `json:"videoId"`
	StoragePath string            `json:"storagePath"`
	ExpiresAt   time.Time         `json:"expiresAt"`
}

// CompleteUploadResponse ผลลัพธ์จากการ complete upload
type CompleteUploadResponse struct {
	Video             *VideoResponse `json:"video"`
	ProcessingStarted bool           `json:"processingStarted"`
}

// UploadLimitsResponse ข้อจำกัดของการ upload
type UploadLimitsResponse struct {
	MaxFileSize      int64    `json:"maxFileSize"`
	AllowedFormats   []string `json:"allowedFormats"`
	URLExpirySeconds int      `json:"urlExpirySeconds"`
}
