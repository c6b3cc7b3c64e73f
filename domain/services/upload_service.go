package services

import (
	"context"

	"github.com/google/uuid"

	"course-video-service/domain/dto"
)

// Caller ผู้เรียกที่ identity layer ยืนยันแล้ว
type Caller struct {
	UserID uuid.UUID
	Role   string
}

// UploadService Upload Broker: ออก presigned URL ให้ client upload ตรงเข้า storage
type UploadService interface {
	// RequestUploadURL ตรวจ input, สร้าง videoId และ presigned PUT URL (ยังไม่สร้าง Video record)
	RequestUploadURL(ctx context.Context, caller Caller, req *dto.RequestUploadURLRequest) (*dto.UploadURLResponse, error)

	// CompleteUpload ยืนยันว่าไฟล์อยู่ใน storage แล้ว สร้าง Video record (pending) และ trigger ถ้าต้องการ
	CompleteUpload(ctx context.Context, caller Caller, videoID uuid.UUID, req *dto.CompleteUploadRequest) (*dto.CompleteUploadResponse, error)

	// AbortUpload ยกเลิก upload ที่ยังไม่ complete ลบไฟล์ที่อาจค้างใน storage
	AbortUpload(ctx context.Context, caller Caller, videoID uuid.UUID) error

	// GetUploadLimits ข้อจำกัดสำหรับ frontend
	GetUploadLimits() *dto.UploadLimitsResponse
}
