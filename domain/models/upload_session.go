package models

import (
	"time"

	"github.com/google/uuid"
)

// UploadSession presigned upload ที่ออกไปแล้ว (ยังไม่ใช่ Video record)
// ใช้ยืนยันการ upload และให้ sweeper เก็บกวาด upload ที่ถูกทิ้ง
type UploadSession struct {
	VideoID     uuid.UUID  `gorm:"primaryKey;type:uuid"`
	StoragePath string     `gorm:"type:text;not null"`
	FileName    string     `gorm:"size:255;not null"`
	FileSize    int64      `gorm:"not null"`
	FileFormat  string     `gorm:"size:20;not null"`
	Title       string     `gorm:"size:255;not null"`
	Description string     `gorm:"type:text"`
	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null"`
	ExpiresAt   time.Time  `gorm:"type:timestamptz;not null;index"`
	ConfirmedAt *time.Time `gorm:"type:timestamptz;index"`
	CreatedAt   time.Time
}

func (UploadSession) TableName() string {
	return "upload_sessions"
}

// IsConfirmed ตรวจสอบว่า client ยืนยันว่า upload เสร็จแล้ว
func (s *UploadSession) IsConfirmed() bool {
	return s.ConfirmedAt != nil
}

// IsExpired presigned URL หมดอายุแล้วหรือยัง
func (s *UploadSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
