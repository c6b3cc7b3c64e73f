package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrorRecord บันทึกข้อผิดพลาดแต่ละครั้ง
type ErrorRecord struct {
	Attempt   int    `json:"attempt"`
	Error     string `json:"error"`
	Stage     string `json:"stage"` // download, probe, transcode, upload, finalize
	Timestamp string `json:"timestamp"`
}

// ErrorHistory เก็บประวัติ errors ทั้งหมด
type ErrorHistory []ErrorRecord

// Scan implements sql.Scanner for ErrorHistory
func (e *ErrorHistory) Scan(value interface{}) error {
	if value == nil {
		*e = ErrorHistory{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, e)
}

// Value implements driver.Valuer for ErrorHistory
func (e ErrorHistory) Value() (driver.Value, error) {
	if e == nil {
		return "[]", nil
	}
	return json.Marshal(e)
}

// Video คือ record หลักของวิดีโอ ID (videoId) เป็น key เดียวที่ใช้สร้าง storage path ทุกตัว
type Video struct {
	ID               uuid.UUID `gorm:"primaryKey;type:uuid"`
	Title            string    `gorm:"size:255;not null"`
	Description      string    `gorm:"type:text"`
	OriginalPath     string    `gorm:"type:text;not null"`
	OriginalFileName string    `gorm:"size:255"`
	FileSize         int64     `gorm:"default:0"`

	// Source metadata (best-effort จาก upload request และ ffprobe)
	SourceFormat  string  `gorm:"size:20"`
	SourceCodec   string  `gorm:"size:50"`
	SourceBitrate int64   `gorm:"default:0"`
	SourceWidth   int     `gorm:"default:0"`
	SourceHeight  int     `gorm:"default:0"`
	FrameRate     float64 `gorm:"default:0"`
	Duration      float64 `gorm:"default:0"` // วินาที

	Status             VideoStatus    `gorm:"size:20;not null;default:'pending';index"`
	RequestedQualities pq.StringArray `gorm:"type:text[]"`
	Renditions         Renditions     `gorm:"type:jsonb;default:'[]'"`
	FailedRenditions   Renditions     `gorm:"type:jsonb;default:'[]'"`
	MasterPlaylistPath string         `gorm:"type:text"`
	ThumbnailPath      string         `gorm:"type:text"`

	// Processing tracking
	AttemptCount        int          `gorm:"default:0"`
	ProcessingError     string       `gorm:"type:text"`
	ErrorHistory        ErrorHistory `gorm:"type:jsonb;default:'[]'"`
	ProcessingStartedAt *time.Time   `gorm:"type:timestamptz"` // สำหรับ stuck detection
	ProcessedAt         *time.Time   `gorm:"type:timestamptz"`

	CreatedBy uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Video) TableName() string {
	return "videos"
}

// IsReady ตรวจสอบว่า video พร้อม stream หรือยัง
func (v *Video) IsReady() bool {
	return v.Status == VideoStatusReady
}

// IsPending ตรวจสอบว่า video ยังไม่เคยถูก process
func (v *Video) IsPending() bool {
	return v.Status == VideoStatusPending
}

// IsProcessing ตรวจสอบว่า video กำลัง transcode
func (v *Video) IsProcessing() bool {
	return v.Status == VideoStatusProcessing
}

// IsFailed ตรวจสอบว่า video transcode ไม่สำเร็จ
func (v *Video) IsFailed() bool {
	return v.Status == VideoStatusFailed
}

// CanStartProcessing ตรวจสอบว่าเริ่ม attempt ใหม่ได้หรือไม่
func (v *Video) CanStartProcessing() bool {
	return v.Status.CanTransitionTo(VideoStatusProcessing)
}

// AppendErrorHistory เพิ่ม error record ลงในประวัติ
func (v *Video) AppendErrorHistory(record ErrorRecord) {
	if v.ErrorHistory == nil {
		v.ErrorHistory = ErrorHistory{}
	}
	v.ErrorHistory = append(v.ErrorHistory, record)
	v.ProcessingError = record.Error
}

// GetQualities รายชื่อ qualities ที่ encode สำเร็จ
func (v *Video) GetQualities() []string {
	return v.Renditions.Qualities()
}
