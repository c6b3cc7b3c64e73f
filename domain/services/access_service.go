package services

import (
	"context"

	"github.com/google/uuid"
)

// AccessService Access Control Check: video -> lessons -> courses -> enrollment
type AccessService interface {
	// CanStream คืน true เมื่อ video พร้อม (ready) และ user เป็น admin หรือ enroll อย่างน้อยหนึ่งคอร์ส
	// ที่มี lesson อ้างอิง video นี้ คืน ErrVideoNotFound ถ้าไม่มี video
	CanStream(ctx context.Context, caller Caller, videoID uuid.UUID) (bool, error)
}
