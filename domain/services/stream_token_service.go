package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTokenMalformed     = errors.New("stream token is malformed")
	ErrTokenSignature     = errors.New("stream token signature is invalid")
	ErrTokenExpired       = errors.New("stream token has expired")
	ErrTokenVideoMismatch = errors.New("stream token was issued for a different video")
)

// StreamToken token ที่ออกให้หนึ่ง playback session (ไม่ถูกเก็บลง durable storage)
type StreamToken struct {
	Value     string
	VideoID   uuid.UUID
	UserID    uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// StreamTokenClaims ข้อมูลที่กู้คืนจาก token ที่ผ่านการตรวจ
type StreamTokenClaims struct {
	VideoID   uuid.UUID
	UserID    uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// StreamTokenService ออกและตรวจ token แบบ signed ตรวจได้ locally โดยไม่ต้อง query DB
type StreamTokenService interface {
	// GenerateStreamToken caller ต้องผ่าน AccessService.CanStream มาก่อนแล้ว
	GenerateStreamToken(videoID, userID uuid.UUID, ttl time.Duration) (*StreamToken, error)

	// ValidateStreamToken ตรวจ signature, videoId ต้องตรง และยังไม่หมดอายุ
	ValidateStreamToken(token string, videoID uuid.UUID) (*StreamTokenClaims, error)
}
