package dto

import (
	"time"

	"github.com/google/uuid"
)

// StreamTokenRequest optional ttl (วินาที) ถูก clamp ด้วย max ttl
type StreamTokenRequest struct {
	TTLSeconds int `json:"ttlSeconds" validate:"omitempty,min=1,max=3600"`
}

// StreamTokenResponse token สำหรับเริ่ม playback session
type StreamTokenResponse struct {
	VideoID     uuid.UUID `json:"videoId"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"`
	PlaylistURL string    `json:"playlistUrl"`
	Scope       string    `json:"scope"` // manifest, all
}
