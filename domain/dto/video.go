package dto

import (
	"time"

	"github.com/google/uuid"

	"course-video-service/domain/models"
)

// === Requests ===

// CreateVideoRequest ลงทะเบียน video record สำหรับ upload ที่ออก URL ไปแล้ว
type CreateVideoRequest struct {
	VideoID         uuid.UUID `json:"videoId" validate:"required"`
	Title           string    `json:"title" validate:"omitempty,min=1,max=255"` // ว่าง = ใช้ title ตอนขอ upload URL
	Description     *string   `json:"description" validate:"omitempty,max=5000"`
	StartProcessing bool      `json:"startProcessing"`
	Qualities       []string  `json:"qualities" validate:"omitempty,dive,oneof=1080p 720p 480p 360p 240p"`
}

type UpdateVideoRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

type VideoFilterRequest struct {
	Search string `query:"search"` // ค้นหา title
	Status string `query:"status" validate:"omitempty,oneof=pending processing ready failed"`
	Page   int    `query:"page" validate:"omitempty,min=1"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// ProcessVideoRequest trigger การ transcode
type ProcessVideoRequest struct {
	Qualities         []string `json:"qualities" validate:"omitempty,dive,oneof=1080p 720p 480p 360p 240p"`
	SegmentDuration   int      `json:"segmentDuration" validate:"omitempty,min=2,max=30"`
	GenerateThumbnail *bool    `json:"generateThumbnail"`
}

// === Responses ===

type RenditionResponse struct {
	Quality      string `json:"quality"`
	PlaylistPath string `json:"playlistPath,omitempty"`
	Bandwidth    int    `json:"bandwidth,omitempty"`
	Resolution   string `json:"resolution,omitempty"`
	Error        string `json:"error,omitempty"`
}

type SourceInfoResponse struct {
	Format    string  `json:"format,omitempty"`
	Codec     string  `json:"codec,omitempty"`
	Bitrate   int64   `json:"bitrate,omitempty"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	FrameRate float64 `json:"frameRate,omitempty"`
}

type VideoResponse struct {
	VideoID            uuid.UUID           `json:"videoId"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	OriginalFileName   string              `json:"originalFileName,omitempty"`
	OriginalPath       string              `json:"originalPath"`
	FileSize           int64               `json:"fileSize"`
	Duration           float64             `json:"duration"`
	Source             SourceInfoResponse  `json:"source"`
	Status             models.VideoStatus  `json:"status"`
	Renditions         []RenditionResponse `json:"renditions"`
	FailedRenditions   []RenditionResponse `json:"failedRenditions,omitempty"`
	MasterPlaylistPath string              `json:"masterPlaylistPath,omitempty"`
	ThumbnailPath      string              `json:"thumbnailPath,omitempty"`
	ProcessingError    string              `json:"processingError,omitempty"`
	AttemptCount       int                 `json:"attemptCount"`
	ProcessedAt        *time.Time          `json:"processedAt,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

type VideoListResponse struct {
	Videos []VideoResponse `json:"videos"`
	Meta   PaginationMeta  `json:"meta"`
}

// VideoStatusResponse สำหรับ polling ความคืบหน้า
type VideoStatusResponse struct {
	VideoID             uuid.UUID          `json:"videoId"`
	Status              models.VideoStatus `json:"status"`
	CompletedQualities  []string           `json:"completedQualities"`
	FailedQualities     []string           `json:"failedQualities,omitempty"`
	RequestedQualities  []string           `json:"requestedQualities,omitempty"`
	ProcessingError     string             `json:"processingError,omitempty"`
	ProcessingStartedAt *time.Time         `json:"processingStartedAt,omitempty"`
}

type TranscodingStatsResponse struct {
	Pending         int64  `json:"pending"`
	Processing      int64  `json:"processing"`
	Ready           int64  `json:"ready"`
	Failed          int64  `json:"failed"`
	QueueDriver     string `json:"queueDriver"`
	QueuePending    uint64 `json:"queuePending"`
	QueueAckPending uint64 `json:"queueAckPending"`
}
