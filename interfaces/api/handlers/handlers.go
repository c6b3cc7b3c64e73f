package handlers

import (
	"course-video-service/domain/ports"
	"course-video-service/domain/services"
	"course-video-service/infrastructure/storage"
)

// Services dependencies ของ handlers ทั้งหมด
type Services struct {
	UploadService      services.UploadService
	VideoService       services.VideoService
	TranscodingService services.TranscodingService
	AccessService      services.AccessService
	StreamTokenService services.StreamTokenService
	StoragePort        ports.StoragePort
	JobQueue           ports.JobQueuePort
	LocalStorage       *storage.LocalStorage // nil เมื่อไม่ได้ใช้ local driver
	HealthChecks       map[string]HealthCheck

	BaseURL       string
	TokenScope    string
	MaxUploadSize int64
}

// Handlers contains all HTTP handlers
type Handlers struct {
	UploadHandler      *UploadHandler
	LocalUploadHandler *LocalUploadHandler // nil เมื่อไม่ได้ใช้ local driver
	VideoHandler       *VideoHandler
	TranscodingHandler *TranscodingHandler
	StreamHandler      *StreamHandler
	HLSHandler         *HLSHandler
	MonitoringHandler  *MonitoringHandler
}

// NewHandlers creates a new instance of Handlers with all dependencies
func NewHandlers(s *Services) *Handlers {
	h := &Handlers{
		UploadHandler:      NewUploadHandler(s.UploadService),
		VideoHandler:       NewVideoHandler(s.VideoService, s.TranscodingService),
		TranscodingHandler: NewTranscodingHandler(s.TranscodingService),
		StreamHandler:      NewStreamHandler(s.AccessService, s.StreamTokenService, s.BaseURL, s.TokenScope),
		HLSHandler:         NewHLSHandler(s.StoragePort, s.StreamTokenService, s.TokenScope),
		MonitoringHandler:  NewMonitoringHandler(s.JobQueue, s.HealthChecks),
	}
	if s.LocalStorage != nil {
		h.LocalUploadHandler = NewLocalUploadHandler(s.LocalStorage, s.MaxUploadSize)
	}
	return h
}
