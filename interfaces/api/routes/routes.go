package routes

import (
	"github.com/gofiber/fiber/v2"

	"course-video-service/interfaces/api/handlers"
	"course-video-service/interfaces/api/middleware"
)

// Config ค่าที่ routes ต้องใช้ตอนประกอบ middleware
type Config struct {
	JWTSecret      string
	MetricsEnabled bool
}

func SetupRoutes(app *fiber.App, h *handlers.Handlers, cfg Config) {
	SetupHealthRoutes(app, h.MonitoringHandler, cfg.MetricsEnabled)

	api := app.Group("/api/v1")
	protected := middleware.Protected(cfg.JWTSecret)
	admin := middleware.AdminOnly()

	SetupUploadRoutes(api, h.UploadHandler, protected, admin)
	SetupVideoRoutes(api, h.VideoHandler, h.StreamHandler, protected, admin)
	SetupTranscodingRoutes(api, h.TranscodingHandler, protected, admin)
	SetupMonitoringRoutes(api, h.MonitoringHandler, protected, admin)

	// เฉพาะ local driver: ปลายทางของ presigned PUT
	if h.LocalUploadHandler != nil {
		SetupLocalStorageRoutes(app, h.LocalUploadHandler)
	}

	// HLS ใช้ stream token แทน JWT (player ส่ง Authorization header ไม่ได้)
	SetupHLSRoutes(app, h.HLSHandler)
}
