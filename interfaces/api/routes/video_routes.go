package routes

import (
	"github.com/gofiber/fiber/v2"

	"course-video-service/interfaces/api/handlers"
)

func SetupVideoRoutes(api fiber.Router, h *handlers.VideoHandler, stream *handlers.StreamHandler, protected, admin fiber.Handler) {
	videos := api.Group("/videos", protected)

	// ผู้ใช้ที่ login แล้ว สิทธิ์จริงตรวจจาก enrollment
	videos.Post("/:videoId/stream-token", stream.IssueStreamToken)

	videos.Get("/", admin, h.ListVideos)
	videos.Post("/", admin, h.CreateVideo)
	videos.Get("/:videoId", admin, h.GetVideo)
	videos.Patch("/:videoId", admin, h.UpdateVideo)
	videos.Delete("/:videoId", admin, h.DeleteVideo)
	videos.Get("/:videoId/status", admin, h.GetVideoStatus)
	videos.Post("/:videoId/process", admin, h.ProcessVideo)
}
