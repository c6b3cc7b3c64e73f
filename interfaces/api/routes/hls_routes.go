package routes

import (
	"github.com/gofiber/fiber/v2"

	"course-video-service/interfaces/api/handlers"
)

func SetupHLSRoutes(app *fiber.App, h *handlers.HLSHandler) {
	// GET /hls/:videoId/master.m3u8?token=
	app.Get("/hls/:videoId/master.m3u8", h.ServeMaster)

	// GET /hls/:videoId/720p/playlist.m3u8, /hls/:videoId/720p/segment_000.ts
	app.Get("/hls/:videoId/:quality/:file", h.ServeRenditionFile)
}
