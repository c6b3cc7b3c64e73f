package routes

import (
	"github.com/gofiber/fiber/v2"

	"course-video-service/interfaces/api/handlers"
)

func SetupTranscodingRoutes(api fiber.Router, h *handlers.TranscodingHandler, protected, admin fiber.Handler) {
	transcoding := api.Group("/transcoding", protected, admin)
	transcoding.Get("/stats", h.GetStats)
}
