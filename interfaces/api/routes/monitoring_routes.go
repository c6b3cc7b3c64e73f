package routes

import (
	"github.com/gofiber/fiber/v2"

	"course-video-service/interfaces/api/handlers"
)

func SetupMonitoringRoutes(api fiber.Router, h *handlers.MonitoringHandler, protected, admin fiber.Handler) {
	monitoring := api.Group("/monitoring", protected, admin)
	monitoring.Get("/queue", h.GetQueueStatus)
}
