package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"course-video-service/interfaces/api/handlers"
)

func SetupHealthRoutes(app *fiber.App, h *handlers.MonitoringHandler, metricsEnabled bool) {
	app.Get("/health", h.HealthCheck)

	if metricsEnabled {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Course Video Service",
			"docs":    "/api/v1",
			"health":  "/health",
		})
	})
}
