package routes

import (
	"github.com/gofiber/fiber/v2"

	"course-video-service/infrastructure/storage"
	"course-video-service/interfaces/api/handlers"
)

func SetupUploadRoutes(api fiber.Router, h *handlers.UploadHandler, protected, admin fiber.Handler) {
	uploads := api.Group("/uploads", protected, admin)

	uploads.Get("/limits", h.GetUploadLimits)
	uploads.Post("/", h.RequestUploadURL)
	uploads.Post("/:videoId/complete", h.CompleteUpload)
	uploads.Delete("/:videoId", h.AbortUpload)
}

// SetupLocalStorageRoutes ไม่มี JWT: สิทธิ์มาจาก signature ใน query string
func SetupLocalStorageRoutes(app *fiber.App, h *handlers.LocalUploadHandler) {
	app.Put(storage.LocalUploadRoute+"*", h.Upload)
}
