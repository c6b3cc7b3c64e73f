package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"course-video-service/pkg/logger"
	"course-video-service/pkg/utils"
)

// ErrorHandler fallback ของ fiber สำหรับ error ที่ handler ไม่ได้แปลงเป็น response เอง
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := ""

		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
			message = fe.Message
		}

		ctx := c.UserContext()
		if status >= fiber.StatusInternalServerError {
			logger.ErrorContext(ctx, "Unhandled error", "error", err, "path", c.Path())
		} else {
			logger.DebugContext(ctx, "Request error", "error", err, "status", status)
		}

		return utils.StatusErrorResponse(c, status, message)
	}
}
