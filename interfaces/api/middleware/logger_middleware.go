package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"course-video-service/pkg/logger"
)

// LoggerMiddleware structured logging สำหรับทุก request
// skipPrefixes เช่น /hls/ (segment requests จำนวนมาก) log เฉพาะเมื่อ status >= 400
func LoggerMiddleware(skipPrefixes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// แปลง error เป็น response ตรงนี้เพื่อให้ log เห็น status จริง
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		latency := time.Since(start)

		status := c.Response().StatusCode()
		if status < 400 && hasAnyPrefix(c.Path(), skipPrefixes) {
			return nil
		}

		// Log request completed
		logFunc := logger.InfoContext
		if status >= 500 {
			logFunc = logger.ErrorContext
		} else if status >= 400 {
			logFunc = logger.WarnContext
		}

		logFunc(c.UserContext(), "Request completed",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", latency.String(),
			"ip", c.IP(),
		)

		return nil
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
