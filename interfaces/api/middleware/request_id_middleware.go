package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"course-video-service/pkg/logger"
)

const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 64

// RequestIDMiddleware ใช้ X-Request-ID จาก proxy ถ้ารูปแบบถูกต้อง ไม่งั้นสร้างใหม่
// id ถูกใส่ใน response header และ user context สำหรับ logger.*Context
func RequestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}

		c.Set(RequestIDHeader, requestID)
		c.SetUserContext(logger.ContextWithRequestID(c.UserContext(), requestID))

		return c.Next()
	}
}

// validRequestID อนุญาตเฉพาะ [A-Za-z0-9._-] เพื่อไม่ให้ค่าจาก client ทำ log เพี้ยน
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		ch := id[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '-' || ch == '_' || ch == '.':
		default:
			return false
		}
	}
	return true
}
