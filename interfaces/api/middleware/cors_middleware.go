package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CorsMiddleware allowedOrigins ว่าง = อนุญาตทุก origin (ไม่ส่ง credentials)
func CorsMiddleware(allowedOrigins []string) fiber.Handler {
	origins := strings.Join(allowedOrigins, ",")
	allowCredentials := origins != ""
	if origins == "" {
		origins = "*"
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS,HEAD",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,Range,X-Request-ID,X-Stream-Token",
		ExposeHeaders:    "Content-Length,Content-Range,Accept-Ranges,Content-Type,X-Request-ID,Retry-After",
		AllowCredentials: allowCredentials,
	})
}
