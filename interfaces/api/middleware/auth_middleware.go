package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"course-video-service/domain/models"
	"course-video-service/pkg/logger"
	"course-video-service/pkg/utils"
)

// Protected ตรวจ access token ที่ identity layer ออกให้ แล้วเก็บ user ไว้ใน locals
func Protected(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return utils.UnauthorizedResponse(c, "Missing authorization header")
		}

		token := utils.ExtractTokenFromHeader(authHeader)
		if token == "" {
			return utils.UnauthorizedResponse(c, "Invalid authorization header format")
		}

		userCtx, err := utils.ParseAccessToken(token, jwtSecret)
		if err != nil {
			logger.WarnContext(c.UserContext(), "Token validation failed", "error", err, "path", c.Path())
			switch {
			case errors.Is(err, utils.ErrExpiredToken):
				return utils.UnauthorizedResponse(c, "Token has expired")
			case errors.Is(err, utils.ErrMissingToken):
				return utils.UnauthorizedResponse(c, "Missing token")
			default:
				return utils.UnauthorizedResponse(c, "Invalid token")
			}
		}

		utils.SetUserContext(c, userCtx)
		return c.Next()
	}
}

// RequireRole ต้องใช้หลัง Protected
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := utils.GetUserFromContext(c)
		if err != nil {
			return utils.UnauthorizedResponse(c, "User not authenticated")
		}

		if user.Role != role {
			return utils.ForbiddenResponse(c, "Insufficient permissions")
		}

		return c.Next()
	}
}

// AdminOnly ingest/admin endpoints
func AdminOnly() fiber.Handler {
	return RequireRole(models.RoleAdmin)
}
