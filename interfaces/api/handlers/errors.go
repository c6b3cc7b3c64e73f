package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"course-video-service/domain/models"
	"course-video-service/domain/repositories"
	"course-video-service/domain/services"
	"course-video-service/pkg/logger"
	"course-video-service/pkg/utils"
)

// handleServiceError แปลง domain error เป็น HTTP response
func handleServiceError(c *fiber.Ctx, err error) error {
	ctx := c.UserContext()

	var ve *services.ValidationError
	var ee *services.ExternalServiceError

	switch {
	case errors.As(err, &ve):
		return utils.ValidationErrorResponse(c, []utils.FieldError{{Field: ve.Field, Message: ve.Message}})
	case errors.Is(err, services.ErrForbidden):
		return utils.ForbiddenResponse(c, err.Error())
	case errors.Is(err, services.ErrVideoNotFound),
		errors.Is(err, services.ErrUploadSessionNotFound),
		errors.Is(err, services.ErrUploadSessionExpired),
		errors.Is(err, repositories.ErrNotFound):
		return utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, services.ErrAlreadyProcessing),
		errors.Is(err, services.ErrVideoNotReady),
		errors.Is(err, services.ErrUploadNotReceived),
		errors.Is(err, models.ErrInvalidTransition):
		return utils.ConflictResponse(c, err.Error())
	case errors.As(err, &ee):
		logger.WarnContext(ctx, "External service unavailable", "service", ee.Service, "error", ee.Err)
		return utils.ServiceUnavailableResponse(c, ee.Service+" is temporarily unavailable")
	}

	logger.ErrorContext(ctx, "Unhandled service error", "error", err, "path", c.Path())
	return utils.InternalServerErrorResponse(c)
}

// parseVideoID อ่าน :videoId จาก path
func parseVideoID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("videoId"))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errors.New("invalid video id")
	}
	return id, nil
}

// callerFromContext user ที่ auth middleware ตรวจแล้ว
func callerFromContext(c *fiber.Ctx) (services.Caller, error) {
	user, err := utils.GetUserFromContext(c)
	if err != nil {
		return services.Caller{}, err
	}
	return services.Caller{UserID: user.ID, Role: user.Role}, nil
}

// bindAndValidate parse JSON body แล้ว validate (body ว่างได้ถ้า struct ไม่มี required)
// ok = false แปลว่าเขียน error response ไปแล้ว ให้ handler return err ทันที
func bindAndValidate(c *fiber.Ctx, req interface{}) (ok bool, err error) {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return false, utils.BadRequestResponse(c, "Invalid request body")
		}
	}
	if err := utils.ValidateStruct(req); err != nil {
		return false, utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
	}
	return true, nil
}
