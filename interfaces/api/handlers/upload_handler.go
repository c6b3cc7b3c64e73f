package handlers

import (
	"github.com/gofiber/fiber/v2"

	"course-video-service/domain/dto"
	"course-video-service/domain/services"
	"course-video-service/pkg/logger"
	"course-video-service/pkg/utils"
)

// UploadHandler presigned URL upload: frontend PUT ไฟล์ตรงเข้า storage ไม่ผ่าน API
type UploadHandler struct {
	uploadService services.UploadService
}

func NewUploadHandler(uploadService services.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// RequestUploadURL POST /api/v1/uploads
func (h *UploadHandler) RequestUploadURL(c *fiber.Ctx) error {
	ctx := c.UserContext()

	caller, err := callerFromContext(c)
	if err != nil {
		return utils.UnauthorizedResponse(c, "")
	}

	var req dto.RequestUploadURLRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	resp, err := h.uploadService.RequestUploadURL(ctx, caller, &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return utils.CreatedResponse(c, resp)
}

// CompleteUpload POST /api/v1/uploads/:videoId/complete
func (h *UploadHandler) CompleteUpload(c *fiber.Ctx) error {
	ctx := c.UserContext()

	caller, err := callerFromContext(c)
	if err != nil {
		return utils.UnauthorizedResponse(c, "")
	}

	videoID, err := parseVideoID(c)
	if err != nil {
		return utils.BadRequestResponse(c, err.Error())
	}

	var req dto.CompleteUploadRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	resp, err := h.uploadService.CompleteUpload(ctx, caller, videoID, &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	logger.InfoContext(ctx, "Upload completed",
		"video_id", videoID,
		"processing_started", resp.ProcessingStarted,
	)

	return utils.CreatedResponse(c, resp)
}

// AbortUpload DELETE /api/v1/uploads/:videoId
func (h *UploadHandler) AbortUpload(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return utils.UnauthorizedResponse(c, "")
	}

	videoID, err := parseVideoID(c)
	if err != nil {
		return utils.BadRequestResponse(c, err.Error())
	}

	if err := h.uploadService.AbortUpload(c.UserContext(), caller, videoID); err != nil {
		return handleServiceError(c, err)
	}

	return utils.NoContentResponse(c)
}

// GetUploadLimits GET /api/v1/uploads/limits
func (h *UploadHandler) GetUploadLimits(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, h.uploadService.GetUploadLimits())
}
