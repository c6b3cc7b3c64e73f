package handlers

import (
	"bytes"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"course-video-service/infrastructure/storage"
	"course-video-service/pkg/logger"
	"course-video-service/pkg/utils"
)

// LocalUploadHandler ปลายทางของ presigned URL เมื่อใช้ local storage driver
// (S3/R2 client PUT ตรงเข้า bucket จึงไม่ผ่าน handler นี้)
type LocalUploadHandler struct {
	storage     *storage.LocalStorage
	maxFileSize int64
}

func NewLocalUploadHandler(localStorage *storage.LocalStorage, maxFileSize int64) *LocalUploadHandler {
	return &LocalUploadHandler{
		storage:     localStorage,
		maxFileSize: maxFileSize,
	}
}

// Upload PUT /storage/local/*?expires=...&sig=...
func (h *LocalUploadHandler) Upload(c *fiber.Ctx) error {
	ctx := c.UserContext()
	key := strings.TrimPrefix(c.Params("*"), "/")

	if err := h.storage.VerifyUploadSignature(key, c.Query("expires"), c.Query("sig")); err != nil {
		logger.WarnContext(ctx, "Rejected local upload", "path", key, "error", err)
		if errors.Is(err, storage.ErrUploadURLExpired) {
			return utils.ForbiddenResponse(c, "Upload URL has expired")
		}
		return utils.ForbiddenResponse(c, "Invalid upload signature")
	}

	if h.maxFileSize > 0 && int64(c.Request().Header.ContentLength()) > h.maxFileSize {
		return utils.PayloadTooLargeResponse(c, "File exceeds the maximum upload size")
	}

	contentType := c.Get(fiber.HeaderContentType)

	// มี stream เฉพาะเมื่อ app เปิด StreamRequestBody
	if stream := c.Context().RequestBodyStream(); stream != nil {
		if err := h.storage.UploadFile(ctx, stream, -1, key, contentType); err != nil {
			return h.uploadFailed(c, key, err)
		}
		logger.InfoContext(ctx, "Local upload stored", "path", key)
		return utils.SuccessResponse(c, fiber.Map{"path": key})
	}

	body := bytes.NewReader(c.Body())
	if body.Len() == 0 {
		return utils.BadRequestResponse(c, "Empty upload body")
	}
	if err := h.storage.UploadFile(ctx, body, int64(body.Len()), key, contentType); err != nil {
		return h.uploadFailed(c, key, err)
	}

	logger.InfoContext(ctx, "Local upload stored", "path", key, "size", body.Len())
	return utils.SuccessResponse(c, fiber.Map{"path": key})
}

func (h *LocalUploadHandler) uploadFailed(c *fiber.Ctx, key string, err error) error {
	logger.ErrorContext(c.UserContext(), "Local upload failed", "path", key, "error", err)
	return utils.InternalServerErrorResponse(c)
}
