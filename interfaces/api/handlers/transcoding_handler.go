package handlers

import (
	"github.com/gofiber/fiber/v2"

	"course-video-service/domain/services"
	"course-video-service/pkg/utils"
)

type TranscodingHandler struct {
	transcodingService services.TranscodingService
}

func NewTranscodingHandler(transcodingService services.TranscodingService) *TranscodingHandler {
	return &TranscodingHandler{transcodingService: transcodingService}
}

// GetStats GET /api/v1/transcoding/stats
func (h *TranscodingHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.transcodingService.GetStats(c.UserContext())
	if err != nil {
		return handleServiceError(c, err)
	}
	return utils.SuccessResponse(c, stats)
}
