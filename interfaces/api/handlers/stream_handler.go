package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"course-video-service/domain/dto"
	"course-video-service/domain/services"
	"course-video-service/pkg/logger"
	"course-video-service/pkg/utils"
)

// StreamHandler ออก stream token หลังผ่าน access check
type StreamHandler struct {
	accessService services.AccessService
	tokenService  services.StreamTokenService
	baseURL       string
	scope         string
}

func NewStreamHandler(
	accessService services.AccessService,
	tokenService services.StreamTokenService,
	baseURL string,
	scope string,
) *StreamHandler {
	return &StreamHandler{
		accessService: accessService,
		tokenService:  tokenService,
		baseURL:       baseURL,
		scope:         scope,
	}
}

// IssueStreamToken POST /api/v1/videos/:videoId/stream-token
func (h *StreamHandler) IssueStreamToken(c *fiber.Ctx) error {
	ctx := c.UserContext()

	caller, err := callerFromContext(c)
	if err != nil {
		return utils.UnauthorizedResponse(c, "")
	}

	videoID, err := parseVideoID(c)
	if err != nil {
		return utils.BadRequestResponse(c, err.Error())
	}

	var req dto.StreamTokenRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	allowed, err := h.accessService.CanStream(ctx, caller, videoID)
	if err != nil {
		return handleServiceError(c, err)
	}
	if !allowed {
		logger.InfoContext(ctx, "Stream token refused", "video_id", videoID, "user_id", caller.UserID)
		return utils.ForbiddenResponse(c, services.ErrForbidden.Error())
	}

	token, err := h.tokenService.GenerateStreamToken(videoID, caller.UserID, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		return handleServiceError(c, err)
	}

	return utils.CreatedResponse(c, dto.StreamTokenResponse{
		VideoID:     videoID,
		Token:       token.Value,
		ExpiresAt:   token.ExpiresAt,
		PlaylistURL: fmt.Sprintf("%s/hls/%s/master.m3u8?token=%s", h.baseURL, videoID, token.Value),
		Scope:       h.scope,
	})
}
