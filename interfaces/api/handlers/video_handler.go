package handlers

import (
	"github.com/gofiber/fiber/v2"

	"course-video-service/domain/dto"
	"course-video-service/domain/services"
	"course-video-service/pkg/logger"
	"course-video-service/pkg/utils"
)

type VideoHandler struct {
	videoService       services.VideoService
	transcodingService services.TranscodingService
}

func NewVideoHandler(videoService services.VideoService, transcodingService services.TranscodingService) *VideoHandler {
	return &VideoHandler{
		videoService:       videoService,
		transcodingService: transcodingService,
	}
}

// CreateVideo POST /api/v1/videos
func (h *VideoHandler) CreateVideo(c *fiber.Ctx) error {
	ctx := c.UserContext()

	caller, err := callerFromContext(c)
	if err != nil {
		return utils.UnauthorizedResponse(c, "")
	}

	var req dto.CreateVideoRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	video, started, err := h.videoService.CreateVideo(ctx, caller, &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return utils.CreatedResponse(c, dto.CompleteUploadResponse{
		Video:             dto.VideoToVideoResponse(video),
		ProcessingStarted: started,
	})
}

// GetVideo GET /api/v1/videos/:videoId
func (h *VideoHandler) GetVideo(c *fiber.Ctx) error {
	videoID, err := parseVideoID(c)
	if err != nil {
		return utils.BadRequestResponse(c, err.Error())
	}

	video, err := h.videoService.GetByVideoID(c.UserContext(), videoID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return utils.SuccessResponse(c, dto.VideoToVideoResponse(video))
}

// GetVideoStatus GET /api/v1/videos/:videoId/status
// polling endpoint ระหว่าง transcode (completedQualities โตขึ้นทีละ rendition)
func (h *VideoHandler) GetVideoStatus(c *fiber.Ctx) error {
	videoID, err := parseVideoID(c)
	if err != nil {
		return utils.BadRequestResponse(c, err.Error())
	}

	video, err := h.videoService.GetByVideoID(c.UserContext(), videoID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return utils.SuccessResponse(c, dto.VideoToStatusResponse(video))
}

// ListVideos GET /api/v1/videos?search=&status=&page=&limit=
func (h *VideoHandler) ListVideos(c *fiber.Ctx) error {
	var params dto.VideoFilterRequest
	if err := c.QueryParser(&params); err != nil {
		return utils.BadRequestResponse(c, "Invalid query parameters")
	}
	if err := utils.ValidateStruct(&params); err != nil {
		return utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
	}

	videos, total, err := h.videoService.ListWithFilters(c.UserContext(), &params)
	if err != nil {
		return handleServiceError(c, err)
	}

	page, limit := dto.NormalizePage(params.Page, params.Limit)
	return utils.PaginatedSuccessResponse(c, dto.VideosToVideoResponses(videos), total, page, limit)
}

// UpdateVideo PATCH /api/v1/videos/:videoId
func (h *VideoHandler) UpdateVideo(c *fiber.Ctx) error {
	videoID, err := parseVideoID(c)
	if err != nil {
		return utils.BadRequestResponse(c, err.Error())
	}

	var req dto.UpdateVideoRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	video, err := h.videoService.UpdateVideo(c.UserContext(), videoID, &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return utils.SuccessResponse(c, dto.VideoToVideoResponse(video))
}

// DeleteVideo DELETE /api/v1/videos/:videoId
func (h *VideoHandler) DeleteVideo(c *fiber.Ctx) error {
	ctx := c.UserContext()

	videoID, err := parseVideoID(c)
	if err != nil {
		return utils.BadRequestResponse(c, err.Error())
	}

	if err := h.videoService.DeleteVideo(ctx, videoID); err != nil {
		return handleServiceError(c, err)
	}

	logger.InfoContext(ctx, "Video deleted", "video_id", videoID)
	return utils.NoContentResponse(c)
}

// ProcessVideo POST /api/v1/videos/:videoId/process
// ตอบ 202 ทันทีหลัง enqueue ไม่รอ encode
func (h *VideoHandler) ProcessVideo(c *fiber.Ctx) error {
	ctx := c.UserContext()

	videoID, err := parseVideoID(c)
	if err != nil {
		return utils.BadRequestResponse(c, err.Error())
	}

	var req dto.ProcessVideoRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	err = h.transcodingService.TriggerProcessing(ctx, videoID, services.ProcessingOptions{
		Qualities:         req.Qualities,
		SegmentDuration:   req.SegmentDuration,
		GenerateThumbnail: req.GenerateThumbnail,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return utils.AcceptedResponse(c, fiber.Map{
		"videoId": videoID,
		"status":  "processing",
	})
}
