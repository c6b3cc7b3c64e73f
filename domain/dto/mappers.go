package dto

import (
	"fmt"

	"course-video-service/domain/models"
)

func VideoToVideoResponse(video *models.Video) *VideoResponse {
	if video == nil {
		return nil
	}
	return &VideoResponse{
		VideoID:          video.ID,
		Title:            video.Title,
		Description:      video.Description,
		OriginalFileName: video.OriginalFileName,
		OriginalPath:     video.OriginalPath,
		FileSize:         video.FileSize,
		Duration:         video.Duration,
		Source: SourceInfoResponse{
			Format:    video.SourceFormat,
			Codec:     video.SourceCodec,
			Bitrate:   video.SourceBitrate,
			Width:     video.SourceWidth,
			Height:    video.SourceHeight,
			FrameRate: video.FrameRate,
		},
		Status:             video.Status,
		Renditions:         renditionsToResponse(video.Renditions),
		FailedRenditions:   renditionsToResponse(video.FailedRenditions),
		MasterPlaylistPath: video.MasterPlaylistPath,
		ThumbnailPath:      video.ThumbnailPath,
		ProcessingError:    video.ProcessingError,
		AttemptCount:       video.AttemptCount,
		ProcessedAt:        video.ProcessedAt,
		CreatedAt:          video.CreatedAt,
		UpdatedAt:          video.UpdatedAt,
	}
}

func VideosToVideoResponses(videos []*models.Video) []VideoResponse {
	responses := make([]VideoResponse, 0, len(videos))
	for _, v := range videos {
		responses = append(responses, *VideoToVideoResponse(v))
	}
	return responses
}

func VideoToStatusResponse(video *models.Video) *VideoStatusResponse {
	failed := make([]string, 0, len(video.FailedRenditions))
	for _, r := range video.FailedRenditions {
		failed = append(failed, r.Quality)
	}
	return &VideoStatusResponse{
		VideoID:             video.ID,
		Status:              video.Status,
		CompletedQualities:  video.GetQualities(),
		FailedQualities:     failed,
		RequestedQualities:  video.RequestedQualities,
		ProcessingError:     video.ProcessingError,
		ProcessingStartedAt: video.ProcessingStartedAt,
	}
}

func renditionsToResponse(renditions models.Renditions) []RenditionResponse {
	responses := make([]RenditionResponse, 0, len(renditions))
	for _, r := range renditions {
		resp := RenditionResponse{
			Quality:      r.Quality,
			PlaylistPath: r.PlaylistPath,
			Bandwidth:    r.Bandwidth,
			Error:        r.Error,
		}
		if r.Width > 0 && r.Height > 0 {
			resp.Resolution = fmt.Sprintf("%dx%d", r.Width, r.Height)
		}
		responses = append(responses, resp)
	}
	return responses
}
