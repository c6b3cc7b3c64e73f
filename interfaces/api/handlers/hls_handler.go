package handlers

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"course-video-service/domain/ports"
	"course-video-service/domain/services"
	"course-video-service/pkg/addressing"
	"course-video-service/pkg/config"
	"course-video-service/pkg/hls"
	"course-video-service/pkg/logger"
)

const streamTokenHeader = "X-Stream-Token"

// HLSHandler เสิร์ฟ playlist และ segment จาก storage
// token ตรวจแบบ local ไม่มี DB query ต่อ request
type HLSHandler struct {
	storage      ports.StoragePort
	tokenService services.StreamTokenService
	scope        string
}

func NewHLSHandler(storage ports.StoragePort, tokenService services.StreamTokenService, scope string) *HLSHandler {
	if scope == "" {
		scope = config.TokenScopeManifest
	}
	return &HLSHandler{
		storage:      storage,
		tokenService: tokenService,
		scope:        scope,
	}
}

// ServeMaster GET /hls/:videoId/master.m3u8?token=
func (h *HLSHandler) ServeMaster(c *fiber.Ctx) error {
	videoID, err := parseVideoID(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).SendString("Not found")
	}

	token, ok := h.checkToken(c, videoID)
	if !ok {
		return nil
	}

	return h.servePlaylist(c, addressing.MasterPlaylistPath(videoID), token)
}

// ServeRenditionFile GET /hls/:videoId/:quality/:file
// file = playlist.m3u8 หรือ segment_NNN.ts
func (h *HLSHandler) ServeRenditionFile(c *fiber.Ctx) error {
	videoID, err := parseVideoID(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).SendString("Not found")
	}

	file := c.Params("file")
	key, err := addressing.RenditionFilePath(videoID, c.Params("quality"), file)
	if err != nil {
		return c.Status(fiber.StatusNotFound).SendString("Not found")
	}

	var token string
	if h.scope == config.TokenScopeAll {
		var ok bool
		if token, ok = h.checkToken(c, videoID); !ok {
			return nil
		}
	}

	if file == addressing.PlaylistName {
		return h.servePlaylist(c, key, token)
	}
	return h.serveSegment(c, key)
}

// checkToken เขียน 401 แล้วคืน ok=false เมื่อ token ใช้ไม่ได้
// header มาก่อน query: URI ใน playlist มี token เดิมติดอยู่ player ต่ออายุผ่าน header
func (h *HLSHandler) checkToken(c *fiber.Ctx, videoID uuid.UUID) (string, bool) {
	token := c.Get(streamTokenHeader)
	if token == "" {
		token = c.Query("token")
	}

	if _, err := h.tokenService.ValidateStreamToken(token, videoID); err != nil {
		logger.DebugContext(c.UserContext(), "Stream token rejected", "video_id", videoID, "error", err)
		_ = c.Status(fiber.StatusUnauthorized).SendString("Invalid or expired stream token")
		return "", false
	}
	return token, true
}

// servePlaylist scope "all" เขียน token ต่อท้ายทุก URI ให้ player ส่งต่อเอง
func (h *HLSHandler) servePlaylist(c *fiber.Ctx, key, token string) error {
	ctx := c.UserContext()

	reader, _, err := h.storage.GetFileContent(ctx, key)
	if err != nil {
		return h.storageError(c, key, err)
	}
	defer reader.Close()

	body, err := io.ReadAll(reader)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read playlist", "path", key, "error", err)
		return c.Status(fiber.StatusBadGateway).SendString("Storage error")
	}

	if h.scope == config.TokenScopeAll && token != "" {
		body = hls.AppendQueryToURIs(body, "token", token)
	}

	c.Set(fiber.HeaderContentType, hls.ContentType)
	// URL ของ playlist มี token อายุสั้น ห้าม cache ร่วม
	c.Set(fiber.HeaderCacheControl, "private, no-cache")
	return c.Send(body)
}

// serveSegment รองรับ Range สำหรับ player ที่ seek ภายใน segment
func (h *HLSHandler) serveSegment(c *fiber.Ctx, key string) error {
	ctx := c.UserContext()

	c.Set(fiber.HeaderContentType, hls.SegmentContentType)
	c.Set(fiber.HeaderAcceptRanges, "bytes")
	if h.scope == config.TokenScopeAll {
		c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	} else {
		c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	}

	rangeHeader := c.Get(fiber.HeaderRange)
	if rangeHeader == "" {
		reader, info, err := h.storage.GetFileContent(ctx, key)
		if err != nil {
			return h.storageError(c, key, err)
		}
		return c.SendStream(reader, int(info.Size))
	}

	start, end, err := parseByteRange(rangeHeader)
	if err != nil {
		return c.Status(fiber.StatusRequestedRangeNotSatisfiable).SendString("Invalid range")
	}

	info, err := h.storage.StatFile(ctx, key)
	if err != nil {
		return h.storageError(c, key, err)
	}
	total := info.Size
	if start >= total {
		c.Set(fiber.HeaderContentRange, "bytes */"+strconv.FormatInt(total, 10))
		return c.Status(fiber.StatusRequestedRangeNotSatisfiable).SendString("Invalid range")
	}
	if end < 0 || end >= total {
		end = total - 1
	}

	reader, _, err := h.storage.GetFileRange(ctx, key, start, end)
	if err != nil {
		return h.storageError(c, key, err)
	}

	length := end - start + 1
	c.Set(fiber.HeaderContentRange, "bytes "+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10)+"/"+strconv.FormatInt(total, 10))
	c.Status(fiber.StatusPartialContent)
	return c.SendStream(reader, int(length))
}

func (h *HLSHandler) storageError(c *fiber.Ctx, key string, err error) error {
	if errors.Is(err, ports.ErrObjectNotFound) {
		return c.Status(fiber.StatusNotFound).SendString("Not found")
	}
	logger.ErrorContext(c.UserContext(), "Failed to read HLS object", "path", key, "error", err)
	return c.Status(fiber.StatusBadGateway).SendString("Storage error")
}

var errInvalidRange = errors.New("invalid range")

// parseByteRange "bytes=100-199" หรือ "bytes=100-" (end = -1) ไม่รองรับ multi-range/suffix range
func parseByteRange(header string) (start, end int64, err error) {
	rangeSpec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok || strings.Contains(rangeSpec, ",") {
		return 0, 0, errInvalidRange
	}

	startStr, endStr, ok := strings.Cut(rangeSpec, "-")
	if !ok || startStr == "" {
		return 0, 0, errInvalidRange
	}

	start, err = strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, errInvalidRange
	}

	if endStr == "" {
		return start, -1, nil
	}
	end, err = strconv.ParseInt(endStr, 10, 64)
	if err != nil || end < start {
		return 0, 0, errInvalidRange
	}
	return start, end, nil
}
