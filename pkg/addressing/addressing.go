// Package addressing derives every storage path of a video from its videoId.
// No other package builds object keys by hand.
package addressing

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	rootPrefix         = "videos"
	originalDir        = "original"
	hlsDir             = "hls"
	MasterPlaylistName = "master.m3u8"
	PlaylistName       = "playlist.m3u8"
	ThumbnailName      = "thumbnail.jpg"
	SegmentPattern     = "segment_%03d.ts"
)

var (
	ErrInvalidExtension = errors.New("file name has no usable extension")
	ErrInvalidQuality   = errors.New("invalid quality label")
	ErrInvalidSegment   = errors.New("invalid segment name")
	ErrNilVideoID       = errors.New("video id is empty")

	qualityPattern = regexp.MustCompile(`^[0-9]{3,4}p$`)
	segmentPattern = regexp.MustCompile(`^segment_[0-9]{3,5}\.ts$`)
	extPattern     = regexp.MustCompile(`^[a-z0-9]{1,10}$`)
)

// GenerateVideoID สร้าง videoId แบบสุ่ม (UUID v4) ไม่ผูกกับชื่อไฟล์หรือ input ใดๆ
func GenerateVideoID() uuid.UUID {
	return uuid.New()
}

// SanitizeExtension ดึง extension จากชื่อไฟล์ต้นฉบับ แปลงเป็นตัวเล็กและตัดอักขระแปลกปลอม
// "../../My Clip.MP4" -> "mp4"
func SanitizeExtension(originalFileName string) (string, error) {
	name := strings.ReplaceAll(strings.TrimSpace(originalFileName), "\\", "/")
	base := path.Base(name)
	ext := strings.TrimPrefix(path.Ext(base), ".")
	if ext == "" {
		return "", ErrInvalidExtension
	}

	ext = strings.ReplaceAll(slug.Make(ext), "-", "")
	if !extPattern.MatchString(ext) {
		return "", ErrInvalidExtension
	}
	return ext, nil
}

// GenerateUniqueFileName รวม videoId กับ extension ที่ sanitize แล้ว
func GenerateUniqueFileName(videoID uuid.UUID, originalFileName string) (string, error) {
	if videoID == uuid.Nil {
		return "", ErrNilVideoID
	}
	ext, err := SanitizeExtension(originalFileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s", videoID.String(), ext), nil
}

// VideoPrefix โฟลเดอร์ของ video หนึ่งตัว (ใช้ตอนลบทั้งหมด)
func VideoPrefix(videoID uuid.UUID) string {
	return path.Join(rootPrefix, videoID.String())
}

// GetVideoStoragePath path ของไฟล์ภายใต้โฟลเดอร์ของ video
func GetVideoStoragePath(videoID uuid.UUID, fileName string) string {
	return path.Join(VideoPrefix(videoID), fileName)
}

// OriginalPath path ของไฟล์ต้นฉบับ: videos/{id}/original/{id}.{ext}
func OriginalPath(videoID uuid.UUID, originalFileName string) (string, error) {
	fileName, err := GenerateUniqueFileName(videoID, originalFileName)
	if err != nil {
		return "", err
	}
	return GetVideoStoragePath(videoID, path.Join(originalDir, fileName)), nil
}

// HLSPrefix โฟลเดอร์ HLS output: videos/{id}/hls
func HLSPrefix(videoID uuid.UUID) string {
	return GetVideoStoragePath(videoID, hlsDir)
}

// MasterPlaylistPath videos/{id}/hls/master.m3u8
func MasterPlaylistPath(videoID uuid.UUID) string {
	return path.Join(HLSPrefix(videoID), MasterPlaylistName)
}

// RenditionPrefix videos/{id}/hls/{quality}
func RenditionPrefix(videoID uuid.UUID, quality string) (string, error) {
	if err := ValidateQuality(quality); err != nil {
		return "", err
	}
	return path.Join(HLSPrefix(videoID), quality), nil
}

// RenditionPlaylistPath videos/{id}/hls/{quality}/playlist.m3u8
func RenditionPlaylistPath(videoID uuid.UUID, quality string) (string, error) {
	prefix, err := RenditionPrefix(videoID, quality)
	if err != nil {
		return "", err
	}
	return path.Join(prefix, PlaylistName), nil
}

// RenditionFilePath path ของ playlist หรือ segment ภายใน rendition
func RenditionFilePath(videoID uuid.UUID, quality, fileName string) (string, error) {
	prefix, err := RenditionPrefix(videoID, quality)
	if err != nil {
		return "", err
	}
	if fileName != PlaylistName && !segmentPattern.MatchString(fileName) {
		return "", ErrInvalidSegment
	}
	return path.Join(prefix, fileName), nil
}

// ThumbnailPath videos/{id}/thumbnail.jpg
func ThumbnailPath(videoID uuid.UUID) string {
	return GetVideoStoragePath(videoID, ThumbnailName)
}

// ValidateQuality quality label ต้องเป็นรูปแบบ 360p, 1080p
func ValidateQuality(quality string) error {
	if !qualityPattern.MatchString(quality) {
		return fmt.Errorf("%w: %q", ErrInvalidQuality, quality)
	}
	return nil
}

// IsSegmentName ตรวจสอบชื่อ segment
func IsSegmentName(name string) bool {
	return segmentPattern.MatchString(name)
}
