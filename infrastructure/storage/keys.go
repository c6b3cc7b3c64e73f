package storage

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"

	"course-video-service/pkg/hls"
)

// ErrEmptyPrefix ป้องกันการลบทั้ง bucket
var ErrEmptyPrefix = errors.New("refusing to delete with an empty prefix")

// normalizeKey object key ใช้ "/" เสมอและไม่ขึ้นต้นด้วย "/"
func normalizeKey(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.TrimPrefix(path, "/")
}

// folderPrefix prefix ต้องลงท้ายด้วย "/" เพื่อไม่ให้ลบ video อื่นที่ชื่อขึ้นต้นเหมือนกัน
func folderPrefix(prefix string) (string, error) {
	prefix = strings.Trim(normalizeKey(prefix), "/")
	if prefix == "" {
		return "", ErrEmptyPrefix
	}
	return prefix + "/", nil
}

// contentTypeByExt เดา content type จากนามสกุล
func contentTypeByExt(path string) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".m3u8":
		return hls.ContentType
	case ".ts":
		return hls.SegmentContentType
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
		return "application/octet-stream"
	}
}
