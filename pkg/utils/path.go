package utils

import (
	"errors"
	"path"
	"regexp"
	"strings"
)

var (
	ErrUnsafePath       = errors.New("unsafe path detected")
	ErrPathTooLong      = errors.New("path is too long")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrInvalidCharacter = errors.New("path contains invalid characters")
)

const MaxPathLength = 500

var (
	dangerousChars = regexp.MustCompile(`[<>:"|?*\\\x00-\x1f\x7f]`)
	repeatedSlash  = regexp.MustCompile(`/+`)
)

// ValidateAndSanitizePath ตรวจ object key ที่มาจาก URL ก่อนแปลงเป็น path บน disk
// ไม่รับ "..", absolute path และอักขระควบคุม
func ValidateAndSanitizePath(objectKey string) (string, error) {
	objectKey = strings.TrimSpace(objectKey)
	if objectKey == "" {
		return "", ErrEmptyPath
	}
	if len(objectKey) > MaxPathLength {
		return "", ErrPathTooLong
	}
	if dangerousChars.MatchString(objectKey) {
		return "", ErrInvalidCharacter
	}
	if strings.HasPrefix(objectKey, "/") {
		return "", ErrUnsafePath
	}

	for _, part := range strings.Split(objectKey, "/") {
		if part == ".." || part == "." {
			return "", ErrUnsafePath
		}
	}

	cleaned := strings.Trim(repeatedSlash.ReplaceAllString(objectKey, "/"), "/")
	if cleaned == "" || path.Clean(cleaned) != cleaned {
		return "", ErrUnsafePath
	}

	return cleaned, nil
}
