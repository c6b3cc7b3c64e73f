// Package hls builds and rewrites HLS playlists.
package hls

import (
	"bufio"
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"course-video-service/domain/models"
	"course-video-service/pkg/addressing"
)

// ContentType ของ playlist (.m3u8)
const ContentType = "application/vnd.apple.mpegurl"

// SegmentContentType ของ MPEG-TS segment
const SegmentContentType = "video/mp2t"

// BuildMasterPlaylist master playlist ที่อ้างอิง rendition ทุกตัว เรียงตาม bandwidth
// URI เป็น relative ({quality}/playlist.m3u8) เพื่อให้เสิร์ฟผ่าน origin ใดก็ได้
func BuildMasterPlaylist(renditions models.Renditions) ([]byte, error) {
	if len(renditions) == 0 {
		return nil, fmt.Errorf("master playlist needs at least one rendition")
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")

	for _, r := range renditions.SortedByBandwidth() {
		if err := addressing.ValidateQuality(r.Quality); err != nil {
			return nil, err
		}
		if r.Bandwidth <= 0 {
			return nil, fmt.Errorf("rendition %s has no bandwidth", r.Quality)
		}

		b.WriteString(fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d", r.Bandwidth))
		if r.Width > 0 && r.Height > 0 {
			b.WriteString(fmt.Sprintf(",RESOLUTION=%dx%d", r.Width, r.Height))
		}
		b.WriteString(fmt.Sprintf(",NAME=\"%s\"\n", r.Quality))
		b.WriteString(fmt.Sprintf("%s/%s\n", r.Quality, addressing.PlaylistName))
	}

	return []byte(b.String()), nil
}

// AppendQueryToURIs เติม query parameter ให้ทุก URI line ใน playlist (ไม่แตะ tag lines)
// ใช้กับ token scope "all" เพื่อให้ player ส่ง token ต่อไปยัง playlist/segment ถัดไป
func AppendQueryToURIs(playlist []byte, key, value string) []byte {
	param := url.QueryEscape(key) + "=" + url.QueryEscape(value)

	var out bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(playlist))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			sep := "?"
			if strings.Contains(trimmed, "?") {
				sep = "&"
			}
			line = trimmed + sep + param
		}

		out.WriteString(line)
		out.WriteByte('\n')
	}

	return out.Bytes()
}
