package ports

import (
	"context"
	"fmt"
	"sort"
)

// =====================================================
// Video Codec Configuration
// =====================================================

// VideoCodecConfig การตั้งค่า codec สำหรับ transcoding
type VideoCodecConfig struct {
	Encoder     string   // ffmpeg encoder name (libx264, h264_nvenc)
	Profile     string   // encoding profile (high, main)
	Level       string   // encoding level (4.1)
	PixelFormat string   // pixel format (yuv420p)
	Preset      string   // veryfast, medium, p4
	ExtraArgs   []string // additional ffmpeg arguments
}

var (
	// H264Config - Default สำหรับ compatibility กับทุก browser
	H264Config = VideoCodecConfig{
		Encoder:     "libx264",
		Profile:     "high",
		Level:       "4.1",
		PixelFormat: "yuv420p",
		Preset:      "veryfast",
	}

	// H264NVENCConfig ใช้ GPU encoder (ต้องมี NVIDIA driver)
	H264NVENCConfig = VideoCodecConfig{
		Encoder:     "h264_nvenc",
		Profile:     "high",
		Level:       "4.1",
		PixelFormat: "yuv420p",
		Preset:      "p4",
		ExtraArgs:   []string{"-rc", "vbr"},
	}
)

// QualityProfile การตั้งค่า quality สำหรับ Adaptive Bitrate
type QualityProfile struct {
	Name     string // 1080p, 720p, 480p, 360p
	Width    int    // output width
	Height   int    // output height
	VideoBPS int    // video bitrate (bps)
	AudioBPS int    // audio bitrate (bps)
	CRF      int    // constant rate factor
}

// Bandwidth ค่า BANDWIDTH ใน master playlist
func (q QualityProfile) Bandwidth() int {
	return q.VideoBPS + q.AudioBPS
}

// Resolution "1280x720"
func (q QualityProfile) Resolution() string {
	return fmt.Sprintf("%dx%d", q.Width, q.Height)
}

// DefaultQualityProfiles profiles มาตรฐาน
var DefaultQualityProfiles = []QualityProfile{
	{Name: "1080p", Width: 1920, Height: 1080, VideoBPS: 5000000, AudioBPS: 192000, CRF: 23},
	{Name: "720p", Width: 1280, Height: 720, VideoBPS: 2500000, AudioBPS: 128000, CRF: 23},
	{Name: "480p", Width: 854, Height: 480, VideoBPS: 1000000, AudioBPS: 96000, CRF: 25},
	{Name: "360p", Width: 640, Height: 360, VideoBPS: 600000, AudioBPS: 96000, CRF: 26},
	{Name: "240p", Width: 426, Height: 240, VideoBPS: 300000, AudioBPS: 64000, CRF: 28},
}

// LookupQualityProfile หา profile ตามชื่อ
func LookupQualityProfile(name string) (QualityProfile, bool) {
	for _, p := range DefaultQualityProfiles {
		if p.Name == name {
			return p, true
		}
	}
	return QualityProfile{}, false
}

// ResolveQualityProfiles แปลงรายชื่อ quality เป็น profiles เรียงจากต่ำไปสูง (ตัดตัวซ้ำ)
func ResolveQualityProfiles(names []string) ([]QualityProfile, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no qualities requested")
	}

	seen := make(map[string]bool, len(names))
	profiles := make([]QualityProfile, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		p, ok := LookupQualityProfile(name)
		if !ok {
			return nil, fmt.Errorf("unsupported quality %q", name)
		}
		seen[name] = true
		profiles = append(profiles, p)
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Height < profiles[j].Height })
	return profiles, nil
}

// =====================================================
// Transcode Options & Results
// =====================================================

// ProgressCallback callback function for progress updates
type ProgressCallback func(percent int)

// RenditionOptions ตัวเลือกในการ encode หนึ่ง quality
type RenditionOptions struct {
	InputPath   string         // path to original video (local)
	OutputDir   string         // directory ของ quality นี้ (playlist.m3u8 + segments)
	Profile     QualityProfile // ความละเอียด/bitrate
	SegmentTime int            // HLS segment duration (วินาที)
	Source      *VideoInfo     // ข้อมูลต้นฉบับ (ใช้คำนวณ GOP และ progress)
	OnProgress  ProgressCallback
}

// RenditionResult ผลลัพธ์จากการ encode หนึ่ง quality
type RenditionResult struct {
	PlaylistFile string   // local path ของ playlist.m3u8
	Files        []string // local path ของทุกไฟล์ที่ต้อง upload (playlist + segments)
	Segments     int
}

// TranscoderPort interface สำหรับ transcoding (Port/Adapter pattern)
type TranscoderPort interface {
	// GetVideoInfo ดึงข้อมูลวิดีโอ (duration, resolution, etc.)
	GetVideoInfo(ctx context.Context, inputPath string) (*VideoInfo, error)

	// TranscodeRendition encode ต้นฉบับเป็น HLS หนึ่ง quality
	TranscodeRendition(ctx context.Context, opts *RenditionOptions) (*RenditionResult, error)

	// GenerateThumbnail สร้าง thumbnail จากวิดีโอ
	GenerateThumbnail(ctx context.Context, inputPath, outputPath string, atSecond float64) error

	// IsAvailable ตรวจสอบว่า transcoder พร้อมใช้งาน
	IsAvailable() bool
}

// VideoInfo ข้อมูลของวิดีโอ
type VideoInfo struct {
	Duration   float64 // duration in seconds
	Width      int     // video width
	Height     int     // video height
	Bitrate    int64   // bitrate in bps
	Codec      string  // video codec name
	Format     string  // container format (จาก ffprobe format_name)
	FrameRate  float64
	AudioCodec string
	HasAudio   bool
}

// GetQualityLabel แปลง resolution เป็น quality label
func (v *VideoInfo) GetQualityLabel() string {
	switch {
	case v.Height >= 2160:
		return "4K"
	case v.Height >= 1440:
		return "1440p"
	case v.Height >= 1080:
		return "1080p"
	case v.Height >= 720:
		return "720p"
	case v.Height >= 480:
		return "480p"
	case v.Height >= 360:
		return "360p"
	default:
		return "SD"
	}
}
