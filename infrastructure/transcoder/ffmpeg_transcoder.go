package transcoder

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"course-video-service/domain/ports"
	"course-video-service/pkg/addressing"
	"course-video-service/pkg/logger"
)

// stderrTailSize เก็บ stderr ท้ายสุดไว้แนบกับ error
const stderrTailSize = 4096

var ErrNoVideoStream = errors.New("input has no video stream")

type FFmpegConfig struct {
	FFmpegPath         string
	FFprobePath        string
	UseHardwareEncoder bool // h264_nvenc แทน libx264
}

type FFmpegTranscoder struct {
	ffmpegPath  string
	ffprobePath string
	codec       ports.VideoCodecConfig
}

func NewFFmpegTranscoder(config FFmpegConfig) (*FFmpegTranscoder, error) {
	ffmpegPath := config.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	ffprobePath := config.FFprobePath
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	codec := ports.H264Config
	if config.UseHardwareEncoder {
		codec = ports.H264NVENCConfig
	}

	t := &FFmpegTranscoder{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		codec:       codec,
	}

	if !t.IsAvailable() {
		return nil, fmt.Errorf("ffmpeg not available at path: %s", ffmpegPath)
	}

	logger.Info("FFmpeg transcoder initialized", "ffmpeg", ffmpegPath, "encoder", codec.Encoder)
	return t, nil
}

// IsAvailable ตรวจสอบว่า ffmpeg พร้อมใช้งาน
func (t *FFmpegTranscoder) IsAvailable() bool {
	return exec.Command(t.ffmpegPath, "-version").Run() == nil
}

// GetVideoInfo ดึงข้อมูลวิดีโอด้วย ffprobe
func (t *FFmpegTranscoder) GetVideoInfo(ctx context.Context, inputPath string) (*ports.VideoInfo, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}

	output, err := exec.CommandContext(ctx, t.ffprobePath, args...).Output()
	if err != nil {
		logger.ErrorContext(ctx, "ffprobe failed", "error", err, "path", inputPath)
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseProbeOutput(output)
}

func parseProbeOutput(output []byte) (*ports.VideoInfo, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &ports.VideoInfo{}
	if probe.Format.Duration != "" {
		info.Duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	}
	if probe.Format.BitRate != "" {
		info.Bitrate, _ = strconv.ParseInt(probe.Format.BitRate, 10, 64)
	}
	if name, _, _ := strings.Cut(probe.Format.FormatName, ","); name != "" {
		info.Format = name
	}

	hasVideo := false
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			// ใช้ video stream แรก (stream ถัดไปมักเป็น cover art)
			if hasVideo {
				continue
			}
			hasVideo = true
			info.Width = stream.Width
			info.Height = stream.Height
			info.Codec = stream.CodecName
			info.FrameRate = parseFrameRate(stream.RFrameRate)
			if info.Duration == 0 && stream.Duration != "" {
				info.Duration, _ = strconv.ParseFloat(stream.Duration, 64)
			}
		case "audio":
			if !info.HasAudio {
				info.HasAudio = true
				info.AudioCodec = stream.CodecName
			}
		}
	}

	if !hasVideo {
		return nil, ErrNoVideoStream
	}
	return info, nil
}

// TranscodeRendition encode หนึ่ง quality เป็น HLS VOD (playlist.m3u8 + segment_NNN.ts)
func (t *FFmpegTranscoder) TranscodeRendition(ctx context.Context, opts *ports.RenditionOptions) (*ports.RenditionResult, error) {
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	args := buildRenditionArgs(opts, t.codec)

	logger.InfoContext(ctx, "Transcoding quality",
		"quality", opts.Profile.Name,
		"encoder", t.codec.Encoder,
		"segment_time", opts.SegmentTime,
	)
	logger.DebugContext(ctx, "Executing ffmpeg", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	stderr := &tailBuffer{limit: stderrTailSize}
	cmd.Stderr = stderr

	duration := 0.0
	if opts.Source != nil {
		duration = opts.Source.Duration
	}

	if err := t.runWithProgress(ctx, cmd, duration, opts.OnProgress); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg failed for quality %s: %w: %s", opts.Profile.Name, err, stderr.String())
	}

	return collectRenditionFiles(opts.OutputDir)
}

// buildRenditionArgs สร้าง arguments ของ ffmpeg สำหรับหนึ่ง rendition
func buildRenditionArgs(opts *ports.RenditionOptions, codec ports.VideoCodecConfig) []string {
	q := opts.Profile

	segmentTime := opts.SegmentTime
	if segmentTime <= 0 {
		segmentTime = 6
	}

	pixelFormat := codec.PixelFormat
	if pixelFormat == "" {
		pixelFormat = "yuv420p"
	}

	args := []string{
		"-hide_banner",
		"-y",
		"-i", opts.InputPath,
		// -2 รักษา aspect ratio และให้ width เป็นเลขคู่
		"-vf", fmt.Sprintf("scale=-2:%d", q.Height),
		"-c:v", codec.Encoder,
		"-pix_fmt", pixelFormat,
	}
	if codec.Preset != "" {
		args = append(args, "-preset", codec.Preset)
	}
	if codec.Profile != "" {
		args = append(args, "-profile:v", codec.Profile)
	}
	if codec.Level != "" {
		args = append(args, "-level", codec.Level)
	}

	// libx264 ใช้ capped CRF, encoder อื่นใช้ target bitrate
	if codec.Encoder == "libx264" && q.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(q.CRF))
	} else {
		args = append(args, "-b:v", strconv.Itoa(q.VideoBPS))
	}
	args = append(args,
		"-maxrate", strconv.Itoa(int(float64(q.VideoBPS)*1.5)),
		"-bufsize", strconv.Itoa(q.VideoBPS*2),
	)

	// keyframe ตรงกับขอบ segment ทุก segment
	if opts.Source != nil && opts.Source.FrameRate > 0 {
		gop := int(math.Round(float64(segmentTime) * opts.Source.FrameRate))
		args = append(args, "-g", strconv.Itoa(gop), "-keyint_min", strconv.Itoa(gop))
		if codec.Encoder == "libx264" {
			args = append(args, "-sc_threshold", "0")
		}
	}

	args = append(args, codec.ExtraArgs...)

	if opts.Source == nil || opts.Source.HasAudio {
		args = append(args,
			"-c:a", "aac",
			"-b:a", strconv.Itoa(q.AudioBPS),
			"-ac", "2",
		)
	} else {
		args = append(args, "-an")
	}

	args = append(args,
		"-f", "hls",
		"-hls_time", strconv.Itoa(segmentTime),
		"-hls_list_size", "0",
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(opts.OutputDir, addressing.SegmentPattern),
	)

	if opts.OnProgress != nil {
		args = append(args, "-progress", "pipe:1", "-nostats")
	}

	return append(args, filepath.Join(opts.OutputDir, addressing.PlaylistName))
}

// collectRenditionFiles playlist ก่อน ตามด้วย segments เรียงตามชื่อ
func collectRenditionFiles(outputDir string) (*ports.RenditionResult, error) {
	playlist := filepath.Join(outputDir, addressing.PlaylistName)
	if _, err := os.Stat(playlist); err != nil {
		return nil, fmt.Errorf("ffmpeg produced no playlist: %w", err)
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		if !entry.IsDir() && addressing.IsSegmentName(entry.Name()) {
			segments = append(segments, filepath.Join(outputDir, entry.Name()))
		}
	}
	if len(segments) == 0 {
		return nil, errors.New("ffmpeg produced no segments")
	}
	sort.Strings(segments)

	return &ports.RenditionResult{
		PlaylistFile: playlist,
		Files:        append([]string{playlist}, segments...),
		Segments:     len(segments),
	}, nil
}

// GenerateThumbnail สร้าง thumbnail หนึ่งเฟรมที่วินาที atSecond
func (t *FFmpegTranscoder) GenerateThumbnail(ctx context.Context, inputPath, outputPath string, atSecond float64) error {
	if atSecond < 0 {
		atSecond = 0
	}

	args := []string{
		"-hide_banner",
		"-ss", strconv.FormatFloat(atSecond, 'f', 3, 64),
		"-i", inputPath,
		"-frames:v", "1",
		"-vf", "scale=640:-2",
		"-q:v", "2",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	stderr := &tailBuffer{limit: stderrTailSize}
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to generate thumbnail: %w: %s", err, stderr.String())
	}
	return nil
}

// runWithProgress ffmpeg -progress pipe:1 ส่ง out_time_us=<microseconds>
func (t *FFmpegTranscoder) runWithProgress(ctx context.Context, cmd *exec.Cmd, totalDuration float64, onProgress ports.ProgressCallback) error {
	if onProgress == nil {
		return cmd.Run()
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		parseProgress(stdout, totalDuration, onProgress)
	}()

	// ต้องอ่าน pipe ให้หมดก่อน Wait
	<-done
	return cmd.Wait()
}

// parseProgress อ่าน progress output และเรียก callback เมื่อเปอร์เซ็นต์เปลี่ยน
func parseProgress(reader io.Reader, totalDuration float64, onProgress ports.ProgressCallback) {
	scanner := bufio.NewScanner(reader)
	lastPercent := -1

	for scanner.Scan() {
		value, ok := strings.CutPrefix(scanner.Text(), "out_time_us=")
		if !ok || totalDuration <= 0 {
			continue
		}
		timeUs, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}

		percent := int(float64(timeUs) / 1e6 * 100 / totalDuration)
		percent = max(0, min(percent, 100))
		if percent != lastPercent {
			lastPercent = percent
			onProgress(percent)
		}
	}
}

// parseFrameRate แปลง "30000/1001" เป็น float
func parseFrameRate(rate string) float64 {
	num, den, ok := strings.Cut(rate, "/")
	if !ok {
		f, err := strconv.ParseFloat(rate, 64)
		if err != nil {
			return 0
		}
		return f
	}

	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	Duration   string `json:"duration"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
}

// tailBuffer io.Writer ที่เก็บเฉพาะ limit bytes สุดท้าย
type tailBuffer struct {
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return strings.TrimSpace(string(b.buf))
}

var _ ports.TranscoderPort = (*FFmpegTranscoder)(nil)
