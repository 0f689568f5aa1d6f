package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/streamhive/live-backend/internal/models"
	"github.com/streamhive/live-backend/internal/transcode"
)

// transcoder shells out to ffmpeg/ffprobe. One process per invocation; the
// context kills the process on cancellation.
type transcoder struct {
	outputDir string
}

func NewTranscoder(outputDir string) transcode.Transcoder {
	if outputDir == "" {
		outputDir = os.TempDir()
	}
	return &transcoder{outputDir: outputDir}
}

func (t *transcoder) Transcode(ctx context.Context, inputPath string, profile models.QualityProfile) (*transcode.TranscodeResult, error) {
	if err := os.MkdirAll(t.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(t.outputDir, fmt.Sprintf("%s_%s.mp4", base, profile.Name))

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", inputPath,
		"-vf", fmt.Sprintf("scale=%d:%d", profile.Width, profile.Height),
		"-c:v", "libx264",
		"-b:v", fmt.Sprintf("%dk", profile.Bitrate),
		"-maxrate", fmt.Sprintf("%dk", profile.Bitrate*3/2),
		"-bufsize", fmt.Sprintf("%dk", profile.Bitrate*2),
		"-preset", "veryfast",
		"-movflags", "+faststart",
		"-c:a", "aac",
		"-b:a", "128k",
		"-y", outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed for %s: %v, stderr: %s", profile.Name, err, stderr.String())
	}

	stat, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("output missing after encode: %w", err)
	}
	return &transcode.TranscodeResult{
		OutputPath: outputPath,
		Size:       stat.Size(),
	}, nil
}

func (t *transcoder) GenerateThumbnail(ctx context.Context, inputPath string) (string, error) {
	if err := os.MkdirAll(t.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(t.outputDir, base+"_thumb.jpg")

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", "00:00:01",
		"-i", inputPath,
		"-vframes", "1",
		"-vf", "scale=640:-1",
		"-y", outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("thumbnail generation failed: %v, stderr: %s", err, stderr.String())
	}
	return outputPath, nil
}

func (t *transcoder) Probe(ctx context.Context, inputPath string) (*models.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,codec_name,avg_frame_rate,bit_rate",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		inputPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffprobe error: %v output: %s", err, string(output))
	}

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) == 0 {
		return nil, fmt.Errorf("unexpected ffprobe output: %s", string(output))
	}
	parts := strings.Split(strings.TrimRight(lines[0], ","), ",")
	if len(parts) < 4 {
		return nil, fmt.Errorf("unexpected ffprobe output: %s", lines[0])
	}

	info := &models.MediaInfo{}
	info.Codec = parts[0]
	if info.Width, err = strconv.Atoi(parts[1]); err != nil {
		return nil, fmt.Errorf("invalid width: %v", err)
	}
	if info.Height, err = strconv.Atoi(parts[2]); err != nil {
		return nil, fmt.Errorf("invalid height: %v", err)
	}
	info.FPS = parseFrameRate(parts[3])
	if len(parts) > 4 {
		if bitrate, err := strconv.Atoi(parts[4]); err == nil {
			info.Bitrate = bitrate / 1000
		}
	}
	if len(lines) > 1 {
		if duration, err := strconv.ParseFloat(strings.TrimRight(strings.TrimSpace(lines[1]), ","), 64); err == nil {
			info.Duration = duration
		}
	}
	return info, nil
}

// parseFrameRate handles ffprobe's "30000/1001" rational form.
func parseFrameRate(raw string) float64 {
	if num, den, found := strings.Cut(raw, "/"); found {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 == nil && err2 == nil && d != 0 {
			return n / d
		}
		return 0
	}
	fps, _ := strconv.ParseFloat(raw, 64)
	return fps
}
