package adapters

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegFrameExtractor seeks to a millisecond offset inside an H.265 file
// and emits a single WebP-encoded frame on stdout (spec.md section 4.A).
type FFmpegFrameExtractor struct {
	Binary string // default "ffmpeg"
}

func NewFFmpegFrameExtractor() *FFmpegFrameExtractor { return &FFmpegFrameExtractor{Binary: "ffmpeg"} }

var _ FrameExtractor = (*FFmpegFrameExtractor)(nil)

func (e *FFmpegFrameExtractor) ExtractFrame(ctx context.Context, segmentPath string, offsetMs int64) ([]byte, error) {
	binary := e.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	ctx, cancel := context.WithTimeout(ctx, FrameExtractTimeout)
	defer cancel()

	seconds := float64(offsetMs) / 1000.0
	args := []string{
		"-ss", strconv.FormatFloat(seconds, 'f', -1, 64),
		"-i", segmentPath,
		"-frames:v", "1",
		"-c:v", "libwebp",
		"-f", "webp",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("adapters: ffmpeg frame extract failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("adapters: ffmpeg frame extract produced no data")
	}

	return stdout.Bytes(), nil
}
