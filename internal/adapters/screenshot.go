package adapters

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/screendiary/screendiary/internal/types"
)

// SpectacleScreenshotter drives KDE's `spectacle` CLI, the default tool per
// spec.md section 6. It skips the tick (returns nil, nil) when a
// user-owned spectacle GUI instance is already running, so the daemon never
// contends with interactive use.
type SpectacleScreenshotter struct {
	Tool string // binary name, default "spectacle"
}

func NewSpectacleScreenshotter(tool string) *SpectacleScreenshotter {
	if tool == "" {
		tool = "spectacle"
	}
	return &SpectacleScreenshotter{Tool: tool}
}

var _ Screenshotter = (*SpectacleScreenshotter)(nil)

func (s *SpectacleScreenshotter) Capture(ctx context.Context) (*types.Image, error) {
	running, err := s.userInstanceRunning()
	if err != nil {
		log.Warn().Err(err).Msg("screenshot: process scan failed, proceeding anyway")
	}
	if running {
		log.Debug().Msg("screenshot: skipping tick, interactive spectacle instance detected")
		return nil, nil
	}

	tmpFile := filepath.Join(os.TempDir(), fmt.Sprintf("screendiary-%d.png", time.Now().UnixNano()))
	defer os.Remove(tmpFile)

	cmd := exec.CommandContext(ctx, s.Tool, "-b", "-n", "-f", "-o", tmpFile)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("adapters: %s failed: %w (%s)", s.Tool, err, strings.TrimSpace(string(out)))
	}

	info, err := os.Stat(tmpFile)
	if err != nil || info.Size() == 0 {
		return nil, fmt.Errorf("adapters: %s produced an empty or missing file", s.Tool)
	}

	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, fmt.Errorf("adapters: reading screenshot: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("adapters: decoding screenshot: %w", err)
	}

	return toRGBAImage(img), nil
}

// userInstanceRunning scans the process table for an interactively-invoked
// spectacle (no "-b" batch flag in its command line).
func (s *SpectacleScreenshotter) userInstanceRunning() (bool, error) {
	procs, err := process.Processes()
	if err != nil {
		return false, err
	}
	for _, p := range procs {
		name, err := p.Name()
		if err != nil || !strings.Contains(name, s.Tool) {
			continue
		}
		cmdline, err := p.Cmdline()
		if err != nil {
			continue
		}
		if !strings.Contains(cmdline, "-b") {
			return true, nil
		}
	}
	return false, nil
}

func toRGBAImage(img image.Image) *types.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := &types.Image{Width: w, Height: h, Pix: make([]byte, w*h*4)}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			out.Pix[i] = byte(r >> 8)
			out.Pix[i+1] = byte(g >> 8)
			out.Pix[i+2] = byte(bl >> 8)
			out.Pix[i+3] = byte(a >> 8)
			i += 4
		}
	}
	return out
}
