package adapters

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/screendiary/screendiary/internal/types"
)

// XrandrTopology parses `xrandr --query` for the set of connected monitors,
// per spec.md section 4.A.
type XrandrTopology struct{}

var _ TopologyProvider = XrandrTopology{}

// matches a line such as:
//   DP-1 connected primary 2560x1440+0+0 (normal left inverted right x axis) 597mm x 336mm
var geometryRe = regexp.MustCompile(`(\d+)x(\d+)\+(-?\d+)\+(-?\d+)`)

func (XrandrTopology) Monitors(ctx context.Context) ([]types.Monitor, error) {
	cmd := exec.CommandContext(ctx, "xrandr", "--query")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("adapters: xrandr --query: %w", err)
	}

	var monitors []types.Monitor
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[1] != "connected" {
			continue
		}

		m := geometryRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		w, _ := strconv.Atoi(m[1])
		h, _ := strconv.Atoi(m[2])
		x, _ := strconv.Atoi(m[3])
		y, _ := strconv.Atoi(m[4])

		monitors = append(monitors, types.Monitor{
			Name:    fields[0],
			OriginX: x,
			OriginY: y,
			Width:   w,
			Height:  h,
		})
	}

	// Left-to-right reindex, per spec.md: "ordered by x origin, reindexed
	// 0..n-1".
	sort.Slice(monitors, func(i, j int) bool { return monitors[i].OriginX < monitors[j].OriginX })
	for i := range monitors {
		monitors[i].Index = i
	}

	return monitors, nil
}
