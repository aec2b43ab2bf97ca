package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// FFProbe is the probe binary looked up on PATH.
var FFProbe = "ffprobe"

// Info holds basic probe data
type Info struct {
	Duration time.Duration
	Format   string
	BitRate  string
}

// Probe uses ffprobe to get duration, format and bitrate.
func Probe(ctx context.Context, inputPath string) (*Info, error) {
	cmd := exec.CommandContext(ctx, FFProbe,
		"-v", "error",
		"-show_entries", "format=duration,format_name,bit_rate",
		"-of", "default=noprint_wrappers=1:nokey=0",
		inputPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbe(string(out)), nil
}

func parseProbe(out string) *Info {
	info := &Info{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "duration="):
			if f, err := strconv.ParseFloat(strings.TrimPrefix(line, "duration="), 64); err == nil {
				info.Duration = time.Duration(f * float64(time.Second))
			}
		case strings.HasPrefix(line, "format_name="):
			info.Format = strings.TrimPrefix(line, "format_name=")
		case strings.HasPrefix(line, "bit_rate="):
			info.BitRate = strings.TrimPrefix(line, "bit_rate=")
		}
	}
	return info
}
