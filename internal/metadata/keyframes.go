package metadata

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Indexer builds keyframe seek indexes for completed recordings.
type Indexer struct {
	// Binary is the ffprobe executable name or path.
	Binary string
	// Timeout bounds a single indexing pass. Keyframe walks touch the whole
	// file, so this is much larger than the extraction timeout.
	Timeout time.Duration
}

// NewIndexer constructs a keyframe indexer.
func NewIndexer(binary string, timeout time.Duration) *Indexer {
	return &Indexer{Binary: binary, Timeout: timeout}
}

// BuildIndex returns the ascending keyframe timestamps (seconds) of the
// first video stream. Like extraction, the walk runs in a separate ffprobe
// process.
func (i *Indexer) BuildIndex(ctx context.Context, path string) ([]float64, error) {
	binary := strings.TrimSpace(i.Binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if i.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binary,
		"-v", "error", "-hide_banner",
		"-select_streams", "v:0",
		"-skip_frame", "nokey",
		"-show_entries", "frame=pts_time",
		"-of", "csv=p=0", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("keyframe index: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("keyframe index: %w", err)
	}

	return parseKeyframeTimestamps(string(output))
}

func parseKeyframeTimestamps(output string) ([]float64, error) {
	var timestamps []float64
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, ","))
		if line == "" {
			continue
		}
		ts, err := strconv.ParseFloat(line, 64)
		if err != nil {
			continue
		}
		timestamps = append(timestamps, ts)
	}
	if len(timestamps) == 0 {
		return nil, errors.New("keyframe index: no keyframes reported")
	}
	sort.Float64s(timestamps)
	return timestamps, nil
}
