package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// probeResult represents the parsed output from an ffprobe inspection.
type probeResult struct {
	Streams  []probeStream  `json:"streams"`
	Programs []probeProgram `json:"programs"`
	Format   probeFormat    `json:"format"`
}

// probeStream describes a single stream in the media container.
type probeStream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Profile    string `json:"profile"`
	Duration   string `json:"duration"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FieldOrder string `json:"field_order"`
	AvgFrame   string `json:"avg_frame_rate"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`

	Tags map[string]string `json:"tags"`
}

// probeProgram captures one MPEG-TS program table entry.
type probeProgram struct {
	ProgramID  int               `json:"program_id"`
	ProgramNum int               `json:"program_num"`
	PMTPID     int               `json:"pmt_pid"`
	Tags       map[string]string `json:"tags"`
}

// probeFormat captures container-level metadata extracted by ffprobe.
type probeFormat struct {
	Filename   string            `json:"filename"`
	NBStreams  int               `json:"nb_streams"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	FormatName string            `json:"format_name"`
	Tags       map[string]string `json:"tags"`
}

// inspect executes ffprobe against the provided path and decodes the JSON
// response. ffprobe runs as its own process; the engine goroutine only
// blocks on the pipe, and a crash of the prober cannot take the engine down.
func inspect(ctx context.Context, binary string, path string) (probeResult, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return probeResult{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary,
		"-v", "error", "-hide_banner",
		"-show_format", "-show_streams", "-show_programs",
		"-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return probeResult{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return probeResult{}, fmt.Errorf("ffprobe inspect: %w", err)
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return probeResult{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

func (r probeResult) videoStream() *probeStream {
	for i := range r.Streams {
		if strings.EqualFold(r.Streams[i].CodecType, "video") {
			return &r.Streams[i]
		}
	}
	return nil
}

func (r probeResult) audioStreams() []*probeStream {
	var streams []*probeStream
	for i := range r.Streams {
		if strings.EqualFold(r.Streams[i].CodecType, "audio") {
			streams = append(streams, &r.Streams[i])
		}
	}
	return streams
}

func (r probeResult) durationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// parseFrameRate converts ffprobe's fractional notation ("30000/1001") into
// frames per second.
func parseFrameRate(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" || value == "0/0" {
		return 0
	}
	num, den, found := strings.Cut(value, "/")
	if !found {
		return parseFloat(value)
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func parseInt(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}
