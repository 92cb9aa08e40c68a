package metadata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Analyzer performs full metadata extraction for recording files.
type Analyzer struct {
	// Binary is the ffprobe executable name or path.
	Binary string
	// Timeout bounds a single extraction.
	Timeout time.Duration
}

// NewAnalyzer constructs an analyzer with the given ffprobe binary and
// per-invocation timeout.
func NewAnalyzer(binary string, timeout time.Duration) *Analyzer {
	return &Analyzer{Binary: binary, Timeout: timeout}
}

// Fingerprint computes the bounded content hash for path.
func (a *Analyzer) Fingerprint(path string) (string, error) {
	return Fingerprint(path)
}

// Analyze extracts full metadata for the recording at path. Extraction runs
// in a separate ffprobe process. The returned ProgramInfo always carries a
// fresh fingerprint, file size, and file timestamps.
func (a *Analyzer) Analyze(ctx context.Context, path string) (*ProgramInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	hash, err := Fingerprint(path)
	if err != nil {
		return nil, err
	}

	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	result, err := inspect(ctx, a.Binary, path)
	if err != nil {
		return nil, err
	}

	program, err := mapProbeResult(path, info.Size(), info.ModTime(), result)
	if err != nil {
		return nil, err
	}
	program.Video.FileHash = hash
	return program, nil
}

// mapProbeResult converts raw ffprobe output into the domain shape. Split
// from Analyze so tests can feed canned payloads without running ffprobe.
func mapProbeResult(path string, size int64, mtime time.Time, result probeResult) (*ProgramInfo, error) {
	video := result.videoStream()
	if video == nil {
		return nil, fmt.Errorf("%s: no video stream", path)
	}
	audio := result.audioStreams()
	if len(audio) == 0 {
		return nil, fmt.Errorf("%s: no audio stream", path)
	}

	duration := result.durationSeconds()
	if duration <= 0 {
		duration = parseFloat(video.Duration)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%s: container reports no duration", path)
	}

	// Recorders write the stream in real time, so the file mtime marks the
	// end of the recording.
	end := mtime
	start := mtime.Add(-time.Duration(duration * float64(time.Second)))

	out := &ProgramInfo{
		Video: VideoInfo{
			FilePath:           path,
			FileSize:           size,
			FileCreatedAt:      start,
			FileModifiedAt:     mtime,
			RecordingStartTime: &start,
			RecordingEndTime:   &end,
			Duration:           duration,
			ContainerFormat:    containerFormat(result.Format.FormatName),
			VideoCodec:         videoCodecName(video.CodecName),
			VideoCodecProfile:  videoProfile(video.Profile),
			VideoScanType:      scanType(video.FieldOrder),
			VideoFrameRate:     parseFrameRate(video.AvgFrame),
			Width:              video.Width,
			Height:             video.Height,
		},
		Title:                titleFor(path, result.Format.Tags),
		Description:          "",
		Detail:               map[string]string{},
		StartTime:            start,
		EndTime:              end,
		Duration:             duration,
		IsFree:               true,
		Genres:               []Genre{},
		PrimaryAudioType:     "Main audio",
		PrimaryAudioLanguage: audioLanguage(audio[0]),
	}

	applyAudio(&out.Video, audio)
	if out.Video.SecondaryAudioCodec != nil {
		audioType := "Secondary audio"
		lang := audioLanguage(audio[1])
		out.SecondaryAudioType = &audioType
		out.SecondaryAudioLanguage = &lang
	}

	if channel := channelFromPrograms(result.Programs); channel != nil {
		out.Channel = channel
		out.NetworkID = &channel.NetworkID
		out.ServiceID = &channel.ServiceID
	}

	return out, nil
}

func applyAudio(video *VideoInfo, streams []*probeStream) {
	primary := streams[0]
	video.PrimaryAudioCodec = audioCodecName(primary.CodecName, primary.Profile)
	video.PrimaryAudioChannel = audioChannelLayout(primary.Channels)
	video.PrimaryAudioSamplingRate = parseInt(primary.SampleRate)

	if len(streams) < 2 {
		return
	}
	secondary := streams[1]
	codec := audioCodecName(secondary.CodecName, secondary.Profile)
	layout := audioChannelLayout(secondary.Channels)
	rate := parseInt(secondary.SampleRate)
	video.SecondaryAudioCodec = &codec
	video.SecondaryAudioChannel = &layout
	video.SecondaryAudioSamplingRate = &rate
}

// channelFromPrograms resolves channel identity from the first MPEG-TS
// program table entry carrying a service name. Files with no program table
// (or stripped tags) yield a nil channel.
func channelFromPrograms(programs []probeProgram) *ChannelInfo {
	for _, program := range programs {
		name := strings.TrimSpace(program.Tags["service_name"])
		if name == "" {
			continue
		}
		serviceID := program.ProgramNum
		if serviceID == 0 {
			serviceID = program.ProgramID
		}
		networkID := parseInt(program.Tags["network_id"])
		channel := &ChannelInfo{
			ID:               fmt.Sprintf("NID%d-SID%03d", networkID, serviceID),
			DisplayChannelID: fmt.Sprintf("gr%03d", serviceID),
			NetworkID:        networkID,
			ServiceID:        serviceID,
			ChannelNumber:    fmt.Sprintf("%03d", serviceID),
			Type:             "GR",
			Name:             norm.NFC.String(name),
			IsWatchable:      true,
		}
		return channel
	}
	return nil
}

// titleFor prefers a title tag written by the recorder into the container,
// then falls back to the file name.
func titleFor(path string, tags map[string]string) string {
	if title := strings.TrimSpace(tags["title"]); title != "" {
		return norm.NFC.String(title)
	}
	return titleFromPath(path)
}

// titleFromPath derives a display title from the file name. Broadcast EPG
// titles are not recoverable from the container alone, so the file name is
// the best stable fallback; recorder backends name files after the program.
func titleFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSpace(base)
	if base == "" {
		base = filepath.Base(path)
	}
	return norm.NFC.String(base)
}

func containerFormat(formatName string) string {
	if strings.Contains(formatName, "mpegts") {
		return "MPEG-TS"
	}
	return strings.ToUpper(formatName)
}

func videoCodecName(codec string) string {
	switch strings.ToLower(codec) {
	case "mpeg2video":
		return "MPEG-2"
	case "h264":
		return "H.264"
	case "hevc", "h265":
		return "H.265"
	default:
		return strings.ToUpper(codec)
	}
}

func videoProfile(profile string) string {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return "Main"
	}
	return profile
}

func scanType(fieldOrder string) string {
	switch strings.ToLower(strings.TrimSpace(fieldOrder)) {
	case "progressive":
		return "Progressive"
	case "":
		return "Progressive"
	default:
		return "Interlaced"
	}
}

func audioCodecName(codec, profile string) string {
	switch strings.ToLower(codec) {
	case "aac":
		if strings.Contains(strings.ToLower(profile), "he") {
			return "HE-AAC"
		}
		return "AAC-LC"
	case "mp2":
		return "MP2"
	default:
		return strings.ToUpper(codec)
	}
}

func audioChannelLayout(channels int) string {
	switch {
	case channels <= 1:
		return "Monaural"
	case channels == 2:
		return "Stereo"
	default:
		return "5.1ch"
	}
}

func audioLanguage(stream *probeStream) string {
	if stream != nil {
		if lang := strings.TrimSpace(stream.Tags["language"]); lang != "" && !strings.EqualFold(lang, "und") {
			return lang
		}
	}
	return "jpn"
}

// IsTransient reports whether err is a benign file race (the file vanished
// between discovery and read) rather than a real failure.
func IsTransient(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
