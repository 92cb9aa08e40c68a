package testsupport

import (
	"context"
	"os"
	"sync"
	"time"

	"recsync/internal/metadata"
)

// FakeProbe is a scanner.Probe that fingerprints real files but answers
// Analyze from canned results, so engine tests never need ffprobe.
type FakeProbe struct {
	mu sync.Mutex
	// Duration is reported for every analyzed file, in seconds.
	Duration float64
	// AnalyzeErr, when set, is returned by every Analyze call.
	AnalyzeErr error
	// analyzed counts Analyze invocations per path.
	analyzed map[string]int
}

func NewFakeProbe(duration float64) *FakeProbe {
	return &FakeProbe{Duration: duration, analyzed: make(map[string]int)}
}

func (p *FakeProbe) Fingerprint(path string) (string, error) {
	return metadata.Fingerprint(path)
}

func (p *FakeProbe) Analyze(ctx context.Context, path string) (*metadata.ProgramInfo, error) {
	p.mu.Lock()
	p.analyzed[path]++
	p.mu.Unlock()

	if p.AnalyzeErr != nil {
		return nil, p.AnalyzeErr
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	hash, err := metadata.Fingerprint(path)
	if err != nil {
		return nil, err
	}

	end := stat.ModTime()
	start := end.Add(-time.Duration(p.Duration * float64(time.Second)))
	return &metadata.ProgramInfo{
		Video: metadata.VideoInfo{
			FilePath:                 path,
			FileHash:                 hash,
			FileSize:                 stat.Size(),
			FileCreatedAt:            stat.ModTime(),
			FileModifiedAt:           stat.ModTime(),
			RecordingStartTime:       &start,
			RecordingEndTime:         &end,
			Duration:                 p.Duration,
			ContainerFormat:          "MPEG-TS",
			VideoCodec:               "MPEG-2",
			VideoCodecProfile:        "High",
			VideoScanType:            "Interlaced",
			VideoFrameRate:           29.97,
			Width:                    1440,
			Height:                   1080,
			PrimaryAudioCodec:        "AAC-LC",
			PrimaryAudioChannel:      "Stereo",
			PrimaryAudioSamplingRate: 48000,
		},
		Title:                "Test Recording",
		Description:          "",
		Detail:               map[string]string{},
		StartTime:            start,
		EndTime:              end,
		Duration:             p.Duration,
		IsFree:               true,
		PrimaryAudioType:     "2/0 mode (stereo)",
		PrimaryAudioLanguage: "Japanese",
	}, nil
}

// AnalyzeCount reports how many times Analyze ran for a path.
func (p *FakeProbe) AnalyzeCount(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.analyzed[path]
}

// FakeIndexer is a scanner.Indexer returning a fixed keyframe list.
type FakeIndexer struct {
	mu sync.Mutex
	// KeyFrames is returned by every BuildIndex call.
	KeyFrames []float64
	// Err, when set, is returned by every BuildIndex call.
	Err error
	// built counts BuildIndex invocations per path.
	built map[string]int
}

func NewFakeIndexer(keyFrames ...float64) *FakeIndexer {
	return &FakeIndexer{KeyFrames: keyFrames, built: make(map[string]int)}
}

func (i *FakeIndexer) BuildIndex(ctx context.Context, path string) ([]float64, error) {
	i.mu.Lock()
	i.built[path]++
	i.mu.Unlock()

	if i.Err != nil {
		return nil, i.Err
	}
	return append([]float64(nil), i.KeyFrames...), nil
}

// BuildCount reports how many times BuildIndex ran for a path.
func (i *FakeIndexer) BuildCount(path string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.built[path]
}
