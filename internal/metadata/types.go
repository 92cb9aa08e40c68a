package metadata

import "time"

// Genre is one broadcast genre classification attached to a program.
type Genre struct {
	Major  string `json:"major"`
	Middle string `json:"middle"`
}

// CMSection is one detected ad-break interval in seconds from stream start.
type CMSection struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// ChannelInfo describes the broadcast channel a recording was captured from,
// resolved from the MPEG-TS program table when present.
type ChannelInfo struct {
	ID                string
	DisplayChannelID  string
	NetworkID         int
	ServiceID         int
	TransportStreamID *int
	RemoconID         int
	ChannelNumber     string
	Type              string
	Name              string
	IsSubchannel      bool
	IsRadiochannel    bool
	IsWatchable       bool
}

// VideoInfo carries the per-file technical metadata extracted by Analyze.
type VideoInfo struct {
	FilePath           string
	FileHash           string
	FileSize           int64
	FileCreatedAt      time.Time
	FileModifiedAt     time.Time
	RecordingStartTime *time.Time
	RecordingEndTime   *time.Time
	Duration           float64
	ContainerFormat    string
	VideoCodec         string
	VideoCodecProfile  string
	VideoScanType      string
	VideoFrameRate     float64
	Width              int
	Height             int

	PrimaryAudioCodec        string
	PrimaryAudioChannel      string
	PrimaryAudioSamplingRate int

	SecondaryAudioCodec        *string
	SecondaryAudioChannel      *string
	SecondaryAudioSamplingRate *int
}

// ProgramInfo is the full extraction result for one recording file: the
// logical broadcast program plus its video payload and optional channel.
type ProgramInfo struct {
	Channel *ChannelInfo
	Video   VideoInfo

	NetworkID *int
	ServiceID *int
	EventID   *int

	Title         string
	SeriesTitle   *string
	EpisodeNumber *string
	Subtitle      *string
	Description   string
	Detail        map[string]string

	StartTime time.Time
	EndTime   time.Time
	Duration  float64
	IsFree    bool
	Genres    []Genre

	RecordingStartMargin float64
	RecordingEndMargin   float64
	IsPartiallyRecorded  bool

	PrimaryAudioType       string
	PrimaryAudioLanguage   string
	SecondaryAudioType     *string
	SecondaryAudioLanguage *string
}
