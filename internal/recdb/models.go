package recdb

import (
	"time"

	"recsync/internal/metadata"
)

// Status represents the lifecycle of a recorded video.
type Status string

const (
	// StatusRecording marks a file still being written to.
	StatusRecording Status = "Recording"
	// StatusRecorded marks a completed recording.
	StatusRecorded Status = "Recorded"
)

// Channel is a persisted broadcast channel. Channels are created when a
// recording first references them and are never deleted by the engine.
type Channel struct {
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

// Program is a persisted recorded broadcast program. It owns exactly one
// Video; deleting the program cascades to the video.
type Program struct {
	ID        int64
	ChannelID *string

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
	Genres    []metadata.Genre

	RecordingStartMargin float64
	RecordingEndMargin   float64
	IsPartiallyRecorded  bool

	PrimaryAudioType       string
	PrimaryAudioLanguage   string
	SecondaryAudioType     *string
	SecondaryAudioLanguage *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Video is a persisted recording file, keyed uniquely by file path.
type Video struct {
	ID        int64
	ProgramID int64
	Status    Status

	FilePath       string
	FileHash       string
	FileSize       int64
	FileCreatedAt  time.Time
	FileModifiedAt time.Time

	RecordingStartTime *time.Time
	RecordingEndTime   *time.Time

	Duration          float64
	ContainerFormat   string
	VideoCodec        string
	VideoCodecProfile string
	VideoScanType     string
	VideoFrameRate    float64
	Width             int
	Height            int

	PrimaryAudioCodec        string
	PrimaryAudioChannel      string
	PrimaryAudioSamplingRate int

	SecondaryAudioCodec        *string
	SecondaryAudioChannel      *string
	SecondaryAudioSamplingRate *int

	KeyFrames  []float64
	CMSections []metadata.CMSection

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordingRow is a joined view of a recording used for listing.
type RecordingRow struct {
	VideoID     int64
	ProgramID   int64
	Title       string
	ChannelName string
	Status      Status
	Duration    float64
	FileSize    int64
	FilePath    string
	UpdatedAt   time.Time
}
