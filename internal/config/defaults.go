package config

const (
	defaultDataDir = "~/.local/share/recsync"
	defaultLogDir  = "~/.local/share/recsync/logs"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultUpdateThrottleSeconds          = 30
	defaultRecordingCompleteSeconds       = 30
	defaultRecordingMaxAgeSeconds         = 300
	defaultMinimumRecordingSeconds        = 60
	defaultCompletionCheckIntervalSeconds = 5

	defaultFFprobeBinary  = "ffprobe"
	defaultProbeTimeout   = 120
	defaultIndexerTimeout = 600
)

// defaultScanExtensions is the MPEG-TS family produced by recorder backends.
func defaultScanExtensions() []string {
	return []string{".ts", ".m2t", ".m2ts", ".mts"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Scanner: Scanner{
			ScanExtensions:                 defaultScanExtensions(),
			UpdateThrottleSeconds:          defaultUpdateThrottleSeconds,
			RecordingCompleteSeconds:       defaultRecordingCompleteSeconds,
			RecordingMaxAgeSeconds:         defaultRecordingMaxAgeSeconds,
			MinimumRecordingSeconds:        defaultMinimumRecordingSeconds,
			CompletionCheckIntervalSeconds: defaultCompletionCheckIntervalSeconds,
		},
		Metadata: Metadata{
			FFprobeBinary:  defaultFFprobeBinary,
			ProbeTimeout:   defaultProbeTimeout,
			IndexerTimeout: defaultIndexerTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
