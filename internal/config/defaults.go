package config

import "path/filepath"

// Значения по умолчанию совпадают с исходным набором ILIAS_DOWNLOADER_*.
const (
	DefaultDataDir       = "data"
	DefaultOutputDir     = "output"
	DefaultJobs          = 10
	DefaultRate          = 100
	DefaultRcloneBinary  = "rclone"
	DefaultRemoteName    = "IliasDL-Cloud-Drive"
	DefaultRemotePath    = "output"
	DefaultUploadTimes   = "00:00"
	DefaultStateFileName = "ilias_upload_report.json"
	DefaultLogFileName   = "log.log"
	DefaultDownloaderDir = "kit-downloader"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultMetricsListen = ":9090"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults применяет значения по умолчанию
func applyDefaults(c *Config) {
	if c.Workspace.DataDir == "" {
		c.Workspace.DataDir = DefaultDataDir
	}

	if c.Downloader.Executable == "" {
		c.Downloader.Executable = filepath.Join(c.Workspace.DataDir, DefaultDownloaderDir)
	}
	if c.Downloader.OutputDir == "" {
		c.Downloader.OutputDir = DefaultOutputDir
	}
	if c.Downloader.Jobs == 0 {
		c.Downloader.Jobs = DefaultJobs
	}
	if c.Downloader.Rate == 0 {
		c.Downloader.Rate = DefaultRate
	}

	if c.Upload.RcloneBinary == "" {
		c.Upload.RcloneBinary = DefaultRcloneBinary
	}
	if c.Upload.RemoteName == "" {
		c.Upload.RemoteName = DefaultRemoteName
	}
	if c.Upload.RemotePath == "" {
		c.Upload.RemotePath = DefaultRemotePath
	}

	if c.Sync.StateFile == "" {
		c.Sync.StateFile = filepath.Join(c.Workspace.DataDir, DefaultStateFileName)
	}

	if c.Schedule.Times == "" && len(c.Schedule.Once) == 0 {
		c.Schedule.Times = DefaultUploadTimes
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if len(c.Logging.Outputs) == 0 {
		c.Logging.Outputs = []string{"stdout", filepath.Join(c.Workspace.DataDir, DefaultLogFileName)}
	}

	if c.Metrics.Listen == "" {
		c.Metrics.Listen = DefaultMetricsListen
	}
}
