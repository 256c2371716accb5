// Package config provides configuration loading and validation for iliassync.
// It supports TOML and YAML configuration files with environment variable
// expansion, the ILIAS_DOWNLOADER_* environment overrides, default values
// and validation that reports every problem at once.
//
// Configuration structure:
//   - [workspace]: data directory for state, logs and the downloader binary
//   - [downloader]: KIT-ILIAS-downloader credentials and invocation
//   - [upload]: rclone binary, remote and destination path
//   - [sync]: state file and exclude patterns
//   - [schedule]: daily times, one-off instants and timezone
//   - [logging]: level, format and outputs
//   - [metrics]: Prometheus endpoint
//
// Environment variables can be referenced using ${VAR} or ${VAR:default}
// syntax. For example: password = "${ILIAS_PASSWORD}"
package config

// Config represents the main application configuration.
type Config struct {
	Workspace  WorkspaceConfig  `toml:"workspace" yaml:"workspace"`
	Downloader DownloaderConfig `toml:"downloader" yaml:"downloader"`
	Upload     UploadConfig     `toml:"upload" yaml:"upload"`
	Sync       SyncConfig       `toml:"sync" yaml:"sync"`
	Schedule   ScheduleConfig   `toml:"schedule" yaml:"schedule"`
	Logging    LoggingConfig    `toml:"logging" yaml:"logging"`
	Metrics    MetricsConfig    `toml:"metrics" yaml:"metrics"`
}

// WorkspaceConfig представляет конфигурацию рабочего каталога
type WorkspaceConfig struct {
	DataDir string `toml:"data_dir" yaml:"data_dir"`
}

// DownloaderConfig представляет конфигурацию KIT-ILIAS-downloader
type DownloaderConfig struct {
	Executable string `toml:"executable" yaml:"executable"`
	Username   string `toml:"username" yaml:"username"`
	Password   string `toml:"password" yaml:"password"`
	OutputDir  string `toml:"output_dir" yaml:"output_dir"`
	SyncURL    string `toml:"sync_url" yaml:"sync_url"`
	Jobs       int    `toml:"jobs" yaml:"jobs"`
	Rate       int    `toml:"rate" yaml:"rate"`
}

// UploadConfig представляет конфигурацию загрузки через rclone
type UploadConfig struct {
	RcloneBinary string `toml:"rclone_binary" yaml:"rclone_binary"`
	RemoteName   string `toml:"remote_name" yaml:"remote_name"`
	RemotePath   string `toml:"remote_path" yaml:"remote_path"`
	// UploadStateFile copies the state report next to the synced files
	// after every cycle. Defaults to true.
	UploadStateFile *bool  `toml:"upload_state_file" yaml:"upload_state_file"`
	ClientID        string `toml:"client_id" yaml:"client_id"`
	ClientSecret    string `toml:"client_secret" yaml:"client_secret"`
}

// ReportEnabled reports whether the state report is uploaded.
func (u UploadConfig) ReportEnabled() bool {
	return u.UploadStateFile == nil || *u.UploadStateFile
}

// SyncConfig представляет конфигурацию трекера синхронизации
type SyncConfig struct {
	StateFile string   `toml:"state_file" yaml:"state_file"`
	Exclude   []string `toml:"exclude" yaml:"exclude"`
}

// ScheduleConfig представляет конфигурацию расписания
type ScheduleConfig struct {
	// Times is a space separated list of "HH:MM" or "HH:MM:SS".
	Times string `toml:"times" yaml:"times"`
	// Once lists ISO-8601 instants; zone-less values use Timezone.
	Once       []string `toml:"once" yaml:"once"`
	Timezone   string   `toml:"timezone" yaml:"timezone"`
	RunOnStart bool     `toml:"run_on_start" yaml:"run_on_start"`
}

// LoggingConfig представляет конфигурацию логирования
type LoggingConfig struct {
	Level   string   `toml:"level" yaml:"level"`
	Format  string   `toml:"format" yaml:"format"`
	Outputs []string `toml:"outputs" yaml:"outputs"`
}

// MetricsConfig представляет конфигурацию Prometheus метрик
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Listen  string `toml:"listen" yaml:"listen"`
}
