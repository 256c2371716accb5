package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/iliassync/internal/trigger"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func validConfig() *Config {
	cfg := Default()
	cfg.Downloader.Username = "uabcd"
	cfg.Downloader.Password = "correct horse"
	return cfg
}

func TestConfigDefaults(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name string
		want string
		got  string
	}{
		{"data dir", "data", cfg.Workspace.DataDir},
		{"downloader executable", filepath.Join("data", "kit-downloader"), cfg.Downloader.Executable},
		{"output dir", "output", cfg.Downloader.OutputDir},
		{"rclone binary", "rclone", cfg.Upload.RcloneBinary},
		{"remote name", "IliasDL-Cloud-Drive", cfg.Upload.RemoteName},
		{"remote path", "output", cfg.Upload.RemotePath},
		{"state file", filepath.Join("data", "ilias_upload_report.json"), cfg.Sync.StateFile},
		{"upload times", "00:00", cfg.Schedule.Times},
		{"logging level", "info", cfg.Logging.Level},
		{"logging format", "text", cfg.Logging.Format},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, tt.got)
			}
		})
	}

	if cfg.Downloader.Jobs != 10 || cfg.Downloader.Rate != 100 {
		t.Errorf("expected jobs=10 rate=100, got jobs=%d rate=%d", cfg.Downloader.Jobs, cfg.Downloader.Rate)
	}
	if !cfg.Upload.ReportEnabled() {
		t.Error("state report upload should default to enabled")
	}
	assert.Equal(t, []string{"stdout", filepath.Join("data", "log.log")}, cfg.Logging.Outputs)
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[workspace]
data_dir = "/srv/ilias"

[downloader]
username = "uabcd"
password = "${TEST_ILIAS_PASSWORD}"
jobs = 4

[upload]
remote_name = "gdrive"
remote_path = "Uni/ILIAS"
upload_state_file = false

[sync]
exclude = ['\.part$']

[schedule]
times = "06:00 18:30:15"
once = ["2026-12-24T08:00:00+01:00"]
timezone = "Europe/Berlin"
`)
	t.Setenv("TEST_ILIAS_PASSWORD", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Downloader.Password)
	assert.Equal(t, 4, cfg.Downloader.Jobs)
	assert.Equal(t, 100, cfg.Downloader.Rate)
	assert.Equal(t, "gdrive", cfg.Upload.RemoteName)
	assert.Equal(t, "Uni/ILIAS", cfg.Upload.RemotePath)
	assert.False(t, cfg.Upload.ReportEnabled())
	assert.Equal(t, []string{`\.part$`}, cfg.Sync.Exclude)
	assert.Equal(t, "/srv/ilias/ilias_upload_report.json", cfg.Sync.StateFile)
	assert.Equal(t, "/srv/ilias/kit-downloader", cfg.Downloader.Executable)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
downloader:
  username: uabcd
  password: secret
  sync_url: https://ilias.studium.kit.edu/goto.php?target=crs_1
schedule:
  times: "07:15"
  run_on_start: true
logging:
  level: debug
  format: json
  outputs: [stderr]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://ilias.studium.kit.edu/goto.php?target=crs_1", cfg.Downloader.SyncURL)
	assert.Equal(t, "07:15", cfg.Schedule.Times)
	assert.True(t, cfg.Schedule.RunOnStart)
	assert.Equal(t, []string{"stderr"}, cfg.Logging.Outputs)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[downloader]
username = "from-file"
jobs = 2
`)
	t.Setenv("ILIAS_DOWNLOADER_USER_NAME", "from-env")
	t.Setenv("ILIAS_DOWNLOADER_PASSWORD", "pw")
	t.Setenv("ILIAS_DOWNLOADER_JOBS", "16")
	t.Setenv("ILIAS_DOWNLOADER_CLOUD_OUTPUT_PATH", "backup")
	t.Setenv("ILIAS_DOWNLOADER_RCLONE_REMOTE_NAME", "box")
	t.Setenv("ILIAS_DOWNLOADER_UPLOAD_TIMES", "01:00 13:00")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Downloader.Username)
	assert.Equal(t, "pw", cfg.Downloader.Password)
	assert.Equal(t, 16, cfg.Downloader.Jobs)
	assert.Equal(t, "backup", cfg.Upload.RemotePath)
	assert.Equal(t, "box", cfg.Upload.RemoteName)
	assert.Equal(t, "01:00 13:00", cfg.Schedule.Times)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("ILIAS_DOWNLOADER_USER_NAME", "uabcd")
	t.Setenv("ILIAS_DOWNLOADER_PASSWORD", "pw")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_InvalidEnvInteger(t *testing.T) {
	t.Setenv("ILIAS_DOWNLOADER_RATE", "fast")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ILIAS_DOWNLOADER_RATE")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := writeConfig(t, "broken.toml", "[downloader\nusername=")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_HOST", "example.org")

	tests := []struct {
		in   string
		want string
	}{
		{"${TEST_HOST}", "example.org"},
		{"https://${TEST_HOST}/ilias", "https://example.org/ilias"},
		{"${TEST_UNSET_VAR:fallback}", "fallback"},
		{"${TEST_HOST:fallback}", "example.org"},
		{"${TEST_UNSET_VAR}", ""},
		{"no vars", "no vars"},
		{"${unterminated", "${unterminated"},
	}
	for _, tt := range tests {
		if got := expandEnv(tt.in); got != tt.want {
			t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing username", func(c *Config) { c.Downloader.Username = "" }, "downloader.username"},
		{"missing password", func(c *Config) { c.Downloader.Password = "" }, "downloader.password"},
		{"zero jobs", func(c *Config) { c.Downloader.Jobs = -1 }, "downloader.jobs"},
		{"traversal", func(c *Config) { c.Downloader.OutputDir = "../elsewhere" }, "path traversal"},
		{"remote with colon", func(c *Config) { c.Upload.RemoteName = "gdrive:" }, "upload.remote_name"},
		{"half credentials", func(c *Config) { c.Upload.ClientID = "id" }, "client_secret"},
		{"bad time", func(c *Config) { c.Schedule.Times = "25:00" }, "schedule.times"},
		{"bad once", func(c *Config) { c.Schedule.Once = []string{"tomorrow"} }, "schedule.once"},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, "schedule.timezone"},
		{"no triggers", func(c *Config) { c.Schedule.Times = " " }, "at least one trigger"},
		{"bad exclude", func(c *Config) { c.Sync.Exclude = []string{"(oops"} }, "sync.exclude"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()

			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			joined := errors.Join(errs...).Error()
			assert.Contains(t, joined, tt.wantErr)
		})
	}
}

func TestConfigValidation_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "loud"

	errs := cfg.Validate()
	assert.GreaterOrEqual(t, len(errs), 3, "username, password and level are all reported")
}

func TestConfig_Triggers(t *testing.T) {
	cfg := validConfig()
	cfg.Schedule.Times = "06:00 18:30:15"
	cfg.Schedule.Once = []string{"2026-12-24 08:00", "2026-12-31T23:59:00Z"}
	cfg.Schedule.Timezone = "Europe/Berlin"

	specs, err := cfg.Triggers()
	require.NoError(t, err)
	require.Len(t, specs, 4)

	assert.Equal(t, trigger.KindDaily, specs[0].Kind)
	assert.Equal(t, 18, specs[1].Hour)
	assert.Equal(t, 15, specs[1].Second)

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	assert.True(t, specs[2].At.Equal(time.Date(2026, 12, 24, 8, 0, 0, 0, berlin)))
	assert.True(t, specs[3].At.Equal(time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC)))
}

func TestConfig_TriggersConfigurationError(t *testing.T) {
	cfg := validConfig()
	cfg.Schedule.Times = "09:00 9pm"

	_, err := cfg.Triggers()
	var cfgErr *trigger.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "9pm", cfgErr.Value)
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.Downloader.Password = "averylongpassword"
	cfg.Upload.ClientSecret = "short"

	r := cfg.Redacted()
	assert.Equal(t, "av*************rd", r.Downloader.Password)
	assert.Equal(t, "***", r.Upload.ClientSecret)
	assert.Equal(t, "averylongpassword", cfg.Downloader.Password, "original untouched")
	assert.False(t, strings.Contains(r.Downloader.Password, "longpass"))
}
