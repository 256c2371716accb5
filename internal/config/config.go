package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of the environment overrides.
const EnvPrefix = "ILIAS_DOWNLOADER_"

// Load загружает конфигурацию из TOML или YAML файла.
// Пустой путь означает конфигурацию только из окружения и значений по умолчанию.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(path, data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	expandEnvVars(&cfg)

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	applyDefaults(&cfg)
	expandPaths(&cfg)

	return &cfg, nil
}

// decode выбирает формат по расширению файла
func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		_, err := toml.Decode(string(data), cfg)
		return err
	}
}

// stringFields возвращает указатели на все строковые поля, где допустимы ${VAR}
func stringFields(c *Config) []*string {
	fields := []*string{
		&c.Workspace.DataDir,
		&c.Downloader.Executable,
		&c.Downloader.Username,
		&c.Downloader.Password,
		&c.Downloader.OutputDir,
		&c.Downloader.SyncURL,
		&c.Upload.RcloneBinary,
		&c.Upload.RemoteName,
		&c.Upload.RemotePath,
		&c.Upload.ClientID,
		&c.Upload.ClientSecret,
		&c.Sync.StateFile,
		&c.Schedule.Times,
		&c.Schedule.Timezone,
		&c.Metrics.Listen,
	}
	for i := range c.Schedule.Once {
		fields = append(fields, &c.Schedule.Once[i])
	}
	for i := range c.Logging.Outputs {
		fields = append(fields, &c.Logging.Outputs[i])
	}
	return fields
}

// expandEnvVars расширяет переменные окружения в конфигурации
func expandEnvVars(c *Config) {
	for _, f := range stringFields(c) {
		if strings.Contains(*f, "${") {
			*f = expandEnv(*f)
		}
	}
}

// expandEnv заменяет все вхождения ${VAR} и ${VAR:default}
func expandEnv(s string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start == -1 {
			b.WriteString(s)
			return b.String()
		}
		end := strings.Index(s[start:], "}")
		if end == -1 {
			b.WriteString(s)
			return b.String()
		}
		end += start

		b.WriteString(s[:start])
		content := s[start+2 : end]
		if key, defaultVal, ok := strings.Cut(content, ":"); ok {
			if val := os.Getenv(key); val != "" {
				b.WriteString(val)
			} else {
				b.WriteString(defaultVal)
			}
		} else {
			b.WriteString(os.Getenv(content))
		}
		s = s[end+1:]
	}
}

// envOverride связывает переменную окружения с полем конфигурации
type envOverride struct {
	key   string
	apply func(c *Config, value string) error
}

func setString(field func(c *Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setInt(field func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("expected an integer, got %q", v)
		}
		*field(c) = n
		return nil
	}
}

var envOverrides = []envOverride{
	{"USER_NAME", setString(func(c *Config) *string { return &c.Downloader.Username })},
	{"PASSWORD", setString(func(c *Config) *string { return &c.Downloader.Password })},
	{"OUTPUT_DIR", setString(func(c *Config) *string { return &c.Downloader.OutputDir })},
	{"SYNC_URL", setString(func(c *Config) *string { return &c.Downloader.SyncURL })},
	{"JOBS", setInt(func(c *Config) *int { return &c.Downloader.Jobs })},
	{"RATE", setInt(func(c *Config) *int { return &c.Downloader.Rate })},
	{"CLOUD_OUTPUT_PATH", setString(func(c *Config) *string { return &c.Upload.RemotePath })},
	{"RCLONE_REMOTE_NAME", setString(func(c *Config) *string { return &c.Upload.RemoteName })},
	{"CLIENT_ID", setString(func(c *Config) *string { return &c.Upload.ClientID })},
	{"CLIENT_SECRET", setString(func(c *Config) *string { return &c.Upload.ClientSecret })},
	{"UPLOAD_TIMES", setString(func(c *Config) *string { return &c.Schedule.Times })},
	{"TIMEZONE", setString(func(c *Config) *string { return &c.Schedule.Timezone })},
	{"DATA_DIR", setString(func(c *Config) *string { return &c.Workspace.DataDir })},
	{"LOG_LEVEL", setString(func(c *Config) *string { return &c.Logging.Level })},
}

// applyEnvOverrides переопределяет поля непустыми ILIAS_DOWNLOADER_* переменными
func applyEnvOverrides(c *Config) error {
	var errs []string
	for _, o := range envOverrides {
		value := os.Getenv(EnvPrefix + o.key)
		if value == "" {
			continue
		}
		if err := o.apply(c, value); err != nil {
			errs = append(errs, EnvPrefix+o.key+": "+err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// expandPaths расширяет ~ во всех путях
func expandPaths(c *Config) {
	c.Workspace.DataDir = expandHome(c.Workspace.DataDir)
	c.Downloader.Executable = expandHome(c.Downloader.Executable)
	c.Downloader.OutputDir = expandHome(c.Downloader.OutputDir)
	c.Sync.StateFile = expandHome(c.Sync.StateFile)
	for i, out := range c.Logging.Outputs {
		c.Logging.Outputs[i] = expandHome(out)
	}
}

// expandHome расширяет ~ в пути
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
