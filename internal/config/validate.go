package config

import (
	"fmt"
	"strings"

	"github.com/wasilibs/go-re2"
)

// Validate проверяет валидность конфигурации и возвращает все найденные ошибки
func (c *Config) Validate() []error {
	var errs []error

	// Проверка downloader
	if c.Downloader.Username == "" {
		errs = append(errs, fmt.Errorf("downloader.username is required (or set %sUSER_NAME)", EnvPrefix))
	}
	if c.Downloader.Password == "" {
		errs = append(errs, fmt.Errorf("downloader.password is required (or set %sPASSWORD)", EnvPrefix))
	} else if strings.ContainsAny(c.Downloader.Password, "\r\n") {
		errs = append(errs, formatValidationError("downloader.password", "must not contain line breaks", c.Downloader.Password))
	}
	if err := validatePath(c.Downloader.OutputDir, "downloader.output_dir"); err != nil {
		errs = append(errs, err)
	}
	if c.Downloader.Executable == "" {
		errs = append(errs, fmt.Errorf("downloader.executable is required"))
	}
	if c.Downloader.Jobs < 1 {
		errs = append(errs, fmt.Errorf("downloader.jobs must be >= 1 (got %d)", c.Downloader.Jobs))
	}
	if c.Downloader.Rate < 1 {
		errs = append(errs, fmt.Errorf("downloader.rate must be >= 1 (got %d)", c.Downloader.Rate))
	}

	// Проверка upload
	if c.Upload.RemoteName == "" {
		errs = append(errs, fmt.Errorf("upload.remote_name is required"))
	} else if strings.ContainsAny(c.Upload.RemoteName, ": ") {
		errs = append(errs, fmt.Errorf("upload.remote_name must not contain ':' or spaces (got %q)", c.Upload.RemoteName))
	}
	if (c.Upload.ClientID == "") != (c.Upload.ClientSecret == "") {
		errs = append(errs, fmt.Errorf("upload.client_id and upload.client_secret must be set together"))
	}

	// Проверка sync
	if c.Sync.StateFile == "" {
		errs = append(errs, fmt.Errorf("sync.state_file is required"))
	}
	for _, pattern := range c.Sync.Exclude {
		if _, err := re2.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("invalid sync.exclude pattern %q: %w", pattern, err))
		}
	}

	// Проверка schedule
	specs, err := c.Triggers()
	if err != nil {
		errs = append(errs, err)
	} else if len(specs) == 0 {
		errs = append(errs, fmt.Errorf("schedule.times or schedule.once must define at least one trigger"))
	}

	// Проверка logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, fmt.Errorf("metrics.listen is required when metrics are enabled"))
	}

	return errs
}

func validatePath(path, fieldName string) error {
	if path == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	if strings.HasPrefix(path, "~") {
		return nil
	}

	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return fmt.Errorf("%s contains potentially dangerous path traversal sequence", fieldName)
		}
	}

	return nil
}
