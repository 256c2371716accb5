package config

import (
	"strings"
)

// maskSecret маскирует секрет, оставляя только первые 2 и последние 2 символа
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}

	// Если секрет слишком короткий, маскируем полностью
	if len(secret) < 8 {
		return "***"
	}

	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}

// formatValidationError форматирует ошибку валидации с маскированным значением
func formatValidationError(field, message, secret string) error {
	errorMsg := field + ": " + message
	if secret != "" {
		errorMsg += " (value: " + maskSecret(secret) + ")"
	}
	return &ValidationError{Field: field, Message: errorMsg}
}

// ValidationError представляет ошибку валидации с дополнительной информацией
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Redacted returns a copy safe for logging: credentials are masked.
func (c *Config) Redacted() Config {
	out := *c
	out.Downloader.Password = maskSecret(c.Downloader.Password)
	out.Upload.ClientSecret = maskSecret(c.Upload.ClientSecret)
	out.Schedule.Once = append([]string(nil), c.Schedule.Once...)
	out.Sync.Exclude = append([]string(nil), c.Sync.Exclude...)
	out.Logging.Outputs = append([]string(nil), c.Logging.Outputs...)
	return out
}
