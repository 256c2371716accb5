package trigger

import (
	"fmt"
	"strings"
	"time"
)

// ConfigurationError reports a trigger value that cannot be used.
// It is fatal at construction time; values are never coerced to a default.
type ConfigurationError struct {
	Value  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid trigger %q: %s: %v", e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid trigger %q: %s", e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

var dailyLayouts = []string{"15:04:05", "15:04"}

// ParseDaily parses "HH:MM" or "HH:MM:SS" into a Daily spec.
func ParseDaily(value string) (Spec, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Spec{}, &ConfigurationError{Value: value, Reason: "empty time"}
	}

	var lastErr error
	for _, layout := range dailyLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			lastErr = err
			continue
		}
		return Daily(t.Hour(), t.Minute(), t.Second())
	}
	return Spec{}, &ConfigurationError{Value: value, Reason: "expected HH:MM or HH:MM:SS", Err: lastErr}
}

// ParseDailyList parses a space-separated list of daily times, e.g.
// "06:30 12:00 23:59:30". Each entry becomes its own spec.
func ParseDailyList(value string) ([]Spec, error) {
	fields := strings.Fields(value)
	specs := make([]Spec, 0, len(fields))
	for _, f := range fields {
		s, err := ParseDaily(f)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseOnce parses an ISO-8601 timestamp into a Once spec. Timestamps
// without a zone offset are read in loc.
func ParseOnce(value string, loc *time.Location) (Spec, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Spec{}, &ConfigurationError{Value: value, Reason: "empty timestamp"}
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Once(t), nil
		}
	}

	var lastErr error
	for _, layout := range localLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err != nil {
			lastErr = err
			continue
		}
		return Once(t), nil
	}
	return Spec{}, &ConfigurationError{Value: value, Reason: "expected ISO-8601 timestamp", Err: lastErr}
}
