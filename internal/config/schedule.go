package config

import (
	"fmt"
	"time"

	"github.com/aatumaykin/iliassync/internal/trigger"
)

// Location returns the scheduler timezone; empty means the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Schedule.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule.timezone %q: %w", c.Schedule.Timezone, err)
	}
	return loc, nil
}

// Triggers builds the trigger specs for schedule.times and schedule.once.
// Malformed values are returned as *trigger.ConfigurationError.
func (c *Config) Triggers() ([]trigger.Spec, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	specs, err := trigger.ParseDailyList(c.Schedule.Times)
	if err != nil {
		return nil, fmt.Errorf("schedule.times: %w", err)
	}

	for _, value := range c.Schedule.Once {
		spec, err := trigger.ParseOnce(value, loc)
		if err != nil {
			return nil, fmt.Errorf("schedule.once: %w", err)
		}
		specs = append(specs, spec)
	}

	return specs, nil
}
