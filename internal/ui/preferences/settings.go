package preferences

import (
	"fmt"
	"strings"
	"time"

	"workpace/internal/core/model"
	"workpace/internal/core/timepred"
	"workpace/internal/storage"
)

// TimerSettings holds the editable fields of one timer as entered in the form.
type TimerSettings struct {
	ID                string
	Enabled           bool
	Limit             string
	Snooze            string
	// AutoReset is either an idle duration such as "10m" or a rule such as "day/00:00".
	AutoReset         string
	ActivitySensitive bool
}

// FromConfig extracts the editable fields of every configured timer.
func FromConfig(config model.TimeKeeperConfig) []TimerSettings {
	settings := make([]TimerSettings, 0, len(config.Timers))
	for _, timerConfig := range config.Timers {
		autoReset := timerConfig.AutoResetRule
		if autoReset == "" {
			autoReset = storage.FormatDuration(timerConfig.AutoReset)
		}
		settings = append(settings, TimerSettings{
			ID:                timerConfig.ID,
			Enabled:           timerConfig.Enabled,
			Limit:             storage.FormatDuration(timerConfig.Limit),
			Snooze:            storage.FormatDuration(timerConfig.Snooze),
			AutoReset:         autoReset,
			ActivitySensitive: timerConfig.ActivitySensitive,
		})
	}
	return settings
}

// Apply returns a copy of config with the edited fields applied by timer id.
// Timers without settings keep their configuration.
func Apply(config model.TimeKeeperConfig, settings []TimerSettings) (model.TimeKeeperConfig, error) {
	updated := config
	updated.Timers = append([]model.TimerConfig(nil), config.Timers...)

	for _, entry := range settings {
		index := -1
		for i := range updated.Timers {
			if updated.Timers[i].ID == entry.ID {
				index = i
				break
			}
		}
		if index < 0 {
			return config, fmt.Errorf("unknown timer %q", entry.ID)
		}
		if err := applyTimerSettings(&updated.Timers[index], entry); err != nil {
			return config, fmt.Errorf("%s: %w", entry.ID, err)
		}
	}
	return updated, nil
}

func applyTimerSettings(target *model.TimerConfig, entry TimerSettings) error {
	limit, err := parseDuration("limit", entry.Limit)
	if err != nil {
		return err
	}
	snooze, err := parseDuration("snooze", entry.Snooze)
	if err != nil {
		return err
	}

	autoReset := strings.TrimSpace(entry.AutoReset)
	if strings.Contains(autoReset, "/") {
		if _, err := timepred.Parse(autoReset); err != nil {
			return fmt.Errorf("auto reset: %w", err)
		}
		target.AutoResetRule = autoReset
	} else {
		idle, err := parseDuration("auto reset", autoReset)
		if err != nil {
			return err
		}
		target.AutoReset = idle
		target.AutoResetRule = ""
	}

	target.Enabled = entry.Enabled
	target.Limit = limit
	target.Snooze = snooze
	target.ActivitySensitive = entry.ActivitySensitive
	return nil
}

// parseDuration accepts Go duration text or a bare number of minutes; empty means zero.
func parseDuration(field, value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		minutes, minutesErr := time.ParseDuration(value + "m")
		if minutesErr != nil {
			return 0, fmt.Errorf("%s: invalid duration %q", field, value)
		}
		parsed = minutes
	}
	if parsed < 0 {
		return 0, fmt.Errorf("%s: duration must not be negative", field)
	}
	return parsed, nil
}
