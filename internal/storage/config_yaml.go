package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"workpace/internal/core/model"
	"workpace/internal/core/timepred"
	"workpace/internal/core/timer"
	"workpace/internal/platform"
)

const (
	configFileName = "config.yaml"

	// EnvStateDB overrides the state database path.
	EnvStateDB = "WORKPACE_STATE_DB"
	// EnvTickSeconds overrides the tick interval.
	EnvTickSeconds = "WORKPACE_TICK_SECONDS"
)

type yamlTimer struct {
	ID                     string `yaml:"id"`
	Enabled                *bool  `yaml:"enabled,omitempty"`
	Limit                  string `yaml:"limit,omitempty"`
	LimitEnabled           *bool  `yaml:"limit_enabled,omitempty"`
	Snooze                 string `yaml:"snooze,omitempty"`
	AutoReset              string `yaml:"auto_reset,omitempty"`
	AutoResetRule          string `yaml:"auto_reset_rule,omitempty"`
	AutoResetEnabled       *bool  `yaml:"auto_reset_enabled,omitempty"`
	ActivitySensitive      *bool  `yaml:"activity_sensitive,omitempty"`
	InsensitiveMode        string `yaml:"insensitive_mode,omitempty"`
	InsensitiveAutoRestart *bool  `yaml:"insensitive_auto_restart,omitempty"`
}

type yamlConfig struct {
	TickSeconds          int         `yaml:"tick_seconds,omitempty"`
	IdleThresholdSeconds int         `yaml:"idle_threshold_seconds,omitempty"`
	FlushSeconds         int         `yaml:"flush_seconds,omitempty"`
	StateDB              string      `yaml:"state_db,omitempty"`
	Timers               []yamlTimer `yaml:"timers,omitempty"`
}

// DefaultConfig returns the built-in driver configuration.
func DefaultConfig() model.TimeKeeperConfig {
	return model.TimeKeeperConfig{
		TickInterval:  time.Second,
		IdleThreshold: platform.DefaultIdleThreshold,
		FlushInterval: time.Minute,
		Timers: []model.TimerConfig{
			{
				ID:                "micro_pause",
				Enabled:           true,
				Limit:             3 * time.Minute,
				LimitEnabled:      true,
				Snooze:            150 * time.Second,
				AutoReset:         30 * time.Second,
				AutoResetEnabled:  true,
				ActivitySensitive: true,
				InsensitiveMode:   string(timer.InsensitiveFollowIdle),
			},
			{
				ID:                "rest_break",
				Enabled:           true,
				Limit:             45 * time.Minute,
				LimitEnabled:      true,
				Snooze:            3 * time.Minute,
				AutoReset:         10 * time.Minute,
				AutoResetEnabled:  true,
				ActivitySensitive: true,
				InsensitiveMode:   string(timer.InsensitiveFollowIdle),
			},
			{
				ID:                "daily_limit",
				Enabled:           true,
				Limit:             4 * time.Hour,
				LimitEnabled:      true,
				Snooze:            20 * time.Minute,
				AutoResetRule:     "day/00:00",
				AutoResetEnabled:  true,
				ActivitySensitive: true,
				InsensitiveMode:   string(timer.InsensitiveFollowIdle),
			},
		},
	}
}

// DefaultConfigPath returns the config file location under the user config dir.
func DefaultConfigPath(appName string) (string, error) {
	configDir, err := platform.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName, configFileName), nil
}

// LoadConfig reads the driver configuration from YAML and applies environment
// overrides. A missing file yields the defaults.
func LoadConfig(path string) (model.TimeKeeperConfig, error) {
	config := DefaultConfig()

	rawData, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return config, fmt.Errorf("read config file: %w", err)
	default:
		var fileData yamlConfig
		if err := yaml.Unmarshal(rawData, &fileData); err != nil {
			return config, fmt.Errorf("parse config yaml: %w", err)
		}
		if err := applyYamlConfig(&config, fileData); err != nil {
			return config, err
		}
	}

	if err := applyEnv(&config); err != nil {
		return config, err
	}
	return config, nil
}

// SaveConfig writes the driver configuration to YAML.
func SaveConfig(path string, config model.TimeKeeperConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	fileData := yamlConfig{
		TickSeconds:          int(config.TickInterval / time.Second),
		IdleThresholdSeconds: int(config.IdleThreshold / time.Second),
		FlushSeconds:         int(config.FlushInterval / time.Second),
		StateDB:              config.StatePath,
	}
	for _, timerConfig := range config.Timers {
		fileData.Timers = append(fileData.Timers, toYamlTimer(timerConfig))
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal config yaml: %w", err)
	}
	if err := os.WriteFile(path, serialized, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func applyYamlConfig(config *model.TimeKeeperConfig, fileData yamlConfig) error {
	if fileData.TickSeconds > 0 {
		config.TickInterval = time.Duration(fileData.TickSeconds) * time.Second
	}
	if fileData.IdleThresholdSeconds > 0 {
		config.IdleThreshold = time.Duration(fileData.IdleThresholdSeconds) * time.Second
	}
	if fileData.FlushSeconds > 0 {
		config.FlushInterval = time.Duration(fileData.FlushSeconds) * time.Second
	}
	if fileData.StateDB != "" {
		config.StatePath = fileData.StateDB
	}

	for _, entry := range fileData.Timers {
		if entry.ID == "" {
			return errors.New("config: timer without id")
		}
		index := -1
		for i := range config.Timers {
			if config.Timers[i].ID == entry.ID {
				index = i
				break
			}
		}
		if index < 0 {
			config.Timers = append(config.Timers, model.TimerConfig{
				ID:                entry.ID,
				Enabled:           true,
				LimitEnabled:      true,
				AutoResetEnabled:  true,
				ActivitySensitive: true,
				InsensitiveMode:   string(timer.InsensitiveFollowIdle),
			})
			index = len(config.Timers) - 1
		}
		if err := applyYamlTimer(&config.Timers[index], entry); err != nil {
			return fmt.Errorf("config: timer %s: %w", entry.ID, err)
		}
	}
	return nil
}

func applyYamlTimer(config *model.TimerConfig, entry yamlTimer) error {
	for _, field := range []struct {
		value  string
		target *time.Duration
	}{
		{entry.Limit, &config.Limit},
		{entry.Snooze, &config.Snooze},
		{entry.AutoReset, &config.AutoReset},
	} {
		if field.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(field.value)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", field.value, err)
		}
		*field.target = max(parsed, 0)
	}

	if entry.AutoResetRule != "" {
		if _, err := timepred.Parse(entry.AutoResetRule); err != nil {
			return err
		}
		config.AutoResetRule = entry.AutoResetRule
	} else if entry.AutoReset != "" {
		config.AutoResetRule = ""
	}

	if entry.InsensitiveMode != "" {
		mode := timer.InsensitiveMode(entry.InsensitiveMode)
		if !mode.Valid() {
			return fmt.Errorf("unknown insensitive mode %q", entry.InsensitiveMode)
		}
		config.InsensitiveMode = entry.InsensitiveMode
	}

	overlayBool(&config.Enabled, entry.Enabled)
	overlayBool(&config.LimitEnabled, entry.LimitEnabled)
	overlayBool(&config.AutoResetEnabled, entry.AutoResetEnabled)
	overlayBool(&config.ActivitySensitive, entry.ActivitySensitive)
	overlayBool(&config.InsensitiveAutoRestart, entry.InsensitiveAutoRestart)
	return nil
}

func overlayBool(target *bool, value *bool) {
	if value != nil {
		*target = *value
	}
}

func applyEnv(config *model.TimeKeeperConfig) error {
	if path := os.Getenv(EnvStateDB); path != "" {
		config.StatePath = path
	}
	if value := os.Getenv(EnvTickSeconds); value != "" {
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds <= 0 {
			return fmt.Errorf("%s: expected a positive number of seconds, got %q", EnvTickSeconds, value)
		}
		config.TickInterval = time.Duration(seconds) * time.Second
	}
	return nil
}

func toYamlTimer(config model.TimerConfig) yamlTimer {
	entry := yamlTimer{
		ID:                     config.ID,
		Enabled:                &config.Enabled,
		Limit:                  FormatDuration(config.Limit),
		LimitEnabled:           &config.LimitEnabled,
		Snooze:                 FormatDuration(config.Snooze),
		AutoResetRule:          config.AutoResetRule,
		AutoResetEnabled:       &config.AutoResetEnabled,
		ActivitySensitive:      &config.ActivitySensitive,
		InsensitiveMode:        config.InsensitiveMode,
		InsensitiveAutoRestart: &config.InsensitiveAutoRestart,
	}
	if config.AutoResetRule == "" {
		entry.AutoReset = FormatDuration(config.AutoReset)
	}
	return entry
}

// FormatDuration drops zero trailing units: 45m0s becomes 45m, 4h0m0s becomes 4h.
func FormatDuration(value time.Duration) string {
	text := value.String()
	if strings.HasSuffix(text, "m0s") {
		text = strings.TrimSuffix(text, "0s")
	}
	if strings.HasSuffix(text, "h0m") {
		text = strings.TrimSuffix(text, "0m")
	}
	return text
}
