package model

import "time"

// TimerConfig defines one tracked activity and its limit/reset policy.
type TimerConfig struct {
	ID           string
	Enabled      bool
	Limit        time.Duration
	LimitEnabled bool
	Snooze       time.Duration

	// AutoReset is the continuous idle span that resets the timer.
	// AutoResetRule, when set, replaces it with a wall-clock rule such as "day/00:00".
	AutoReset        time.Duration
	AutoResetRule    string
	AutoResetEnabled bool

	ActivitySensitive      bool
	InsensitiveMode        string
	InsensitiveAutoRestart bool
}

// TimeKeeperConfig contains runtime settings for the TimeKeeper driver.
type TimeKeeperConfig struct {
	Timers []TimerConfig

	TickInterval  time.Duration
	IdleThreshold time.Duration
	FlushInterval time.Duration
	StatePath     string
}
