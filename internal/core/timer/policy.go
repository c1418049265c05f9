package timer

import "time"

// SetActivitySensitive chooses whether the timer follows the activity sample.
func (timer *Timer) SetActivitySensitive(sensitive bool) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.activitySensitive = sensitive
	if sensitive {
		timer.holdIdle = false
	}
}

// ActivitySensitive reports whether the timer follows the activity sample.
func (timer *Timer) ActivitySensitive() bool {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.activitySensitive
}

// SetInsensitiveMode sets the policy used while the timer is not activity
// sensitive. Unknown modes fall back to InsensitiveFollowIdle.
func (timer *Timer) SetInsensitiveMode(mode InsensitiveMode) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	if !mode.Valid() {
		mode = InsensitiveFollowIdle
	}
	timer.insensitiveMode = mode
	timer.holdIdle = false
}

// InsensitiveMode returns the policy used while the timer is not activity sensitive.
func (timer *Timer) InsensitiveMode() InsensitiveMode {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.insensitiveMode
}

// SetInsensitiveAutoRestart chooses whether an insensitive timer forced idle by
// its limit resumes on the next reset, or waits for StartTimer.
func (timer *Timer) SetInsensitiveAutoRestart(autoRestart bool) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.insensitiveAutoRestart = autoRestart
	if autoRestart && timer.lastLimitElapsed == 0 {
		timer.holdIdle = false
	}
}

// ForceIdle makes the next Process call treat activity as idle, whatever the mode.
func (timer *Timer) ForceIdle() {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.forceIdle = true
}

// SnoozeTimer postpones the next LIMIT_REACHED by at least the snooze interval.
func (timer *Timer) SnoozeTimer() {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	now := timer.options.Clock.Now()
	timer.lastLimitTime = now
	timer.snoozeInhibited = false
	timer.computeNextLimitTimeLocked(now)
}

// InhibitSnooze lets the next limit check fire without waiting for the snooze interval.
func (timer *Timer) InhibitSnooze() {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.snoozeInhibited = true
	timer.computeNextLimitTimeLocked(timer.options.Clock.Now())
}

// SetSnoozeInterval sets the minimum spacing between LIMIT_REACHED events.
// Zero disables repeats: the limit then fires once per reset.
func (timer *Timer) SetSnoozeInterval(interval time.Duration) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.snoozeInterval = clampDuration(interval)
	timer.computeNextLimitTimeLocked(timer.options.Clock.Now())
}

// Snooze returns the snooze interval.
func (timer *Timer) Snooze() time.Duration {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.snoozeInterval
}

// effectiveActivityLocked resolves the activity used for transitions this tick.
func (timer *Timer) effectiveActivityLocked(sample ActivityState) ActivityState {
	if timer.forceIdle {
		return ActivityIdle
	}
	if sample == ActivitySuspended {
		sample = ActivityIdle
	}
	if timer.activitySensitive {
		return sample
	}

	switch timer.insensitiveMode {
	case InsensitiveIdleOnLimitReached:
		if timer.manualRun {
			return ActivityActive
		}
		if timer.holdIdle || timer.lastLimitElapsed > 0 {
			return ActivityIdle
		}
		return ActivityActive
	case InsensitiveIdleAlways:
		if timer.manualRun {
			return ActivityActive
		}
		return ActivityIdle
	default:
		return sample
	}
}
