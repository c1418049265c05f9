package timer

import (
	"time"

	"workpace/internal/core/timepred"
)

// SetLimit sets the elapsed time at which LIMIT_REACHED fires.
// Negative values are clamped to zero, which disables the limit.
func (timer *Timer) SetLimit(limit time.Duration) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.limitInterval = clampDuration(limit)
	timer.computeSchedulesLocked(timer.options.Clock.Now())
}

// Limit returns the configured limit.
func (timer *Timer) Limit() time.Duration {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.limitInterval
}

// SetLimitEnabled toggles the limit check.
func (timer *Timer) SetLimitEnabled(enabled bool) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.limitEnabled = enabled
	timer.computeSchedulesLocked(timer.options.Clock.Now())
}

// IsLimitEnabled reports whether the limit check is active.
func (timer *Timer) IsLimitEnabled() bool {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.limitEnabled
}

// SetAutoReset configures a natural reset after a continuous idle span of the
// given length. It replaces any reset predicate.
func (timer *Timer) SetAutoReset(interval time.Duration) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.autoReset = intervalReset{interval: clampDuration(interval)}
	timer.computeSchedulesLocked(timer.options.Clock.Now())
}

// SetAutoResetPredicate configures a natural reset whenever the predicate
// fires. It replaces any reset interval. A nil predicate clears the rule.
// Setting the rule already in use keeps its pending fire instant.
func (timer *Timer) SetAutoResetPredicate(predicate timepred.Predicate) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	unchanged := false
	if current, ok := timer.autoReset.(predicateReset); ok && predicate != nil {
		unchanged = current.predicate.String() == predicate.String()
	}
	if predicate == nil {
		timer.autoReset = intervalReset{}
	} else {
		timer.autoReset = predicateReset{predicate: predicate}
	}
	if !unchanged {
		timer.nextPredResetTime = time.Time{}
	}
	timer.computeSchedulesLocked(timer.options.Clock.Now())
}

// AutoReset returns the idle reset interval, or zero when a predicate is used.
func (timer *Timer) AutoReset() time.Duration {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	if rule, ok := timer.autoReset.(intervalReset); ok {
		return rule.interval
	}
	return 0
}

// AutoResetPredicate returns the reset predicate, or nil when an interval is used.
func (timer *Timer) AutoResetPredicate() timepred.Predicate {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	if rule, ok := timer.autoReset.(predicateReset); ok {
		return rule.predicate
	}
	return nil
}

// SetAutoResetEnabled toggles natural resets.
func (timer *Timer) SetAutoResetEnabled(enabled bool) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.autoResetEnabled = enabled
	timer.computeSchedulesLocked(timer.options.Clock.Now())
}

// IsAutoResetEnabled reports whether natural resets are active.
func (timer *Timer) IsAutoResetEnabled() bool {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.autoResetEnabled
}

// ElapsedTime returns the accumulated active time.
func (timer *Timer) ElapsedTime() time.Duration {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.elapsedTime
}

// ElapsedIdleTime returns the accumulated idle time.
func (timer *Timer) ElapsedIdleTime() time.Duration {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.elapsedIdleTime
}

// TotalOverdueTime returns the time spent beyond the limit since the last daily reset.
func (timer *Timer) TotalOverdueTime() time.Duration {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.totalOverdueTime
}

// NextLimitTime returns the projected instant of the next LIMIT_REACHED,
// assuming the timer keeps running. Zero means no limit is pending.
func (timer *Timer) NextLimitTime() time.Time {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.nextLimitTime
}

// NextResetTime returns the instant of the next natural reset for the
// configured rule. Zero means no reset is pending.
func (timer *Timer) NextResetTime() time.Time {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	if _, ok := timer.autoReset.(predicateReset); ok {
		return timer.nextPredResetTime
	}
	return timer.nextResetTime
}

// LastLimitTime returns when LIMIT_REACHED last fired or the timer was snoozed.
func (timer *Timer) LastLimitTime() time.Time {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.lastLimitTime
}

// DailyResetTimer clears the overdue counter. The driver calls it once per day.
func (timer *Timer) DailyResetTimer() {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.totalOverdueTime = 0
}

// ShiftTime moves every stored absolute instant by delta after a system clock
// jump. Duration counters are left untouched.
func (timer *Timer) ShiftTime(delta time.Duration) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.shiftLocked(delta)
}

func (timer *Timer) shiftLocked(delta time.Duration) {
	for _, instant := range []*time.Time{
		&timer.lastStartTime,
		&timer.lastStopTime,
		&timer.lastResetTime,
		&timer.lastPredResetTime,
		&timer.lastLimitTime,
		&timer.nextResetTime,
		&timer.nextPredResetTime,
		&timer.nextLimitTime,
	} {
		if !instant.IsZero() {
			*instant = instant.Add(delta)
		}
	}
}

func (timer *Timer) checkResetLocked(now time.Time) Event {
	if !timer.autoResetEnabled || timer.state != StateStopped {
		return EventNone
	}

	switch rule := timer.autoReset.(type) {
	case intervalReset:
		if rule.interval > 0 && timer.elapsedTime > 0 && timer.idleSpan >= rule.interval {
			timer.resetLocked(now)
			return EventNaturalReset
		}
	case predicateReset:
		if !timer.nextPredResetTime.IsZero() && !now.Before(timer.nextPredResetTime) {
			timer.lastPredResetTime = now
			timer.resetLocked(now)
			return EventNaturalReset
		}
	}
	return EventNone
}

func (timer *Timer) checkLimitLocked(now time.Time) Event {
	if !timer.limitArmedLocked() || timer.elapsedTime < timer.limitInterval {
		return EventNone
	}
	if !timer.snoozeInhibited {
		if timer.lastLimitElapsed > 0 && timer.snoozeInterval <= 0 {
			return EventNone
		}
		if !timer.lastLimitTime.IsZero() && now.Sub(timer.lastLimitTime) < timer.snoozeInterval {
			return EventNone
		}
	}

	timer.totalOverdueTime += timer.overdueSinceLastLimitLocked()
	timer.lastLimitTime = now
	timer.lastLimitElapsed = timer.elapsedTime
	timer.snoozeInhibited = false
	if !timer.activitySensitive && timer.insensitiveMode == InsensitiveIdleOnLimitReached {
		timer.manualRun = false
	}
	timer.computeNextLimitTimeLocked(now)
	return EventLimitReached
}

func (timer *Timer) limitArmedLocked() bool {
	return timer.enabled &&
		timer.limitEnabled &&
		timer.limitInterval > 0 &&
		timer.state == StateRunning &&
		!timer.frozen
}

// overdueSinceLastLimitLocked returns the part of elapsed time beyond the limit
// that has not yet been added to the overdue counter.
func (timer *Timer) overdueSinceLastLimitLocked() time.Duration {
	if !timer.limitEnabled || timer.limitInterval <= 0 {
		return 0
	}
	counted := max(timer.limitInterval, timer.lastLimitElapsed)
	if timer.elapsedTime <= counted {
		return 0
	}
	return timer.elapsedTime - counted
}

func (timer *Timer) resetLocked(now time.Time) {
	timer.totalOverdueTime += timer.overdueSinceLastLimitLocked()
	if !timer.activitySensitive &&
		timer.insensitiveMode == InsensitiveIdleOnLimitReached &&
		timer.lastLimitElapsed > 0 &&
		!timer.insensitiveAutoRestart {
		timer.holdIdle = true
	}

	timer.elapsedTime = 0
	timer.elapsedIdleTime = 0
	timer.idleSpan = 0
	timer.lastLimitElapsed = 0
	timer.snoozeInhibited = false
	timer.lastResetTime = now
	if timer.state == StateRunning {
		timer.lastStartTime = now
	}
	timer.computeSchedulesLocked(now)
}

func (timer *Timer) computeSchedulesLocked(now time.Time) {
	timer.computeNextLimitTimeLocked(now)
	timer.computeNextResetTimeLocked(now)
	timer.computeNextPredicateResetTimeLocked(now)
}

func (timer *Timer) computeNextLimitTimeLocked(now time.Time) {
	timer.nextLimitTime = time.Time{}
	if !timer.limitArmedLocked() {
		return
	}

	next := now
	if timer.elapsedTime < timer.limitInterval {
		next = now.Add(timer.limitInterval - timer.elapsedTime)
	}
	if !timer.snoozeInhibited && !timer.lastLimitTime.IsZero() {
		if timer.lastLimitElapsed > 0 && timer.snoozeInterval <= 0 {
			return
		}
		if snoozeEnd := timer.lastLimitTime.Add(timer.snoozeInterval); snoozeEnd.After(next) {
			next = snoozeEnd
		}
	}
	timer.nextLimitTime = next
}

func (timer *Timer) computeNextResetTimeLocked(now time.Time) {
	timer.nextResetTime = time.Time{}
	rule, ok := timer.autoReset.(intervalReset)
	if !ok || !timer.enabled || !timer.autoResetEnabled || rule.interval <= 0 {
		return
	}
	if timer.state != StateStopped || timer.elapsedTime <= 0 {
		return
	}
	remaining := rule.interval - timer.idleSpan
	if remaining < 0 {
		remaining = 0
	}
	timer.nextResetTime = now.Add(remaining)
}

// computeNextPredicateResetTimeLocked keeps a pending fire instant until the
// predicate fires; without a previous fire the rule is anchored at the moment
// it was first evaluated.
func (timer *Timer) computeNextPredicateResetTimeLocked(now time.Time) {
	rule, ok := timer.autoReset.(predicateReset)
	if !ok || !timer.enabled || !timer.autoResetEnabled {
		timer.nextPredResetTime = time.Time{}
		return
	}
	switch {
	case !timer.lastPredResetTime.IsZero():
		timer.nextPredResetTime = rule.predicate.Next(timer.lastPredResetTime)
	case timer.nextPredResetTime.IsZero():
		timer.nextPredResetTime = rule.predicate.Next(now)
	}
}

func clampDuration(value time.Duration) time.Duration {
	if value < 0 {
		return 0
	}
	return value
}
