// Package timer converts periodic activity samples into active and idle time
// accounting and derives lifecycle events from them.
//
// A Timer is driven by repeated Process calls on a fixed cadence. Each call
// advances the counters by one tick and reports at most one Event. Absolute
// instants at which the next limit or reset will fire are precomputed so a
// driver can sleep until then instead of polling.
package timer

import (
	"sync"
	"time"

	"workpace/internal/core/clock"
	"workpace/internal/core/timepred"
)

// Options contains runtime options for a Timer.
type Options struct {
	// TickInterval is the amount of time credited per Process call.
	TickInterval time.Duration
	Clock        clock.Clock
}

// resetRule is either an idle interval or a wall-clock predicate, never both.
type resetRule interface {
	isResetRule()
}

type intervalReset struct {
	interval time.Duration
}

type predicateReset struct {
	predicate timepred.Predicate
}

func (intervalReset) isResetRule()  {}
func (predicateReset) isResetRule() {}

// Timer tracks active and idle time for one activity, such as a micro-break.
type Timer struct {
	mu      sync.Mutex
	options Options
	id      string

	enabled       bool
	frozen        bool
	state         State
	previousState State
	pending       Event
	monitor       ActivityMonitor

	activitySensitive      bool
	insensitiveMode        InsensitiveMode
	insensitiveAutoRestart bool
	holdIdle               bool
	manualRun              bool
	forceIdle              bool

	elapsedTime      time.Duration
	elapsedIdleTime  time.Duration
	idleSpan         time.Duration
	totalOverdueTime time.Duration

	limitEnabled     bool
	limitInterval    time.Duration
	autoResetEnabled bool
	autoReset        resetRule
	snoozeInterval   time.Duration
	snoozeInhibited  bool

	lastStartTime     time.Time
	lastStopTime      time.Time
	lastResetTime     time.Time
	lastPredResetTime time.Time
	lastLimitTime     time.Time
	lastLimitElapsed  time.Duration

	nextResetTime     time.Time
	nextPredResetTime time.Time
	nextLimitTime     time.Time
}

// New creates a disabled Timer in the invalid state.
func New(id string, options Options) *Timer {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.Clock == nil {
		options.Clock = clock.Real{}
	}

	return &Timer{
		options:           options,
		id:                id,
		state:             StateInvalid,
		previousState:     StateInvalid,
		pending:           EventNone,
		activitySensitive: true,
		insensitiveMode:   InsensitiveFollowIdle,
		autoReset:         intervalReset{},
	}
}

// ID returns the timer identifier used as persistence key.
func (timer *Timer) ID() string {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.id
}

// SetID changes the timer identifier.
func (timer *Timer) SetID(id string) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.id = id
}

// Enable makes Process effective.
func (timer *Timer) Enable() {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	if timer.enabled {
		return
	}
	timer.enabled = true
	timer.computeSchedulesLocked(timer.options.Clock.Now())
}

// Disable makes Process a no-op. A running timer is stopped.
func (timer *Timer) Disable() {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	if !timer.enabled {
		return
	}
	timer.enabled = false
	now := timer.options.Clock.Now()
	if timer.state == StateRunning {
		timer.stopLocked(now)
	}
	timer.computeSchedulesLocked(now)
}

// IsEnabled reports whether the timer is enabled.
func (timer *Timer) IsEnabled() bool {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.enabled
}

// State returns the current lifecycle state.
func (timer *Timer) State() State {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.state
}

// PreviousState returns the state before the most recent Process call.
func (timer *Timer) PreviousState() State {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.previousState
}

// FreezeTimer pauses or resumes active-time accumulation. Idle time still counts.
func (timer *Timer) FreezeTimer(frozen bool) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.frozen = frozen
	timer.computeSchedulesLocked(timer.options.Clock.Now())
}

// IsFrozen reports whether active-time accumulation is paused.
func (timer *Timer) IsFrozen() bool {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.frozen
}

// SetActivityMonitor attaches an activity source that overrides the sample
// passed to Process. The timer never owns the monitor; pass nil to detach.
func (timer *Timer) SetActivityMonitor(monitor ActivityMonitor) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.monitor = monitor
}

// ActivityMonitor returns the attached activity source, or nil.
func (timer *Timer) ActivityMonitor() ActivityMonitor {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.monitor
}

// HasActivityMonitor reports whether an activity source is attached.
func (timer *Timer) HasActivityMonitor() bool {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.monitor != nil
}

// Process advances the timer by one tick using the given activity sample.
func (timer *Timer) Process(sample ActivityState) Info {
	timer.mu.Lock()
	defer timer.mu.Unlock()

	if !timer.enabled {
		return timer.infoLocked(EventNone)
	}

	now := timer.options.Clock.Now()
	if timer.monitor != nil {
		sample = timer.monitor.ActivityState()
	}
	effective := timer.effectiveActivityLocked(sample)
	timer.forceIdle = false

	event := timer.pending
	timer.pending = EventNone

	timer.previousState = timer.state
	event = merge(event, timer.transitionLocked(effective, now))
	event = merge(event, timer.checkResetLocked(now))
	event = merge(event, timer.checkLimitLocked(now))
	return timer.infoLocked(event)
}

// StartTimer starts counting regardless of activity. STARTED is reported by
// the next Process call.
func (timer *Timer) StartTimer() {
	timer.mu.Lock()
	defer timer.mu.Unlock()

	timer.manualRun = true
	timer.holdIdle = false
	if timer.state == StateRunning {
		return
	}
	timer.startLocked(timer.options.Clock.Now())
	timer.pending = merge(timer.pending, EventStarted)
}

// StopTimer stops counting regardless of activity. STOPPED is reported by
// the next Process call.
func (timer *Timer) StopTimer() {
	timer.mu.Lock()
	defer timer.mu.Unlock()

	if timer.state != StateRunning {
		return
	}
	timer.stopLocked(timer.options.Clock.Now())
	timer.pending = merge(timer.pending, EventStopped)
}

// ResetTimer zeroes the elapsed counters. RESET is reported by the next
// Process call.
func (timer *Timer) ResetTimer() {
	timer.mu.Lock()
	defer timer.mu.Unlock()

	timer.resetLocked(timer.options.Clock.Now())
	timer.pending = merge(timer.pending, EventReset)
}

func (timer *Timer) transitionLocked(effective ActivityState, now time.Time) Event {
	tick := timer.options.TickInterval

	if effective == ActivityUnknown {
		return EventNone
	}
	if timer.state == StateInvalid && (timer.frozen || effective != ActivityActive) {
		timer.state = StateStopped
		timer.lastStopTime = now
		timer.addIdleLocked(tick)
		timer.computeSchedulesLocked(now)
		return EventNone
	}
	if timer.frozen {
		if timer.state == StateStopped {
			timer.addIdleLocked(tick)
		}
		return EventNone
	}

	if effective == ActivityActive {
		if timer.state != StateRunning {
			timer.elapsedTime += tick
			timer.startLocked(now)
			return EventStarted
		}
		timer.elapsedTime += tick
		return EventNone
	}

	// The transition tick counts as idle.
	if timer.state == StateRunning {
		timer.stopLocked(now)
		timer.addIdleLocked(tick)
		timer.computeNextResetTimeLocked(now)
		return EventStopped
	}
	timer.addIdleLocked(tick)
	return EventNone
}

func (timer *Timer) addIdleLocked(delta time.Duration) {
	timer.elapsedIdleTime += delta
	timer.idleSpan += delta
}

func (timer *Timer) startLocked(now time.Time) {
	timer.state = StateRunning
	timer.lastStartTime = now
	timer.idleSpan = 0
	timer.computeSchedulesLocked(now)
}

func (timer *Timer) stopLocked(now time.Time) {
	timer.state = StateStopped
	timer.lastStopTime = now
	timer.idleSpan = 0
	timer.manualRun = false
	timer.computeSchedulesLocked(now)
}

func (timer *Timer) infoLocked(event Event) Info {
	return Info{
		Enabled:     timer.enabled,
		Event:       event,
		IdleTime:    timer.elapsedIdleTime,
		ElapsedTime: timer.elapsedTime,
	}
}
