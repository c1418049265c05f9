package timekeeper

import (
	"time"

	"workpace/internal/core/timer"
)

// EventType defines the type of TimeKeeper event.
type EventType string

const (
	// EventTimer carries a lifecycle event reported by one timer.
	EventTimer EventType = "timer"
	// EventTick is published once per processed tick.
	EventTick          EventType = "tick"
	EventDailyReset    EventType = "daily_reset"
	EventClockShift    EventType = "clock_shift"
	EventActivityError EventType = "activity_error"
	EventPaused        EventType = "paused"
	EventResumed       EventType = "resumed"
)

// Event represents a TimeKeeper update for observers.
type Event struct {
	Type    EventType
	TimerID string
	Timer   timer.Event
	Info    timer.Info
	// Shift is the wall-clock correction applied for EventClockShift.
	Shift   time.Duration
	Message string
	At      time.Time
}

// Status is a point-in-time view of one timer.
type Status struct {
	ID        string
	Enabled   bool
	State     timer.State
	Frozen    bool
	Elapsed   time.Duration
	Idle      time.Duration
	Overdue   time.Duration
	Limit     time.Duration
	NextLimit time.Time
	NextReset time.Time
}

// Remaining returns the active time left before the limit, or zero.
func (status Status) Remaining() time.Duration {
	if status.Limit <= 0 || status.Elapsed >= status.Limit {
		return 0
	}
	return status.Limit - status.Elapsed
}
